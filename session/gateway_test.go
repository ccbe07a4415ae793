package session

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/akvo/flow-forms/model"
	"github.com/akvo/flow-forms/store"
)

// fakeGateway is an in-memory store.Gateway for tracker tests. failUpsert
// injects a write failure for a single question id.
type fakeGateway struct {
	nextID     int64
	rows       map[int64]*model.QuestionResponse
	submitted  map[string]bool
	instances  []*model.FormInstance
	failUpsert map[string]bool
}

var _ store.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextID:     1,
		rows:       make(map[int64]*model.QuestionResponse),
		submitted:  make(map[string]bool),
		failUpsert: make(map[string]bool),
	}
}

func (g *fakeGateway) GetResponses(ctx context.Context, formInstanceID int64) (map[string]*model.QuestionResponse, error) {
	out := make(map[string]*model.QuestionResponse)
	for _, r := range g.rows {
		if r.FormInstanceID == formInstanceID {
			c := *r
			out[c.Key()] = &c
		}
	}
	return out, nil
}

func (g *fakeGateway) UpsertResponse(ctx context.Context, resp *model.QuestionResponse) (int64, error) {
	if g.failUpsert[resp.QuestionID] {
		return 0, errors.New("injected upsert failure")
	}
	for id, r := range g.rows {
		if r.FormInstanceID == resp.FormInstanceID && r.QuestionID == resp.QuestionID && r.Iteration == resp.Iteration {
			c := *resp
			c.ID = id
			g.rows[id] = &c
			return id, nil
		}
	}
	id := g.nextID
	g.nextID++
	c := *resp
	c.ID = id
	g.rows[id] = &c
	return id, nil
}

func (g *fakeGateway) DeleteResponse(ctx context.Context, formInstanceID int64, questionID string, iteration int) error {
	for id, r := range g.rows {
		if r.FormInstanceID == formInstanceID && r.QuestionID == questionID && r.Iteration == iteration {
			delete(g.rows, id)
		}
	}
	return nil
}

func (g *fakeGateway) rowCount() int {
	return len(g.rows)
}

func (g *fakeGateway) values(formInstanceID int64) map[string]string {
	out := make(map[string]string)
	for _, r := range g.rows {
		if r.FormInstanceID == formInstanceID {
			out[r.Key()] = r.Value
		}
	}
	return out
}

func (g *fakeGateway) ids() []int64 {
	out := make([]int64, 0, len(g.rows))
	for id := range g.rows {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *fakeGateway) CreateDataPoint(ctx context.Context, surveyGroupID int64, name string) (*model.DataPoint, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGateway) GetDataPoint(ctx context.Context, id string) (*model.DataPoint, error) {
	return nil, store.ErrNotFound
}

func (g *fakeGateway) ListDataPoints(ctx context.Context, surveyGroupID int64) ([]model.DataPoint, error) {
	return nil, nil
}

func (g *fakeGateway) CreateFormInstance(ctx context.Context, dataPointID, surveyID string, version float64) (*model.FormInstance, error) {
	return nil, errors.New("not implemented")
}

func (g *fakeGateway) GetFormInstance(ctx context.Context, id int64) (*model.FormInstance, error) {
	return nil, store.ErrNotFound
}

func (g *fakeGateway) ListFormInstances(ctx context.Context, dataPointID string) ([]model.FormInstance, error) {
	return nil, nil
}

func (g *fakeGateway) MarkSubmitted(ctx context.Context, formInstanceID int64) error {
	return nil
}

func (g *fakeGateway) SubmittedInstanceExists(ctx context.Context, dataPointID, surveyID string) (bool, error) {
	return g.submitted[dataPointID+"/"+surveyID], nil
}

func (g *fakeGateway) LatestSubmittedInstance(ctx context.Context, dataPointID, surveyID string) (*model.FormInstance, error) {
	var latest *model.FormInstance
	for _, fi := range g.instances {
		if fi.DataPointID != dataPointID || fi.SurveyID != surveyID || !fi.Submitted() {
			continue
		}
		if latest == nil || *fi.SubmittedAt > *latest.SubmittedAt {
			latest = fi
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}
