// Package session holds the per-edit-session state of one form instance: the
// authoritative in-memory view of its responses and the rules for reconciling
// that view against the persistence gateway. One Tracker is built per edit
// session and discarded at session end; there is no shared state.
package session

import (
	"context"
	"sort"

	"github.com/akvo/flow-forms/log"
	"github.com/akvo/flow-forms/model"
	"github.com/akvo/flow-forms/store"
	"github.com/akvo/flow-forms/validate"
)

// Tracker tracks the live responses of one form instance. It is meant for a
// single foreground session; callers running persistence on a worker must
// serialize Hydrate and Commit per instance themselves.
type Tracker struct {
	survey     *model.Survey
	gateway    store.Gateway
	instanceID int64
	values     map[string]*model.QuestionResponse
}

func NewTracker(survey *model.Survey, gateway store.Gateway, formInstanceID int64) *Tracker {
	return &Tracker{
		survey:     survey,
		gateway:    gateway,
		instanceID: formInstanceID,
		values:     make(map[string]*model.QuestionResponse),
	}
}

// Hydrate loads persisted responses into memory. With prefill set, each
// response is copied from its source instance: stripped of its persisted id,
// re-targeted to this instance and written through immediately, so the copy
// is materialized even if the session is abandoned. Write failures on the
// prefill path are logged and skipped, the value stays usable in memory.
func (t *Tracker) Hydrate(ctx context.Context, responses map[string]*model.QuestionResponse, prefill bool) {
	for _, src := range responses {
		r := *src
		if prefill {
			r.ID = 0
			r.FormInstanceID = t.instanceID

			id, err := t.gateway.UpsertResponse(ctx, &r)
			if err != nil {
				log.Errorf("session.hydrate.prefill: question %s: %s", r.QuestionID, err)
			} else {
				r.ID = id
			}
		}
		t.values[r.Key()] = &r
	}
}

// SetValue records an edit in memory only; nothing is written until Commit.
func (t *Tracker) SetValue(questionID, value string, responseType model.ResponseType, iteration int) {
	key := model.ResponseKey(questionID, iteration)
	if r, ok := t.values[key]; ok {
		r.Value = value
		r.Type = responseType
		return
	}
	t.values[key] = &model.QuestionResponse{
		QuestionID:     questionID,
		FormInstanceID: t.instanceID,
		Value:          value,
		Type:           responseType,
		Iteration:      iteration,
	}
}

// CurrentResponses returns a point-in-time snapshot of the live values,
// keyed by model.ResponseKey. It never reads from storage.
func (t *Tracker) CurrentResponses() map[string]*model.QuestionResponse {
	snapshot := make(map[string]*model.QuestionResponse, len(t.values))
	for k, r := range t.values {
		c := *r
		snapshot[k] = &c
	}
	return snapshot
}

// ValidateAll returns every mandatory question without a passing response,
// in ascending order index. An empty result means the instance is submittable.
func (t *Tracker) ValidateAll() []model.Question {
	return validate.Answers(t.survey, t.values)
}

// Commit reconciles the in-memory state with the gateway: non-empty values
// are upserted, previously persisted values cleared to empty are deleted,
// never-persisted empties are discarded. Every slot is processed even when
// some writes fail; failures are logged per question and never abort the
// rest, so a second Commit can retry them. With no intervening edits a second
// Commit is a no-op diff.
func (t *Tracker) Commit(ctx context.Context) {
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		r := t.values[key]
		switch {
		case r.HasValue():
			id, err := t.gateway.UpsertResponse(ctx, r)
			if err != nil {
				log.Errorf("session.commit.upsert: question %s: %s", r.QuestionID, err)
				continue
			}
			r.ID = id

		case r.ID != 0:
			err := t.gateway.DeleteResponse(ctx, r.FormInstanceID, r.QuestionID, r.Iteration)
			if err != nil {
				log.Errorf("session.commit.delete: question %s: %s", r.QuestionID, err)
				continue
			}
			delete(t.values, key)

		default:
			// never persisted and still empty: nothing to keep
			delete(t.values, key)
		}
	}
}

// Reset drops all in-memory responses without touching the gateway.
func (t *Tracker) Reset() {
	t.values = make(map[string]*model.QuestionResponse)
}

func (t *Tracker) Survey() *model.Survey {
	return t.survey
}

func (t *Tracker) FormInstanceID() int64 {
	return t.instanceID
}
