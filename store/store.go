// Package store is the persistence gateway of the response engine: data
// points, form instances and their responses, kept in a local SQLite
// database the way the mobile client keeps them on device.
package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/akvo/flow-forms/model"
)

var ErrNotFound = errors.New("store: not found")

// Gateway is the boundary the response tracker talks to. Implementations
// must keep (form_instance_id, question_id, iteration) unique: upserting an
// existing slot overwrites, never duplicates.
type Gateway interface {
	GetResponses(ctx context.Context, formInstanceID int64) (map[string]*model.QuestionResponse, error)
	UpsertResponse(ctx context.Context, resp *model.QuestionResponse) (int64, error)
	DeleteResponse(ctx context.Context, formInstanceID int64, questionID string, iteration int) error

	CreateDataPoint(ctx context.Context, surveyGroupID int64, name string) (*model.DataPoint, error)
	GetDataPoint(ctx context.Context, id string) (*model.DataPoint, error)
	ListDataPoints(ctx context.Context, surveyGroupID int64) ([]model.DataPoint, error)

	CreateFormInstance(ctx context.Context, dataPointID, surveyID string, version float64) (*model.FormInstance, error)
	GetFormInstance(ctx context.Context, id int64) (*model.FormInstance, error)
	ListFormInstances(ctx context.Context, dataPointID string) ([]model.FormInstance, error)
	MarkSubmitted(ctx context.Context, formInstanceID int64) error
	SubmittedInstanceExists(ctx context.Context, dataPointID, surveyID string) (bool, error)
	LatestSubmittedInstance(ctx context.Context, dataPointID, surveyID string) (*model.FormInstance, error)
}
