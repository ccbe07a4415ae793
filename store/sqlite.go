package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/akvo/flow-forms/model"
)

// SQLite implements Gateway over a migrated *sql.DB.
type SQLite struct {
	db *sql.DB
}

var _ Gateway = (*SQLite)(nil)

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) GetResponses(ctx context.Context, formInstanceID int64) (map[string]*model.QuestionResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_id, iteration, type, value
		FROM response
		WHERE form_instance_id = ?`,
		formInstanceID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_responses")
	}
	defer rows.Close()

	responses := make(map[string]*model.QuestionResponse)
	for rows.Next() {
		r := model.QuestionResponse{FormInstanceID: formInstanceID}
		err = rows.Scan(&r.ID, &r.QuestionID, &r.Iteration, &r.Type, &r.Value)
		if err != nil {
			return nil, errors.Wrap(err, "db.get_responses.scan")
		}
		responses[r.Key()] = &r
	}
	return responses, rows.Err()
}

func (s *SQLite) UpsertResponse(ctx context.Context, resp *model.QuestionResponse) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO response (form_instance_id, question_id, iteration, type, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (form_instance_id, question_id, iteration)
		DO UPDATE SET type = excluded.type, value = excluded.value
		RETURNING id`,
		resp.FormInstanceID,
		resp.QuestionID,
		resp.Iteration,
		resp.Type,
		resp.Value,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "db.upsert_response")
	}
	return id, nil
}

func (s *SQLite) DeleteResponse(ctx context.Context, formInstanceID int64, questionID string, iteration int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM response
		WHERE form_instance_id = ?
			AND question_id = ?
			AND iteration = ?`,
		formInstanceID,
		questionID,
		iteration,
	)
	return errors.Wrap(err, "db.delete_response")
}

func (s *SQLite) CreateDataPoint(ctx context.Context, surveyGroupID int64, name string) (*model.DataPoint, error) {
	dp := model.DataPoint{
		ID:            uuid.NewString(),
		SurveyGroupID: surveyGroupID,
		Name:          name,
		CreatedAt:     time.Now().UnixMilli(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO data_point (id, survey_group_id, name, created_at)
		VALUES (?, ?, ?, ?)`,
		dp.ID,
		dp.SurveyGroupID,
		dp.Name,
		dp.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.insert_data_point")
	}
	return &dp, nil
}

func (s *SQLite) GetDataPoint(ctx context.Context, id string) (*model.DataPoint, error) {
	dp := model.DataPoint{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT survey_group_id, name, created_at
		FROM data_point
		WHERE id = ?`,
		id,
	).Scan(&dp.SurveyGroupID, &dp.Name, &dp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "db.get_data_point")
	}
	return &dp, nil
}

func (s *SQLite) ListDataPoints(ctx context.Context, surveyGroupID int64) ([]model.DataPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, survey_group_id, name, created_at
		FROM data_point
		WHERE survey_group_id = ?
		ORDER BY created_at`,
		surveyGroupID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_data_points")
	}
	defer rows.Close()

	points := []model.DataPoint{}
	for rows.Next() {
		dp := model.DataPoint{}
		err = rows.Scan(&dp.ID, &dp.SurveyGroupID, &dp.Name, &dp.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "db.get_data_points.scan")
		}
		points = append(points, dp)
	}
	return points, rows.Err()
}

func (s *SQLite) CreateFormInstance(ctx context.Context, dataPointID, surveyID string, version float64) (*model.FormInstance, error) {
	fi := model.FormInstance{
		UUID:        uuid.NewString(),
		DataPointID: dataPointID,
		SurveyID:    surveyID,
		Version:     version,
		StartedAt:   time.Now().UnixMilli(),
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO form_instance (uuid, data_point_id, survey_id, version, started_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		fi.UUID,
		fi.DataPointID,
		fi.SurveyID,
		fi.Version,
		fi.StartedAt,
	).Scan(&fi.ID)
	if err != nil {
		return nil, errors.Wrap(err, "db.insert_form_instance")
	}
	return &fi, nil
}

func (s *SQLite) GetFormInstance(ctx context.Context, id int64) (*model.FormInstance, error) {
	fi := model.FormInstance{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT uuid, data_point_id, survey_id, version, started_at, submitted_at
		FROM form_instance
		WHERE id = ?`,
		id,
	).Scan(&fi.UUID, &fi.DataPointID, &fi.SurveyID, &fi.Version, &fi.StartedAt, &fi.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "db.get_form_instance")
	}
	return &fi, nil
}

func (s *SQLite) ListFormInstances(ctx context.Context, dataPointID string) ([]model.FormInstance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uuid, data_point_id, survey_id, version, started_at, submitted_at
		FROM form_instance
		WHERE data_point_id = ?
		ORDER BY started_at`,
		dataPointID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.get_form_instances")
	}
	defer rows.Close()

	instances := []model.FormInstance{}
	for rows.Next() {
		fi := model.FormInstance{}
		err = rows.Scan(&fi.ID, &fi.UUID, &fi.DataPointID, &fi.SurveyID, &fi.Version, &fi.StartedAt, &fi.SubmittedAt)
		if err != nil {
			return nil, errors.Wrap(err, "db.get_form_instances.scan")
		}
		instances = append(instances, fi)
	}
	return instances, rows.Err()
}

func (s *SQLite) MarkSubmitted(ctx context.Context, formInstanceID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE form_instance
		SET submitted_at = ?
		WHERE id = ?
			AND submitted_at IS NULL`,
		time.Now().UnixMilli(),
		formInstanceID,
	)
	if err != nil {
		return errors.Wrap(err, "db.mark_submitted")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.mark_submitted.verify")
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) SubmittedInstanceExists(ctx context.Context, dataPointID, surveyID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM form_instance
		WHERE data_point_id = ?
			AND survey_id = ?
			AND submitted_at IS NOT NULL`,
		dataPointID,
		surveyID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "db.get_submitted_instance")
	}
	return exists, nil
}

func (s *SQLite) LatestSubmittedInstance(ctx context.Context, dataPointID, surveyID string) (*model.FormInstance, error) {
	fi := model.FormInstance{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, uuid, data_point_id, survey_id, version, started_at, submitted_at
		FROM form_instance
		WHERE data_point_id = ?
			AND survey_id = ?
			AND submitted_at IS NOT NULL
		ORDER BY submitted_at DESC
		LIMIT 1`,
		dataPointID,
		surveyID,
	).Scan(&fi.ID, &fi.UUID, &fi.DataPointID, &fi.SurveyID, &fi.Version, &fi.StartedAt, &fi.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "db.get_latest_submitted")
	}
	return &fi, nil
}
