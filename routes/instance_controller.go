package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/akvo/flow-forms/app"
	"github.com/akvo/flow-forms/httpx"
	"github.com/akvo/flow-forms/log"
	"github.com/akvo/flow-forms/model"
	"github.com/akvo/flow-forms/session"
	"github.com/akvo/flow-forms/store"
	"github.com/akvo/flow-forms/validate"
)

// CreateFormInstance starts a new instance of a form against a data point.
// The monitored-group precondition never blocks, it only yields a warning the
// client is expected to confirm. With ?prefill=true the responses of the most
// recently submitted instance of the same form are copied into the new one.
func CreateFormInstance(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataPointId := chi.URLParam(r, "id")

		var body struct {
			FormID string `json:"formId"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		dp, err := app.Store.GetDataPoint(r.Context(), dataPointId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_data_point", dataPointId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_data_point", err)
			return
		}

		survey, ok := app.Forms.Survey(body.FormID)
		if !ok {
			httpx.LogNotFound(w, "get_form", body.FormID)
			return
		}

		group, _ := app.Forms.GroupForSurvey(survey.ID)
		ok, warning, err := session.CanStartForm(r.Context(), app.Store, group, dp.ID, survey.ID)
		if err != nil {
			httpx.LogInternalError(w, "instance.can_start_form", err)
			return
		}
		if !ok {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "instance.can_start_form.blocked")
			return
		}

		fi, err := app.Store.CreateFormInstance(r.Context(), dp.ID, survey.ID, survey.Version)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form_instance", err)
			return
		}

		if r.URL.Query().Get("prefill") == "true" {
			src, err := session.PrefillSource(r.Context(), app.Store, dp.ID, survey.ID)
			if err != nil {
				httpx.LogInternalError(w, "instance.prefill_source", err)
				return
			}
			if src != nil {
				prior, err := app.Store.GetResponses(r.Context(), src.ID)
				if err != nil {
					httpx.LogInternalError(w, "db.get_responses", err)
					return
				}
				tracker := session.NewTracker(survey, app.Store, fi.ID)
				tracker.Hydrate(r.Context(), prior, true)
			}
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"instance": fi,
			"warning":  warning,
		})
	}
}

func ListFormInstances(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataPointId := chi.URLParam(r, "id")

		instances, err := app.Store.ListFormInstances(r.Context(), dataPointId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_form_instances", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"instances": instances,
		})
	}
}

func GetInstanceResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fi, _, ok := instanceSurvey(app, w, r)
		if !ok {
			return
		}

		responses, err := app.Store.GetResponses(r.Context(), fi.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

type responseEdit struct {
	QuestionID string             `json:"questionId"`
	Value      string             `json:"value"`
	Repeat     *string            `json:"repeat,omitempty"`
	Type       model.ResponseType `json:"type,omitempty"`
	Iteration  *int               `json:"iteration,omitempty"`
}

type editOutcome struct {
	QuestionID string          `json:"questionId"`
	Iteration  int             `json:"iteration"`
	Applied    bool            `json:"applied"`
	Check      validate.Result `json:"check"`
}

// PatchInstanceResponses applies a batch of value edits through a tracker
// session: hydrate, SetValue per edit, one Commit. Edits failing validation
// are still stored (user-entered data is never dropped), except double-entry
// mismatches, which are rejected before the value is accepted.
func PatchInstanceResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fi, survey, ok := instanceSurvey(app, w, r)
		if !ok {
			return
		}
		if fi.Submitted() {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "instance.edit.already_submitted")
			return
		}

		var body struct {
			Edits []responseEdit `json:"edits"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		persisted, err := app.Store.GetResponses(r.Context(), fi.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}
		tracker := session.NewTracker(survey, app.Store, fi.ID)
		tracker.Hydrate(r.Context(), persisted, false)

		outcomes := make([]editOutcome, 0, len(body.Edits))
		for _, edit := range body.Edits {
			q := survey.Question(edit.QuestionID)
			if q == nil {
				httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel,
					"instance.edit.unknown_question", "form %s has no question %s", survey.ID, edit.QuestionID)
				return
			}

			iteration := -1
			if edit.Iteration != nil {
				iteration = *edit.Iteration
			}
			responseType := edit.Type
			if responseType == "" {
				responseType = q.Type.DefaultResponseType()
			}

			outcome := editOutcome{QuestionID: q.ID, Iteration: iteration}

			if q.DoubleEntry && edit.Value != "" {
				repeat := ""
				if edit.Repeat != nil {
					repeat = *edit.Repeat
				}
				if res := validate.CheckDoubleEntry(q, edit.Value, repeat); !res.Valid {
					outcome.Check = res
					outcomes = append(outcomes, outcome)
					continue
				}
			}

			tracker.SetValue(q.ID, edit.Value, responseType, iteration)
			outcome.Applied = true
			outcome.Check = validate.Check(q, &model.QuestionResponse{
				QuestionID: q.ID,
				Value:      edit.Value,
				Type:       responseType,
				Iteration:  iteration,
			})
			outcomes = append(outcomes, outcome)
		}

		tracker.Commit(r.Context())

		render.JSON(w, r, map[string]any{
			"results": outcomes,
			"status":  session.Status(fi, tracker),
		})
	}
}

func ValidateInstance(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fi, survey, ok := instanceSurvey(app, w, r)
		if !ok {
			return
		}

		tracker, err := hydratedTracker(app, r, fi, survey)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"invalid": invalidSummaries(tracker.ValidateAll()),
			"status":  session.Status(fi, tracker),
		})
	}
}

func SubmitInstance(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fi, survey, ok := instanceSurvey(app, w, r)
		if !ok {
			return
		}
		if fi.Submitted() {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "instance.submit.already_submitted")
			return
		}

		tracker, err := hydratedTracker(app, r, fi, survey)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		if invalid := tracker.ValidateAll(); len(invalid) > 0 {
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, map[string]any{
				"invalid": invalidSummaries(invalid),
				"status":  session.Status(fi, tracker),
			})
			return
		}

		err = app.Store.MarkSubmitted(r.Context(), fi.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.mark_submitted", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"status": model.StatusSubmitted,
		})
	}
}

func instanceSurvey(app app.App, w http.ResponseWriter, r *http.Request) (*model.FormInstance, *model.Survey, bool) {
	instanceId, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
		return nil, nil, false
	}

	fi, err := app.Store.GetFormInstance(r.Context(), instanceId)
	if errors.Is(err, store.ErrNotFound) {
		httpx.LogNotFound(w, "get_form_instance", instanceId)
		return nil, nil, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db.get_form_instance", err)
		return nil, nil, false
	}

	survey, ok := app.Forms.Survey(fi.SurveyID)
	if !ok {
		httpx.LogNotFound(w, "get_form", fi.SurveyID)
		return nil, nil, false
	}
	return fi, survey, true
}

func hydratedTracker(app app.App, r *http.Request, fi *model.FormInstance, survey *model.Survey) (*session.Tracker, error) {
	persisted, err := app.Store.GetResponses(r.Context(), fi.ID)
	if err != nil {
		return nil, err
	}
	tracker := session.NewTracker(survey, app.Store, fi.ID)
	tracker.Hydrate(r.Context(), persisted, false)
	return tracker, nil
}

type invalidQuestion struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
	Text  string `json:"text"`
}

func invalidSummaries(questions []model.Question) []invalidQuestion {
	out := make([]invalidQuestion, len(questions))
	for i, q := range questions {
		out[i] = invalidQuestion{ID: q.ID, Order: q.Order, Text: q.Text}
	}
	return out
}
