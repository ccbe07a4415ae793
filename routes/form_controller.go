package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/akvo/flow-forms/app"
	"github.com/akvo/flow-forms/httpx"
	"github.com/akvo/flow-forms/model"
)

type formSummary struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Version     float64            `json:"version"`
	SurveyGroup *model.SurveyGroup `json:"surveyGroup,omitempty"`
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms := []formSummary{}
		for _, s := range app.Forms.Surveys() {
			summary := formSummary{ID: s.ID, Name: s.Name, Version: s.Version}
			if g, ok := app.Forms.GroupForSurvey(s.ID); ok {
				summary.SurveyGroup = g
			}
			forms = append(forms, summary)
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		survey, ok := app.Forms.Survey(formId)
		if !ok {
			httpx.LogNotFound(w, "get_form", formId)
			return
		}

		render.JSON(w, r, survey)
	}
}
