package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/akvo/flow-forms/app"
	"github.com/akvo/flow-forms/httpx"
	"github.com/akvo/flow-forms/log"
)

func CreateDataPoint(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupId, err := strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.group_id")
			return
		}
		if _, ok := app.Forms.Group(groupId); !ok {
			httpx.LogNotFound(w, "get_survey_group", groupId)
			return
		}

		var body struct {
			Name string `json:"name"`
		}
		err = render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "datapoint.create", "a data point name is required")
			return
		}

		dp, err := app.Store.CreateDataPoint(r.Context(), groupId, body.Name)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_data_point", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, dp)
	}
}

func ListDataPoints(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupId, err := strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.group_id")
			return
		}

		points, err := app.Store.ListDataPoints(r.Context(), groupId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_data_points", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"dataPoints": points,
		})
	}
}
