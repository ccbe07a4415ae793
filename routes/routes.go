package routes

import (
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"github.com/akvo/flow-forms/app"
	"github.com/akvo/flow-forms/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	api.Group(func(r chi.Router) {
		r.Use(middlewares.Device(app.TokenSecret))

		r.Get("/forms", ListForms(app))
		r.Get("/forms/{id}", GetFormById(app))

		r.Post(`/surveys/{groupId:^\d+$}/datapoints`, CreateDataPoint(app))
		r.Get(`/surveys/{groupId:^\d+$}/datapoints`, ListDataPoints(app))

		r.Post("/datapoints/{id}/instances", CreateFormInstance(app))
		r.Get("/datapoints/{id}/instances", ListFormInstances(app))

		r.Get(`/instances/{id:^\d+$}/responses`, GetInstanceResponses(app))
		r.Patch(`/instances/{id:^\d+$}/responses`, PatchInstanceResponses(app))
		r.Get(`/instances/{id:^\d+$}/validate`, ValidateInstance(app))
		r.Post(`/instances/{id:^\d+$}/submit`, SubmitInstance(app))
	})

	return api
}
