package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/akvo/flow-forms/app"
	"github.com/akvo/flow-forms/config"
	"github.com/akvo/flow-forms/database"
	"github.com/akvo/flow-forms/form"
	"github.com/akvo/flow-forms/httpx"
	"github.com/akvo/flow-forms/log"
	"github.com/akvo/flow-forms/routes"
	"github.com/akvo/flow-forms/store"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	forms, err := form.LoadDir(cfg.FormsDir)
	if err != nil {
		log.Fatal("main.forms.load:", err)
	}

	bearerServer := httpx.NewBearerServer(db, cfg)

	app := app.App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
		Store:        store.NewSQLite(db),
		Forms:        forms,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
