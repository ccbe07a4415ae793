package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/akvo/flow-forms/config"
	"github.com/akvo/flow-forms/form"
	"github.com/akvo/flow-forms/store"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
	Store store.Gateway
	Forms *form.Registry
}
