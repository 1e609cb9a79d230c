package app

import (
	"github.com/go-chi/oauth"

	"github.com/formloom/formloom/ai"
	"github.com/formloom/formloom/builder"
	"github.com/formloom/formloom/config"
	"github.com/formloom/formloom/session"
	"github.com/formloom/formloom/store"
	"github.com/formloom/formloom/submit"
)

type App struct {
	*store.Store
	*oauth.BearerServer
	config.Config

	Editors  *builder.Manager
	Sessions *session.Manager
	Submit   *submit.Service
	AI       *ai.Client
}
