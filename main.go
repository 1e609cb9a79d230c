package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/formloom/formloom/ai"
	"github.com/formloom/formloom/app"
	"github.com/formloom/formloom/builder"
	"github.com/formloom/formloom/config"
	"github.com/formloom/formloom/database"
	"github.com/formloom/formloom/httpx"
	"github.com/formloom/formloom/log"
	"github.com/formloom/formloom/routes"
	"github.com/formloom/formloom/session"
	"github.com/formloom/formloom/store"
	"github.com/formloom/formloom/submit"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	st := store.New(db)
	bearerServer := httpx.NewBearerServer(db, cfg)

	app := app.App{
		Store:        st,
		BearerServer: bearerServer,
		Config:       cfg,
		Editors:      builder.NewManager(st, st, cfg.SaveDebounce),
		Sessions:     session.NewManager(),
		Submit:       submit.NewService(st, cfg.TokenSecret, cfg.SubmitTokenTTL),
		AI:           ai.New(cfg.AIUrl, cfg.AIKey, cfg.AIModel),
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
