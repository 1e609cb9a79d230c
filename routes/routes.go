package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/formloom/formloom/app"
	"github.com/formloom/formloom/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	root.
		With(middlewares.CookieAuth(app.BearerServer), middlewares.Admin(app.TokenSecret)).
		Mount("/admin", servePrivateFiles("/admin"))
	root.Mount("/", servePublicFiles())

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	// respondent surface
	api.Get("/forms/{id}", PublicGetForm(app))
	api.Post("/forms/{id}/tokens", IssueToken(app))
	api.Post("/forms/{id}/responses", SubmitResponse(app))
	api.Post("/forms/{id}/sessions", OpenSession(app))

	api.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/", SessionScreen(app))
		r.Post("/answers", SessionAnswer(app))
		r.Post("/next", SessionAdvance(app, "next"))
		r.Post("/prev", SessionAdvance(app, "prev"))
		r.Post("/retry", SessionAdvance(app, "retry"))
		r.Post("/jump", SessionJump(app))
		r.Post("/keys", SessionKey(app))
	})

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		r.Get("/question-types", ListQuestionTypes(app))

		// CRUD form
		r.Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Get("/forms/{id}", GetForm(app))
		r.Put("/forms/{id}", UpdateForm(app))
		r.Delete("/forms/{id}", DeleteForm(app))
		r.Post("/forms/{id}/status", SetFormStatus(app))
		r.Post("/forms/{id}/editor/close", CloseEditor(app))

		// question ops
		r.Post("/forms/{id}/questions", AddQuestion(app))
		r.Post("/forms/{id}/questions/bulk", ApplyQuestions(app))
		r.Put("/forms/{id}/questions/{index}", UpdateQuestion(app))
		r.Post("/forms/{id}/questions/{index}/retype", RetypeQuestion(app))
		r.Post("/forms/{id}/questions/{index}/move", MoveQuestion(app))
		r.Delete("/forms/{id}/questions/{index}", DeleteQuestion(app))
		r.Put("/forms/{id}/questions/{index}/options", EditOptions(app))

		// settings, preview, results
		r.Put("/forms/{id}/settings", UpdateSettings(app))
		r.Post("/forms/{id}/welcome", SetWelcomeEnabled(app))
		r.Get("/forms/{id}/preview/{index}", PreviewScreen(app))
		r.Get("/forms/{id}/responses", ListResponses(app))

		// AI suggestions
		r.Post("/ai/questions", SuggestQuestions(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

func servePublicFiles() http.Handler {
	return http.FileServer(http.Dir("public"))
}

func servePrivateFiles(path string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir("private")))
}
