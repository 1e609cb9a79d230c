package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/formloom/formloom/app"
	"github.com/formloom/formloom/httpx"
	"github.com/formloom/formloom/log"
	"github.com/formloom/formloom/model"
	"github.com/formloom/formloom/projector"
	"github.com/formloom/formloom/session"
	"github.com/formloom/formloom/store"
	"github.com/formloom/formloom/submit"
)

// PublicGetForm serves the form definition to respondents. Only active forms
// are visible unless the preview flag is set.
func PublicGetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := chi.URLParam(r, "id")
		preview := r.URL.Query().Get("preview") == "true"

		form, err := app.GetForm(r.Context(), formID)
		if err != nil {
			if store.IsNotFound(err) {
				httpx.LogNotFound(w, "get_form", formID)
			} else {
				httpx.LogInternalError(w, "db.get_form", err)
			}
			return
		}

		if !form.AcceptsSubmissions() && !preview {
			httpx.LogStatus(w, http.StatusGone, log.DebugLevel, "get_form.closed")
			return
		}

		// strip authoring-only fields
		form.OwnerID = ""
		form.Version = 0
		render.JSON(w, r, form)
	}
}

// IssueToken hands out a single-use proof-of-origin token for the form.
func IssueToken(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := chi.URLParam(r, "id")

		token, err := app.Submit.IssueToken(r.Context(), formID)
		if err != nil {
			if errors.Is(err, submit.ErrNotFound) {
				httpx.LogNotFound(w, "issue_token", formID)
			} else {
				httpx.LogInternalError(w, "submit.issue_token", err)
			}
			return
		}

		render.JSON(w, r, map[string]any{
			"token": token,
		})
	}
}

// SubmitResponse runs the submission protocol for a payload assembled by the
// client. Referrer falls back to the Referer header when the payload omits
// it.
func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := chi.URLParam(r, "id")

		sub := model.Submission{}
		err := render.DecodeJSON(r.Body, &sub)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if sub.Referrer == "" {
			sub.Referrer = r.Referer()
		}

		resp, err := app.Submit.Submit(r.Context(), formID, sub)
		if err != nil {
			writeSubmitError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": resp.ID,
		})
	}
}

func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, submit.ErrNotFound):
		httpx.LogNotFound(w, "submit", err)
	case errors.Is(err, submit.ErrClosed):
		httpx.LogStatusMsg(w, http.StatusGone, log.DebugLevel, "submit.closed", "form_closed")
	case errors.Is(err, submit.ErrDomainRejected):
		httpx.LogStatusMsg(w, http.StatusForbidden, log.DebugLevel, "submit.domain", "domain_rejected")
	case errors.Is(err, submit.ErrTokenInvalid):
		httpx.LogStatusMsg(w, http.StatusForbidden, log.DebugLevel, "submit.token", "token_invalid")
	default:
		httpx.LogInternalError(w, "submit", err)
	}
}

// OpenSession starts a server-held respondent session over the form's
// current definition.
func OpenSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID := chi.URLParam(r, "id")
		preview := r.URL.Query().Get("preview") == "true"

		form, err := app.GetForm(r.Context(), formID)
		if err != nil {
			if store.IsNotFound(err) {
				httpx.LogNotFound(w, "open_session", formID)
			} else {
				httpx.LogInternalError(w, "db.get_form", err)
			}
			return
		}
		if !form.AcceptsSubmissions() && !preview {
			httpx.LogStatus(w, http.StatusGone, log.DebugLevel, "open_session.closed")
			return
		}

		id, s := app.Sessions.Create(form, app.Submit, session.Options{
			Preview:  preview,
			Referrer: r.Referer(),
		})

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, sessionView(id, s, viewportParam(r)))
	}
}

// SessionScreen reports the current state and projected screen.
func SessionScreen(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, id, ok := findSession(app, w, r)
		if !ok {
			return
		}
		render.JSON(w, r, sessionView(id, s, viewportParam(r)))
	}
}

// SessionAnswer upserts the answer for the session's current question.
func SessionAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, id, ok := findSession(app, w, r)
		if !ok {
			return
		}

		var body struct {
			Value any `json:"value"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		s.SetAnswer(normalizeValue(body.Value))
		render.JSON(w, r, sessionView(id, s, viewportParam(r)))
	}
}

// SessionAdvance handles next/prev/retry in one place.
func SessionAdvance(app app.App, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, id, ok := findSession(app, w, r)
		if !ok {
			return
		}

		var err error
		switch action {
		case "next":
			err = s.Next(r.Context())
		case "prev":
			s.Prev()
		case "retry":
			err = s.Retry(r.Context())
		}

		view := sessionView(id, s, viewportParam(r))
		var invalid session.ValidationError
		if errors.As(err, &invalid) {
			view["validation"] = invalid.QuestionID
		}
		render.JSON(w, r, view)
	}
}

func SessionJump(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, id, ok := findSession(app, w, r)
		if !ok {
			return
		}

		var body struct {
			Index int `json:"index"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		s.Jump(body.Index)
		render.JSON(w, r, sessionView(id, s, viewportParam(r)))
	}
}

// SessionKey feeds a keyboard event into the state machine.
func SessionKey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, id, ok := findSession(app, w, r)
		if !ok {
			return
		}

		var body struct {
			Key   string `json:"key"`
			Shift bool   `json:"shift"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = s.Keypress(r.Context(), body.Key, body.Shift)

		view := sessionView(id, s, viewportParam(r))
		var invalid session.ValidationError
		if errors.As(err, &invalid) {
			view["validation"] = invalid.QuestionID
		}
		render.JSON(w, r, view)
	}
}

func findSession(app app.App, w http.ResponseWriter, r *http.Request) (*session.Session, string, bool) {
	id := chi.URLParam(r, "sid")
	s, ok := app.Sessions.Get(id)
	if !ok {
		httpx.LogNotFound(w, "get_session", id)
		return nil, "", false
	}
	return s, id, true
}

func sessionView(id string, s *session.Session, viewport projector.Viewport) map[string]any {
	view := map[string]any{
		"sessionId": id,
		"state":     s.State(),
		"screen":    s.Screen(viewport),
	}
	if err := s.Err(); err != nil && s.State() != session.StateThankYou {
		view["error"] = errorCode(err)
	}
	if resp := s.Response(); resp != nil {
		view["responseId"] = resp.ID
	}
	return view
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, submit.ErrNotFound):
		return "not_found"
	case errors.Is(err, submit.ErrClosed):
		return "closed"
	case errors.Is(err, submit.ErrDomainRejected):
		return "domain_rejected"
	case errors.Is(err, submit.ErrTokenInvalid):
		return "token_invalid"
	default:
		return "network_error"
	}
}

func viewportParam(r *http.Request) projector.Viewport {
	if r.URL.Query().Get("viewport") == "mobile" {
		return projector.ViewportMobile
	}
	return projector.ViewportDesktop
}

// normalizeValue maps JSON-decoded answer values onto the shapes the
// has-value predicate understands: []any of strings becomes []string,
// numbers stay float64.
func normalizeValue(v any) any {
	arr, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
