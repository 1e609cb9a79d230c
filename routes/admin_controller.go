package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/go-chi/render"

	"github.com/formloom/formloom/app"
	"github.com/formloom/formloom/builder"
	"github.com/formloom/formloom/httpx"
	"github.com/formloom/formloom/log"
	"github.com/formloom/formloom/model"
	"github.com/formloom/formloom/projector"
	"github.com/formloom/formloom/qtype"
	"github.com/formloom/formloom/store"
)

func currentUser(r *http.Request) string {
	credential, _ := r.Context().Value(oauth.CredentialContext).(string)
	return credential
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Title string `json:"title"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := app.Store.CreateForm(r.Context(), currentUser(r), body.Title)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, form)
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, err := app.Store.ListForms(r.Context(), currentUser(r))
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

// openEditor resolves the live editor for a form, enforcing ownership.
func openEditor(app app.App, w http.ResponseWriter, r *http.Request) (*builder.Editor, string, bool) {
	formID := chi.URLParam(r, "id")

	editor, err := app.Editors.Open(r.Context(), formID)
	if err != nil {
		if store.IsNotFound(err) {
			httpx.LogNotFound(w, "get_form", formID)
		} else {
			httpx.LogInternalError(w, "db.get_form", err)
		}
		return nil, "", false
	}

	if owner := editor.Form().OwnerID; owner != currentUser(r) {
		httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "get_form.owner")
		return nil, "", false
	}
	return editor, formID, true
}

func GetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}
		render.JSON(w, r, editorView(editor))
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}

		var body struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		editor.SetTitle(body.Title, body.Description)
		render.JSON(w, r, editorView(editor))
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, formID, ok := openEditor(app, w, r)
		if !ok {
			return
		}

		app.Editors.Evict(formID)
		err := app.Store.DeleteForm(r.Context(), formID)
		if err != nil {
			if store.IsNotFound(err) {
				httpx.LogNotFound(w, "delete_form", formID)
			} else {
				httpx.LogInternalError(w, "db.delete_form", err)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func SetFormStatus(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}

		var body struct {
			Status model.FormStatus `json:"status"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		switch body.Status {
		case model.StatusDraft, model.StatusActive, model.StatusClosed:
		default:
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.status")
			return
		}

		editor.SetStatus(body.Status)
		render.JSON(w, r, editorView(editor))
	}
}

// CloseEditor flushes pending autosave work and releases the editing session.
// The builder UI calls this on navigation-away.
func CloseEditor(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, formID, ok := openEditor(app, w, r)
		if !ok {
			return
		}

		err := app.Editors.Close(r.Context(), formID)
		if err != nil && !errors.Is(err, store.ErrConflict) {
			httpx.LogInternalError(w, "db.save_form", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func AddQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}

		var body struct {
			Type string `json:"type"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if !qtype.Known(body.Type) {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.question_type", "unknown question type %q", body.Type)
			return
		}

		q := editor.AddQuestion(body.Type)
		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, q)
	}
}

func questionIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.index")
		return 0, false
	}
	return index, true
}

func RetypeQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}
		index, ok := questionIndex(w, r)
		if !ok {
			return
		}

		var body struct {
			Type string `json:"type"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if !qtype.Known(body.Type) {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.question_type", "unknown question type %q", body.Type)
			return
		}

		editor.Retype(index, body.Type)
		render.JSON(w, r, editorView(editor))
	}
}

func MoveQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}
		index, ok := questionIndex(w, r)
		if !ok {
			return
		}

		var body struct {
			To int `json:"to"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		editor.Move(index, body.To)
		render.JSON(w, r, editorView(editor))
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}
		index, ok := questionIndex(w, r)
		if !ok {
			return
		}

		editor.Delete(index)
		render.JSON(w, r, editorView(editor))
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}
		index, ok := questionIndex(w, r)
		if !ok {
			return
		}

		var body struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Placeholder string `json:"placeholder"`
			Required    bool   `json:"required"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		editor.UpdateQuestion(index, body.Title, body.Description, body.Placeholder, body.Required)
		render.JSON(w, r, editorView(editor))
	}
}

func EditOptions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}
		index, ok := questionIndex(w, r)
		if !ok {
			return
		}

		var body struct {
			Options []model.QuestionOption `json:"options"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		editor.EditOptions(index, body.Options)
		render.JSON(w, r, editorView(editor))
	}
}

func UpdateSettings(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}

		settings := model.FormSettings{}
		err := render.DecodeJSON(r.Body, &settings)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		editor.UpdateSettings(settings)
		render.JSON(w, r, editorView(editor))
	}
}

func SetWelcomeEnabled(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}

		var body struct {
			Enabled bool `json:"enabled"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		editor.SetWelcomeEnabled(body.Enabled)
		render.JSON(w, r, editorView(editor))
	}
}

// PreviewScreen projects the editor's current definition, including unsaved
// edits, for the live preview pane.
func PreviewScreen(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}

		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.index")
			return
		}

		render.JSON(w, r, projector.Project(editor.Form(), index, viewportParam(r)))
	}
}

func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, formID, ok := openEditor(app, w, r)
		if !ok {
			return
		}

		responses, err := app.Store.ListResponses(r.Context(), formID)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

// ListQuestionTypes serves the authoring palette: every registered type with
// its label and category.
func ListQuestionTypes(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types := []map[string]any{}
		for _, d := range qtype.All() {
			types = append(types, map[string]any{
				"type":     d.Type,
				"label":    d.Label,
				"category": d.Category,
			})
		}
		render.JSON(w, r, map[string]any{
			"types": types,
		})
	}
}

// SuggestQuestions proxies the AI collaborator and returns normalized
// candidates; nothing is applied to the form yet.
func SuggestQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !app.AI.Available() {
			httpx.LogStatus(w, http.StatusServiceUnavailable, log.DebugLevel, "ai.unavailable")
			return
		}

		var body struct {
			Prompt string `json:"prompt"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		questions, err := app.AI.SuggestQuestions(r.Context(), body.Prompt)
		if err != nil {
			httpx.LogInternalError(w, "ai.suggest", err)
			return
		}

		normalized := []model.Question{}
		for _, q := range questions {
			if qtype.Known(q.Type) {
				normalized = append(normalized, qtype.Normalize(q))
			}
		}
		render.JSON(w, r, map[string]any{
			"questions": normalized,
		})
	}
}

// ApplyQuestions bulk-appends a question list (usually AI output) through
// the authoring engine.
func ApplyQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _, ok := openEditor(app, w, r)
		if !ok {
			return
		}

		var body struct {
			Questions []model.Question `json:"questions"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		editor.ApplyQuestions(body.Questions)
		render.JSON(w, r, editorView(editor))
	}
}

func editorView(editor *builder.Editor) map[string]any {
	return map[string]any{
		"form":   editor.Form(),
		"active": editor.Active(),
	}
}
