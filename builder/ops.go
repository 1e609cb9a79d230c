// Package builder is the authoring engine: pure mutation operations over a
// form definition, plus a stateful Editor that owns one in-memory form and
// debounces persistence writes.
package builder

import (
	"github.com/google/uuid"

	"github.com/formloom/formloom/model"
	"github.com/formloom/formloom/qtype"
)

// AddQuestion appends a fresh question of the given type, built from the
// registry defaults.
func AddQuestion(form model.Form, typ string) model.Form {
	out := form.Clone()
	out.Questions = append(out.Questions, qtype.Defaults(typ))
	return out
}

// Retype swaps a question's type in place, re-normalizing the type-dependent
// fields while keeping title, description and required. Out-of-range index is
// a no-op.
func Retype(form model.Form, index int, newType string) model.Form {
	if index < 0 || index >= len(form.Questions) {
		return form
	}
	out := form.Clone()
	q := out.Questions[index]
	q.Type = newType
	out.Questions[index] = qtype.Normalize(q)
	return out
}

// Move relocates the question at from to position to. Either index out of
// [0, len) makes this a no-op.
func Move(form model.Form, from, to int) model.Form {
	n := len(form.Questions)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return form
	}
	out := form.Clone()
	q := out.Questions[from]
	rest := append(out.Questions[:from], out.Questions[from+1:]...)
	qs := make([]model.Question, 0, n)
	qs = append(qs, rest[:to]...)
	qs = append(qs, q)
	qs = append(qs, rest[to:]...)
	out.Questions = qs
	return out
}

// Delete removes the question at index. Out-of-range index is a no-op.
func Delete(form model.Form, index int) model.Form {
	if index < 0 || index >= len(form.Questions) {
		return form
	}
	out := form.Clone()
	out.Questions = append(out.Questions[:index], out.Questions[index+1:]...)
	return out
}

// EditOptions replaces the option list of the question at index. Options that
// arrive with an id keep it, so relabeling never breaks an in-flight response
// referencing that option; options without one get a fresh id. Out-of-range
// index, a non-choice question, or a list that would leave the question with
// fewer than two options is a no-op.
func EditOptions(form model.Form, index int, options []model.QuestionOption) model.Form {
	if index < 0 || index >= len(form.Questions) {
		return form
	}
	if form.Questions[index].Options == nil {
		return form
	}
	if len(options) < 2 {
		return form
	}
	out := form.Clone()
	opts := make([]model.QuestionOption, len(options))
	for i, o := range options {
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		opts[i] = o
	}
	out.Questions[index].Options = opts
	return out
}

// UpdateQuestion replaces title/description/required/placeholder of the
// question at index, leaving type-dependent fields alone.
func UpdateQuestion(form model.Form, index int, title, description, placeholder string, required bool) model.Form {
	if index < 0 || index >= len(form.Questions) {
		return form
	}
	out := form.Clone()
	q := &out.Questions[index]
	q.Title = title
	q.Description = description
	q.Placeholder = placeholder
	q.Required = required
	return out
}

// ApplyQuestions bulk-appends externally produced questions (AI suggestions),
// forcing each through the registry so they cannot bypass the per-type
// invariant. Questions with an unknown type tag are skipped.
func ApplyQuestions(form model.Form, questions []model.Question) model.Form {
	out := form.Clone()
	for _, q := range questions {
		if !qtype.Known(q.Type) {
			continue
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		out.Questions = append(out.Questions, qtype.Normalize(q))
	}
	return out
}

// UpdateSettings replaces the settings wholesale. Enabling the welcome screen
// for the first time synthesizes a default one instead of leaving it nil.
func UpdateSettings(form model.Form, settings model.FormSettings) model.Form {
	out := form.Clone()
	if settings.WelcomeScreen == nil && form.Settings.WelcomeScreen != nil {
		settings.WelcomeScreen = form.Settings.WelcomeScreen
	}
	out.Settings = settings.Clone()
	return out
}

// SetWelcomeEnabled toggles the welcome screen, synthesizing a default screen
// on first enable.
func SetWelcomeEnabled(form model.Form, enabled bool) model.Form {
	out := form.Clone()
	if out.Settings.WelcomeScreen == nil {
		out.Settings.WelcomeScreen = &model.WelcomeScreen{}
	}
	out.Settings.WelcomeScreen.Enabled = enabled
	return out
}
