package builder

import (
	"context"
	"sync"
	"time"

	"github.com/formloom/formloom/log"
	"github.com/formloom/formloom/model"
)

// Saver is the persistence collaborator for autosave. It returns the new
// stored version so the editor can keep writing without re-reading. The
// editor gives no durability guarantee itself; a failed write is logged and
// retried on the next debounced save.
type Saver interface {
	SaveForm(ctx context.Context, form model.Form) (int, error)
}

// Editor owns one in-memory form definition for a single author session.
// Every mutation replaces the owned value through the pure ops and
// reschedules a debounced save.
type Editor struct {
	mu       sync.Mutex
	form     model.Form
	active   int
	saver    Saver
	debounce time.Duration
	timer    *time.Timer
	dirty    bool
}

func NewEditor(form model.Form, saver Saver, debounce time.Duration) *Editor {
	return &Editor{
		form:     form,
		active:   0,
		saver:    saver,
		debounce: debounce,
	}
}

// Form returns a copy of the current definition.
func (e *Editor) Form() model.Form {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form.Clone()
}

// Active returns the index of the currently selected question.
func (e *Editor) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Editor) Select(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index >= -1 && index <= len(e.form.Questions) {
		e.active = index
	}
}

// AddQuestion appends a question of the given type and selects it.
func (e *Editor) AddQuestion(typ string) model.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form = AddQuestion(e.form, typ)
	e.active = len(e.form.Questions) - 1
	e.touch()
	return e.form.Questions[e.active].Clone()
}

func (e *Editor) Retype(index int, newType string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := Retype(e.form, index, newType)
	if e.changed(next) {
		e.form = next
		e.touch()
	}
}

func (e *Editor) Move(from, to int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := Move(e.form, from, to)
	if e.changed(next) {
		e.form = next
		if e.active == from {
			e.active = to
		}
		e.touch()
	}
}

// Delete removes the question at index. When the deleted question was the
// active selection, selection moves to the previous question, clamped at 0.
func (e *Editor) Delete(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := Delete(e.form, index)
	if !e.changed(next) {
		return
	}
	e.form = next
	if e.active == index {
		e.active = index - 1
		if e.active < 0 {
			e.active = 0
		}
	} else if e.active > index {
		e.active--
	}
	if e.active >= len(e.form.Questions) && len(e.form.Questions) > 0 {
		e.active = len(e.form.Questions) - 1
	}
	e.touch()
}

func (e *Editor) EditOptions(index int, options []model.QuestionOption) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form = EditOptions(e.form, index, options)
	e.touch()
}

func (e *Editor) UpdateQuestion(index int, title, description, placeholder string, required bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form = UpdateQuestion(e.form, index, title, description, placeholder, required)
	e.touch()
}

func (e *Editor) ApplyQuestions(questions []model.Question) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form = ApplyQuestions(e.form, questions)
	if len(e.form.Questions) > 0 {
		e.active = len(e.form.Questions) - 1
	}
	e.touch()
}

func (e *Editor) UpdateSettings(settings model.FormSettings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form = UpdateSettings(e.form, settings)
	e.touch()
}

func (e *Editor) SetWelcomeEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form = SetWelcomeEnabled(e.form, enabled)
	e.touch()
}

func (e *Editor) SetTitle(title, description string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.form.Clone()
	next.Title = title
	next.Description = description
	e.form = next
	e.touch()
}

func (e *Editor) SetStatus(status model.FormStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.form.Clone()
	next.Status = status
	e.form = next
	e.touch()
}

// changed reports whether an op actually produced a new value. The pure ops
// return the input verbatim on out-of-range indices, so a no-op shares its
// questions backing array with the owned form while a real mutation clones.
func (e *Editor) changed(next model.Form) bool {
	if len(next.Questions) != len(e.form.Questions) {
		return true
	}
	if len(next.Questions) == 0 {
		return false
	}
	return &next.Questions[0] != &e.form.Questions[0]
}

// touch marks the form dirty and resets the debounce timer. A later edit
// within the quiet period cancels the pending save and reschedules. Called
// with the lock held.
func (e *Editor) touch() {
	e.form.UpdatedAt = time.Now()
	e.dirty = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, func() {
		if err := e.save(context.Background()); err != nil {
			log.Errorf("builder.autosave: %s", err)
		}
	})
}

func (e *Editor) save(ctx context.Context) error {
	e.mu.Lock()
	if !e.dirty {
		e.mu.Unlock()
		return nil
	}
	form := e.form.Clone()
	e.dirty = false
	e.mu.Unlock()

	version, err := e.saver.SaveForm(ctx, form)
	e.mu.Lock()
	if err != nil {
		// keep the in-memory definition, retry on the next save
		e.dirty = true
	} else {
		e.form.Version = version
	}
	e.mu.Unlock()
	return err
}

// Flush cancels any pending debounced save and writes immediately. Used on
// session close so navigating away never drops the last edit.
func (e *Editor) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()
	return e.save(ctx)
}
