package builder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formloom/formloom/model"
	"github.com/formloom/formloom/qtype"
)

type fakeSaver struct {
	mu    sync.Mutex
	saves []model.Form
	fail  bool
}

func (s *fakeSaver) SaveForm(_ context.Context, form model.Form) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return 0, assert.AnError
	}
	s.saves = append(s.saves, form)
	return form.Version + 1, nil
}

func (s *fakeSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func newTestEditor(debounce time.Duration, types ...string) (*Editor, *fakeSaver) {
	saver := &fakeSaver{}
	e := NewEditor(formWith(types...), saver, debounce)
	return e, saver
}

func TestEditorAddSelectsNewQuestion(t *testing.T) {
	e, _ := newTestEditor(time.Hour, qtype.ShortText)

	q := e.AddQuestion(qtype.Rating)

	assert.Equal(t, 1, e.Active())
	assert.Equal(t, qtype.Rating, q.Type)
}

func TestEditorDeleteMovesSelectionBack(t *testing.T) {
	e, _ := newTestEditor(time.Hour, qtype.ShortText, qtype.Email, qtype.Rating)
	e.Select(2)

	e.Delete(2)

	assert.Equal(t, 1, e.Active())
	assert.Len(t, e.Form().Questions, 2)
}

func TestEditorDeleteAtZeroClampsSelection(t *testing.T) {
	e, _ := newTestEditor(time.Hour, qtype.ShortText, qtype.Email)
	e.Select(0)

	e.Delete(0)

	assert.Equal(t, 0, e.Active())
}

func TestEditorDeleteOutOfRangeKeepsSelection(t *testing.T) {
	e, saver := newTestEditor(time.Millisecond, qtype.ShortText)
	e.Select(0)

	e.Delete(7)

	assert.Equal(t, 0, e.Active())
	assert.Len(t, e.Form().Questions, 1)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, saver.count(), "a no-op must not schedule a save")
}

func TestEditorDebouncesSaves(t *testing.T) {
	e, saver := newTestEditor(40*time.Millisecond, qtype.ShortText)

	// edits inside the quiet period collapse into one write
	e.AddQuestion(qtype.Email)
	time.Sleep(10 * time.Millisecond)
	e.AddQuestion(qtype.Rating)
	time.Sleep(10 * time.Millisecond)
	e.UpdateQuestion(0, "Name", "", "", true)

	assert.Zero(t, saver.count())

	require.Eventually(t, func() bool {
		return saver.count() == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, saver.count())

	saver.mu.Lock()
	saved := saver.saves[0]
	saver.mu.Unlock()
	assert.Len(t, saved.Questions, 3)
	assert.Equal(t, "Name", saved.Questions[0].Title)
}

func TestEditorFlushWritesPendingEdits(t *testing.T) {
	e, saver := newTestEditor(time.Hour, qtype.ShortText)
	e.AddQuestion(qtype.Email)

	err := e.Flush(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, saver.count())

	// a second flush with nothing dirty writes nothing
	require.NoError(t, e.Flush(context.Background()))
	assert.Equal(t, 1, saver.count())
}

func TestEditorKeepsEditsOnFailedSave(t *testing.T) {
	e, saver := newTestEditor(time.Hour, qtype.ShortText)
	saver.fail = true
	e.AddQuestion(qtype.Email)

	err := e.Flush(context.Background())
	require.Error(t, err)

	// definition not rolled back, next flush retries
	assert.Len(t, e.Form().Questions, 2)
	saver.fail = false
	require.NoError(t, e.Flush(context.Background()))
	assert.Equal(t, 1, saver.count())
}

func TestEditorSaveAdvancesVersion(t *testing.T) {
	e, _ := newTestEditor(time.Hour, qtype.ShortText)
	before := e.Form().Version

	e.AddQuestion(qtype.Email)
	require.NoError(t, e.Flush(context.Background()))

	assert.Equal(t, before+1, e.Form().Version)
}

type fakeLoader struct {
	form model.Form
}

func (l *fakeLoader) GetForm(context.Context, string) (model.Form, error) {
	return l.form.Clone(), nil
}

func TestManagerReturnsSameEditor(t *testing.T) {
	loader := &fakeLoader{form: formWith(qtype.ShortText)}
	m := NewManager(loader, &fakeSaver{}, time.Hour)

	a, err := m.Open(context.Background(), "f1")
	require.NoError(t, err)
	b, err := m.Open(context.Background(), "f1")
	require.NoError(t, err)

	assert.Same(t, a, b)
}

func TestManagerCloseFlushes(t *testing.T) {
	loader := &fakeLoader{form: formWith(qtype.ShortText)}
	saver := &fakeSaver{}
	m := NewManager(loader, saver, time.Hour)

	e, err := m.Open(context.Background(), "f1")
	require.NoError(t, err)
	e.AddQuestion(qtype.Email)

	require.NoError(t, m.Close(context.Background(), "f1"))
	assert.Equal(t, 1, saver.count())
}
