package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formloom/formloom/config"
	"github.com/formloom/formloom/database"
	"github.com/formloom/formloom/model"
	"github.com/formloom/formloom/qtype"
	"github.com/formloom/formloom/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Open(config.Config{
		DBUrl: filepath.Join(t.TempDir(), "test.sqlite"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.New(db)
}

func TestFormRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.CreateForm(ctx, "alice", "Customer survey")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.StatusDraft, created.Status)
	assert.Equal(t, 1, created.Version)

	got, err := st.GetForm(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Customer survey", got.Title)
	assert.Equal(t, "alice", got.OwnerID)
	assert.Empty(t, got.Questions)
	assert.True(t, got.Settings.ShowBranding)
}

func TestGetFormNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetForm(context.Background(), "nope")
	assert.True(t, store.IsNotFound(err))
}

func TestSaveFormPersistsQuestions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	form, err := st.CreateForm(ctx, "alice", "Survey")
	require.NoError(t, err)

	form.Questions = append(form.Questions, qtype.Defaults(qtype.Rating))
	form.Settings.AllowedDomains = []string{"example.com"}
	form.Status = model.StatusActive

	version, err := st.SaveForm(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	got, err := st.GetForm(ctx, form.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, 5, got.Questions[0].MaxRating)
	assert.Equal(t, []string{"example.com"}, got.Settings.AllowedDomains)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Equal(t, 2, got.Version)
}

func TestSaveFormOptimisticLock(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	form, err := st.CreateForm(ctx, "alice", "Survey")
	require.NoError(t, err)

	_, err = st.SaveForm(ctx, form)
	require.NoError(t, err)

	// second save with the stale version loses
	_, err = st.SaveForm(ctx, form)
	assert.ErrorIs(t, err, store.ErrConflict)

	ghost := form
	ghost.ID = "deleted"
	_, err = st.SaveForm(ctx, ghost)
	assert.True(t, store.IsNotFound(err))
}

func TestDeleteFormCascades(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	form, err := st.CreateForm(ctx, "alice", "Survey")
	require.NoError(t, err)

	_, err = st.InsertResponse(ctx, model.Response{FormID: form.ID, SubmittedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, st.InsertSubmitToken(ctx, "t1", form.ID, time.Now().Add(time.Minute)))

	require.NoError(t, st.DeleteForm(ctx, form.ID))

	_, err = st.GetForm(ctx, form.ID)
	assert.True(t, store.IsNotFound(err))
	assert.True(t, store.IsNotFound(st.DeleteForm(ctx, form.ID)))
}

func TestListFormsByOwner(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateForm(ctx, "alice", "A")
	require.NoError(t, err)
	_, err = st.CreateForm(ctx, "bob", "B")
	require.NoError(t, err)

	forms, err := st.ListForms(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, "A", forms[0].Title)
}

func TestResponsesAndCap(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	form, err := st.CreateForm(ctx, "alice", "Survey")
	require.NoError(t, err)

	_, err = st.InsertResponse(ctx, model.Response{
		FormID:      form.ID,
		Answers:     []model.Answer{{QuestionID: "q1", Value: "a@b.com"}},
		Completed:   true,
		Referrer:    "https://example.com",
		SubmittedAt: time.Now(),
	})
	require.NoError(t, err)
	_, err = st.InsertResponse(ctx, model.Response{
		FormID:      form.ID,
		Flagged:     true,
		SubmittedAt: time.Now(),
	})
	require.NoError(t, err)

	responses, err := st.ListResponses(ctx, form.ID)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, "a@b.com", responses[0].Answers[0].Value)
	assert.True(t, responses[0].Completed)

	count, err := st.CountResponses(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "flagged rows do not count")
}

func TestSubmitTokenSingleUse(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	form, err := st.CreateForm(ctx, "alice", "Survey")
	require.NoError(t, err)

	expires := time.Now().Add(time.Minute)
	require.NoError(t, st.InsertSubmitToken(ctx, "t1", form.ID, expires))

	got, err := st.ConsumeSubmitToken(ctx, "t1", form.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, expires, got, time.Second)

	_, err = st.ConsumeSubmitToken(ctx, "t1", form.ID)
	assert.True(t, store.IsNotFound(err))
}
