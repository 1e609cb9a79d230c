package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formloom/formloom/builder"
	"github.com/formloom/formloom/model"
	"github.com/formloom/formloom/projector"
	"github.com/formloom/formloom/qtype"
	"github.com/formloom/formloom/submit"
)

type spySubmitter struct {
	mu          sync.Mutex
	issued      int
	submitted   []model.Submission
	issueErr    error
	submitErr   error
	failSubmits int
}

func (s *spySubmitter) IssueToken(context.Context, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issueErr != nil {
		return "", s.issueErr
	}
	s.issued++
	return "tok-1", nil
}

func (s *spySubmitter) Submit(_ context.Context, formID string, sub model.Submission) (model.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil && s.failSubmits != 0 {
		s.failSubmits--
		return model.Response{}, s.submitErr
	}
	s.submitted = append(s.submitted, sub)
	return model.Response{ID: "r-1", FormID: formID, Answers: sub.Answers, Completed: sub.Completed}, nil
}

func testForm() model.Form {
	f := model.Form{ID: "f1", Status: model.StatusActive}
	f = builder.AddQuestion(f, qtype.Email)
	f = builder.AddQuestion(f, qtype.Rating)
	f.Questions[0].Required = true
	return f
}

func TestRequiredQuestionBlocksNext(t *testing.T) {
	s := New(testForm(), &spySubmitter{}, Options{})

	err := s.Next(context.Background())

	var invalid ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StateQuestion, s.State())
	assert.Equal(t, 0, s.Index())
}

func TestEndToEndSubmission(t *testing.T) {
	spy := &spySubmitter{}
	s := New(testForm(), spy, Options{Referrer: "https://example.com/f/f1"})

	// empty required email blocks
	require.Error(t, s.Next(context.Background()))
	assert.Equal(t, 0, s.Index())

	// filled email advances
	s.SetAnswer("a@b.com")
	require.NoError(t, s.Next(context.Background()))
	assert.Equal(t, 1, s.Index())

	// optional rating skipped, next from the last question submits
	require.NoError(t, s.Next(context.Background()))
	assert.Equal(t, StateThankYou, s.State())

	require.Len(t, spy.submitted, 1)
	sub := spy.submitted[0]
	require.Len(t, sub.Answers, 1)
	assert.Equal(t, "a@b.com", sub.Answers[0].Value)
	assert.True(t, sub.Completed)
	assert.Equal(t, "tok-1", sub.Token)
	assert.Equal(t, "https://example.com/f/f1", sub.Referrer)
	require.NotNil(t, s.Response())
	assert.Equal(t, "r-1", s.Response().ID)
}

func TestCompletedFalseWhenRequiredMissingAtSubmit(t *testing.T) {
	f := testForm()
	spy := &spySubmitter{}
	s := New(f, spy, Options{})
	s.SetAnswer("a@b.com")
	require.NoError(t, s.Next(context.Background()))

	// jump back and clear nothing; delete-the-answer case is covered by the
	// snapshot rule: completed is computed at submit time only
	require.NoError(t, s.Next(context.Background()))

	require.Len(t, spy.submitted, 1)
	assert.True(t, spy.submitted[0].Completed)
}

func TestWelcomeScreenFlow(t *testing.T) {
	f := testForm()
	f.Settings.WelcomeScreen = &model.WelcomeScreen{Enabled: true, Title: "Hi"}
	s := New(f, &spySubmitter{}, Options{})

	assert.Equal(t, StateWelcome, s.State())
	assert.Equal(t, projector.KindWelcome, s.Screen(projector.ViewportDesktop).Kind)

	s.Start()
	assert.Equal(t, StateQuestion, s.State())
	assert.Equal(t, 0, s.Index())
}

func TestWelcomeDisabledStartsAtFirstQuestion(t *testing.T) {
	s := New(testForm(), &spySubmitter{}, Options{})
	assert.Equal(t, StateQuestion, s.State())
}

func TestPrevKeepsAnswers(t *testing.T) {
	spy := &spySubmitter{}
	s := New(testForm(), spy, Options{})
	s.SetAnswer("a@b.com")
	require.NoError(t, s.Next(context.Background()))
	s.SetAnswer(float64(4))

	s.Prev()
	assert.Equal(t, 0, s.Index())

	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.Next(context.Background()))

	require.Len(t, spy.submitted, 1)
	require.Len(t, spy.submitted[0].Answers, 2)
	assert.Equal(t, float64(4), spy.submitted[0].Answers[1].Value)
}

func TestAnswerUpsertLastWriteWins(t *testing.T) {
	spy := &spySubmitter{}
	s := New(testForm(), spy, Options{})
	s.SetAnswer("first@b.com")
	s.SetAnswer("second@b.com")
	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.Next(context.Background()))

	require.Len(t, spy.submitted[0].Answers, 1)
	assert.Equal(t, "second@b.com", spy.submitted[0].Answers[0].Value)
}

func TestJumpSkipsValidation(t *testing.T) {
	s := New(testForm(), &spySubmitter{}, Options{})

	s.Jump(1)

	assert.Equal(t, 1, s.Index())
	assert.Equal(t, StateQuestion, s.State())
}

func TestKeyboardContract(t *testing.T) {
	f := model.Form{ID: "f1", Status: model.StatusActive}
	f = builder.AddQuestion(f, qtype.LongText)
	f = builder.AddQuestion(f, qtype.ShortText)
	f.Settings.WelcomeScreen = &model.WelcomeScreen{Enabled: true}

	s := New(f, &spySubmitter{}, Options{Preview: true})

	// Enter starts from the welcome screen
	require.NoError(t, s.Keypress(context.Background(), "Enter", false))
	assert.Equal(t, StateQuestion, s.State())

	// Enter on a multi-line question does not advance
	require.NoError(t, s.Keypress(context.Background(), "Enter", false))
	assert.Equal(t, 0, s.Index())

	// shift+Enter never advances
	s.Jump(1)
	require.NoError(t, s.Keypress(context.Background(), "Enter", true))
	assert.Equal(t, 1, s.Index())

	// plain Enter on a single-line question advances (submits, preview)
	require.NoError(t, s.Keypress(context.Background(), "Enter", false))
	assert.Equal(t, StateThankYou, s.State())
}

func TestPreviewBypassesProtocol(t *testing.T) {
	spy := &spySubmitter{}
	s := New(testForm(), spy, Options{Preview: true})
	s.SetAnswer("a@b.com")
	require.NoError(t, s.Next(context.Background()))
	require.NoError(t, s.Next(context.Background()))

	assert.Equal(t, StateThankYou, s.State())
	assert.Zero(t, spy.issued, "preview must not fetch a token")
	assert.Empty(t, spy.submitted, "preview must not persist")
}

func TestRecoverableFailureThenRetry(t *testing.T) {
	spy := &spySubmitter{submitErr: submit.ErrDomainRejected, failSubmits: 1}
	s := New(testForm(), spy, Options{})
	s.SetAnswer("a@b.com")
	require.NoError(t, s.Next(context.Background()))

	err := s.Next(context.Background())
	require.ErrorIs(t, err, submit.ErrDomainRejected)
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, 1, s.Index(), "failure returns to the last question")
	assert.Empty(t, spy.submitted)

	require.NoError(t, s.Retry(context.Background()))
	assert.Equal(t, StateThankYou, s.State())
	require.Len(t, spy.submitted, 1)
}

func TestTerminalErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want State
	}{
		{"not found", submit.ErrNotFound, StateNotFound},
		{"closed", submit.ErrClosed, StateClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := &spySubmitter{submitErr: tt.err, failSubmits: -1}
			s := New(testForm(), spy, Options{})
			s.SetAnswer("a@b.com")
			require.NoError(t, s.Next(context.Background()))

			require.ErrorIs(t, s.Next(context.Background()), tt.err)
			assert.Equal(t, tt.want, s.State())

			// terminal states accept no retry
			require.NoError(t, s.Retry(context.Background()))
			assert.Equal(t, tt.want, s.State())
		})
	}
}

func TestTokenInvalidClearsCachedToken(t *testing.T) {
	spy := &spySubmitter{submitErr: submit.ErrTokenInvalid, failSubmits: 1}
	s := New(testForm(), spy, Options{})
	s.SetAnswer("a@b.com")
	require.NoError(t, s.Next(context.Background()))

	require.Error(t, s.Next(context.Background()))
	require.NoError(t, s.Retry(context.Background()))

	// a fresh token was fetched for the retry
	assert.Equal(t, 2, spy.issued)
	assert.Equal(t, StateThankYou, s.State())
}

func TestManagerRoundTrip(t *testing.T) {
	m := NewManager()
	id, s := m.Create(testForm(), &spySubmitter{}, Options{})

	got, ok := m.Get(id)
	require.True(t, ok)
	assert.Same(t, s, got)

	m.Remove(id)
	_, ok = m.Get(id)
	assert.False(t, ok)
}
