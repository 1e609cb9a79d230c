// Package session drives a respondent through a form: welcome screen,
// question sequence, submission, thank-you. Progress lives only in memory;
// an abandoned session is gone on restart.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/formloom/formloom/model"
	"github.com/formloom/formloom/projector"
	"github.com/formloom/formloom/qtype"
	"github.com/formloom/formloom/submit"
)

type State string

const (
	StateWelcome    State = "welcome"
	StateQuestion   State = "question"
	StateSubmitting State = "submitting"
	StateThankYou   State = "thank_you"
	StateFailed     State = "failed"    // recoverable, retry allowed
	StateClosed     State = "closed"    // terminal
	StateNotFound   State = "not_found" // terminal
)

// Submitter is the submission protocol boundary. Preview sessions never
// touch it.
type Submitter interface {
	IssueToken(ctx context.Context, formID string) (string, error)
	Submit(ctx context.Context, formID string, sub model.Submission) (model.Response, error)
}

// ValidationError blocks an advance past an unanswered required question.
// It never leaves the session; callers surface it inline.
type ValidationError struct {
	QuestionID string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("required question %s has no answer", e.QuestionID)
}

type Options struct {
	Preview  bool
	Referrer string
}

type Session struct {
	mu        sync.Mutex
	form      model.Form
	state     State
	index     int
	answers   []model.Answer
	token     string
	lastErr   error
	submitter Submitter
	opts      Options
	response  *model.Response
}

// New snapshots the form definition at session start; a concurrent edit by
// the author does not affect a respondent mid-session.
func New(form model.Form, submitter Submitter, opts Options) *Session {
	s := &Session{
		form:      form.Clone(),
		submitter: submitter,
		opts:      opts,
	}
	if ws := form.Settings.WelcomeScreen; ws != nil && ws.Enabled {
		s.state = StateWelcome
	} else {
		s.state = StateQuestion
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Err returns the error behind a Failed/Closed/NotFound state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Response returns the stored response after a successful submission.
func (s *Session) Response() *model.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.response
}

// Start leaves the welcome screen. A no-op in any other state.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateWelcome {
		s.state = StateQuestion
		s.index = 0
	}
}

// SetAnswer upserts the value for the current question. Last write wins;
// answer order follows first-touch order.
func (s *Session) SetAnswer(value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateQuestion && s.state != StateFailed {
		return
	}
	if s.index >= len(s.form.Questions) {
		return
	}
	s.upsert(s.form.Questions[s.index].ID, value)
}

func (s *Session) upsert(questionID string, value any) {
	for i := range s.answers {
		if s.answers[i].QuestionID == questionID {
			s.answers[i].Value = value
			return
		}
	}
	s.answers = append(s.answers, model.Answer{QuestionID: questionID, Value: value})
}

func (s *Session) answerFor(questionID string) any {
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			return a.Value
		}
	}
	return nil
}

// Next advances past the current question. A required question without a
// satisfying answer rejects the transition with a ValidationError and the
// state does not change. From the last question, Next runs the submission.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateWelcome:
		s.state = StateQuestion
		s.index = 0
		return nil
	case StateQuestion:
	default:
		return nil
	}

	if s.index < len(s.form.Questions) {
		q := s.form.Questions[s.index]
		if q.Required && !qtype.HasValue(q, s.answerFor(q.ID)) {
			return ValidationError{QuestionID: q.ID}
		}
	}

	if s.index >= len(s.form.Questions)-1 {
		return s.doSubmit(ctx)
	}

	s.index++
	return nil
}

// Prev steps back one question, unguarded. Earlier and later answers are
// kept.
func (s *Session) Prev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateQuestion || s.index == 0 {
		return
	}
	s.index--
}

// Jump moves straight to a question index without re-validating the skipped
// ones. Used by progress-dot navigation in preview.
func (s *Session) Jump(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSubmitting, StateThankYou, StateClosed, StateNotFound:
		return
	}
	if index < 0 || index >= len(s.form.Questions) {
		return
	}
	s.state = StateQuestion
	s.index = index
}

// Keypress implements the keyboard contract: Enter without Shift starts from
// the welcome screen and advances from a question, except when the active
// question takes multi-line input, which keeps Enter for newlines.
func (s *Session) Keypress(ctx context.Context, key string, shift bool) error {
	if key != "Enter" || shift {
		return nil
	}

	s.mu.Lock()
	state, index := s.state, s.index
	s.mu.Unlock()

	switch state {
	case StateWelcome:
		s.Start()
		return nil
	case StateQuestion:
		if index < len(s.form.Questions) && qtype.Lookup(s.form.Questions[index].Type).Multiline {
			return nil
		}
		return s.Next(ctx)
	}
	return nil
}

// Retry re-runs the submission after a recoverable failure.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFailed {
		return nil
	}
	s.state = StateQuestion
	return s.doSubmit(ctx)
}

// doSubmit runs with the lock held; the session accepts no transitions while
// the call is in flight.
func (s *Session) doSubmit(ctx context.Context) error {
	s.state = StateSubmitting

	sub := s.buildSubmission()

	if s.opts.Preview {
		// preview bypass: no token, no persistence, synthetic success
		s.state = StateThankYou
		return nil
	}

	if s.token == "" {
		// lazy fetch covers sessions that idled past token expiry
		token, err := s.submitter.IssueToken(ctx, s.form.ID)
		if err != nil {
			return s.fail(err)
		}
		s.token = token
	}
	sub.Token = s.token

	resp, err := s.submitter.Submit(ctx, s.form.ID, sub)
	if err != nil {
		if errors.Is(err, submit.ErrTokenInvalid) {
			// token expired while idle; a retry fetches a fresh one
			s.token = ""
		}
		return s.fail(err)
	}

	s.response = &resp
	s.state = StateThankYou
	return nil
}

func (s *Session) fail(err error) error {
	s.lastErr = err
	if submit.Terminal(err) {
		if errors.Is(err, submit.ErrNotFound) {
			s.state = StateNotFound
		} else {
			s.state = StateClosed
		}
	} else {
		// back to the last question with a retry affordance
		s.state = StateFailed
		s.index = lastIndex(s.form)
	}
	return err
}

// buildSubmission computes the completed flag once, at submission time,
// against the form snapshot: every required question must have a satisfying
// answer. Answers that do not pass the has-value predicate are dropped from
// the payload.
func (s *Session) buildSubmission() model.Submission {
	completed := true
	for _, q := range s.form.Questions {
		if q.Required && !qtype.HasValue(q, s.answerFor(q.ID)) {
			completed = false
			break
		}
	}

	answers := []model.Answer{}
	for _, a := range s.answers {
		i := s.form.QuestionIndex(a.QuestionID)
		if i < 0 {
			// question deleted mid-session, drop the orphan
			continue
		}
		if qtype.HasValue(s.form.Questions[i], a.Value) {
			answers = append(answers, a)
		}
	}

	return model.Submission{
		Answers:   answers,
		Completed: completed,
		Referrer:  s.opts.Referrer,
	}
}

func lastIndex(form model.Form) int {
	if len(form.Questions) == 0 {
		return 0
	}
	return len(form.Questions) - 1
}

// Screen projects the current state through the shared projector.
func (s *Session) Screen(viewport projector.Viewport) projector.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.index
	switch s.state {
	case StateWelcome:
		index = projector.WelcomeIndex
	case StateThankYou:
		index = len(s.form.Questions)
	}
	return projector.Project(s.form, index, viewport)
}
