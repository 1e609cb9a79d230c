// Package submit guards the response boundary: proof-of-origin tokens,
// referrer allowlisting, response caps and the honeypot. The client only
// carries evidence; every check lives here, next to the store.
package submit

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/formloom/formloom/model"
	"github.com/formloom/formloom/store"
)

// Store is the slice of the persistence collaborator the protocol needs.
type Store interface {
	GetForm(ctx context.Context, id string) (model.Form, error)
	CountResponses(ctx context.Context, formID string) (int, error)
	InsertResponse(ctx context.Context, resp model.Response) (string, error)
	InsertSubmitToken(ctx context.Context, id, formID string, expiresAt time.Time) error
	ConsumeSubmitToken(ctx context.Context, id, formID string) (time.Time, error)
}

type Service struct {
	store  Store
	secret []byte
	ttl    time.Duration
}

func NewService(st Store, secret string, ttl time.Duration) *Service {
	return &Service{
		store:  st,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

type tokenClaims struct {
	FormID string `json:"form_id"`
	jwt.RegisteredClaims
}

// IssueToken mints a single-use proof-of-origin token scoped to the form.
// The jti is recorded so the token can be consumed exactly once at submit
// time.
func (s *Service) IssueToken(ctx context.Context, formID string) (string, error) {
	form, err := s.store.GetForm(ctx, formID)
	if err != nil {
		if store.IsNotFound(err) {
			return "", ErrNotFound
		}
		return "", err
	}

	id := uuid.NewString()
	expiresAt := time.Now().Add(s.ttl)
	err = s.store.InsertSubmitToken(ctx, id, form.ID, expiresAt)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		FormID: form.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	return token.SignedString(s.secret)
}

// Submit runs the full protocol and stores the response. Checks run in
// order: existence, status and cap, domain allowlist, token. A tripped
// honeypot does not fail the call; the response row is flagged and dropped
// from counts downstream.
func (s *Service) Submit(ctx context.Context, formID string, sub model.Submission) (model.Response, error) {
	form, err := s.store.GetForm(ctx, formID)
	if err != nil {
		if store.IsNotFound(err) {
			return model.Response{}, ErrNotFound
		}
		return model.Response{}, err
	}

	if !form.AcceptsSubmissions() {
		return model.Response{}, ErrClosed
	}
	if max := form.Settings.MaxResponses; max > 0 {
		count, err := s.store.CountResponses(ctx, form.ID)
		if err != nil {
			return model.Response{}, err
		}
		if count >= max {
			return model.Response{}, ErrClosed
		}
	}

	if len(form.Settings.AllowedDomains) > 0 && !domainAllowed(sub.Referrer, form.Settings.AllowedDomains) {
		return model.Response{}, ErrDomainRejected
	}

	err = s.verifyToken(ctx, form.ID, sub.Token)
	if err != nil {
		return model.Response{}, err
	}

	resp := model.Response{
		FormID:      form.ID,
		Answers:     sub.Answers,
		Completed:   sub.Completed,
		Flagged:     sub.Website != "",
		Referrer:    sub.Referrer,
		SubmittedAt: time.Now(),
	}
	resp.ID, err = s.store.InsertResponse(ctx, resp)
	if err != nil {
		return model.Response{}, err
	}
	return resp, nil
}

func (s *Service) verifyToken(ctx context.Context, formID, raw string) error {
	if raw == "" {
		return ErrTokenInvalid
	}

	claims := tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil || claims.FormID != formID || claims.ID == "" {
		return ErrTokenInvalid
	}

	// single use: consuming deletes the row, a second submit with the same
	// token fails here
	expiration, err := s.store.ConsumeSubmitToken(ctx, claims.ID, formID)
	if err != nil {
		return ErrTokenInvalid
	}
	if expiration.Before(time.Now()) {
		return ErrTokenInvalid
	}
	return nil
}

// domainAllowed matches the referrer host against the allowlist: exact match
// or subdomain of an allowed entry. Bare hosts and full URLs are both
// accepted as referrer values.
func domainAllowed(referrer string, allowed []string) bool {
	host := referrer
	if u, err := url.Parse(referrer); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(strings.Split(host, ":")[0])
	if host == "" {
		return false
	}

	for _, domain := range allowed {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
