// Package projector maps a form definition plus a screen index to a
// renderable screen description. It is a pure function of its inputs so the
// author's live preview and the respondent renderer share one projection and
// cannot drift apart.
package projector

import (
	"github.com/formloom/formloom/model"
	"github.com/formloom/formloom/qtype"
)

type ScreenKind string

const (
	KindWelcome  ScreenKind = "welcome"
	KindQuestion ScreenKind = "question"
	KindThankYou ScreenKind = "thank_you"
)

type Viewport string

const (
	ViewportDesktop Viewport = "desktop"
	ViewportMobile  Viewport = "mobile"
)

// WelcomeIndex selects the welcome screen; len(questions) selects thank-you.
const WelcomeIndex = -1

type Screen struct {
	Kind        ScreenKind `json:"kind"`
	Index       int        `json:"index"`
	Total       int        `json:"total"`
	Progress    int        `json:"progress"` // percent, 0..100
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	VideoURL    string     `json:"videoUrl,omitempty"`
	ButtonText  string     `json:"buttonText,omitempty"`
	RedirectURL string     `json:"redirectUrl,omitempty"`

	Required bool   `json:"required,omitempty"`
	Input    *Input `json:"input,omitempty"`

	PrimaryColor string   `json:"primaryColor,omitempty"`
	ShowBranding bool     `json:"showBranding"`
	Viewport     Viewport `json:"viewport"`
}

// Input describes the answer control for a question screen. Which fields are
// set follows the question type's shape invariant.
type Input struct {
	Type              string                 `json:"type"`
	Kind              string                 `json:"kind"` // scalar | multi | numeric | none
	Multiline         bool                   `json:"multiline,omitempty"`
	Placeholder       string                 `json:"placeholder,omitempty"`
	Options           []model.QuestionOption `json:"options,omitempty"`
	AllowMultiple     bool                   `json:"allowMultiple,omitempty"`
	MaxRating         int                    `json:"maxRating,omitempty"`
	ScaleMax          int                    `json:"scaleMax,omitempty"`
	ScaleLabels       *model.ScaleLabels     `json:"scaleLabels,omitempty"`
	MaxFileSize       int                    `json:"maxFileSize,omitempty"`
	AcceptedFileTypes []string               `json:"acceptedFileTypes,omitempty"`
}

// Project renders the screen for activeIndex: -1 is the welcome screen (only
// meaningful when enabled), len(questions) is the thank-you screen, anything
// in between is that question. Out-of-range indices clamp to the nearest
// screen.
func Project(form model.Form, activeIndex int, viewport Viewport) Screen {
	n := len(form.Questions)
	s := form.Settings

	screen := Screen{
		Total:        n,
		PrimaryColor: s.PrimaryColor,
		ShowBranding: s.ShowBranding,
		Viewport:     viewport,
	}

	if activeIndex < 0 {
		ws := s.WelcomeScreen
		if ws == nil || !ws.Enabled {
			return Project(form, 0, viewport)
		}
		screen.Kind = KindWelcome
		screen.Index = WelcomeIndex
		screen.Title = coalesce(ws.Title, form.Title)
		screen.Description = coalesce(ws.Description, form.Description)
		screen.ImageURL = ws.ImageURL
		screen.VideoURL = ws.VideoURL
		screen.ButtonText = coalesce(ws.ButtonText, "Start")
		return screen
	}

	if activeIndex >= n {
		screen.Kind = KindThankYou
		screen.Index = n
		screen.Progress = 100
		screen.Title = coalesce(s.ThankYouTitle, "Thank you!")
		screen.Description = coalesce(s.ThankYouMessage, "Your response has been recorded.")
		screen.RedirectURL = s.RedirectURL
		return screen
	}

	q := form.Questions[activeIndex]
	d := qtype.Lookup(q.Type)

	screen.Kind = KindQuestion
	screen.Index = activeIndex
	if n > 0 {
		screen.Progress = activeIndex * 100 / n
	}
	screen.Title = q.Title
	screen.Description = q.Description
	screen.Required = q.Required
	if activeIndex == n-1 {
		screen.ButtonText = "Submit"
	} else {
		screen.ButtonText = "OK"
	}
	screen.Input = &Input{
		Type:              q.Type,
		Kind:              kindName(d.Kind),
		Multiline:         d.Multiline,
		Placeholder:       q.Placeholder,
		Options:           q.Options,
		AllowMultiple:     q.AllowMultiple,
		MaxRating:         q.MaxRating,
		ScaleMax:          q.ScaleMax,
		ScaleLabels:       q.ScaleLabels,
		MaxFileSize:       q.MaxFileSize,
		AcceptedFileTypes: q.AcceptedFileTypes,
	}
	return screen
}

func kindName(k qtype.Kind) string {
	switch k {
	case qtype.KindMulti:
		return "multi"
	case qtype.KindNumeric:
		return "numeric"
	case qtype.KindNone:
		return "none"
	default:
		return "scalar"
	}
}

func coalesce(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
