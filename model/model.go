package model

import "time"

type FormStatus string

const (
	StatusDraft  FormStatus = "draft"
	StatusActive FormStatus = "active"
	StatusClosed FormStatus = "closed"
)

type Form struct {
	ID          string       `json:"id,omitempty"`
	Version     int          `json:"version,omitempty"`
	OwnerID     string       `json:"ownerId,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Questions   []Question   `json:"questions"`
	Settings    FormSettings `json:"settings"`
	Status      FormStatus   `json:"status"`
	CreatedAt   time.Time    `json:"createdAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty"`
}

type Question struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder,omitempty"`

	// type-dependent fields, see qtype.Normalize
	Options           []QuestionOption `json:"options,omitempty"`
	MaxRating         int              `json:"maxRating,omitempty"`
	AllowMultiple     bool             `json:"allowMultiple,omitempty"`
	ScaleMax          int              `json:"scaleMax,omitempty"`
	ScaleLabels       *ScaleLabels     `json:"scaleLabels,omitempty"`
	MaxFileSize       int              `json:"maxFileSize,omitempty"`
	AcceptedFileTypes []string         `json:"acceptedFileTypes,omitempty"`
}

type QuestionOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type ScaleLabels struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type WelcomeScreen struct {
	Enabled     bool   `json:"enabled"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty"`
	ButtonText  string `json:"buttonText,omitempty"`
}

type FormSettings struct {
	PrimaryColor     string         `json:"primaryColor,omitempty"`
	ShowBranding     bool           `json:"showBranding"`
	RedirectURL      string         `json:"redirectUrl,omitempty"`
	ThankYouTitle    string         `json:"thankYouTitle,omitempty"`
	ThankYouMessage  string         `json:"thankYouMessage,omitempty"`
	CloseAfterSubmit bool           `json:"closeAfterSubmit,omitempty"`
	WelcomeScreen    *WelcomeScreen `json:"welcomeScreen,omitempty"`
	AllowedDomains   []string       `json:"allowedDomains,omitempty"`
	MaxResponses     int            `json:"maxResponses,omitempty"`
}

// Answer value shapes depend on the question type: string for text-like
// inputs, []string for multi-select, float64 for rating/scale/number after
// JSON decoding. qtype.HasValue is the only interpreter of the value.
type Answer struct {
	QuestionID string `json:"questionId"`
	Value      any    `json:"value"`
}

type Response struct {
	ID          string    `json:"id,omitempty"`
	FormID      string    `json:"formId"`
	Answers     []Answer  `json:"answers"`
	Completed   bool      `json:"completed"`
	Flagged     bool      `json:"flagged,omitempty"`
	Referrer    string    `json:"referrer,omitempty"`
	SubmittedAt time.Time `json:"submittedAt,omitempty"`
}

// Submission is the payload a respondent posts: the accumulated answers plus
// the protocol evidence (token, referrer, honeypot).
type Submission struct {
	Answers   []Answer `json:"answers"`
	Completed bool     `json:"completed"`
	Token     string   `json:"token,omitempty"`
	Referrer  string   `json:"referrer"`
	Website   string   `json:"website,omitempty"` // honeypot, must stay empty
}

// Clone returns a deep copy. The builder's ops hand out new Form values and
// never alias slices of the input.
func (f Form) Clone() Form {
	out := f
	out.Questions = make([]Question, len(f.Questions))
	for i, q := range f.Questions {
		out.Questions[i] = q.Clone()
	}
	out.Settings = f.Settings.Clone()
	return out
}

func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]QuestionOption(nil), q.Options...)
	}
	if q.ScaleLabels != nil {
		labels := *q.ScaleLabels
		out.ScaleLabels = &labels
	}
	if q.AcceptedFileTypes != nil {
		out.AcceptedFileTypes = append([]string(nil), q.AcceptedFileTypes...)
	}
	return out
}

func (s FormSettings) Clone() FormSettings {
	out := s
	if s.WelcomeScreen != nil {
		ws := *s.WelcomeScreen
		out.WelcomeScreen = &ws
	}
	if s.AllowedDomains != nil {
		out.AllowedDomains = append([]string(nil), s.AllowedDomains...)
	}
	return out
}

// QuestionIndex returns the position of the question with the given id, or -1.
func (f Form) QuestionIndex(id string) int {
	for i, q := range f.Questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// AcceptsSubmissions reports whether the form's stored status allows new
// responses. The response cap is enforced separately at the submit boundary.
func (f Form) AcceptsSubmissions() bool {
	return f.Status == StatusActive
}
