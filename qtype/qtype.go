// Package qtype is the question type registry: one descriptor per type,
// covering default construction, answer shape and required-field
// satisfaction. Adding a question type means adding one descriptor here.
package qtype

import (
	"sort"

	"github.com/google/uuid"

	"github.com/formloom/formloom/model"
)

// Kind is the shape of a question's answer value.
type Kind int

const (
	KindScalar  Kind = iota // string
	KindMulti               // []string
	KindNumeric             // float64
	KindNone                // no input (statement)
)

// Presentational categories, in display order.
const (
	CategoryContact = "Contact info"
	CategoryChoice  = "Choice"
	CategoryRating  = "Rating & ranking"
	CategoryText    = "Text & Video"
	CategoryOther   = "Other"
)

const (
	ShortText      = "short_text"
	LongText       = "long_text"
	Email          = "email"
	PhoneNumber    = "phone_number"
	Website        = "website"
	MultipleChoice = "multiple_choice"
	Dropdown       = "dropdown"
	Checkbox       = "checkbox"
	PictureChoice  = "picture_choice"
	Ranking        = "ranking"
	YesNo          = "yes_no"
	Rating         = "rating"
	OpinionScale   = "opinion_scale"
	Statement      = "statement"
	Date           = "date"
	Number         = "number"
	FileUpload     = "file_upload"
	Legal          = "legal"
)

// Descriptor is the per-type contract: label/category for the authoring
// palette, the answer kind, and a defaults hook filling the fields the type
// requires. Types without a HasValue override use the kind's generic rule.
type Descriptor struct {
	Type      string
	Label     string
	Category  string
	Kind      Kind
	Multiline bool
	Defaults  func(q *model.Question)
	HasValue  func(q model.Question, value any) bool
}

var registry = map[string]Descriptor{
	Email:       {Type: Email, Label: "Email", Category: CategoryContact, Kind: KindScalar, Defaults: func(q *model.Question) { q.Placeholder = "name@example.com" }},
	PhoneNumber: {Type: PhoneNumber, Label: "Phone Number", Category: CategoryContact, Kind: KindScalar, Defaults: func(q *model.Question) { q.Placeholder = "+1 555 000 0000" }},
	Website:     {Type: Website, Label: "Website", Category: CategoryContact, Kind: KindScalar, Defaults: func(q *model.Question) { q.Placeholder = "https://" }},

	MultipleChoice: {Type: MultipleChoice, Label: "Multiple Choice", Category: CategoryChoice, Kind: KindScalar, Defaults: defaultOptions},
	Dropdown:       {Type: Dropdown, Label: "Dropdown", Category: CategoryChoice, Kind: KindScalar, Defaults: defaultOptions},
	Checkbox:       {Type: Checkbox, Label: "Checkboxes", Category: CategoryChoice, Kind: KindMulti, Defaults: defaultOptions},
	PictureChoice:  {Type: PictureChoice, Label: "Picture Choice", Category: CategoryChoice, Kind: KindScalar, Defaults: defaultOptions},
	Ranking:        {Type: Ranking, Label: "Ranking", Category: CategoryChoice, Kind: KindMulti, Defaults: defaultOptions},
	YesNo:          {Type: YesNo, Label: "Yes/No", Category: CategoryChoice, Kind: KindScalar},

	Rating: {Type: Rating, Label: "Rating", Category: CategoryRating, Kind: KindNumeric, Defaults: func(q *model.Question) {
		q.MaxRating = 5
	}},
	OpinionScale: {Type: OpinionScale, Label: "Opinion Scale", Category: CategoryRating, Kind: KindNumeric, Defaults: func(q *model.Question) {
		q.ScaleMax = 5
		q.ScaleLabels = &model.ScaleLabels{Start: "Not likely", End: "Very likely"}
	}},

	ShortText: {Type: ShortText, Label: "Short Text", Category: CategoryText, Kind: KindScalar, Defaults: func(q *model.Question) { q.Placeholder = "Type your answer here..." }},
	LongText: {Type: LongText, Label: "Long Text", Category: CategoryText, Kind: KindScalar, Multiline: true, Defaults: func(q *model.Question) {
		q.Placeholder = "Type your answer here..."
	}},
	Statement: {Type: Statement, Label: "Statement", Category: CategoryText, Kind: KindNone, HasValue: func(model.Question, any) bool { return true }},

	Date:   {Type: Date, Label: "Date", Category: CategoryOther, Kind: KindScalar, Defaults: func(q *model.Question) { q.Placeholder = "YYYY-MM-DD" }},
	Number: {Type: Number, Label: "Number", Category: CategoryOther, Kind: KindNumeric, Defaults: func(q *model.Question) { q.Placeholder = "0" }},
	FileUpload: {Type: FileUpload, Label: "File Upload", Category: CategoryOther, Kind: KindScalar, Defaults: func(q *model.Question) {
		q.MaxFileSize = 10
		q.AcceptedFileTypes = []string{".pdf", ".doc", ".docx", ".png", ".jpg"}
	}},
	Legal: {Type: Legal, Label: "Legal", Category: CategoryOther, Kind: KindScalar, Defaults: func(q *model.Question) {
		q.Title = "I accept the terms and conditions"
	}},
}

func defaultOptions(q *model.Question) {
	q.Options = []model.QuestionOption{
		{ID: uuid.NewString(), Label: "Option 1"},
		{ID: uuid.NewString(), Label: "Option 2"},
	}
}

// Lookup returns the descriptor for a type tag. Unknown tags fall back to
// short text so a stale stored form still renders.
func Lookup(typ string) Descriptor {
	if d, ok := registry[typ]; ok {
		return d
	}
	return registry[ShortText]
}

// Known reports whether the type tag is part of the catalog.
func Known(typ string) bool {
	_, ok := registry[typ]
	return ok
}

// All returns every descriptor, grouped stably by category then label.
func All() []Descriptor {
	order := []string{CategoryContact, CategoryChoice, CategoryRating, CategoryText, CategoryOther}
	var out []Descriptor
	for _, cat := range order {
		var group []Descriptor
		for _, d := range registry {
			if d.Category == cat {
				group = append(group, d)
			}
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Label < group[j].Label })
		out = append(out, group...)
	}
	return out
}

// Defaults produces a minimal valid question of the given type: fresh id,
// empty title (except types that pre-fill one), not required, plus whatever
// type-specific fields the descriptor demands.
func Defaults(typ string) model.Question {
	d := Lookup(typ)
	q := model.Question{
		ID:   uuid.NewString(),
		Type: d.Type,
	}
	if d.Defaults != nil {
		d.Defaults(&q)
	}
	return q
}

// HasValue decides required-field satisfaction. This is the single source of
// truth for both the authoring preview and the respondent advance gate.
// Empty string, nil and empty array do not count; any number does, zero
// included.
func HasValue(q model.Question, value any) bool {
	d := Lookup(q.Type)
	if d.HasValue != nil {
		return d.HasValue(q, value)
	}
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	case float64, float32, int, int64:
		return true
	default:
		return false
	}
}
