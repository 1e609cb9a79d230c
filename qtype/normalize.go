package qtype

import "github.com/formloom/formloom/model"

// Normalize re-establishes the per-type field invariant after a type change:
// fields the new type has no business carrying are dropped, fields it
// requires but the question lacks are filled from the type's defaults.
// Title, description, required and placeholder survive, so retyping a
// question never loses the author's text. Idempotent.
func Normalize(q model.Question) model.Question {
	d := Lookup(q.Type)
	out := q.Clone()
	out.Type = d.Type

	if !wantsOptions(d.Type) {
		out.Options = nil
		out.AllowMultiple = false
	} else if len(out.Options) < 2 {
		fresh := Defaults(d.Type)
		out.Options = fresh.Options
	}

	if d.Type != Rating {
		out.MaxRating = 0
	} else if out.MaxRating == 0 {
		out.MaxRating = Defaults(Rating).MaxRating
	}

	if d.Type != OpinionScale {
		out.ScaleMax = 0
		out.ScaleLabels = nil
	} else {
		fresh := Defaults(OpinionScale)
		if out.ScaleMax == 0 {
			out.ScaleMax = fresh.ScaleMax
		}
		if out.ScaleLabels == nil {
			out.ScaleLabels = fresh.ScaleLabels
		}
	}

	if d.Type != FileUpload {
		out.MaxFileSize = 0
		out.AcceptedFileTypes = nil
	} else {
		fresh := Defaults(FileUpload)
		if out.MaxFileSize == 0 {
			out.MaxFileSize = fresh.MaxFileSize
		}
		if len(out.AcceptedFileTypes) == 0 {
			out.AcceptedFileTypes = fresh.AcceptedFileTypes
		}
	}

	return out
}

func wantsOptions(typ string) bool {
	switch typ {
	case MultipleChoice, Dropdown, Checkbox, PictureChoice, Ranking:
		return true
	}
	return false
}
