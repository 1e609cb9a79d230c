package projector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formloom/formloom/builder"
	"github.com/formloom/formloom/model"
	"github.com/formloom/formloom/qtype"
)

func sampleForm() model.Form {
	f := model.Form{
		ID:    "f1",
		Title: "Customer survey",
		Settings: model.FormSettings{
			PrimaryColor: "#336699",
			ShowBranding: true,
		},
	}
	f = builder.AddQuestion(f, qtype.Email)
	f = builder.AddQuestion(f, qtype.LongText)
	f = builder.AddQuestion(f, qtype.Rating)
	f.Questions[0].Title = "Your email"
	return f
}

func TestProjectQuestionScreen(t *testing.T) {
	f := sampleForm()

	s := Project(f, 0, ViewportDesktop)

	assert.Equal(t, KindQuestion, s.Kind)
	assert.Equal(t, 0, s.Index)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, "Your email", s.Title)
	assert.Equal(t, "OK", s.ButtonText)
	require.NotNil(t, s.Input)
	assert.Equal(t, qtype.Email, s.Input.Type)
	assert.Equal(t, "scalar", s.Input.Kind)
	assert.Equal(t, "#336699", s.PrimaryColor)
}

func TestProjectLastQuestionSaysSubmit(t *testing.T) {
	f := sampleForm()
	s := Project(f, 2, ViewportDesktop)

	assert.Equal(t, "Submit", s.ButtonText)
	assert.Equal(t, 5, s.Input.MaxRating)
	assert.Equal(t, "numeric", s.Input.Kind)
}

func TestProjectMultilineInput(t *testing.T) {
	f := sampleForm()
	s := Project(f, 1, ViewportMobile)

	assert.True(t, s.Input.Multiline)
	assert.Equal(t, ViewportMobile, s.Viewport)
}

func TestProjectWelcomeScreen(t *testing.T) {
	f := sampleForm()
	f.Settings.WelcomeScreen = &model.WelcomeScreen{
		Enabled:    true,
		Title:      "Hello there",
		ButtonText: "Begin",
	}

	s := Project(f, WelcomeIndex, ViewportDesktop)

	assert.Equal(t, KindWelcome, s.Kind)
	assert.Equal(t, "Hello there", s.Title)
	assert.Equal(t, "Begin", s.ButtonText)
	assert.Nil(t, s.Input)
}

func TestProjectWelcomeDisabledSkipsToFirstQuestion(t *testing.T) {
	f := sampleForm()

	s := Project(f, WelcomeIndex, ViewportDesktop)

	assert.Equal(t, KindQuestion, s.Kind)
	assert.Equal(t, 0, s.Index)
}

func TestProjectThankYouScreen(t *testing.T) {
	f := sampleForm()
	f.Settings.ThankYouTitle = "Done!"
	f.Settings.RedirectURL = "https://example.com"

	s := Project(f, len(f.Questions), ViewportDesktop)

	assert.Equal(t, KindThankYou, s.Kind)
	assert.Equal(t, "Done!", s.Title)
	assert.Equal(t, 100, s.Progress)
	assert.Equal(t, "https://example.com", s.RedirectURL)
}

func TestProjectDoesNotMutateForm(t *testing.T) {
	f := sampleForm()
	snapshot := f.Clone()

	for i := -1; i <= len(f.Questions); i++ {
		_ = Project(f, i, ViewportDesktop)
		_ = Project(f, i, ViewportMobile)
	}

	assert.Empty(t, cmp.Diff(snapshot, f))
}

func TestProjectProgress(t *testing.T) {
	f := sampleForm()

	assert.Equal(t, 0, Project(f, 0, ViewportDesktop).Progress)
	assert.Equal(t, 33, Project(f, 1, ViewportDesktop).Progress)
	assert.Equal(t, 66, Project(f, 2, ViewportDesktop).Progress)
}
