// Package roles is the static catalog of internship roles an applicant can
// pick, together with the questions each role asks.
package roles

import (
	"joinnow/internal/models"
)

// UnknownLabel is shown for a role id that is not in the catalog.
const UnknownLabel = "-"

// Question is one role-specific prompt on the role-details step.
type Question struct {
	Field       string
	Label       string
	Placeholder string
	Multiline   bool
	Rows        int
}

type Role struct {
	ID          models.RoleID
	Label       string
	Icon        string
	Description string
	Questions   []Question
}

var catalog = []Role{
	{
		ID:          models.RoleDeveloper,
		Label:       "Developer",
		Icon:        "💻",
		Description: "Build amazing products",
		Questions: []Question{
			{Field: models.FieldDeveloperWhy, Label: "Why do you want to join as Developer?", Placeholder: "Tell us about your passion for development...", Multiline: true, Rows: 4},
			{Field: models.FieldDeveloperGithub, Label: "Github Account URL", Placeholder: "https://github.com/yourname"},
			{Field: models.FieldDeveloperExp, Label: "Past Experience (short)", Placeholder: "Briefly describe your development experience...", Multiline: true, Rows: 3},
		},
	},
	{
		ID:          models.RolePublic,
		Label:       "Public Reaction",
		Icon:        "🎭",
		Description: "Shape public opinion",
		Questions: []Question{
			{Field: models.FieldPublicWhy, Label: "Why do you want to join as Public Reaction?", Placeholder: "Share your interest in public engagement...", Multiline: true, Rows: 4},
			{Field: models.FieldPublicExamples, Label: "Examples of campaigns or reactions you enjoyed", Placeholder: "Mention campaigns that inspired you...", Multiline: true, Rows: 3},
			{Field: models.FieldPublicExp, Label: "Past Experience (short)", Placeholder: "Describe your relevant experience...", Multiline: true, Rows: 3},
		},
	},
	{
		ID:          models.RoleCreator,
		Label:       "Content Creator",
		Icon:        "🎨",
		Description: "Create engaging content",
		Questions: []Question{
			{Field: models.FieldCreatorWhy, Label: "Why do you want to join as Content Creator?", Placeholder: "Tell us about your creative vision...", Multiline: true, Rows: 4},
			{Field: models.FieldCreatorPortfolio, Label: "Portfolio / Sample Content URL", Placeholder: "https://youtube.com/.. or drive link"},
			{Field: models.FieldCreatorPlatformPref, Label: "Preferred Platforms (short)", Placeholder: "YouTube, Instagram, X, TikTok..."},
		},
	},
}

// All returns the catalog in display order. The slice is a copy.
func All() []Role {
	out := make([]Role, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a role by id.
func Lookup(id models.RoleID) (Role, bool) {
	for _, r := range catalog {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

// IsValid reports whether id names a catalog role.
func IsValid(id models.RoleID) bool {
	_, ok := Lookup(id)
	return ok
}

// Label returns the human-readable label for id, or UnknownLabel.
func Label(id models.RoleID) string {
	if r, ok := Lookup(id); ok {
		return r.Label
	}
	return UnknownLabel
}
