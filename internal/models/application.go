// internal/models/application.go
package models

import (
	"fmt"
)

// RoleID identifies one of the selectable internship roles. The zero value
// means no role has been picked yet.
type RoleID string

const (
	RoleUnset     RoleID = ""
	RoleDeveloper RoleID = "developer"
	RolePublic    RoleID = "public"
	RoleCreator   RoleID = "creator"
)

// Step is the wizard's position in the linear flow.
type Step int

const (
	StepMain         Step = 1
	StepRoleDetails  Step = 2
	StepConfirmation Step = 3
)

// StepCount is the number of screens shown in the "Step n of N" header.
const StepCount = 3

// Form field names, as used by the HTML inputs and the JSON state view.
const (
	FieldName     = "name"
	FieldGmail    = "gmail"
	FieldPhone    = "phone"
	FieldLinkedIn = "linkedin"
	FieldResume   = "resume"
	FieldRole     = "role"

	FieldDeveloperWhy    = "developerWhy"
	FieldDeveloperGithub = "developerGithub"
	FieldDeveloperExp    = "developerExp"

	FieldPublicWhy      = "publicWhy"
	FieldPublicExamples = "publicExamples"
	FieldPublicExp      = "publicExp"

	FieldCreatorWhy          = "creatorWhy"
	FieldCreatorPortfolio    = "creatorPortfolio"
	FieldCreatorPlatformPref = "creatorPlatformPref"
)

var fieldNames = []string{
	FieldName, FieldGmail, FieldPhone, FieldLinkedIn, FieldResume, FieldRole,
	FieldDeveloperWhy, FieldDeveloperGithub, FieldDeveloperExp,
	FieldPublicWhy, FieldPublicExamples, FieldPublicExp,
	FieldCreatorWhy, FieldCreatorPortfolio, FieldCreatorPlatformPref,
}

// FieldNames returns every form field in display order.
func FieldNames() []string {
	out := make([]string, len(fieldNames))
	copy(out, fieldNames)
	return out
}

// Field is one key/value pair sent to the relay.
type Field struct {
	Key   string
	Value string
}

// RoleAnswers is the role-specific question group. Exactly one group, the
// one matching ApplicationForm.Role, is submitted.
type RoleAnswers interface {
	Role() RoleID
	ExternalFields() []Field
}

type DeveloperAnswers struct {
	Why        string `json:"why" yaml:"why"`
	Github     string `json:"github" yaml:"github"`
	Experience string `json:"experience" yaml:"experience"`
}

func (DeveloperAnswers) Role() RoleID { return RoleDeveloper }

func (a DeveloperAnswers) ExternalFields() []Field {
	return []Field{
		{Key: "why_developer", Value: a.Why},
		{Key: "github", Value: a.Github},
		{Key: "developer_experience", Value: a.Experience},
	}
}

type PublicAnswers struct {
	Why        string `json:"why" yaml:"why"`
	Examples   string `json:"examples" yaml:"examples"`
	Experience string `json:"experience" yaml:"experience"`
}

func (PublicAnswers) Role() RoleID { return RolePublic }

func (a PublicAnswers) ExternalFields() []Field {
	return []Field{
		{Key: "why_public", Value: a.Why},
		{Key: "campaign_examples", Value: a.Examples},
		{Key: "public_experience", Value: a.Experience},
	}
}

type CreatorAnswers struct {
	Why          string `json:"why" yaml:"why"`
	Portfolio    string `json:"portfolio" yaml:"portfolio"`
	PlatformPref string `json:"platformPref" yaml:"platform_pref"`
}

func (CreatorAnswers) Role() RoleID { return RoleCreator }

func (a CreatorAnswers) ExternalFields() []Field {
	return []Field{
		{Key: "why_creator", Value: a.Why},
		{Key: "portfolio", Value: a.Portfolio},
		{Key: "preferred_platforms", Value: a.PlatformPref},
	}
}

// ApplicationForm is the applicant's in-progress application. Answers for
// roles other than Role may be filled in but are ignored.
type ApplicationForm struct {
	Name     string `json:"name" yaml:"name"`
	Gmail    string `json:"gmail" yaml:"gmail"`
	Phone    string `json:"phone" yaml:"phone"`
	LinkedIn string `json:"linkedin" yaml:"linkedin"`
	Resume   string `json:"resume" yaml:"resume"`
	Role     RoleID `json:"role" yaml:"role"`

	Developer DeveloperAnswers `json:"developer" yaml:"developer"`
	Public    PublicAnswers    `json:"public" yaml:"public"`
	Creator   CreatorAnswers   `json:"creator" yaml:"creator"`
}

// Answers returns the answer group selected by Role.
func (f *ApplicationForm) Answers() (RoleAnswers, bool) {
	switch f.Role {
	case RoleDeveloper:
		return f.Developer, true
	case RolePublic:
		return f.Public, true
	case RoleCreator:
		return f.Creator, true
	default:
		return nil, false
	}
}

func (f *ApplicationForm) fieldRef(field string) (*string, bool) {
	switch field {
	case FieldName:
		return &f.Name, true
	case FieldGmail:
		return &f.Gmail, true
	case FieldPhone:
		return &f.Phone, true
	case FieldLinkedIn:
		return &f.LinkedIn, true
	case FieldResume:
		return &f.Resume, true
	case FieldDeveloperWhy:
		return &f.Developer.Why, true
	case FieldDeveloperGithub:
		return &f.Developer.Github, true
	case FieldDeveloperExp:
		return &f.Developer.Experience, true
	case FieldPublicWhy:
		return &f.Public.Why, true
	case FieldPublicExamples:
		return &f.Public.Examples, true
	case FieldPublicExp:
		return &f.Public.Experience, true
	case FieldCreatorWhy:
		return &f.Creator.Why, true
	case FieldCreatorPortfolio:
		return &f.Creator.Portfolio, true
	case FieldCreatorPlatformPref:
		return &f.Creator.PlatformPref, true
	}
	return nil, false
}

// Get returns the value of a field by name.
func (f *ApplicationForm) Get(field string) (string, bool) {
	if field == FieldRole {
		return string(f.Role), true
	}
	ref, ok := f.fieldRef(field)
	if !ok {
		return "", false
	}
	return *ref, true
}

// Set assigns a field by name. It does not check role ids.
func (f *ApplicationForm) Set(field, value string) error {
	if field == FieldRole {
		f.Role = RoleID(value)
		return nil
	}
	ref, ok := f.fieldRef(field)
	if !ok {
		return fmt.Errorf("unknown form field %q", field)
	}
	*ref = value
	return nil
}

// Values returns every field keyed by name.
func (f *ApplicationForm) Values() map[string]string {
	out := make(map[string]string, len(fieldNames))
	for _, name := range fieldNames {
		out[name], _ = f.Get(name)
	}
	return out
}
