// Package formcheck derives per-field errors, completion marks and the
// progress percentage from an application form. Everything here is a pure
// function of its inputs.
package formcheck

import (
	"regexp"

	"joinnow/internal/application/roles"
	"joinnow/internal/models"
)

const (
	MsgNameRequired = "Name is required"
	MsgInvalidEmail = "Please enter a valid email"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Result is the derived validation state of a form.
type Result struct {
	Errors    map[string]string `json:"errors"`
	Completed map[string]bool   `json:"completed"`
}

// Error returns the message for field, or "".
func (r Result) Error(field string) string {
	return r.Errors[field]
}

func (r Result) IsCompleted(field string) bool {
	return r.Completed[field]
}

// Evaluate validates form given the name of the currently focused field
// ("" when nothing is focused).
//
// The name error is shown whenever the name is empty and its input is not
// focused, which includes the very first render.
func Evaluate(form models.ApplicationForm, focused string) Result {
	res := Result{
		Errors:    map[string]string{},
		Completed: map[string]bool{},
	}

	if form.Name != "" {
		res.Completed[models.FieldName] = true
	} else if focused != models.FieldName {
		res.Errors[models.FieldName] = MsgNameRequired
	}

	if form.Gmail != "" {
		res.Completed[models.FieldGmail] = true
		if !IsValidEmail(form.Gmail) {
			res.Errors[models.FieldGmail] = MsgInvalidEmail
		}
	}

	if form.Phone != "" {
		res.Completed[models.FieldPhone] = true
	}

	if roles.IsValid(form.Role) {
		res.Completed[models.FieldRole] = true
	}

	return res
}

// IsValidEmail applies the loose local@domain.tld shape check.
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// Progress is the percentage shown in the header bar. On the main step it
// is the share of non-empty fields across the whole form, scaled to 50.
func Progress(step models.Step, form models.ApplicationForm) float64 {
	switch step {
	case models.StepRoleDetails:
		return 75
	case models.StepConfirmation:
		return 100
	}

	values := form.Values()
	filled := 0
	for _, v := range values {
		if v != "" {
			filled++
		}
	}
	return float64(filled) / float64(len(values)) * 50
}
