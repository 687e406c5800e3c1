package relay

import (
	"joinnow/internal/application/roles"
	"joinnow/internal/common/validation"
	"joinnow/internal/models"
)

var commonKeys = []string{"name", "email", "phone", "linkedin", "resume", "role", KeySubject, KeyCaptcha, KeyTemplate}

// GetPayloadSchema returns the schema a payload for role must satisfy. Keys
// belonging to other roles are rejected by additionalProperties.
func GetPayloadSchema(role models.RoleID) (validation.JSONSchema, bool) {
	r, ok := roles.Lookup(role)
	if !ok {
		return validation.JSONSchema{}, false
	}

	props := map[string]validation.Property{
		"name":      {Type: "string", Description: "Applicant full name"},
		"email":     {Type: "string", Description: "Applicant e-mail (the gmail field)"},
		"phone":     {Type: "string", Description: "Applicant phone number"},
		"linkedin":  {Type: "string", Description: "LinkedIn profile or Not provided", MinLength: validation.IntPtr(1)},
		"resume":    {Type: "string", Description: "Resume URL or Not provided", MinLength: validation.IntPtr(1)},
		"role":      {Type: "string", Description: "Role label", Const: validation.StringPtr(r.Label)},
		KeySubject:  {Type: "string", MinLength: validation.IntPtr(1)},
		KeyCaptcha:  {Type: "string", Enum: []string{"true", "false"}},
		KeyTemplate: {Type: "string", MinLength: validation.IntPtr(1)},
	}
	required := append([]string{}, commonKeys...)

	form := models.ApplicationForm{Role: role}
	answers, _ := form.Answers()
	for _, f := range answers.ExternalFields() {
		props[f.Key] = validation.Property{Type: "string", Description: "Answer for the " + r.Label + " role"}
		required = append(required, f.Key)
	}

	return validation.JSONSchema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: false,
	}, true
}

// ValidatePayload checks p against the schema for role.
func ValidatePayload(role models.RoleID, p *Payload) *validation.ValidationResult {
	schema, ok := GetPayloadSchema(role)
	if !ok {
		return &validation.ValidationResult{
			Valid: false,
			Errors: []validation.ValidationError{{
				Field:   "role",
				Message: "unknown role " + string(role),
				Code:    "INVALID_ROLE",
			}},
		}
	}
	return validation.ValidateInput(validation.StringMap(p.Map()), schema)
}
