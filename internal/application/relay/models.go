package relay

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"strconv"

	"joinnow/internal/application/roles"
	"joinnow/internal/common/errors"
	"joinnow/internal/models"
)

// NotProvided replaces empty optional links in the payload.
const NotProvided = "Not provided"

// Relay instruction keys understood by FormSubmit.
const (
	KeySubject  = "_subject"
	KeyCaptcha  = "_captcha"
	KeyTemplate = "_template"
)

// Metadata carries the relay instructions appended to every payload.
type Metadata struct {
	SubjectPrefix  string
	Template       string
	DisableCaptcha bool
}

// Payload is the ordered list of form fields sent to the relay.
type Payload struct {
	fields []models.Field
}

func (p *Payload) Add(key, value string) {
	p.fields = append(p.fields, models.Field{Key: key, Value: value})
}

func (p *Payload) Get(key string) (string, bool) {
	for _, f := range p.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func (p *Payload) Keys() []string {
	keys := make([]string, len(p.fields))
	for i, f := range p.fields {
		keys[i] = f.Key
	}
	return keys
}

func (p *Payload) Fields() []models.Field {
	out := make([]models.Field, len(p.fields))
	copy(out, p.fields)
	return out
}

func (p *Payload) Map() map[string]string {
	out := make(map[string]string, len(p.fields))
	for _, f := range p.fields {
		out[f.Key] = f.Value
	}
	return out
}

// Encode writes the payload as a multipart/form-data body and returns it with
// its content type.
func (p *Payload) Encode() (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range p.fields {
		if err := w.WriteField(f.Key, f.Value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.Key, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

func orNotProvided(s string) string {
	if s == "" {
		return NotProvided
	}
	return s
}

// Subject builds the e-mail subject line the relay uses.
func Subject(prefix string, form models.ApplicationForm) string {
	return fmt.Sprintf("%s - %s (%s)", prefix, form.Name, roles.Label(form.Role))
}

// BuildPayload assembles the relay fields for form. Only the answer group of
// the selected role is included.
func BuildPayload(form models.ApplicationForm, meta Metadata) (*Payload, error) {
	answers, ok := form.Answers()
	if !ok {
		return nil, errors.NewInvalidRoleError(string(form.Role))
	}

	p := &Payload{}
	p.Add("name", form.Name)
	p.Add("email", form.Gmail)
	p.Add("phone", form.Phone)
	p.Add("linkedin", orNotProvided(form.LinkedIn))
	p.Add("resume", orNotProvided(form.Resume))
	p.Add("role", roles.Label(form.Role))

	for _, f := range answers.ExternalFields() {
		p.Add(f.Key, f.Value)
	}

	p.Add(KeySubject, Subject(meta.SubjectPrefix, form))
	p.Add(KeyCaptcha, strconv.FormatBool(!meta.DisableCaptcha))
	p.Add(KeyTemplate, meta.Template)

	return p, nil
}
