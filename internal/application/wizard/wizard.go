// Package wizard holds the three-step application flow: the form being
// filled in, the current step and the in-flight submission gate.
package wizard

import (
	"context"
	"time"

	"joinnow/internal/application/formcheck"
	"joinnow/internal/application/roles"
	"joinnow/internal/common/errors"
	"joinnow/internal/common/metrics"
	"joinnow/internal/models"
)

// Submitter sends a completed form to its destination. It is called at most
// once per submit action and must not retry.
type Submitter interface {
	Submit(ctx context.Context, form models.ApplicationForm) error
}

// Wizard is one applicant's wizard state. It is not safe for concurrent use;
// the web layer serializes access through the session store.
type Wizard struct {
	Form       models.ApplicationForm `json:"form"`
	Step       models.Step            `json:"step"`
	Focused    string                 `json:"focused,omitempty"`
	Submitting bool                   `json:"submitting"`
	Notice     string                 `json:"notice,omitempty"`

	// SubmitStartedAt is when the open submission began; zero when none.
	SubmitStartedAt time.Time `json:"submitStartedAt"`
}

func New() *Wizard {
	return &Wizard{Step: models.StepMain}
}

// Update sets one form field. Role values must be empty or a catalog id.
func (w *Wizard) Update(field, value string) error {
	if w.Step == models.StepConfirmation {
		return errors.NewFormLockedError()
	}
	if field == models.FieldRole && value != "" && !roles.IsValid(models.RoleID(value)) {
		return errors.NewInvalidRoleError(value)
	}
	if err := w.Form.Set(field, value); err != nil {
		return errors.NewFieldUnknownError(field)
	}
	return nil
}

// Focus records which input has focus; "" means none.
func (w *Wizard) Focus(field string) {
	w.Focused = field
}

func (w *Wizard) Validation() formcheck.Result {
	return formcheck.Evaluate(w.Form, w.Focused)
}

func (w *Wizard) Progress() float64 {
	return formcheck.Progress(w.Step, w.Form)
}

// missingForAdvance lists the required main-step inputs that are not set.
// Gmail only needs to be non-empty here; its format is not checked.
func (w *Wizard) missingForAdvance() []string {
	var missing []string
	if w.Form.Name == "" {
		missing = append(missing, models.FieldName)
	}
	if w.Form.Gmail == "" {
		missing = append(missing, models.FieldGmail)
	}
	if w.Form.Phone == "" {
		missing = append(missing, models.FieldPhone)
	}
	if !roles.IsValid(w.Form.Role) {
		missing = append(missing, models.FieldRole)
	}
	return missing
}

// Advance moves Main -> RoleDetails.
func (w *Wizard) Advance() error {
	if w.Step != models.StepMain {
		metrics.WizardTransitions.WithLabelValues("advance", "invalid").Inc()
		return errors.NewInvalidTransitionError("advance", int(w.Step))
	}
	if missing := w.missingForAdvance(); len(missing) > 0 {
		metrics.WizardTransitions.WithLabelValues("advance", "incomplete").Inc()
		err := errors.NewFormIncompleteError(missing)
		w.Notice = err.Message
		return err
	}
	w.Step = models.StepRoleDetails
	metrics.WizardTransitions.WithLabelValues("advance", "ok").Inc()
	return nil
}

// Back moves RoleDetails -> Main, keeping every answer.
func (w *Wizard) Back() error {
	if w.Step != models.StepRoleDetails {
		metrics.WizardTransitions.WithLabelValues("back", "invalid").Inc()
		return errors.NewInvalidTransitionError("back", int(w.Step))
	}
	w.Step = models.StepMain
	metrics.WizardTransitions.WithLabelValues("back", "ok").Inc()
	return nil
}

// BeginSubmit closes the submission gate. It fails if a submission is
// already in flight or the wizard is not on the role-details step.
func (w *Wizard) BeginSubmit() error {
	if w.Step != models.StepRoleDetails {
		return errors.NewInvalidTransitionError("submit", int(w.Step))
	}
	if w.Submitting {
		return errors.NewSubmissionInFlightError()
	}
	if !roles.IsValid(w.Form.Role) {
		return errors.NewInvalidRoleError(string(w.Form.Role))
	}
	w.Submitting = true
	w.SubmitStartedAt = time.Now()
	return nil
}

// ReleaseStaleSubmit reopens a gate that has been closed for longer than
// maxAge, which happens when the process handling it died mid-call. It
// reports whether the gate was released.
func (w *Wizard) ReleaseStaleSubmit(maxAge time.Duration) bool {
	if !w.Submitting || time.Since(w.SubmitStartedAt) <= maxAge {
		return false
	}
	w.Submitting = false
	w.SubmitStartedAt = time.Time{}
	metrics.WizardTransitions.WithLabelValues("submit", "abandoned").Inc()
	return true
}

// FinishSubmit reopens the gate and applies the outcome of the submission
// started by BeginSubmit.
func (w *Wizard) FinishSubmit(err error) {
	w.Submitting = false
	w.SubmitStartedAt = time.Time{}
	if err != nil {
		metrics.WizardTransitions.WithLabelValues("submit", "failed").Inc()
		w.Notice = errors.NoticeSubmissionFailed
		return
	}
	metrics.WizardTransitions.WithLabelValues("submit", "ok").Inc()
	w.Step = models.StepConfirmation
}

// Submit runs BeginSubmit, one call to s, and FinishSubmit. The returned
// error is the gate error or the submitter's error.
func (w *Wizard) Submit(ctx context.Context, s Submitter) error {
	if err := w.BeginSubmit(); err != nil {
		return err
	}
	err := s.Submit(ctx, w.Form)
	w.FinishSubmit(err)
	return err
}

// TakeNotice returns the pending blocking notice and clears it.
func (w *Wizard) TakeNotice() string {
	n := w.Notice
	w.Notice = ""
	return n
}

// DisplayName is the name used on the thank-you screen.
func (w *Wizard) DisplayName() string {
	if w.Form.Name == "" {
		return "Friend"
	}
	return w.Form.Name
}
