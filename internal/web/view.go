package web

import (
	"math"

	"joinnow/internal/application/roles"
	"joinnow/internal/application/wizard"
	"joinnow/internal/models"
)

// RoleView is one role card.
type RoleView struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Selected    bool   `json:"selected"`
}

// QuestionView is one role-specific input with its current value.
type QuestionView struct {
	Field       string `json:"field"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Multiline   bool   `json:"multiline"`
	Rows        int    `json:"rows,omitempty"`
	Value       string `json:"value"`
}

// StateView is the JSON rendering of a wizard, also used as template data.
type StateView struct {
	Step            int               `json:"step"`
	StepCount       int               `json:"stepCount"`
	Form            map[string]string `json:"form"`
	Focused         string            `json:"focused"`
	Errors          map[string]string `json:"errors"`
	Completed       map[string]bool   `json:"completed"`
	Progress        float64           `json:"progress"`
	ProgressPercent int               `json:"progressPercent"`
	Submitting      bool              `json:"submitting"`
	Notice          string            `json:"notice,omitempty"`
	DisplayName     string            `json:"displayName"`
	RoleLabel       string            `json:"roleLabel"`
	Roles           []RoleView        `json:"roles"`
	Questions       []QuestionView    `json:"questions,omitempty"`
}

// ValidationView is returned by the focus endpoint.
type ValidationView struct {
	Focused         string            `json:"focused"`
	Errors          map[string]string `json:"errors"`
	Completed       map[string]bool   `json:"completed"`
	Progress        float64           `json:"progress"`
	ProgressPercent int               `json:"progressPercent"`
}

func newStateView(w *wizard.Wizard, notice string) StateView {
	res := w.Validation()
	progress := w.Progress()

	view := StateView{
		Step:            int(w.Step),
		StepCount:       models.StepCount,
		Form:            w.Form.Values(),
		Focused:         w.Focused,
		Errors:          res.Errors,
		Completed:       res.Completed,
		Progress:        progress,
		ProgressPercent: int(math.Round(progress)),
		Submitting:      w.Submitting,
		Notice:          notice,
		DisplayName:     w.DisplayName(),
		RoleLabel:       roles.Label(w.Form.Role),
	}

	for _, r := range roles.All() {
		view.Roles = append(view.Roles, RoleView{
			ID:          string(r.ID),
			Label:       r.Label,
			Icon:        r.Icon,
			Description: r.Description,
			Selected:    r.ID == w.Form.Role,
		})
	}

	if r, ok := roles.Lookup(w.Form.Role); ok {
		for _, q := range r.Questions {
			value, _ := w.Form.Get(q.Field)
			view.Questions = append(view.Questions, QuestionView{
				Field:       q.Field,
				Label:       q.Label,
				Placeholder: q.Placeholder,
				Multiline:   q.Multiline,
				Rows:        q.Rows,
				Value:       value,
			})
		}
	}

	return view
}

func newValidationView(w *wizard.Wizard) ValidationView {
	res := w.Validation()
	progress := w.Progress()
	return ValidationView{
		Focused:         w.Focused,
		Errors:          res.Errors,
		Completed:       res.Completed,
		Progress:        progress,
		ProgressPercent: int(math.Round(progress)),
	}
}
