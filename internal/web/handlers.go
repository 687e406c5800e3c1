package web

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"joinnow/internal/application/wizard"
	"joinnow/internal/common/errors"
	"joinnow/internal/models"
)

type wizardSession struct {
	sess   *models.Session
	wiz    *wizard.Wizard
	unlock func()
}

type errorResponse struct {
	Error *errors.StandardError `json:"error"`
	State *StateView            `json:"state,omitempty"`
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// openSession loads the caller's wizard under its session lock, starting a
// new session when the cookie is missing or stale.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) (*wizardSession, error) {
	if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
		unlock := s.sessions.Lock(c.Value)
		wiz := wizard.New()
		sess, err := s.sessions.Load(r.Context(), c.Value, wiz)
		if err == nil {
			s.releaseStaleSubmit(sess, wiz)
			return &wizardSession{sess: sess, wiz: wiz, unlock: unlock}, nil
		}
		unlock()
		if !stderrors.Is(err, errors.ErrSessionNotFound) {
			return nil, err
		}
	}

	wiz := wizard.New()
	sess, err := s.sessions.Start(r.Context(), wiz)
	if err != nil {
		return nil, err
	}
	unlock := s.sessions.Lock(sess.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return &wizardSession{sess: sess, wiz: wiz, unlock: unlock}, nil
}

// releaseStaleSubmit reopens a submission gate left closed by a request that
// never finished. A live relay call is bounded by submitTimeout.
func (s *Server) releaseStaleSubmit(sess *models.Session, wiz *wizard.Wizard) {
	if wiz.ReleaseStaleSubmit(2 * s.submitTimeout) {
		s.logger.Warn("Released abandoned submission", map[string]interface{}{
			"sessionId": sess.ID,
		})
	}
}

// submit makes the relay call, turning a submitter panic into a failed
// submission so the gate is always reopened.
func (s *Server) submit(ctx context.Context, sessionID string, form models.ApplicationForm) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Submitter panicked", map[string]interface{}{
				"sessionId": sessionID,
				"panic":     fmt.Sprint(rec),
			})
			err = errors.NewRelayRequestFailedError(fmt.Errorf("submitter panic: %v", rec))
		}
	}()
	return s.submitter.Submit(ctx, form)
}

// applyFields copies every posted form field into the wizard.
func (s *Server) applyFields(r *http.Request, wiz *wizard.Wizard) error {
	if err := r.ParseForm(); err != nil {
		return errors.NewFieldUnknownError("(unparseable body)")
	}
	for _, field := range models.FieldNames() {
		values, ok := r.PostForm[field]
		if !ok || len(values) == 0 {
			continue
		}
		if err := wiz.Update(field, values[0]); err != nil {
			return err
		}
	}
	return nil
}

// noteError makes err visible as the page notice for browser requests.
func (s *Server) noteError(r *http.Request, wiz *wizard.Wizard, err error) {
	if wantsJSON(r) || wiz.Notice != "" {
		return
	}
	if stdErr, ok := errors.AsStandardError(err); ok {
		wiz.Notice = stdErr.Message
	}
}

// fail answers with err. Browser requests that failed on a wizard rule are
// redirected back to the page, which shows the notice.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, operation string, err error, wiz *wizard.Wizard) {
	stdErr, status := s.errorHandler.Handle(operation, err)

	if wantsJSON(r) {
		resp := errorResponse{Error: stdErr}
		if wiz != nil {
			view := newStateView(wiz, wiz.Notice)
			resp.State = &view
		}
		writeJSON(w, status, resp)
		return
	}

	category := errors.GetErrorCategory(stdErr.Code)
	if wiz != nil && stdErr.Code != errors.ErrCodeSubmissionInFlight &&
		(category == "WIZARD" || category == "SUBMISSION") {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Error(w, stdErr.Message, status)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, wiz *wizard.Wizard) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, newStateView(wiz, wiz.Notice))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ws, err := s.openSession(w, r)
	if err != nil {
		s.fail(w, r, "render", err, nil)
		return
	}
	defer ws.unlock()

	notice := ws.wiz.TakeNotice()
	if notice != "" {
		if err := s.sessions.Save(r.Context(), ws.sess, ws.wiz); err != nil {
			s.fail(w, r, "render", err, nil)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", newStateView(ws.wiz, notice)); err != nil {
		s.logger.Error("Failed to render page", map[string]interface{}{
			"error": err,
		})
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ws, err := s.openSession(w, r)
	if err != nil {
		s.fail(w, r, "state", err, nil)
		return
	}
	defer ws.unlock()

	writeJSON(w, http.StatusOK, newStateView(ws.wiz, ws.wiz.Notice))
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "advance", (*wizard.Wizard).Advance)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "back", (*wizard.Wizard).Back)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, operation string, step func(*wizard.Wizard) error) {
	ws, err := s.openSession(w, r)
	if err != nil {
		s.fail(w, r, operation, err, nil)
		return
	}
	defer ws.unlock()

	opErr := s.applyFields(r, ws.wiz)
	if opErr == nil {
		opErr = step(ws.wiz)
	}
	if opErr != nil {
		s.noteError(r, ws.wiz, opErr)
	}

	if err := s.sessions.Save(r.Context(), ws.sess, ws.wiz); err != nil {
		s.fail(w, r, operation, err, nil)
		return
	}
	if opErr != nil {
		s.fail(w, r, operation, opErr, ws.wiz)
		return
	}
	s.respond(w, r, ws.wiz)
}

// handleSubmit closes the submission gate and persists it before calling the
// relay, so a concurrent submit for the same session gets a 409. The relay
// call is not cancelled when the client goes away.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ws, err := s.openSession(w, r)
	if err != nil {
		s.fail(w, r, "submit", err, nil)
		return
	}
	defer ws.unlock()

	opErr := s.applyFields(r, ws.wiz)
	if opErr == nil {
		opErr = ws.wiz.BeginSubmit()
	}
	if opErr != nil {
		if !stderrors.Is(opErr, errors.ErrSubmissionInFlight) {
			s.noteError(r, ws.wiz, opErr)
			if err := s.sessions.Save(r.Context(), ws.sess, ws.wiz); err != nil {
				s.fail(w, r, "submit", err, nil)
				return
			}
		}
		s.fail(w, r, "submit", opErr, ws.wiz)
		return
	}

	if err := s.sessions.Save(r.Context(), ws.sess, ws.wiz); err != nil {
		s.fail(w, r, "submit", err, nil)
		return
	}
	form := ws.wiz.Form
	id := ws.sess.ID
	started := ws.wiz.SubmitStartedAt
	ws.unlock()

	detached := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithTimeout(detached, s.submitTimeout)
	submitErr := s.submit(ctx, id, form)
	cancel()

	unlock := s.sessions.Lock(id)
	defer unlock()

	wiz := wizard.New()
	sess, err := s.sessions.Load(detached, id, wiz)
	if err != nil {
		s.logger.Error("Session lost while submitting", map[string]interface{}{
			"sessionId": id,
			"delivered": submitErr == nil,
		})
		s.fail(w, r, "submit", err, nil)
		return
	}

	if !wiz.Submitting || !wiz.SubmitStartedAt.Equal(started) {
		s.logger.Warn("Submission gate was released before the relay answered", map[string]interface{}{
			"sessionId": id,
			"delivered": submitErr == nil,
		})
		s.respond(w, r, wiz)
		return
	}

	wiz.FinishSubmit(submitErr)
	if err := s.sessions.Save(detached, sess, wiz); err != nil {
		s.fail(w, r, "submit", err, nil)
		return
	}

	if submitErr != nil {
		s.fail(w, r, "submit", submitErr, wiz)
		return
	}
	s.respond(w, r, wiz)
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	ws, err := s.openSession(w, r)
	if err != nil {
		s.fail(w, r, "focus", err, nil)
		return
	}
	defer ws.unlock()

	if err := s.applyFields(r, ws.wiz); err != nil {
		s.fail(w, r, "focus", err, ws.wiz)
		return
	}
	field := r.PostForm.Get("field")
	if field != "" {
		if _, ok := ws.wiz.Form.Get(field); !ok {
			s.fail(w, r, "focus", errors.NewFieldUnknownError(field), ws.wiz)
			return
		}
	}

	ws.wiz.Focus(field)
	if err := s.sessions.Save(r.Context(), ws.sess, ws.wiz); err != nil {
		s.fail(w, r, "focus", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newValidationView(ws.wiz))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
