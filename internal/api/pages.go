package api

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/dashboard"
)

// SessionCookie names the cookie carrying the dashboard session id.
const SessionCookie = "dashboard_session"

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	URLs   []audit.URLRecord
	View   dashboard.View
	Notice *dashboard.Notification
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	wf, err := s.workflow(w, r)
	if err != nil {
		s.logger.Error("create session failed", zap.Error(err))
		http.Error(w, "could not start a session", http.StatusInternalServerError)
		return
	}
	data := pageData{
		URLs:   s.store.URLs(),
		View:   wf.View(),
		Notice: wf.TakeNotification(),
	}
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.logger.Error("render page failed", zap.Error(err))
		http.Error(w, "could not render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug("write page failed", zap.Error(err))
	}
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	wf, err := s.workflow(w, r)
	if err != nil {
		s.logger.Error("create session failed", zap.Error(err))
		http.Error(w, "could not start a session", http.StatusInternalServerError)
		return
	}
	wf.SetInput(r.PostFormValue("url"))
	if _, err := wf.Submit(r.Context()); err != nil {
		// Audit failures are logged by the workflow and deliberately not shown.
		s.logger.Debug("analyze did not produce a result", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	wf, err := s.workflow(w, r)
	if err != nil {
		s.logger.Error("create session failed", zap.Error(err))
		http.Error(w, "could not start a session", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if _, ok := r.PostForm["title"]; ok {
		wf.SetTitle(r.PostForm.Get("title"))
	}
	report, err := wf.Save(r.Context())
	switch {
	case errors.Is(err, dashboard.ErrTitleRequired),
		errors.Is(err, dashboard.ErrBusy),
		errors.Is(err, dashboard.ErrNoResult):
		s.logger.Debug("save rejected", zap.Error(err))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case err != nil:
		s.logger.Warn("save finished with errors",
			zap.Bool("url_created", report.URLCreated),
			zap.Error(err),
		)
	default:
		s.logger.Info("results saved",
			zap.String("url", report.Result.URL),
			zap.Int64("result_id", report.Result.ID),
			zap.Bool("url_created", report.URLCreated),
		)
	}
	if report.NotifyErr != nil {
		s.logger.Warn("save notification failed", zap.Error(report.NotifyErr))
	}
	// Every completed save attempt closes the results view.
	wf.Close()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) closeResults(w http.ResponseWriter, r *http.Request) {
	wf, err := s.workflow(w, r)
	if err != nil {
		s.logger.Error("create session failed", zap.Error(err))
		http.Error(w, "could not start a session", http.StatusInternalServerError)
		return
	}
	wf.Close()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// workflow resolves the session cookie, creating a new session when it is
// missing or expired.
func (s *Server) workflow(w http.ResponseWriter, r *http.Request) (*dashboard.Workflow, error) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if wf, ok := s.sessions.Get(c.Value); ok {
			return wf, nil
		}
	}
	id, wf, err := s.sessions.Create()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return wf, nil
}
