package dashboard

import (
	"strings"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
)

// View is an immutable snapshot of a Workflow used for rendering.
type View struct {
	State       State
	Input       string
	Title       string
	ReportID    string
	Entries     []audit.Entry
	Known       bool
	ResultsOpen bool
	Analyzing   bool
	Saving      bool
	// CanSubmit mirrors the analyze button: enabled when the input is non-empty and idle.
	CanSubmit bool
	// CanSave is true for known urls and for new urls with a non-empty title.
	CanSave bool
}

// View captures the current workflow state.
func (w *Workflow) View() View {
	w.mu.Lock()
	v := View{
		State:     w.state,
		Input:     w.input,
		Title:     w.title,
		Analyzing: w.state == StateAnalyzing,
		Saving:    w.state == StateSaving,
	}
	report := w.report
	w.mu.Unlock()

	v.ResultsOpen = v.State == StateResult || v.State == StateSaving || v.State == StateSaved
	v.CanSubmit = v.State == StateIdle && strings.TrimSpace(v.Input) != ""
	if report != nil && v.ResultsOpen {
		v.ReportID = report.ID
		v.Entries = audit.Entries(report.Scores)
		v.Known = w.deps.Store.Contains(report.ID)
		v.CanSave = v.State == StateResult && (v.Known || strings.TrimSpace(v.Title) != "")
	}
	return v
}
