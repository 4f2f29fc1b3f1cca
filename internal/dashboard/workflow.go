package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/clock/system"
	"github.com/JakeFAU/lighthouse-dashboard/internal/metrics"
	"github.com/JakeFAU/lighthouse-dashboard/internal/urlstore"
)

// State is the lifecycle state of a Workflow.
type State string

// Workflow states.
const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateResult    State = "result"
	StateSaving    State = "saving"
	StateSaved     State = "saved"
)

// Workflow errors.
var (
	ErrBusy          = errors.New("an analysis or save is already in progress")
	ErrResultsOpen   = errors.New("close the current results before analyzing again")
	ErrNoResult      = errors.New("no analysis result to save")
	ErrTitleRequired = errors.New("title is required for a new url")
)

// Notification statuses.
const (
	NoticeError = "error"
	NoticeInfo  = "info"
)

// Notification is a transient message shown to the user once.
type Notification struct {
	Title  string
	Status string
}

// Deps are the collaborators of a Workflow.
type Deps struct {
	Auditor audit.Auditor
	URLs    audit.URLRepository
	Results audit.ResultRepository
	Store   *urlstore.Store
	// Titles and Publisher are optional.
	Titles    audit.TitleSuggester
	Publisher audit.Publisher
	Topic     string
	Clock     audit.Clock
	Logger    *zap.Logger
}

// SaveReport describes what a Save call wrote.
type SaveReport struct {
	URLCreated bool
	URLErr     error
	Result     audit.ResultRecord
	ResultErr  error
	NotifyErr  error
}

// Workflow is the per-session analysis state machine. It is safe for concurrent use;
// the lock is never held across outbound calls.
type Workflow struct {
	deps Deps

	mu     sync.Mutex
	state  State
	input  string
	title  string
	report *audit.Report
	notice *Notification
}

// NewWorkflow builds an idle Workflow.
func NewWorkflow(deps Deps) *Workflow {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Store == nil {
		deps.Store = urlstore.New()
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	return &Workflow{deps: deps, state: StateIdle}
}

// SetInput stores the URL-to-analyze input.
func (w *Workflow) SetInput(raw string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.input = raw
}

// SetTitle stores the title used when a new url is added.
func (w *Workflow) SetTitle(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.title = title
}

// Submit validates the input and runs one audit. An invalid URL queues an error
// notification and leaves the workflow idle without any network call. An audit
// failure is returned and the workflow goes back to idle with no result shown.
func (w *Workflow) Submit(ctx context.Context) (audit.Report, error) {
	w.mu.Lock()
	switch w.state {
	case StateAnalyzing, StateSaving:
		w.mu.Unlock()
		return audit.Report{}, ErrBusy
	case StateResult, StateSaved:
		w.mu.Unlock()
		return audit.Report{}, ErrResultsOpen
	}
	target, err := audit.ValidateURL(w.input)
	if err != nil {
		w.notice = &Notification{Title: "Invalid URL Provided", Status: NoticeError}
		w.mu.Unlock()
		metrics.ObserveAudit(metrics.OutcomeInvalid, 0)
		return audit.Report{}, err
	}
	w.state = StateAnalyzing
	w.mu.Unlock()

	logger := w.deps.Logger.With(zap.String("url", target))
	start := time.Now()
	report, err := w.deps.Auditor.Audit(ctx, target)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveAudit(metrics.OutcomeError, elapsed)
		logger.Error("audit failed", zap.Error(err), zap.Duration("duration", elapsed))
		w.mu.Lock()
		w.state = StateIdle
		w.mu.Unlock()
		return audit.Report{}, fmt.Errorf("analyze %s: %w", target, err)
	}
	metrics.ObserveAudit(metrics.OutcomeSuccess, elapsed)
	logger.Info("audit completed", zap.String("id", report.ID), zap.Duration("duration", elapsed))

	title := ""
	if w.deps.Titles != nil && !w.deps.Store.Contains(report.ID) {
		suggestion, terr := w.deps.Titles.SuggestTitle(ctx, report.ID)
		if terr != nil {
			logger.Debug("title suggestion failed", zap.Error(terr))
		} else {
			title = suggestion
		}
	}

	w.mu.Lock()
	w.report = &report
	w.title = title
	w.state = StateResult
	w.mu.Unlock()
	return report, nil
}

// Known reports whether the current result's canonical id is already a known url.
func (w *Workflow) Known() bool {
	w.mu.Lock()
	report := w.report
	w.mu.Unlock()
	if report == nil {
		return false
	}
	return w.deps.Store.Contains(report.ID)
}

// Save persists the current result. A known url gets one result row. A new url
// needs a title and gets a url row followed by a result row; the result row is
// written even when the url insert fails, and that failure is reported in
// SaveReport.URLErr and in the returned error.
func (w *Workflow) Save(ctx context.Context) (SaveReport, error) {
	w.mu.Lock()
	switch w.state {
	case StateAnalyzing, StateSaving:
		w.mu.Unlock()
		return SaveReport{}, ErrBusy
	case StateResult:
	default:
		w.mu.Unlock()
		return SaveReport{}, ErrNoResult
	}
	report := *w.report
	title := strings.TrimSpace(w.title)
	known := w.deps.Store.Contains(report.ID)
	if !known && title == "" {
		w.notice = &Notification{Title: "Title is required", Status: NoticeError}
		w.mu.Unlock()
		return SaveReport{}, ErrTitleRequired
	}
	w.state = StateSaving
	w.mu.Unlock()

	logger := w.deps.Logger.With(zap.String("url", report.ID))
	var out SaveReport
	if !known {
		rec, err := w.deps.URLs.InsertURL(ctx, audit.URLRecord{URL: report.ID, Title: title})
		if err != nil {
			metrics.ObserveSave("url", metrics.OutcomeError)
			logger.Error("insert url failed", zap.Error(err))
			out.URLErr = fmt.Errorf("insert url: %w", err)
		} else {
			metrics.ObserveSave("url", metrics.OutcomeSuccess)
			w.deps.Store.Update(func(current []audit.URLRecord) []audit.URLRecord {
				return append(current, rec)
			})
			metrics.SetKnownURLs(w.deps.Store.Len())
			out.URLCreated = true
		}
	}

	result, err := w.deps.Results.InsertResult(ctx, audit.NewResultRecord(report))
	if err != nil {
		metrics.ObserveSave("result", metrics.OutcomeError)
		logger.Error("insert result failed", zap.Error(err))
		out.ResultErr = fmt.Errorf("insert result: %w", err)
	} else {
		metrics.ObserveSave("result", metrics.OutcomeSuccess)
		out.Result = result
		out.NotifyErr = w.publish(ctx, report, title, out)
	}

	w.mu.Lock()
	w.state = StateSaved
	w.mu.Unlock()
	return out, errors.Join(out.URLErr, out.ResultErr)
}

func (w *Workflow) publish(ctx context.Context, report audit.Report, title string, out SaveReport) error {
	if w.deps.Publisher == nil {
		return nil
	}
	event := audit.ResultSaved{
		URL:        report.ID,
		Title:      title,
		URLCreated: out.URLCreated,
		ResultID:   out.Result.ID,
		Scores:     report.Scores,
		SavedAt:    w.deps.Clock.Now(),
	}
	id, err := w.deps.Publisher.Publish(ctx, w.deps.Topic, event)
	if err != nil {
		metrics.ObservePublish(metrics.OutcomeError)
		w.deps.Logger.Warn("publish result saved failed", zap.String("url", report.ID), zap.Error(err))
		return fmt.Errorf("publish result saved: %w", err)
	}
	metrics.ObservePublish(metrics.OutcomeSuccess)
	w.deps.Logger.Debug("result saved published", zap.String("message_id", id))
	return nil
}

// Close clears the URL input and closes the results view. The last report stays
// in memory until the next analysis replaces it. An in-flight analysis or save
// keeps running and settles the state itself.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.input = ""
	if w.state == StateAnalyzing || w.state == StateSaving {
		return
	}
	w.state = StateIdle
}

// TakeNotification returns the pending notification, if any, and clears it.
func (w *Workflow) TakeNotification() *Notification {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.notice
	w.notice = nil
	return n
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Report returns the last fetched report, which may be stale after Close.
func (w *Workflow) Report() (audit.Report, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.report == nil {
		return audit.Report{}, false
	}
	return *w.report, true
}
