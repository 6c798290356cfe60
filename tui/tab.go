package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"ffkit-console/history"
	"ffkit-console/session"
)

// Tab is one screen of the console. Tabs are pointers; Update mutates in
// place and returns follow-up commands.
type Tab interface {
	Title() string
	// Activate runs every time the tab becomes visible. It installs the
	// tab's global engine callbacks.
	Activate() tea.Cmd
	Deactivate()
	Update(msg tea.Msg) tea.Cmd
	View(width, height int) string
	// Help lists the tab's key bindings for the footer.
	Help() []key.Binding
	// Dialog is the title of the blocking progress dialog, empty when none
	// is shown.
	Dialog() string
}

// Engine is the part of session.Kit the tabs drive.
type Engine interface {
	Execute(command string) *session.Session
	ExecuteAsync(command string, cb session.ExecuteCallback) *session.Session
	Cancel(id int64)
	CancelAll()
	EnableLogCallback(cb session.LogCallback)
	EnableStatisticsCallback(cb session.StatisticsCallback)
	Sessions() []*session.Session
	MediaInformation(path string) (*session.MediaInformation, error)
}

// HistorySource lists sessions persisted by earlier runs.
type HistorySource interface {
	RecentPrevious(ctx context.Context, limit int) ([]history.Entry, error)
}

// Deps are shared by every tab.
type Deps struct {
	Engine   Engine
	Mailbox  *Mailbox
	Logger   *zap.Logger
	FilesDir string
	CacheDir string
	// History may be nil when persistence is disabled.
	History HistorySource
	// Opener shows files in the platform player; OpenFiles when nil.
	Opener func(paths ...string) error
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// noticeMsg asks the root model to pop up a notice.
type noticeMsg struct {
	text string
}

func notify(text string) tea.Cmd {
	return func() tea.Msg { return noticeMsg{text: text} }
}

// sessionResult is the final state of a session, captured on the engine's
// goroutine before it crosses the mailbox.
type sessionResult struct {
	ID             int64
	State          session.State
	ReturnCode     session.ReturnCode
	FailStackTrace string
}

func resultOf(s *session.Session) sessionResult {
	return sessionResult{
		ID:             s.ID(),
		State:          s.State(),
		ReturnCode:     s.ReturnCode(),
		FailStackTrace: s.FailStackTrace(),
	}
}

func (r sessionResult) String() string {
	if r.ReturnCode.IsCancel() {
		return "cancelled"
	}
	if r.State == session.StateFailed {
		return "failed"
	}
	return fmt.Sprintf("%s rc %s", strings.ToLower(r.State.String()), r.ReturnCode)
}

func (r sessionResult) style() string {
	return stateStyle(r.ReturnCode.IsCancel(), r.ReturnCode.IsSuccess(), true).Render(r.String())
}

// logResult writes the completion line every tab logs for its jobs.
func logResult(logger *zap.Logger, r sessionResult) {
	if r.ReturnCode.IsCancel() {
		logger.Debug("FFmpeg process ended by user",
			zap.Int64("session_id", r.ID),
		)
		return
	}
	logger.Debug("FFmpeg process exited",
		zap.Int64("session_id", r.ID),
		zap.Stringer("state", r.State),
		zap.Stringer("rc", r.ReturnCode),
		zap.String("fail_stack_trace", r.FailStackTrace),
	)
}

// logSessions dumps the engine's history at debug level, like the
// session listing printed after every submit.
func logSessions(logger *zap.Logger, sessions []*session.Session) {
	logger.Debug("Listing FFmpeg sessions", zap.Int("count", len(sessions)))
	for i, s := range sessions {
		logger.Debug("Session",
			zap.Int("index", i),
			zap.Int64("session_id", s.ID()),
			zap.Stringer("state", s.State()),
			zap.Stringer("rc", s.ReturnCode()),
			zap.Time("start_time", s.StartTime()),
			zap.Time("end_time", s.EndTime()),
			zap.Duration("duration", s.Duration().Round(time.Millisecond)),
		)
	}
}
