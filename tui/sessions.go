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

const (
	historyLimit   = 20
	historyTimeout = 5 * time.Second
)

type historyLoadedMsg struct {
	entries []history.Entry
	err     error
}

// SessionsTab lists the engine's sessions and the ones persisted by earlier
// runs.
type SessionsTab struct {
	deps Deps
	log  *zap.Logger

	live    []session.Snapshot
	entries []history.Entry
	loadErr error
}

func NewSessionsTab(deps Deps) *SessionsTab {
	return &SessionsTab{deps: deps, log: deps.logger()}
}

func (t *SessionsTab) Title() string { return "Sessions" }

func (t *SessionsTab) Activate() tea.Cmd {
	t.log.Info("Sessions Tab Activated")
	return t.refresh()
}

func (t *SessionsTab) Deactivate() {}

func (t *SessionsTab) Dialog() string { return "" }

func (t *SessionsTab) Help() []key.Binding {
	return []key.Binding{keyRefresh}
}

func (t *SessionsTab) refresh() tea.Cmd {
	sessions := t.deps.Engine.Sessions()
	t.live = t.live[:0]
	for _, s := range sessions {
		t.live = append(t.live, s.Snapshot())
	}
	logSessions(t.log, sessions)

	src := t.deps.History
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		entries, err := src.RecentPrevious(ctx, historyLimit)
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func (t *SessionsTab) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keyRefresh) {
			return t.refresh()
		}
	case historyLoadedMsg:
		t.entries, t.loadErr = msg.entries, msg.err
		if msg.err != nil {
			t.log.Warn("failed to load session history", zap.Error(msg.err))
		}
	}
	return nil
}

func (t *SessionsTab) View(width, height int) string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("SESSIONS"))
	b.WriteString("\n\n")

	if len(t.live) == 0 {
		b.WriteString(dimStyle.Render("No sessions yet."))
		b.WriteString("\n")
	}
	for _, s := range t.live {
		b.WriteString(sessionRow(s, width))
		b.WriteString("\n")
	}

	if t.deps.History == nil {
		return b.String()
	}
	b.WriteString("\n")
	b.WriteString(sectionHeaderStyle.Render("PREVIOUS RUNS"))
	b.WriteString("\n\n")
	switch {
	case t.loadErr != nil:
		b.WriteString(errorStyle.Render(t.loadErr.Error()))
	case len(t.entries) == 0:
		b.WriteString(dimStyle.Render("Nothing recorded."))
	default:
		for _, e := range t.entries {
			b.WriteString(dimStyle.Render(e.CreateTime.Local().Format("01-02 15:04:05")) + " ")
			b.WriteString(sessionRow(e.Snapshot, width-15))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func sessionRow(s session.Snapshot, width int) string {
	finished := s.State == session.StateCompleted || s.State == session.StateFailed
	status := stateStyle(s.ReturnCode.IsCancel(), s.ReturnCode.IsSuccess(), finished).
		Width(10).Render(s.State.String())

	cols := fmt.Sprintf("%4d ", s.ID) + status +
		fmt.Sprintf(" %4s %8s ", s.ReturnCode, formatDuration(s.Duration()))
	cmdWidth := width - 30
	if cmdWidth < 20 {
		cmdWidth = 20
	}
	return cols + dimStyle.Render(truncatePath(string(s.Kind)+" "+s.Command, cmdWidth))
}
