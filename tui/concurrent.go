package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"ffkit-console/media"
	"ffkit-console/session"
)

const concurrentTooltip = "Encode up to three slideshows at once with 1, 2 and 3. " +
	"Cancel one with !, @ or #, or every running session with 0."

type concurrentLogMsg struct {
	log session.Log
}

type concurrentDoneMsg struct {
	button int
	result sessionResult
}

// ConcurrentTab runs three independent encodes and cancels them one by one
// or all at once.
type ConcurrentTab struct {
	deps   Deps
	log    *zap.Logger
	output *outputView

	// sessionIDs holds the last session started by each button; 0 means none.
	sessionIDs [3]int64
	status     [3]string
}

func NewConcurrentTab(deps Deps) *ConcurrentTab {
	return &ConcurrentTab{
		deps:   deps,
		log:    deps.logger(),
		output: newOutputView(),
	}
}

func (t *ConcurrentTab) Title() string { return "Concurrent" }

func (t *ConcurrentTab) Activate() tea.Cmd {
	t.log.Info("Concurrent Execution Tab Activated")
	mailbox := t.deps.Mailbox
	t.deps.Engine.EnableLogCallback(func(l session.Log) {
		mailbox.Send(concurrentLogMsg{log: l})
	})
	return notify(concurrentTooltip)
}

func (t *ConcurrentTab) Deactivate() {}

func (t *ConcurrentTab) Dialog() string { return "" }

func (t *ConcurrentTab) Help() []key.Binding {
	return []key.Binding{keyEncode1, keyCancel1, keyCancelAll, keyScroll}
}

func (t *ConcurrentTab) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.output.SetSize(msg.Width, msg.Height-6)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyEncode1):
			return t.encodeVideo(1)
		case key.Matches(msg, keyEncode2):
			return t.encodeVideo(2)
		case key.Matches(msg, keyEncode3):
			return t.encodeVideo(3)
		case key.Matches(msg, keyCancel1):
			t.cancel(1)
		case key.Matches(msg, keyCancel2):
			t.cancel(2)
		case key.Matches(msg, keyCancel3):
			t.cancel(3)
		case key.Matches(msg, keyCancelAll):
			t.cancel(0)
		case key.Matches(msg, keyScroll):
			return t.output.Update(msg)
		}

	case tea.MouseMsg:
		return t.output.Update(msg)

	case concurrentLogMsg:
		t.output.Append(fmt.Sprintf("%d -> %s", msg.log.SessionID, msg.log.Message))

	case concurrentDoneMsg:
		logResult(t.log, msg.result)
		if t.sessionIDs[msg.button-1] == msg.result.ID {
			t.status[msg.button-1] = msg.result.style()
		}
	}
	return nil
}

func (t *ConcurrentTab) encodeVideo(button int) tea.Cmd {
	videoFile := filepath.Join(t.deps.FilesDir, media.ConcurrentVideo(button))

	t.log.Debug("Testing CONCURRENT EXECUTION", zap.Int("button", button))

	images, err := media.WriteSlideshow(t.deps.CacheDir)
	if err != nil {
		t.log.Error("Encode video failed", zap.Int("button", button), zap.Error(err))
		return notify("Encode video failed")
	}

	script := media.GenerateEncodeVideoScript(images[0], images[1], images[2], videoFile, "mpeg4", "")
	t.log.Debug("FFmpeg process started with arguments",
		zap.Int("button", button),
		zap.String("arguments", script),
	)

	mailbox := t.deps.Mailbox
	s := t.deps.Engine.ExecuteAsync(script, func(s *session.Session) {
		mailbox.Send(concurrentDoneMsg{button: button, result: resultOf(s)})
	})

	t.log.Debug("Async FFmpeg process started", zap.Int("button", button), zap.Int64("session_id", s.ID()))
	t.sessionIDs[button-1] = s.ID()
	t.status[button-1] = runningStyle.Render(fmt.Sprintf("running (session %d)", s.ID()))

	logSessions(t.log, t.deps.Engine.Sessions())
	return nil
}

// cancel stops the session of button 1-3. Button 0, or a button that never
// started a session, cancels everything.
func (t *ConcurrentTab) cancel(button int) {
	var id int64
	if button >= 1 && button <= 3 {
		id = t.sessionIDs[button-1]
	}

	t.log.Debug("Cancelling FFmpeg process",
		zap.Int("button", button),
		zap.Int64("session_id", id),
	)

	if id == 0 {
		t.deps.Engine.CancelAll()
	} else {
		t.deps.Engine.Cancel(id)
	}
}

func (t *ConcurrentTab) View(width, height int) string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("CONCURRENT EXECUTION"))
	b.WriteString("\n\n")

	for i := range t.sessionIDs {
		status := t.status[i]
		if status == "" {
			status = dimStyle.Render("idle")
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			keyStyle.Render(fmt.Sprintf("[%d]", i+1)), " ",
			labelStyle.Render(fmt.Sprintf("Encode %d", i+1)),
			keyStyle.Render(fmt.Sprintf("[%s]", string("!@#"[i]))), " ",
			labelStyle.Render(fmt.Sprintf("Cancel %d", i+1)),
			status,
		)
		b.WriteString(row)
		b.WriteString("\n")
	}
	b.WriteString(keyStyle.Render("[0]") + " " + labelStyle.Render("Cancel all"))
	b.WriteString("\n")
	b.WriteString(t.output.View())
	return b.String()
}
