package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const maxOutputLines = 2000

// outputView is the append-only text area under each tab. It follows the
// tail unless the user scrolled up.
type outputView struct {
	vp    viewport.Model
	lines []string
}

func newOutputView() *outputView {
	vp := viewport.New(80, 10)
	vp.SetContent("")
	return &outputView{vp: vp}
}

func (o *outputView) Append(line string) {
	follow := o.vp.AtBottom()
	o.lines = append(o.lines, line)
	if over := len(o.lines) - maxOutputLines; over > 0 {
		o.lines = append(o.lines[:0], o.lines[over:]...)
	}
	o.vp.SetContent(strings.Join(o.lines, "\n"))
	if follow {
		o.vp.GotoBottom()
	}
}

func (o *outputView) Clear() {
	o.lines = o.lines[:0]
	o.vp.SetContent("")
	o.vp.GotoTop()
}

func (o *outputView) Text() string {
	return strings.Join(o.lines, "\n")
}

func (o *outputView) SetSize(width, height int) {
	// Border and padding
	w, h := width-4, height-2
	if w < 10 {
		w = 10
	}
	if h < 1 {
		h = 1
	}
	o.vp.Width = w
	o.vp.Height = h
}

func (o *outputView) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	o.vp, cmd = o.vp.Update(msg)
	return cmd
}

func (o *outputView) View() string {
	return logBoxStyle.Render(o.vp.View())
}
