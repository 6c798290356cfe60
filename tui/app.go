// Package tui is the terminal front end: a tab bar over the console's demo
// screens, driven by the session engine.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const defaultNoticeTimeout = 6 * time.Second

// TabNames are the values accepted by -tab and ui.tab, in tab bar order.
var TabNames = []string{"concurrent", "audio", "vidstab", "sessions"}

// ParseTab returns the index of a tab name.
func ParseTab(name string) (int, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, t := range TabNames {
		if t == n {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown tab %q (want one of %s)", name, strings.Join(TabNames, ", "))
}

// Options tune the root model.
type Options struct {
	Tab        string
	AudioCodec string
	// StartupNotice is shown before the first tab's tooltip, e.g. failed
	// startup checks.
	StartupNotice string
	NoticeTimeout time.Duration
}

type noticeExpiredMsg struct {
	id int
}

// App is the root bubbletea model.
type App struct {
	deps   Deps
	tabs   []Tab
	active int

	notices       []string
	noticeID      int
	noticeTimeout time.Duration
	startup       string

	spinner spinner.Model
	help    help.Model

	width  int
	height int
}

// NewApp builds the four tabs. An unknown Options.Tab is an error.
func NewApp(deps Deps, opts Options) (*App, error) {
	active := 0
	if opts.Tab != "" {
		i, err := ParseTab(opts.Tab)
		if err != nil {
			return nil, err
		}
		active = i
	}
	timeout := opts.NoticeTimeout
	if timeout <= 0 {
		timeout = defaultNoticeTimeout
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	return &App{
		deps: deps,
		tabs: []Tab{
			NewConcurrentTab(deps),
			NewAudioTab(deps, opts.AudioCodec),
			NewVidStabTab(deps),
			NewSessionsTab(deps),
		},
		active:        active,
		noticeTimeout: timeout,
		startup:       opts.StartupNotice,
		spinner:       sp,
		help:          help.New(),
		width:         80,
		height:        24,
	}, nil
}

// ActiveTab returns the visible tab.
func (a *App) ActiveTab() Tab { return a.tabs[a.active] }

// Notice returns the notice on screen, empty when none.
func (a *App) Notice() string {
	if len(a.notices) == 0 {
		return ""
	}
	return a.notices[0]
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.deps.Mailbox.Wait(), a.spinner.Tick}
	if a.startup != "" {
		cmds = append(cmds, notify(a.startup))
	}
	cmds = append(cmds, a.tabs[a.active].Activate())
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.help.Width = msg.Width
		return a, a.broadcast(tea.WindowSizeMsg{Width: msg.Width, Height: a.bodyHeight()})

	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case tea.MouseMsg:
		return a, a.tabs[a.active].Update(msg)

	case mailMsg:
		return a, tea.Batch(a.broadcast(msg.msg), a.deps.Mailbox.Wait())

	case noticeMsg:
		a.notices = append(a.notices, msg.text)
		if len(a.notices) == 1 {
			return a, a.expireNotice()
		}
		return a, nil

	case noticeExpiredMsg:
		if msg.id == a.noticeID && len(a.notices) > 0 {
			return a, a.dismissNotice()
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	// Results of tab commands.
	return a, a.broadcast(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" || (key.Matches(msg, keyQuit) && len(a.notices) == 0) {
		a.deps.Engine.CancelAll()
		return tea.Quit
	}
	// A notice swallows the key that dismisses it.
	if len(a.notices) > 0 {
		return a.dismissNotice()
	}
	switch {
	case key.Matches(msg, keyNextTab):
		return a.switchTab((a.active + 1) % len(a.tabs))
	case key.Matches(msg, keyPrevTab):
		return a.switchTab((a.active + len(a.tabs) - 1) % len(a.tabs))
	}
	return a.tabs[a.active].Update(msg)
}

func (a *App) switchTab(i int) tea.Cmd {
	if i == a.active {
		return nil
	}
	a.tabs[a.active].Deactivate()
	a.active = i
	return a.tabs[a.active].Activate()
}

func (a *App) broadcast(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(a.tabs))
	for _, t := range a.tabs {
		cmds = append(cmds, t.Update(msg))
	}
	return tea.Batch(cmds...)
}

func (a *App) dismissNotice() tea.Cmd {
	a.notices = a.notices[1:]
	a.noticeID++
	if len(a.notices) == 0 {
		return nil
	}
	return a.expireNotice()
}

func (a *App) expireNotice() tea.Cmd {
	id := a.noticeID
	return tea.Tick(a.noticeTimeout, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

// bodyHeight is what remains for the tab after the title, tab bar and footer.
func (a *App) bodyHeight() int {
	h := a.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" ⚡ FFmpegKit Console "))
	b.WriteString("\n\n")

	var tabs []string
	for i, t := range a.tabs {
		if i == a.active {
			tabs = append(tabs, activeTabStyle.Render(t.Title()))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(t.Title()))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	tab := a.tabs[a.active]
	body := tab.View(a.width, a.bodyHeight())

	switch {
	case len(a.notices) > 0:
		body = a.overlay(body, noticeStyle.Width(min(a.width-4, 60)).Render(a.notices[0]))
	case tab.Dialog() != "":
		body = a.overlay(body, dialogStyle.Render(a.spinner.View()+" "+tab.Dialog()))
	}
	b.WriteString(body)
	b.WriteString("\n")

	bindings := append([]key.Binding{keyNextTab, keyQuit}, tab.Help()...)
	b.WriteString(a.help.ShortHelpView(bindings))
	return b.String()
}

// overlay centers box over the tab body.
func (a *App) overlay(body, box string) string {
	h := max(lipgloss.Height(body), lipgloss.Height(box))
	return lipgloss.Place(a.width, h, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "))
}
