package tui

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ffkit-console/media"
	"ffkit-console/session"
)

type call struct {
	name string
	args []string
}

type reply struct {
	code   int
	stderr []string
	stdout []string
	block  bool
}

// scriptRunner records every process it is asked to start and answers with
// respond, or success and one stderr line when respond is nil.
type scriptRunner struct {
	mu      sync.Mutex
	calls   []call
	respond func(name string, args []string) reply
}

func (r *scriptRunner) Run(ctx context.Context, name string, args []string, onLine func(session.Stream, string)) (int, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{name: name, args: args})
	r.mu.Unlock()

	rep := reply{stderr: []string{"encoding"}}
	if r.respond != nil {
		rep = r.respond(name, args)
	}
	for _, l := range rep.stdout {
		onLine(session.StreamStdout, l)
	}
	for _, l := range rep.stderr {
		onLine(session.StreamStderr, l)
	}
	if rep.block {
		<-ctx.Done()
		return 255, nil
	}
	return rep.code, nil
}

func (r *scriptRunner) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

// recordingEngine notes what the tabs ask of the engine and forwards to a
// real Kit.
type recordingEngine struct {
	*session.Kit

	mu        sync.Mutex
	async     []string
	cancelled []int64
	cancelAll int
}

func (e *recordingEngine) ExecuteAsync(command string, cb session.ExecuteCallback) *session.Session {
	e.mu.Lock()
	e.async = append(e.async, command)
	e.mu.Unlock()
	return e.Kit.ExecuteAsync(command, cb)
}

func (e *recordingEngine) Cancel(id int64) {
	e.mu.Lock()
	e.cancelled = append(e.cancelled, id)
	e.mu.Unlock()
	e.Kit.Cancel(id)
}

func (e *recordingEngine) CancelAll() {
	e.mu.Lock()
	e.cancelAll++
	e.mu.Unlock()
	e.Kit.CancelAll()
}

func (e *recordingEngine) Submitted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.async...)
}

type fixture struct {
	deps   Deps
	engine *recordingEngine
	runner *scriptRunner
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T, respond func(name string, args []string) reply) *fixture {
	t.Helper()
	root := t.TempDir()

	runner := &scriptRunner{respond: respond}
	kit := session.New(session.Options{Runner: runner})
	t.Cleanup(kit.Close)

	mailbox := NewMailbox(256)
	t.Cleanup(mailbox.Close)

	core, logs := observer.New(zap.DebugLevel)
	engine := &recordingEngine{Kit: kit}
	return &fixture{
		deps: Deps{
			Engine:   engine,
			Mailbox:  mailbox,
			Logger:   zap.New(core),
			FilesDir: filepath.Join(root, "files"),
			CacheDir: filepath.Join(root, "cache"),
		},
		engine: engine,
		runner: runner,
		logs:   logs,
	}
}

func (f *fixture) slideshow() []string {
	var paths []string
	for _, r := range media.SlideshowResources() {
		paths = append(paths, filepath.Join(f.deps.CacheDir, r.FileName()))
	}
	return paths
}

// receive takes the next message from the mailbox.
func receive(t *testing.T, m *Mailbox) tea.Msg {
	t.Helper()
	ch := make(chan tea.Msg, 1)
	go func() { ch <- m.Wait()() }()
	select {
	case msg := <-ch:
		wrapped, ok := msg.(mailMsg)
		require.True(t, ok, "unexpected %T", msg)
		return wrapped.msg
	case <-time.After(5 * time.Second):
		t.Fatal("no message in mailbox")
		return nil
	}
}

// pump feeds mailbox messages to tab until one matches stop, which is
// returned without being fed.
func pump[T any](t *testing.T, m *Mailbox, tab Tab) T {
	t.Helper()
	for {
		msg := receive(t, m)
		if want, ok := msg.(T); ok {
			return want
		}
		tab.Update(msg)
	}
}

// assertEmpty checks that nothing arrives in the mailbox for a moment.
func assertEmpty(t *testing.T, m *Mailbox) {
	t.Helper()
	select {
	case msg := <-m.ch:
		t.Fatalf("unexpected message %T %+v", msg, msg)
	case <-time.After(50 * time.Millisecond):
	}
}

// collect runs cmd and every command nested in batches and sequences,
// returning the leaf messages in order.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if msg == nil {
		return nil
	}
	v := reflect.ValueOf(msg)
	if v.Kind() == reflect.Slice && v.Type().Elem() == reflect.TypeOf(tea.Cmd(nil)) {
		var out []tea.Msg
		for i := 0; i < v.Len(); i++ {
			out = append(out, collect(v.Index(i).Interface().(tea.Cmd))...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func notices(msgs []tea.Msg) []string {
	var out []string
	for _, m := range msgs {
		if n, ok := m.(noticeMsg); ok {
			out = append(out, n.text)
		}
	}
	return out
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}
