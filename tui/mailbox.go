package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Mailbox carries messages from engine callbacks, which run on worker
// goroutines, to the bubbletea event loop.
type Mailbox struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

// mailMsg wraps a message that arrived through the mailbox so the root model
// knows to re-arm Wait.
type mailMsg struct {
	msg tea.Msg
}

// NewMailbox returns a mailbox buffering up to size messages.
func NewMailbox(size int) *Mailbox {
	return &Mailbox{
		ch:   make(chan tea.Msg, size),
		done: make(chan struct{}),
	}
}

// Send queues msg, blocking while the buffer is full. It returns false once
// the mailbox is closed.
func (m *Mailbox) Send(msg tea.Msg) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.ch <- msg:
		return true
	case <-m.done:
		return false
	}
}

// Wait returns a command that delivers the next message.
func (m *Mailbox) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.done:
			return nil
		default:
		}
		select {
		case msg := <-m.ch:
			return mailMsg{msg: msg}
		case <-m.done:
			return nil
		}
	}
}

// Close releases blocked senders and waiters. It is safe to call twice.
func (m *Mailbox) Close() {
	m.once.Do(func() { close(m.done) })
}
