package tui

import "github.com/charmbracelet/bubbles/key"

var (
	keyNextTab = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab"))
	keyPrevTab = key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab"))
	keyQuit    = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))
	keyScroll  = key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll"))

	// Concurrent execution
	keyEncode1   = key.NewBinding(key.WithKeys("1"), key.WithHelp("1/2/3", "encode"))
	keyEncode2   = key.NewBinding(key.WithKeys("2"))
	keyEncode3   = key.NewBinding(key.WithKeys("3"))
	keyCancel1   = key.NewBinding(key.WithKeys("!"), key.WithHelp("!/@/#", "cancel"))
	keyCancel2   = key.NewBinding(key.WithKeys("@"))
	keyCancel3   = key.NewBinding(key.WithKeys("#"))
	keyCancelAll = key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "cancel all"))

	// Audio
	keyPrevCodec = key.NewBinding(key.WithKeys("left", "up", "h", "k"), key.WithHelp("←/→", "codec"))
	keyNextCodec = key.NewBinding(key.WithKeys("right", "down", "l", "j"))
	keyEncode    = key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "encode"))

	// VidStab
	keyStabilize = key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stabilize"))
	keyOpen      = key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open videos"))

	// Sessions
	keyRefresh = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
)
