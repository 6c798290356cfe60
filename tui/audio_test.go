package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffkit-console/media"
	"ffkit-console/session"
)

func isSampleCall(args []string) bool {
	return strings.Contains(strings.Join(args, " "), "sine=frequency")
}

// activateAudio runs the activation commands and feeds their results back.
func activateAudio(t *testing.T, tab *AudioTab) []string {
	t.Helper()
	var shown []string
	for _, msg := range collect(tab.Activate()) {
		if n, ok := msg.(noticeMsg); ok {
			shown = append(shown, n.text)
			continue
		}
		shown = append(shown, notices(collect(tab.Update(msg)))...)
	}
	return shown
}

func TestAudioEncodeSelectedCodec(t *testing.T) {
	f := newFixture(t, func(_ string, args []string) reply {
		return reply{stderr: []string{"size=  12kB time=00:00:05.00 bitrate=  19.7kbits/s speed=80x"}}
	})
	tab := NewAudioTab(f.deps, "vorbis")
	assert.Equal(t, "vorbis", tab.SelectedCodec().Key)

	shown := activateAudio(t, tab)
	assert.Equal(t, []string{audioTooltip}, shown)
	assert.True(t, tab.encodeEnabled)

	sample := filepath.Join(f.deps.FilesDir, media.AudioSampleFile)
	calls := f.runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, session.ParseArguments(media.AudioSampleScript(sample)), calls[0].args)
	// Callbacks were off while the sample was created.
	assertEmpty(t, f.deps.Mailbox)

	// Leftover output from an earlier run is removed first.
	output := filepath.Join(f.deps.FilesDir, "audio.ogg")
	require.NoError(t, os.MkdirAll(f.deps.FilesDir, 0o755))
	require.NoError(t, os.WriteFile(output, []byte("old"), 0o644))

	tab.output.Append("previous run")
	assert.Nil(t, tab.Update(keyPress("enter")))
	assert.NoFileExists(t, output)
	assert.Equal(t, "Encoding audio", tab.Dialog())
	assert.NotContains(t, tab.output.Text(), "previous run")

	want := media.GenerateAudioEncodeScript("vorbis", sample, output)
	assert.Equal(t, []string{want}, f.engine.Submitted())

	// A second press while encoding is ignored.
	tab.Update(keyPress("e"))
	assert.Len(t, f.engine.Submitted(), 1)

	done := pump[audioDoneMsg](t, f.deps.Mailbox, tab)
	assert.Contains(t, tab.output.Text(), "bitrate")

	assert.Equal(t, []string{"Encode completed successfully."}, notices(collect(tab.Update(done))))
	assert.Empty(t, tab.Dialog())
}

func TestAudioEncodeFailure(t *testing.T) {
	f := newFixture(t, func(_ string, args []string) reply {
		if isSampleCall(args) {
			return reply{}
		}
		return reply{code: 1, stderr: []string{"Unknown encoder 'libspeex'"}}
	})
	tab := NewAudioTab(f.deps, "speex")
	activateAudio(t, tab)

	tab.Update(keyPress("enter"))
	done := pump[audioDoneMsg](t, f.deps.Mailbox, tab)

	assert.Equal(t, []string{"Encode failed. Please check logs for the details."}, notices(collect(tab.Update(done))))
	assert.NotEmpty(t, f.logs.FilterMessage("Encode failed").All())
	assert.Contains(t, tab.output.Text(), "Unknown encoder")
}

func TestAudioSampleFailureDisablesEncode(t *testing.T) {
	f := newFixture(t, func(string, []string) reply { return reply{code: 1} })
	tab := NewAudioTab(f.deps, "")

	shown := activateAudio(t, tab)
	assert.Equal(t, []string{
		"Creating AUDIO sample failed. Please check logs for the details.",
		audioTooltip,
	}, shown)
	assert.False(t, tab.encodeEnabled)

	tab.Update(keyPress("enter"))
	assert.Empty(t, f.engine.Submitted())
	assert.Contains(t, tab.View(100, 30), "disabled")
}

func TestAudioSampleAfterLeavingTab(t *testing.T) {
	f := newFixture(t, nil)
	tab := NewAudioTab(f.deps, "")

	cmd := tab.Activate()
	tab.Deactivate()
	for _, msg := range collect(cmd) {
		tab.Update(msg)
	}
	assert.True(t, tab.encodeEnabled)

	// The log callback stays off, so an unrelated session sends nothing.
	s := f.engine.Execute("-version")
	require.True(t, s.ReturnCode().IsSuccess())
	assertEmpty(t, f.deps.Mailbox)
}

func TestAudioCodecSelection(t *testing.T) {
	f := newFixture(t, nil)
	tab := NewAudioTab(f.deps, "unknown")
	assert.Equal(t, "mp2", tab.SelectedCodec().Key)

	tab.Update(keyPress("left"))
	assert.Equal(t, "mp2", tab.SelectedCodec().Key, "selection stops at the first codec")

	tab.Update(keyPress("right"))
	tab.Update(keyPress("right"))
	assert.Equal(t, "mp3-shine", tab.SelectedCodec().Key)

	for i := 0; i < 20; i++ {
		tab.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, "soxr", tab.SelectedCodec().Key)
}
