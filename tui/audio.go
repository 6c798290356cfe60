package tui

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"ffkit-console/config"
	"ffkit-console/media"
	"ffkit-console/session"
)

const audioTooltip = "Pick a codec with the arrow keys and press enter to encode a five second sine " +
	"sample with it."

type audioSampleMsg struct {
	result sessionResult
}

type audioLogMsg struct {
	log session.Log
}

type audioDoneMsg struct {
	result sessionResult
}

// AudioTab encodes a generated sample with the selected codec.
type AudioTab struct {
	deps   Deps
	log    *zap.Logger
	output *outputView

	codecs   []config.AudioCodec
	selected int

	active        bool
	encodeEnabled bool
	encoding      bool
}

// NewAudioTab preselects codecKey, or the first codec when it is unknown.
func NewAudioTab(deps Deps, codecKey string) *AudioTab {
	return &AudioTab{
		deps:     deps,
		log:      deps.logger(),
		output:   newOutputView(),
		codecs:   config.AvailableAudioCodecs(),
		selected: config.AudioCodecIndex(codecKey),
	}
}

func (t *AudioTab) Title() string { return "Audio" }

func (t *AudioTab) SelectedCodec() config.AudioCodec { return t.codecs[t.selected] }

func (t *AudioTab) sampleFile() string {
	return filepath.Join(t.deps.FilesDir, media.AudioSampleFile)
}

// Activate creates the audio sample with every global callback disabled,
// so the synchronous run never reaches the mailbox.
func (t *AudioTab) Activate() tea.Cmd {
	t.log.Info("Audio Tab Activated")
	t.active = true
	t.encodeEnabled = false

	engine := t.deps.Engine
	engine.EnableStatisticsCallback(nil)
	engine.EnableLogCallback(nil)

	sample := t.sampleFile()
	createSample := func() tea.Msg {
		t.log.Debug("Creating AUDIO sample before the test")
		if err := os.Remove(sample); err != nil && !errors.Is(err, fs.ErrNotExist) {
			t.log.Warn("failed to delete old audio sample", zap.String("path", sample), zap.Error(err))
		}
		s := engine.Execute(media.AudioSampleScript(sample))
		return audioSampleMsg{result: resultOf(s)}
	}
	return tea.Sequence(createSample, notify(audioTooltip))
}

func (t *AudioTab) Deactivate() { t.active = false }

func (t *AudioTab) Dialog() string {
	if t.encoding {
		return "Encoding audio"
	}
	return ""
}

func (t *AudioTab) Help() []key.Binding {
	return []key.Binding{keyPrevCodec, keyEncode, keyScroll}
}

func (t *AudioTab) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.output.SetSize(msg.Width, msg.Height-7)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyPrevCodec):
			if t.selected > 0 && !t.encoding {
				t.selected--
			}
		case key.Matches(msg, keyNextCodec):
			if t.selected < len(t.codecs)-1 && !t.encoding {
				t.selected++
			}
		case key.Matches(msg, keyEncode):
			return t.encodeAudio()
		case key.Matches(msg, keyScroll):
			return t.output.Update(msg)
		}

	case tea.MouseMsg:
		return t.output.Update(msg)

	case audioSampleMsg:
		return t.sampleCreated(msg.result)

	case audioLogMsg:
		t.output.Append(msg.log.Message)

	case audioDoneMsg:
		t.encoding = false
		logResult(t.log, msg.result)
		if msg.result.ReturnCode.IsSuccess() {
			t.log.Debug("Encode completed successfully.")
			return notify("Encode completed successfully.")
		}
		t.log.Error("Encode failed",
			zap.Stringer("state", msg.result.State),
			zap.Stringer("rc", msg.result.ReturnCode),
			zap.String("fail_stack_trace", msg.result.FailStackTrace),
		)
		return notify("Encode failed. Please check logs for the details.")
	}
	return nil
}

func (t *AudioTab) sampleCreated(r sessionResult) tea.Cmd {
	var cmd tea.Cmd
	if r.ReturnCode.IsSuccess() {
		t.log.Debug("AUDIO sample created")
		t.encodeEnabled = true
	} else {
		t.log.Error("Creating AUDIO sample failed",
			zap.Stringer("state", r.State),
			zap.Stringer("rc", r.ReturnCode),
			zap.String("fail_stack_trace", r.FailStackTrace),
		)
		cmd = notify("Creating AUDIO sample failed. Please check logs for the details.")
	}

	// The user may have switched tabs while the sample was created.
	if t.active {
		mailbox := t.deps.Mailbox
		t.deps.Engine.EnableLogCallback(func(l session.Log) {
			mailbox.Send(audioLogMsg{log: l})
		})
	}
	return cmd
}

func (t *AudioTab) encodeAudio() tea.Cmd {
	if !t.encodeEnabled || t.encoding {
		return nil
	}
	codec := t.SelectedCodec()
	output := media.AudioOutputFile(t.deps.FilesDir, codec.Key)

	if err := os.Remove(output); err != nil && !errors.Is(err, fs.ErrNotExist) {
		t.log.Warn("failed to delete old audio output", zap.String("path", output), zap.Error(err))
	}

	t.log.Debug("Testing AUDIO encoding", zap.String("codec", codec.Name))

	script := media.GenerateAudioEncodeScript(codec.Key, t.sampleFile(), output)

	t.encoding = true
	t.output.Clear()

	t.log.Debug("FFmpeg process started with arguments", zap.String("arguments", script))

	mailbox := t.deps.Mailbox
	t.deps.Engine.ExecuteAsync(script, func(s *session.Session) {
		mailbox.Send(audioDoneMsg{result: resultOf(s)})
	})
	return nil
}

func (t *AudioTab) View(width, height int) string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("AUDIO"))
	b.WriteString("\n\n")

	var names []string
	for i, c := range t.codecs {
		if i == t.selected {
			names = append(names, activeTabStyle.Padding(0, 1).Render(c.Name))
		} else {
			names = append(names, dimStyle.Render(c.Name))
		}
	}
	codecWidth := width - labelStyle.GetWidth()
	if codecWidth < 20 {
		codecWidth = 20
	}
	codecLine := lipgloss.NewStyle().Width(codecWidth).Render(strings.Join(names, " "))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render("Codec"), codecLine))
	b.WriteString("\n")

	encode := successStyle.Render("ready")
	if !t.encodeEnabled {
		encode = dimStyle.Render("disabled")
	} else if t.encoding {
		encode = runningStyle.Render("encoding")
	}
	b.WriteString(labelStyle.Render("Encode") + keyStyle.Render("[enter] ") + encode)
	b.WriteString("\n")
	b.WriteString(t.output.View())
	return b.String()
}
