package tui

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"ffkit-console/media"
	"ffkit-console/session"
)

const vidStabTooltip = "Press s to render a shaking slideshow and stabilize it with vid.stab, then o to " +
	"watch both videos."

type stabStage int

const (
	stageIdle stabStage = iota
	stageCreating
	stageDetecting
	stageTransforming
	stageLoadingInfo
	stageDone
)

type vidStabStepMsg struct {
	stage  stabStage
	result sessionResult
}

type vidStabStatsMsg struct {
	stats session.Statistics
}

type vidStabInfoMsg struct {
	original   *session.MediaInformation
	stabilized *session.MediaInformation
	err        error
}

type vidStabOpenMsg struct {
	err error
}

// VidStabTab chains three sessions: render a shaking video, detect its
// motion and apply the transforms. The chain advances in Update when each
// completion arrives through the mailbox.
type VidStabTab struct {
	deps Deps
	log  *zap.Logger

	stage     stabStage
	sessionID int64
	progress  progress.Model
	percent   float64

	original   *session.MediaInformation
	stabilized *session.MediaInformation
	infoErr   error
}

func NewVidStabTab(deps Deps) *VidStabTab {
	prog := progress.New(
		progress.WithGradient("#7C3AED", "#10B981"),
		progress.WithWidth(50),
	)
	return &VidStabTab{
		deps:     deps,
		log:      deps.logger(),
		progress: prog,
	}
}

func (t *VidStabTab) Title() string { return "VidStab" }

func (t *VidStabTab) videoFile() string {
	return filepath.Join(t.deps.FilesDir, media.ShakingVideo)
}

func (t *VidStabTab) stabilizedFile() string {
	return filepath.Join(t.deps.FilesDir, media.StabilizedVideo)
}

func (t *VidStabTab) transformsFile() string {
	return filepath.Join(t.deps.CacheDir, media.TransformsFile)
}

func (t *VidStabTab) Activate() tea.Cmd {
	t.log.Info("VidStab Tab Activated")
	log := t.log
	mailbox := t.deps.Mailbox
	t.deps.Engine.EnableLogCallback(func(l session.Log) {
		log.Debug(l.Message, zap.Int64("session_id", l.SessionID))
	})
	t.deps.Engine.EnableStatisticsCallback(func(s session.Statistics) {
		mailbox.Send(vidStabStatsMsg{stats: s})
	})
	return notify(vidStabTooltip)
}

func (t *VidStabTab) Deactivate() {}

func (t *VidStabTab) Dialog() string {
	switch t.stage {
	case stageCreating:
		return "Creating video"
	case stageDetecting, stageTransforming:
		return "Stabilizing video"
	}
	return ""
}

func (t *VidStabTab) Help() []key.Binding {
	return []key.Binding{keyStabilize, keyOpen}
}

func (t *VidStabTab) busy() bool {
	return t.stage != stageIdle && t.stage != stageDone
}

func (t *VidStabTab) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w := msg.Width - 20
		if w < 10 {
			w = 10
		}
		t.progress.Width = w

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keyStabilize):
			if !t.busy() {
				return t.stabilize()
			}
		case key.Matches(msg, keyOpen):
			if t.stage == stageDone {
				return t.openVideos()
			}
		}

	case vidStabStatsMsg:
		if msg.stats.SessionID == t.sessionID && t.busy() {
			t.percent = float64(msg.stats.VideoFrameNumber) / float64(media.SlideshowFrames)
			if t.percent > 1 {
				t.percent = 1
			}
		}

	case vidStabStepMsg:
		return t.stepCompleted(msg)

	case vidStabInfoMsg:
		t.stage = stageDone
		t.original, t.stabilized, t.infoErr = msg.original, msg.stabilized, msg.err
		if msg.err != nil {
			t.log.Error("Reading media information failed", zap.Error(msg.err))
		}

	case vidStabOpenMsg:
		if msg.err != nil {
			t.log.Error("Opening videos failed", zap.Error(msg.err))
			return notify(fmt.Sprintf("Could not open videos: %v", msg.err))
		}
	}
	return nil
}

func (t *VidStabTab) removeOutputs() {
	for _, p := range []string{t.transformsFile(), t.videoFile(), t.stabilizedFile()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			t.log.Warn("failed to delete old file", zap.String("path", p), zap.Error(err))
		}
	}
}

func (t *VidStabTab) stabilize() tea.Cmd {
	t.removeOutputs()
	t.original, t.stabilized, t.infoErr = nil, nil, nil

	t.log.Debug("Testing VID.STAB")

	images, err := media.WriteSlideshow(t.deps.CacheDir)
	if err != nil {
		t.stage = stageIdle
		t.log.Error("Stabilize video failed", zap.Error(err))
		return notify("Stabilize video failed")
	}

	script := media.GenerateShakingVideoScript(images[0], images[1], images[2], t.videoFile())
	t.submit(stageCreating, script)
	return nil
}

// submit starts the async session for stage and routes its completion back
// through the mailbox.
func (t *VidStabTab) submit(stage stabStage, script string) {
	t.stage = stage
	t.percent = 0
	t.log.Debug("FFmpeg process started with arguments", zap.String("arguments", script))

	mailbox := t.deps.Mailbox
	s := t.deps.Engine.ExecuteAsync(script, func(s *session.Session) {
		mailbox.Send(vidStabStepMsg{stage: stage, result: resultOf(s)})
	})
	t.sessionID = s.ID()
}

func (t *VidStabTab) stepCompleted(msg vidStabStepMsg) tea.Cmd {
	if msg.stage != t.stage || msg.result.ID != t.sessionID {
		return nil
	}
	logResult(t.log, msg.result)
	ok := msg.result.ReturnCode.IsSuccess()

	switch msg.stage {
	case stageCreating:
		if !ok {
			t.stage = stageIdle
			return notify("Create video failed. Please check logs for the details.")
		}
		t.log.Debug("Create completed successfully; stabilizing video.")
		t.submit(stageDetecting, media.VidStabDetectScript(t.videoFile(), t.transformsFile()))

	case stageDetecting:
		if !ok {
			t.stage = stageIdle
			return notify("Stabilize video failed. Please check logs for the details.")
		}
		t.submit(stageTransforming, media.VidStabTransformScript(t.videoFile(), t.transformsFile(), t.stabilizedFile()))

	case stageTransforming:
		if !ok {
			t.stage = stageIdle
			return notify("Stabilize video failed. Please check logs for the details.")
		}
		t.log.Debug("Stabilize video completed successfully; playing videos.")
		t.stage = stageLoadingInfo
		t.percent = 1
		return t.loadMediaInfo()
	}
	return nil
}

func (t *VidStabTab) loadMediaInfo() tea.Cmd {
	engine := t.deps.Engine
	video, stabilized := t.videoFile(), t.stabilizedFile()
	return func() tea.Msg {
		original, err := engine.MediaInformation(video)
		if err != nil {
			return vidStabInfoMsg{err: err}
		}
		stab, err := engine.MediaInformation(stabilized)
		return vidStabInfoMsg{original: original, stabilized: stab, err: err}
	}
}

func (t *VidStabTab) openVideos() tea.Cmd {
	open := t.deps.Opener
	if open == nil {
		open = OpenFiles
	}
	video, stabilized := t.videoFile(), t.stabilizedFile()
	return func() tea.Msg {
		return vidStabOpenMsg{err: open(video, stabilized)}
	}
}

func (t *VidStabTab) View(width, height int) string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("VID.STAB"))
	b.WriteString("\n\n")

	b.WriteString(keyStyle.Render("[s] ") + labelStyle.Render("Stabilize"))
	b.WriteString(keyStyle.Render("[o] ") + labelStyle.Render("Open videos"))
	b.WriteString("\n\n")

	if t.busy() {
		b.WriteString(t.progress.ViewAs(t.percent))
		b.WriteString("\n\n")
	}

	if t.stage != stageDone {
		return b.String()
	}
	if t.infoErr != nil {
		b.WriteString(errorStyle.Render("Media information failed: " + t.infoErr.Error()))
		return b.String()
	}

	half := (width - 2) / 2
	if half < 30 {
		half = 30
	}
	left := mediaPanel("Original", t.videoFile(), t.original, half)
	right := mediaPanel("Stabilized", t.stabilizedFile(), t.stabilized, half)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	return b.String()
}

func mediaPanel(title, path string, info *session.MediaInformation, width int) string {
	rows := []string{
		sectionHeaderStyle.Render(title),
		labelStyle.Render("File") + valueStyle.Render(truncatePath(path, width-18)),
	}
	if info != nil {
		rows = append(rows,
			labelStyle.Render("Format")+valueStyle.Render(info.Format.FormatName),
			labelStyle.Render("Duration")+valueStyle.Render(formatDuration(info.Duration())),
		)
		if size, err := strconv.ParseInt(info.Format.Size, 10, 64); err == nil {
			rows = append(rows, labelStyle.Render("Size")+valueStyle.Render(formatBytes(size)))
		}
		for _, v := range info.VideoStreams() {
			rows = append(rows,
				labelStyle.Render("Video")+valueStyle.Render(
					fmt.Sprintf("%s %dx%d @ %.2f fps", v.CodecName, v.Width, v.Height, v.FrameRate())),
			)
		}
	}
	return panelStyle.Width(width - 2).Render(strings.Join(rows, "\n"))
}
