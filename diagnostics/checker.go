// Package diagnostics runs the startup checks behind -doctor and the TUI's
// first notice.
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"ffkit-console/config"
	"ffkit-console/session"
)

// Status is the outcome of one check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Item is one check result.
type Item struct {
	ID      string
	Name    string
	Status  Status
	Message string
	Hint    string
}

// Report is the combined result of a Run.
type Report struct {
	GeneratedAt time.Time
	HasFailures bool
	Items       []Item
}

// Executor runs ffmpeg synchronously. *session.Kit satisfies it.
type Executor interface {
	ExecuteWithArguments(args []string) *session.Session
}

// audioEncoders maps catalogue keys to the ffmpeg encoder they need. soxr is
// a resampler, not an encoder, and is checked with the filters.
var audioEncoders = map[string]string{
	"mp2":       "mp2",
	"mp3-lame":  "libmp3lame",
	"mp3-shine": "libshine",
	"vorbis":    "libvorbis",
	"opus":      "libopus",
	"amr-nb":    "libopencore_amrnb",
	"amr-wb":    "libvo_amrwbenc",
	"ilbc":      "ilbc",
	"speex":     "libspeex",
	"wavpack":   "wavpack",
}

// Checker validates external tools, working directories and the ffmpeg
// build's encoders and filters.
type Checker struct {
	exec       Executor
	lookPath   func(string) (string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker(executor Executor) *Checker {
	return NewCheckerForTests(executor, exec.LookPath, os.MkdirAll, os.CreateTemp, os.Remove)
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	executor Executor,
	lookPath func(string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		exec:       executor,
		lookPath:   lookPath,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings config.Settings) Report {
	ffmpeg := c.checkTool("ffmpeg", settings.FFmpeg.Path)
	items := []Item{
		ffmpeg,
		c.checkTool("ffprobe", settings.FFmpeg.ProbePath),
		c.checkDir("files_dir", "Files directory", settings.Dirs.Files),
		c.checkDir("cache_dir", "Cache directory", settings.Dirs.Cache),
	}
	if ffmpeg.Status == StatusPass && c.exec != nil {
		items = append(items, c.checkBuild()...)
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == StatusFail {
			hasFailures = true
			break
		}
	}

	return Report{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a required executable resolves.
func (c *Checker) checkTool(name, path string) Item {
	item := Item{ID: "tool_" + name, Name: name}
	if strings.TrimSpace(path) == "" {
		path = name
	}
	resolved, err := c.lookPath(path)
	if err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Tool not found: %s", path)
		item.Hint = fmt.Sprintf("Install %s or set ffmpeg.%s in the config file.", name, configKey(name))
		return item
	}
	item.Status = StatusPass
	item.Message = fmt.Sprintf("Found at %s", resolved)
	return item
}

func configKey(tool string) string {
	if tool == "ffprobe" {
		return "probe_path"
	}
	return "path"
}

// checkDir validates directory existence and write access.
func (c *Checker) checkDir(id, name, dir string) Item {
	item := Item{ID: id, Name: name}

	if strings.TrimSpace(dir) == "" {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("%s is empty.", name)
		item.Hint = "Set dirs.files and dirs.cache in the config file."
		return item
	}
	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Cannot create directory: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = StatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

// checkBuild asks ffmpeg which encoders, filters and configure options it was
// built with.
func (c *Checker) checkBuild() []Item {
	encoders, encErr := c.listComponents("-encoders")
	filters, filErr := c.listComponents("-filters")
	options, optErr := c.buildOptions()

	items := []Item{}

	mpeg4 := Item{ID: "encoder_mpeg4", Name: "mpeg4 encoder"}
	switch {
	case encErr != nil:
		mpeg4.Status = StatusFail
		mpeg4.Message = encErr.Error()
	case encoders["mpeg4"]:
		mpeg4.Status = StatusPass
		mpeg4.Message = "Available"
	default:
		mpeg4.Status = StatusFail
		mpeg4.Message = "ffmpeg was built without the mpeg4 encoder."
		mpeg4.Hint = "The concurrent and vid.stab tabs encode with mpeg4."
	}
	items = append(items, mpeg4)

	vidstab := Item{ID: "filter_vidstab", Name: "vid.stab filters"}
	switch {
	case filErr != nil:
		vidstab.Status = StatusWarn
		vidstab.Message = filErr.Error()
	case filters["vidstabdetect"] && filters["vidstabtransform"]:
		vidstab.Status = StatusPass
		vidstab.Message = "vidstabdetect and vidstabtransform available"
	default:
		vidstab.Status = StatusWarn
		vidstab.Message = "ffmpeg was built without libvidstab."
		vidstab.Hint = "The vid.stab tab will fail; rebuild ffmpeg with --enable-libvidstab."
	}
	items = append(items, vidstab)

	audio := Item{ID: "audio_encoders", Name: "Audio encoders"}
	if encErr != nil {
		audio.Status = StatusWarn
		audio.Message = encErr.Error()
		return append(items, audio)
	}
	var missing []string
	for key, encoder := range audioEncoders {
		if !encoders[encoder] {
			missing = append(missing, key)
		}
	}
	// aresample is always built in; the soxr resampler behind it is not.
	if optErr == nil && !options["--enable-libsoxr"] {
		missing = append(missing, "soxr")
	}
	sort.Strings(missing)
	if len(missing) == 0 {
		audio.Status = StatusPass
		audio.Message = fmt.Sprintf("All %d codecs available", len(config.AvailableAudioCodecs()))
	} else {
		audio.Status = StatusWarn
		audio.Message = fmt.Sprintf("Missing: %s", strings.Join(missing, ", "))
		audio.Hint = "Encoding with these codecs in the audio tab will fail."
	}
	return append(items, audio)
}

// listComponents runs "ffmpeg -hide_banner <flag>" and returns the names in
// its table. Rows look like " V....D mpeg4   MPEG-4 part 2".
func (c *Checker) listComponents(flag string) (map[string]bool, error) {
	logs, err := c.query(flag)
	if err != nil {
		return nil, err
	}
	names := map[string]bool{}
	for _, l := range logs {
		fields := strings.Fields(l.Message)
		if len(fields) < 2 || fields[1] == "=" {
			continue
		}
		names[fields[1]] = true
	}
	return names, nil
}

// buildOptions returns the configure flags printed by "ffmpeg -buildconf",
// one per line such as "    --enable-libsoxr".
func (c *Checker) buildOptions() (map[string]bool, error) {
	logs, err := c.query("-buildconf")
	if err != nil {
		return nil, err
	}
	options := map[string]bool{}
	for _, l := range logs {
		for _, field := range strings.Fields(l.Message) {
			if strings.HasPrefix(field, "--") {
				options[field] = true
			}
		}
	}
	return options, nil
}

func (c *Checker) query(flag string) ([]session.Log, error) {
	s := c.exec.ExecuteWithArguments([]string{"-hide_banner", flag})
	if s.State() == session.StateFailed {
		return nil, fmt.Errorf("ffmpeg %s failed: %s", flag, s.FailStackTrace())
	}
	if !s.ReturnCode().IsSuccess() {
		return nil, fmt.Errorf("ffmpeg %s exited with rc %s", flag, s.ReturnCode())
	}
	return s.Logs(), nil
}

// WriteReport prints the report for -doctor.
func WriteReport(w io.Writer, r Report) {
	for _, item := range r.Items {
		fmt.Fprintf(w, "[%s] %-18s %s\n", strings.ToUpper(string(item.Status)), item.Name, item.Message)
		if item.Hint != "" && item.Status != StatusPass {
			fmt.Fprintf(w, "       %-18s %s\n", "", item.Hint)
		}
	}
	if r.HasFailures {
		fmt.Fprintln(w, "\nSome checks failed.")
	} else {
		fmt.Fprintln(w, "\nAll required checks passed.")
	}
}

// Summary is a one line description of failed and warned checks, empty when
// everything passed.
func (r Report) Summary() string {
	var failed, warned []string
	for _, item := range r.Items {
		switch item.Status {
		case StatusFail:
			failed = append(failed, item.Name)
		case StatusWarn:
			warned = append(warned, item.Name)
		}
	}
	var parts []string
	if len(failed) > 0 {
		parts = append(parts, "Failed: "+strings.Join(failed, ", "))
	}
	if len(warned) > 0 {
		parts = append(parts, "Warnings: "+strings.Join(warned, ", "))
	}
	return strings.Join(parts, ". ")
}
