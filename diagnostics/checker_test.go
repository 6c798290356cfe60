package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffkit-console/config"
	"ffkit-console/session"
)

const encodersOutput = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D mpeg4                MPEG-4 part 2
 A....D mp2                  MP2 (MPEG audio layer 2)
 A....D libmp3lame           libmp3lame MP3 (MPEG audio layer 3) (codec mp3)
 A....D libvorbis            libvorbis (codec vorbis)
 A....D libopus              libopus Opus (codec opus)`

const filtersOutput = `Filters:
  T.. = Timeline support
  ... aresample         A->A       Resample audio data.
  ... vidstabdetect     V->V       Extract relative transformations, pass 1 of 2 for stabilization.
  ... vidstabtransform  V->V       Transform the frames, pass 2 of 2 for stabilization.`

const buildconfOutput = `  configuration:
    --enable-gpl
    --enable-libmp3lame
    --enable-libsoxr
    --enable-libvidstab`

// ffmpegRunner answers -encoders, -filters and -buildconf like a real ffmpeg
// build.
type ffmpegRunner struct {
	encoders  string
	filters   string
	buildconf string
	code      int
}

func (r ffmpegRunner) Run(_ context.Context, _ string, args []string, onLine func(session.Stream, string)) (int, error) {
	var out string
	switch args[len(args)-1] {
	case "-filters":
		out = r.filters
	case "-buildconf":
		out = r.buildconf
	default:
		out = r.encoders
	}
	for _, line := range strings.Split(out, "\n") {
		onLine(session.StreamStdout, line)
	}
	return r.code, nil
}

func settingsIn(root string) config.Settings {
	s := config.Defaults()
	s.Dirs.Files = filepath.Join(root, "files")
	s.Dirs.Cache = filepath.Join(root, "cache")
	return s
}

func findItem(t *testing.T, r Report, id string) Item {
	t.Helper()
	for _, item := range r.Items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("item %s not in report %+v", id, r.Items)
	return Item{}
}

func foundTools(name string) (string, error) { return "/usr/bin/" + filepath.Base(name), nil }

func TestCheckerRunAllRequiredPass(t *testing.T) {
	kit := session.New(session.Options{Runner: ffmpegRunner{encoders: encodersOutput, filters: filtersOutput, buildconf: buildconfOutput}})
	defer kit.Close()

	checker := NewCheckerForTests(kit, foundTools, os.MkdirAll, os.CreateTemp, os.Remove)
	report := checker.Run(settingsIn(t.TempDir()))

	assert.False(t, report.HasFailures, "%+v", report.Items)
	assert.Equal(t, StatusPass, findItem(t, report, "encoder_mpeg4").Status)
	assert.Equal(t, StatusPass, findItem(t, report, "filter_vidstab").Status)

	audio := findItem(t, report, "audio_encoders")
	assert.Equal(t, StatusWarn, audio.Status)
	assert.Equal(t, "Missing: amr-nb, amr-wb, ilbc, mp3-shine, speex, wavpack", audio.Message)
}

func TestCheckerRunBuildWithoutSoxr(t *testing.T) {
	// aresample is present in every build, so only the configure flags tell.
	buildconf := strings.ReplaceAll(buildconfOutput, "    --enable-libsoxr\n", "")
	kit := session.New(session.Options{Runner: ffmpegRunner{encoders: encodersOutput, filters: filtersOutput, buildconf: buildconf}})
	defer kit.Close()

	checker := NewCheckerForTests(kit, foundTools, os.MkdirAll, os.CreateTemp, os.Remove)
	report := checker.Run(settingsIn(t.TempDir()))

	audio := findItem(t, report, "audio_encoders")
	assert.Equal(t, StatusWarn, audio.Status)
	assert.Equal(t, "Missing: amr-nb, amr-wb, ilbc, mp3-shine, soxr, speex, wavpack", audio.Message)
}

func TestCheckerRunMissingTools(t *testing.T) {
	kit := session.New(session.Options{Runner: ffmpegRunner{}})
	defer kit.Close()

	checker := NewCheckerForTests(kit,
		func(string) (string, error) { return "", errors.New("not found") },
		os.MkdirAll, os.CreateTemp, os.Remove,
	)
	report := checker.Run(settingsIn(t.TempDir()))

	assert.True(t, report.HasFailures)
	assert.Equal(t, StatusFail, findItem(t, report, "tool_ffmpeg").Status)
	assert.Equal(t, StatusFail, findItem(t, report, "tool_ffprobe").Status)
	assert.Len(t, report.Items, 4, "build checks need ffmpeg")
	assert.Empty(t, kit.Sessions())
	assert.Equal(t, "Failed: ffmpeg, ffprobe", report.Summary())
}

func TestCheckerRunUnwritableDir(t *testing.T) {
	checker := NewCheckerForTests(nil, foundTools, os.MkdirAll,
		func(string, string) (*os.File, error) { return nil, os.ErrPermission },
		os.Remove,
	)
	report := checker.Run(settingsIn(t.TempDir()))

	assert.True(t, report.HasFailures)
	item := findItem(t, report, "files_dir")
	assert.Equal(t, StatusFail, item.Status)
	assert.Contains(t, item.Message, "not writable")
}

func TestCheckerRunBuildWithoutVidStab(t *testing.T) {
	kit := session.New(session.Options{Runner: ffmpegRunner{encoders: encodersOutput, filters: "Filters:\n  ... aresample  A->A  Resample audio data."}})
	defer kit.Close()

	checker := NewCheckerForTests(kit, foundTools, os.MkdirAll, os.CreateTemp, os.Remove)
	report := checker.Run(settingsIn(t.TempDir()))

	assert.False(t, report.HasFailures)
	vidstab := findItem(t, report, "filter_vidstab")
	assert.Equal(t, StatusWarn, vidstab.Status)
	assert.NotEmpty(t, vidstab.Hint)
}

func TestCheckerRunFFmpegErrors(t *testing.T) {
	kit := session.New(session.Options{Runner: ffmpegRunner{code: 1}})
	defer kit.Close()

	checker := NewCheckerForTests(kit, foundTools, os.MkdirAll, os.CreateTemp, os.Remove)
	report := checker.Run(settingsIn(t.TempDir()))

	assert.True(t, report.HasFailures)
	assert.Contains(t, findItem(t, report, "encoder_mpeg4").Message, "rc 1")
}

func TestWriteReport(t *testing.T) {
	r := Report{
		HasFailures: true,
		Items: []Item{
			{Name: "ffmpeg", Status: StatusPass, Message: "Found at /usr/bin/ffmpeg"},
			{Name: "ffprobe", Status: StatusFail, Message: "Tool not found: ffprobe", Hint: "Install ffprobe"},
		},
	}
	var buf bytes.Buffer
	WriteReport(&buf, r)

	out := buf.String()
	assert.Contains(t, out, "[PASS] ffmpeg")
	assert.Contains(t, out, "[FAIL] ffprobe")
	assert.Contains(t, out, "Install ffprobe")
	assert.Contains(t, out, "Some checks failed.")
	require.Equal(t, "Failed: ffprobe", r.Summary())
}
