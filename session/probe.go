package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrProbeFailed is returned when ffprobe does not exit cleanly.
var ErrProbeFailed = errors.New("ffprobe failed")

// MediaInformation is the subset of ffprobe's JSON report the console shows.
type MediaInformation struct {
	Format  Format              `json:"format"`
	Streams []StreamInformation `json:"streams"`
}

// Format describes the container.
type Format struct {
	Filename       string            `json:"filename"`
	FormatName     string            `json:"format_name"`
	FormatLongName string            `json:"format_long_name"`
	Duration       string            `json:"duration"`
	Size           string            `json:"size"`
	BitRate        string            `json:"bit_rate"`
	Tags           map[string]string `json:"tags,omitempty"`
}

// StreamInformation describes one stream.
type StreamInformation struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecLongName string `json:"codec_long_name"`
	CodecType     string `json:"codec_type"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	PixFmt        string `json:"pix_fmt,omitempty"`
	SampleRate    string `json:"sample_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	ChannelLayout string `json:"channel_layout,omitempty"`
	RFrameRate    string `json:"r_frame_rate,omitempty"`
	AvgFrameRate  string `json:"avg_frame_rate,omitempty"`
	BitRate       string `json:"bit_rate,omitempty"`
}

// Duration returns the container duration, zero when unknown.
func (m *MediaInformation) Duration() time.Duration {
	secs, err := strconv.ParseFloat(m.Format.Duration, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// VideoStreams returns the video streams in index order.
func (m *MediaInformation) VideoStreams() []StreamInformation {
	return m.streamsOfType("video")
}

// AudioStreams returns the audio streams in index order.
func (m *MediaInformation) AudioStreams() []StreamInformation {
	return m.streamsOfType("audio")
}

func (m *MediaInformation) streamsOfType(codecType string) []StreamInformation {
	var out []StreamInformation
	for _, s := range m.Streams {
		if s.CodecType == codecType {
			out = append(out, s)
		}
	}
	return out
}

// FrameRate prefers r_frame_rate and falls back to avg_frame_rate.
func (s StreamInformation) FrameRate() float64 {
	if fps := parseFrameRate(s.RFrameRate); fps > 0 {
		return fps
	}
	return parseFrameRate(s.AvgFrameRate)
}

// MediaInformation probes path with ffprobe on the calling goroutine.
func (k *Kit) MediaInformation(path string) (*MediaInformation, error) {
	s := k.executeSync(KindFFprobe, []string{
		"-v", "error",
		"-hide_banner",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	})

	switch {
	case s.State() == StateFailed:
		return nil, fmt.Errorf("%w: %s", ErrProbeFailed, s.FailStackTrace())
	case !s.ReturnCode().IsSuccess():
		return nil, fmt.Errorf("%w: return code %s", ErrProbeFailed, s.ReturnCode())
	}

	var stdout strings.Builder
	for _, l := range s.Logs() {
		if l.Stream == StreamStdout {
			stdout.WriteString(l.Message)
			stdout.WriteByte('\n')
		}
	}
	return ParseMediaInformation([]byte(stdout.String()))
}

// ParseMediaInformation decodes ffprobe's -print_format json output.
func ParseMediaInformation(data []byte) (*MediaInformation, error) {
	var info MediaInformation
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &info, nil
}

// parseFrameRate reads an ffprobe rate, either a ratio like "24000/1001" or a
// plain number. Unreadable rates are 0.
func parseFrameRate(rate string) float64 {
	num, den, isRatio := strings.Cut(strings.TrimSpace(rate), "/")
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0
	}
	if !isRatio {
		return n
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil || d <= 0 {
		return 0
	}
	return n / d
}
