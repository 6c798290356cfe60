package session

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ffmpeg writes its progress report to stderr as space separated key=value
// pairs. Values may be padded after the equals sign ("frame=   90").
var reportFieldRe = regexp.MustCompile(`(\w+)=\s*(\S+)`)

// ParseStatistics extracts a progress report from one ffmpeg stderr line.
// It returns false for lines that are not progress reports.
func ParseStatistics(sessionID int64, line string) (Statistics, bool) {
	fields := reportFieldRe.FindAllStringSubmatch(strings.TrimSpace(line), -1)
	if len(fields) == 0 {
		return Statistics{}, false
	}

	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f[1]] = f[2]
	}

	timeValue, hasTime := values["time"]
	_, hasSize := values["size"]
	_, hasLSize := values["Lsize"]
	if !hasTime || !(hasSize || hasLSize) {
		return Statistics{}, false
	}

	stats := Statistics{SessionID: sessionID}

	if v, ok := values["frame"]; ok {
		if frame, err := strconv.ParseInt(v, 10, 64); err == nil && frame >= 0 {
			stats.VideoFrameNumber = frame
		}
	}
	if v, ok := values["fps"]; ok {
		if fps, err := strconv.ParseFloat(v, 64); err == nil && fps >= 0 {
			stats.VideoFps = fps
		}
	}
	if v, ok := values["q"]; ok {
		if q, err := strconv.ParseFloat(v, 64); err == nil {
			stats.VideoQuality = q
		}
	}

	sizeValue := values["size"]
	if hasLSize {
		sizeValue = values["Lsize"]
	}
	stats.Size = parseSize(sizeValue)

	if us := parseOutTime(timeValue); us >= 0 {
		stats.Time = time.Duration(us) * time.Microsecond
	}
	if v, ok := values["bitrate"]; ok {
		stats.Bitrate = parseBitrate(v)
	}
	if v, ok := values["speed"]; ok {
		if speed, _, ok := parseSpeed(v); ok {
			stats.Speed = speed
		}
	}

	return stats, true
}

// parseSize converts "512kB", "1024KiB", "3MiB" or "N/A" to bytes.
func parseSize(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "N/A" {
		return 0
	}

	var multiplier int64 = 1
	number := raw
	for _, unit := range []struct {
		suffix string
		factor int64
	}{
		{"KiB", 1024},
		{"kB", 1024},
		{"MiB", 1024 * 1024},
		{"mB", 1024 * 1024},
		{"GiB", 1024 * 1024 * 1024},
		{"B", 1},
	} {
		if strings.HasSuffix(raw, unit.suffix) {
			multiplier = unit.factor
			number = strings.TrimSuffix(raw, unit.suffix)
			break
		}
	}

	n, err := strconv.ParseFloat(number, 64)
	if err != nil || n < 0 {
		return 0
	}
	return int64(n * float64(multiplier))
}

// parseBitrate returns the kbit/s value of "1398.1kbits/s"; "N/A" yields 0.
func parseBitrate(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "N/A" {
		return 0
	}
	raw = strings.TrimSuffix(raw, "kbits/s")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// parseSpeed extracts the multiplier from "1.5x".
// Returns (speed, raw, ok); "N/A" is ok with speed 0.
func parseSpeed(raw string) (float64, string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "N/A" {
		return 0, raw, true
	}
	if !strings.HasSuffix(raw, "x") {
		return 0, raw, false
	}
	speed, err := strconv.ParseFloat(strings.TrimSuffix(raw, "x"), 64)
	if err != nil || speed < 0 {
		return 0, raw, false
	}
	return speed, raw, true
}

// parseOutTime converts a report time such as "00:01:02.50" to microseconds.
// Negative, "N/A" and malformed times give -1.
func parseOutTime(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "N/A" || value[0] == '-' {
		return -1
	}
	clock := strings.Split(value, ":")
	if len(clock) != 3 {
		return -1
	}
	whole, frac, _ := strings.Cut(clock[2], ".")

	var secs int64
	for _, field := range []string{clock[0], clock[1], whole} {
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return -1
		}
		secs = secs*60 + n
	}
	total := secs * 1_000_000
	if frac == "" {
		return total
	}

	// Microsecond precision: pad or cut the fraction to six digits.
	if len(frac) > 6 {
		frac = frac[:6]
	}
	us, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return -1
	}
	for i := len(frac); i < 6; i++ {
		us *= 10
	}
	return total + us
}
