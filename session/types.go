package session

import (
	"strconv"
	"time"
)

// ReturnCode classifies how a finished session ended.
type ReturnCode int

const (
	ReturnCodeUnset   ReturnCode = -1  // Not finished, or the process never ran
	ReturnCodeSuccess ReturnCode = 0   // ffmpeg exited cleanly
	ReturnCodeCancel  ReturnCode = 255 // Cancelled through Cancel / CancelAll
)

// IsSuccess reports whether the code is the success code.
func (rc ReturnCode) IsSuccess() bool {
	return rc == ReturnCodeSuccess
}

// IsCancel reports whether the session was cancelled.
func (rc ReturnCode) IsCancel() bool {
	return rc == ReturnCodeCancel
}

// IsError reports a finished session that neither succeeded nor was cancelled.
func (rc ReturnCode) IsError() bool {
	return rc != ReturnCodeUnset && rc != ReturnCodeSuccess && rc != ReturnCodeCancel
}

func (rc ReturnCode) String() string {
	if rc == ReturnCodeUnset {
		return "none"
	}
	return strconv.Itoa(int(rc))
}

// State is the lifecycle state of a session.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateFailed
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateRunning:
		return "RUNNING"
	case StateFailed:
		return "FAILED"
	case StateCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// Kind tells which binary a session runs.
type Kind string

const (
	KindFFmpeg  Kind = "ffmpeg"
	KindFFprobe Kind = "ffprobe"
)

// Stream identifies the pipe an output line came from.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

// Log is one line of process output.
type Log struct {
	SessionID int64
	Stream    Stream
	Message   string
	Time      time.Time
}

// Statistics is one parsed ffmpeg progress report.
type Statistics struct {
	SessionID        int64
	VideoFrameNumber int64
	VideoFps         float64
	VideoQuality     float64
	Size             int64         // Output size in bytes
	Time             time.Duration // Media time encoded so far
	Bitrate          float64       // kbit/s
	Speed            float64       // Multiple of realtime
}

// ExecuteCallback is invoked once when an async session finishes.
type ExecuteCallback func(s *Session)

// LogCallback receives every output line.
type LogCallback func(l Log)

// StatisticsCallback receives every parsed progress report.
type StatisticsCallback func(s Statistics)

// Snapshot is a plain copy of a session's state.
type Snapshot struct {
	ID             int64
	Kind           Kind
	Command        string
	State          State
	ReturnCode     ReturnCode
	FailStackTrace string
	CreateTime     time.Time
	StartTime      time.Time
	EndTime        time.Time
	LogLines       int
}

// Duration is the wall time between start and end, zero if the session never started.
func (s Snapshot) Duration() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartTime)
}
