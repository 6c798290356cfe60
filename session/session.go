package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Session is one submitted command execution. All accessors are safe for
// concurrent use.
type Session struct {
	id         int64
	kind       Kind
	arguments  []string
	createTime time.Time

	executeCallback    ExecuteCallback
	logCallback        LogCallback
	statisticsCallback StatisticsCallback

	mu             sync.Mutex
	state          State
	returnCode     ReturnCode
	failStackTrace string
	startTime      time.Time
	endTime        time.Time
	logs           []Log
	statistics     []Statistics
	cancel         context.CancelFunc
	cancelled      bool

	done chan struct{}
}

func newSession(id int64, kind Kind, args []string, execCb ExecuteCallback, logCb LogCallback, statsCb StatisticsCallback) *Session {
	return &Session{
		id:                 id,
		kind:               kind,
		arguments:          append([]string(nil), args...),
		createTime:         time.Now(),
		executeCallback:    execCb,
		logCallback:        logCb,
		statisticsCallback: statsCb,
		state:              StateCreated,
		returnCode:         ReturnCodeUnset,
		done:               make(chan struct{}),
	}
}

// ID returns the session id. Ids are never zero.
func (s *Session) ID() int64 { return s.id }

// Kind returns the binary this session runs.
func (s *Session) Kind() Kind { return s.kind }

// Arguments returns a copy of the argument list.
func (s *Session) Arguments() []string {
	return append([]string(nil), s.arguments...)
}

// Command returns the arguments joined for display.
func (s *Session) Command() string {
	return ArgumentsToString(s.arguments)
}

// CreateTime returns when the session was submitted.
func (s *Session) CreateTime() time.Time { return s.createTime }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ReturnCode() ReturnCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.returnCode
}

// FailStackTrace describes why a FAILED session could not run.
func (s *Session) FailStackTrace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failStackTrace
}

func (s *Session) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime
}

func (s *Session) EndTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endTime
}

// Duration is the run time so far, or the total run time once finished.
func (s *Session) Duration() time.Duration {
	return s.Snapshot().Duration()
}

// Logs returns a copy of every output line received so far.
func (s *Session) Logs() []Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Log(nil), s.logs...)
}

// Output returns all log messages joined by newlines.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, len(s.logs))
	for i, l := range s.logs {
		lines[i] = l.Message
	}
	return strings.Join(lines, "\n")
}

// Statistics returns a copy of every progress report received so far.
func (s *Session) Statistics() []Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Statistics(nil), s.statistics...)
}

// LastStatistics returns the latest progress report, if any.
func (s *Session) LastStatistics() (Statistics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statistics) == 0 {
		return Statistics{}, false
	}
	return s.statistics[len(s.statistics)-1], true
}

// Done is closed once the session has finished and its callback returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session finishes or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a plain copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:             s.id,
		Kind:           s.kind,
		Command:        ArgumentsToString(s.arguments),
		State:          s.state,
		ReturnCode:     s.returnCode,
		FailStackTrace: s.failStackTrace,
		CreateTime:     s.createTime,
		StartTime:      s.startTime,
		EndTime:        s.endTime,
		LogLines:       len(s.logs),
	}
}

func (s *Session) isFinished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// requestCancel marks the session cancelled and stops its process.
func (s *Session) requestCancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancelled = true
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// release frees the session context without marking it cancelled.
func (s *Session) release() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) wasCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *Session) markRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateRunning
	s.startTime = time.Now()
}

func (s *Session) complete(rc ReturnCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateCompleted
	s.returnCode = rc
	s.endTime = time.Now()
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.failStackTrace = err.Error()
	s.endTime = time.Now()
}

func (s *Session) appendLog(l Log) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
}

func (s *Session) appendStatistics(st Statistics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statistics = append(s.statistics, st)
}
