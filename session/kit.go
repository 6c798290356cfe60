package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultAsyncConcurrency = 10
	DefaultHistorySize      = 10

	recordTimeout = 5 * time.Second
)

// Recorder persists finished sessions.
type Recorder interface {
	Record(ctx context.Context, snap Snapshot) error
}

// Options configures a Kit. Zero values select the defaults.
type Options struct {
	FFmpegPath       string
	FFprobePath      string
	Runner           Runner
	Logger           *zap.Logger
	AsyncConcurrency int
	HistorySize      int
	Recorder         Recorder
}

// Kit runs ffmpeg and ffprobe commands as sessions.
type Kit struct {
	ffmpegPath  string
	ffprobePath string
	runner      Runner
	logger      *zap.Logger
	recorder    Recorder
	historySize int
	slots       *semaphore.Weighted

	nextID atomic.Int64

	mu                 sync.Mutex
	sessions           map[int64]*Session
	order              []int64
	logCallback        LogCallback
	statisticsCallback StatisticsCallback

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// New creates a Kit.
func New(opts Options) *Kit {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if opts.Runner == nil {
		opts.Runner = NewExecRunner()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.AsyncConcurrency <= 0 {
		opts.AsyncConcurrency = DefaultAsyncConcurrency
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Kit{
		ffmpegPath:  opts.FFmpegPath,
		ffprobePath: opts.FFprobePath,
		runner:      opts.Runner,
		logger:      opts.Logger,
		recorder:    opts.Recorder,
		historySize: opts.HistorySize,
		slots:       semaphore.NewWeighted(int64(opts.AsyncConcurrency)),
		sessions:    make(map[int64]*Session),
		ctx:         ctx,
		stop:        stop,
	}
}

// Execute runs an ffmpeg command on the calling goroutine.
func (k *Kit) Execute(command string) *Session {
	return k.ExecuteWithArguments(ParseArguments(command))
}

// ExecuteWithArguments runs ffmpeg with args on the calling goroutine.
func (k *Kit) ExecuteWithArguments(args []string) *Session {
	return k.executeSync(KindFFmpeg, args)
}

// ExecuteAsync submits an ffmpeg command and returns without waiting.
// cb is invoked once the session has finished.
func (k *Kit) ExecuteAsync(command string, cb ExecuteCallback) *Session {
	return k.ExecuteWithArgumentsAsync(ParseArguments(command), cb, nil, nil)
}

// ExecuteWithArgumentsAsync submits ffmpeg with args. The session callbacks
// run before the global ones.
func (k *Kit) ExecuteWithArgumentsAsync(args []string, cb ExecuteCallback, logCb LogCallback, statsCb StatisticsCallback) *Session {
	s, ctx := k.register(KindFFmpeg, args, cb, logCb, statsCb)

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		k.run(ctx, s, true)
	}()
	return s
}

// EnableLogCallback sets the global log callback; nil disables it.
func (k *Kit) EnableLogCallback(cb LogCallback) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.logCallback = cb
}

// EnableStatisticsCallback sets the global statistics callback; nil disables it.
func (k *Kit) EnableStatisticsCallback(cb StatisticsCallback) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.statisticsCallback = cb
}

// Cancel stops the session with the given id. Unknown ids are ignored and
// zero cancels every session.
func (k *Kit) Cancel(id int64) {
	if id == 0 {
		k.CancelAll()
		return
	}
	k.mu.Lock()
	s, ok := k.sessions[id]
	k.mu.Unlock()
	if !ok || s.isFinished() {
		return
	}
	k.logger.Debug("cancelling session", zap.Int64("session_id", id))
	s.requestCancel()
}

// CancelAll stops every unfinished session.
func (k *Kit) CancelAll() {
	k.mu.Lock()
	var pending []*Session
	for _, s := range k.sessions {
		if !s.isFinished() {
			pending = append(pending, s)
		}
	}
	k.mu.Unlock()

	k.logger.Debug("cancelling all sessions", zap.Int("count", len(pending)))
	for _, s := range pending {
		s.requestCancel()
	}
}

// Session returns the session with the given id, if still in history.
func (k *Kit) Session(id int64) (*Session, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.sessions[id]
	return s, ok
}

// Sessions returns the session history, oldest first.
func (k *Kit) Sessions() []*Session {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]*Session, 0, len(k.order))
	for _, id := range k.order {
		out = append(out, k.sessions[id])
	}
	return out
}

// LastSession returns the most recently submitted session, or nil.
func (k *Kit) LastSession() *Session {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.order) == 0 {
		return nil
	}
	return k.sessions[k.order[len(k.order)-1]]
}

// ClearSessions drops finished sessions from history. Unfinished sessions stay
// so they can still be cancelled.
func (k *Kit) ClearSessions() {
	k.mu.Lock()
	defer k.mu.Unlock()
	kept := k.order[:0]
	for _, id := range k.order {
		if k.sessions[id].isFinished() {
			delete(k.sessions, id)
			continue
		}
		kept = append(kept, id)
	}
	k.order = kept
}

// Close cancels every session and waits for async sessions to finish.
func (k *Kit) Close() {
	k.stop()
	k.wg.Wait()
}

func (k *Kit) executeSync(kind Kind, args []string) *Session {
	s, ctx := k.register(kind, args, nil, nil, nil)
	k.run(ctx, s, false)
	return s
}

func (k *Kit) register(kind Kind, args []string, cb ExecuteCallback, logCb LogCallback, statsCb StatisticsCallback) (*Session, context.Context) {
	s := newSession(k.nextID.Add(1), kind, args, cb, logCb, statsCb)
	ctx, cancel := context.WithCancel(k.ctx)
	s.setCancel(cancel)

	k.mu.Lock()
	k.sessions[s.id] = s
	k.order = append(k.order, s.id)
	k.evictLocked()
	k.mu.Unlock()
	return s, ctx
}

// evictLocked trims history to historySize, skipping unfinished sessions.
func (k *Kit) evictLocked() {
	excess := len(k.order) - k.historySize
	if excess <= 0 {
		return
	}
	kept := make([]int64, 0, len(k.order))
	for _, id := range k.order {
		if excess > 0 && k.sessions[id].isFinished() {
			delete(k.sessions, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	k.order = kept
}

func (k *Kit) binary(kind Kind) string {
	if kind == KindFFprobe {
		return k.ffprobePath
	}
	return k.ffmpegPath
}

func (k *Kit) run(ctx context.Context, s *Session, async bool) {
	defer k.finish(s)
	defer s.release()

	if async {
		if err := k.slots.Acquire(ctx, 1); err != nil {
			k.logger.Debug("session cancelled before start", zap.Int64("session_id", s.id))
			s.complete(ReturnCodeCancel)
			return
		}
		defer k.slots.Release(1)
	}

	s.markRunning()
	name := k.binary(s.kind)
	k.logger.Info("session started",
		zap.Int64("session_id", s.id),
		zap.String("binary", name),
		zap.Strings("args", s.arguments),
	)

	code, err := k.runner.Run(ctx, name, s.arguments, func(stream Stream, line string) {
		k.deliver(s, stream, line)
	})

	switch {
	case s.wasCancelled() || ctx.Err() != nil:
		s.complete(ReturnCodeCancel)
	case err != nil:
		s.fail(err)
	default:
		s.complete(ReturnCode(code))
	}
}

// deliver hands one output line to the session and the callbacks.
func (k *Kit) deliver(s *Session, stream Stream, line string) {
	entry := Log{SessionID: s.id, Stream: stream, Message: line, Time: time.Now()}
	s.appendLog(entry)

	k.mu.Lock()
	globalLog := k.logCallback
	globalStats := k.statisticsCallback
	k.mu.Unlock()

	if s.logCallback != nil {
		k.guard(s.id, "log", func() { s.logCallback(entry) })
	}
	if globalLog != nil {
		k.guard(s.id, "log", func() { globalLog(entry) })
	}

	if s.kind != KindFFmpeg || stream != StreamStderr {
		return
	}
	stats, ok := ParseStatistics(s.id, line)
	if !ok {
		return
	}
	s.appendStatistics(stats)
	if s.statisticsCallback != nil {
		k.guard(s.id, "statistics", func() { s.statisticsCallback(stats) })
	}
	if globalStats != nil {
		k.guard(s.id, "statistics", func() { globalStats(stats) })
	}
}

func (k *Kit) finish(s *Session) {
	snap := s.Snapshot()
	k.logger.Info("session finished",
		zap.Int64("session_id", snap.ID),
		zap.Stringer("state", snap.State),
		zap.Stringer("return_code", snap.ReturnCode),
		zap.Duration("duration", snap.Duration()),
	)

	if k.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := k.recorder.Record(ctx, snap); err != nil {
			k.logger.Warn("failed to record session", zap.Int64("session_id", snap.ID), zap.Error(err))
		}
		cancel()
	}

	if s.executeCallback != nil {
		k.guard(s.id, "execute", func() { s.executeCallback(s) })
	}
	close(s.done)

	k.mu.Lock()
	k.evictLocked()
	k.mu.Unlock()
}

// guard runs a user callback, logging instead of crashing on panic.
func (k *Kit) guard(id int64, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			k.logger.Error("callback panicked",
				zap.Int64("session_id", id),
				zap.String("callback", name),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	fn()
}
