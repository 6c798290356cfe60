package session

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Runner executes one external process and streams its output line by line.
// Run returns the process exit code; err is non-nil only when the process
// could not be run at all.
type Runner interface {
	Run(ctx context.Context, name string, args []string, onLine func(stream Stream, line string)) (int, error)
}

// ExecRunner runs processes through os/exec.
type ExecRunner struct {
	// KillDelay is how long a cancelled process gets to exit after the
	// interrupt before it is killed.
	KillDelay time.Duration
}

// NewExecRunner returns a runner with a five second kill delay.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{KillDelay: 5 * time.Second}
}

// Run starts the process and blocks until it exits and its output is drained.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, onLine func(stream Stream, line string)) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	// ffmpeg finalizes its output on SIGINT; only kill if it does not exit.
	cmd.Cancel = func() error {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = r.KillDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return int(ReturnCodeUnset), fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return int(ReturnCodeUnset), fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return int(ReturnCodeUnset), fmt.Errorf("failed to start %s: %w", name, err)
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	emit := func(stream Stream, line string) {
		if onLine == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onLine(stream, line)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		scanOutput(stdout, StreamStdout, emit)
	}()
	go func() {
		defer wg.Done()
		scanOutput(stderr, StreamStderr, emit)
	}()
	wg.Wait()

	err = cmd.Wait()
	if err == nil {
		return int(ReturnCodeSuccess), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code >= 0 {
			return code, nil
		}
		// Terminated by a signal. Only our own cancel counts as a cancel.
		if ctx.Err() != nil {
			return int(ReturnCodeCancel), nil
		}
		return signalExitCode(exitErr), nil
	}
	if errors.Is(err, exec.ErrWaitDelay) || ctx.Err() != nil {
		return int(ReturnCodeCancel), nil
	}
	return int(ReturnCodeUnset), fmt.Errorf("wait for %s: %w", name, err)
}

// signalExitCode follows the shell convention of 128 plus the signal number.
func signalExitCode(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return 1
}

// scanOutput forwards every line of r. ffmpeg rewrites its progress report in
// place with carriage returns, so both \r and \n end a line.
func scanOutput(r io.Reader, stream Stream, emit func(Stream, string)) {
	scanner := bufio.NewScanner(r)
	const maxScannerBuffer = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxScannerBuffer)
	scanner.Split(scanLinesOrCR)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		emit(stream, line)
	}
	// A scanner error leaves the rest of the pipe unread; drain it so the
	// process never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// scanLinesOrCR is bufio.ScanLines that also splits on a lone '\r'.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
