// ABOUTME: Launches local MATLAB worker processes and connects to them over stdio.
// ABOUTME: The worker speaks the line-delimited JSON protocol from wire.go.

package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultStartupTimeout bounds how long we wait for a fresh worker to answer
// its first ping. MATLAB cold starts are slow; a minute is generous but real.
const DefaultStartupTimeout = 90 * time.Second

// Launcher starts local MATLAB worker processes.
type Launcher struct {
	// Command is the worker launch command line, e.g.
	// ["matlab", "-nodesktop", "-nosplash", "-batch", "matlabgateway.worker"].
	Command []string
	// StartupTimeout overrides DefaultStartupTimeout when positive.
	StartupTimeout time.Duration
	Logger         *slog.Logger
}

// stdioStream joins a child's stdin/stdout pipes into one ReadWriteCloser.
type stdioStream struct {
	io.Reader
	io.WriteCloser
}

func (s stdioStream) Close() error {
	return s.WriteCloser.Close()
}

// Start launches a worker process and waits for it to become responsive.
// The returned handle owns the process; Close reaps it.
func (l *Launcher) Start(ctx context.Context) (Handle, error) {
	if len(l.Command) == 0 {
		return nil, fmt.Errorf("no worker launch command configured")
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.Command(l.Command[0], l.Command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker %q: %w", strings.Join(l.Command, " "), err)
	}
	logger.Info("MATLAB worker started", "pid", cmd.Process.Pid)

	// Drain stderr into the log so engine diagnostics are not lost.
	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			logger.Debug("matlab worker stderr", "pid", cmd.Process.Pid, "line", sc.Text())
		}
	}()

	c := newConn(stdioStream{Reader: stdout, WriteCloser: stdin}, func() error {
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			logger.Warn("MATLAB worker did not exit, killing", "pid", cmd.Process.Pid)
			_ = cmd.Process.Kill()
			return <-done
		}
	})

	timeout := l.StartupTimeout
	if timeout <= 0 {
		timeout = DefaultStartupTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := ping(pingCtx, c); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("worker failed readiness check: %w", err)
	}

	logger.Info("MATLAB worker ready", "pid", cmd.Process.Pid)
	return c, nil
}

// ping issues the protocol's no-op request. The first ping doubles as the
// readiness barrier for freshly started workers.
func ping(ctx context.Context, c *conn) error {
	type result struct {
		resp wireResponse
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := c.call(ctx, "ping", nil)
		ch <- result{resp, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return r.err
		}
		if r.resp.Error != "" {
			return fmt.Errorf("ping rejected: %s", r.resp.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
