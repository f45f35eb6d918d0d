// SPDX-License-Identifier: MIT

// Package ffcmd wraps external decoder/encoder tools in a scoped process
// abstraction: process-group spawn, stderr tail capture, and guaranteed
// termination with handle closure on every exit path.
package ffcmd

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/swapline/swapline/internal/log"
	"github.com/swapline/swapline/internal/metrics"
	"github.com/swapline/swapline/internal/procgroup"
)

// Options describes one external process invocation.
type Options struct {
	Tool   string   // short name for logs and metrics ("ffmpeg", "ffprobe")
	Path   string   // binary path or name resolved via PATH
	Args   []string // argument vector, no shell involved
	Grace  time.Duration
	Stdout bool // expose a stdout pipe (raw frame reading)
	Stdin  bool // expose a stdin pipe (raw frame writing)
}

// Proc is a running external process. It must be owned by a single
// goroutine; Wait and Terminate consume the same exit result exactly once.
type Proc struct {
	tool  string
	args  []string
	cmd   *exec.Cmd
	ring  *LineRing
	grace time.Duration

	stdout io.ReadCloser
	stdin  io.WriteCloser

	waitCh   chan error
	waitOnce sync.Once
	waitErr  error
}

// Start launches the process. The context cancels the process via
// exec.CommandContext in addition to the explicit Terminate path.
func Start(ctx context.Context, opts Options) (*Proc, error) {
	if opts.Path == "" {
		return nil, errors.New("ffcmd: empty binary path")
	}
	if opts.Tool == "" {
		opts.Tool = opts.Path
	}

	p := &Proc{
		tool:   opts.Tool,
		args:   opts.Args,
		ring:   NewLineRing(256),
		grace:  opts.Grace,
		waitCh: make(chan error, 1),
	}

	p.cmd = exec.CommandContext(ctx, opts.Path, opts.Args...) // #nosec G204 -- argv built by arg builders, no shell
	procgroup.Set(p.cmd)

	// Pipes are created by hand and handed to the Cmd as plain files.
	// The exec pipe helpers close the parent's ends inside cmd.Wait the
	// moment the process exits, which discards anything still buffered
	// when the consumer lags behind the tool. With plain files cmd.Wait
	// leaves the parent's ends alone; a reader drains to a true EOF no
	// matter when the tool exits.
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return nil, &Error{Tool: p.tool, Args: p.args, ExitCode: -1, Err: err}
	}
	p.cmd.Stderr = stderrW
	childEnds := []*os.File{stderrW}
	parentEnds := []*os.File{stderrR}

	if opts.Stdout {
		r, w, err := os.Pipe()
		if err != nil {
			closeFiles(childEnds, parentEnds)
			return nil, &Error{Tool: p.tool, Args: p.args, ExitCode: -1, Err: err}
		}
		p.cmd.Stdout = w
		p.stdout = r
		childEnds = append(childEnds, w)
		parentEnds = append(parentEnds, r)
	}
	if opts.Stdin {
		r, w, err := os.Pipe()
		if err != nil {
			closeFiles(childEnds, parentEnds)
			return nil, &Error{Tool: p.tool, Args: p.args, ExitCode: -1, Err: err}
		}
		p.cmd.Stdin = r
		p.stdin = w
		childEnds = append(childEnds, r)
		parentEnds = append(parentEnds, w)
	}

	logger := log.WithComponentFromContext(ctx, "ffcmd")
	logger.Debug().Str("tool", p.tool).Str("command", p.cmd.String()).Msg("starting external process")

	if err := p.cmd.Start(); err != nil {
		closeFiles(childEnds, parentEnds)
		metrics.IncSubprocessStart(p.tool, "error")
		return nil, &Error{Tool: p.tool, Args: p.args, ExitCode: -1, Err: err}
	}
	metrics.IncSubprocessStart(p.tool, "ok")

	// The child owns its copies now; the parent's child-side ends must go
	// or readers would never see EOF.
	closeFiles(childEnds)

	var ioWg sync.WaitGroup
	ioWg.Add(1)
	go func() {
		defer ioWg.Done()
		defer func() { _ = stderrR.Close() }()
		scanner := bufio.NewScanner(stderrR)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			_, _ = p.ring.Write(scanner.Bytes())
			_, _ = p.ring.Write([]byte("\n"))
		}
	}()

	go func() {
		err := p.cmd.Wait()
		ioWg.Wait()
		p.waitCh <- err
		close(p.waitCh)
	}()

	return p, nil
}

// Stdout returns the stdout pipe. Valid only when started with Stdout.
func (p *Proc) Stdout() io.Reader {
	return p.stdout
}

// Stdin returns the stdin pipe. Valid only when started with Stdin. The
// caller must close it to signal EOF to the tool.
func (p *Proc) Stdin() io.WriteCloser {
	return p.stdin
}

// Wait blocks until the process exits and returns nil on a clean exit or
// an *Error carrying the exit code and stderr tail. The parent's pipe
// ends stay open across the exit itself, so Stdout drains every buffered
// byte down to a true io.EOF regardless of when the tool finished; Wait
// closes them once the result is recorded, so finish reading before
// calling it.
func (p *Proc) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.finalize(<-p.waitCh)
	})
	return p.waitErr
}

// Terminate stops the process group (SIGTERM, grace, SIGKILL) and returns
// the final exit result. Safe to call after a clean exit; the kill becomes
// a no-op and the stored result is returned.
func (p *Proc) Terminate() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.finalize(procgroup.Terminate(p.cmd, p.waitCh, p.grace))
	})
	return p.waitErr
}

// LastLogLines returns the most recent stderr lines for diagnostics.
func (p *Proc) LastLogLines(n int) []string {
	return p.ring.LastN(n)
}

func (p *Proc) finalize(err error) error {
	if p.stdout != nil {
		_ = p.stdout.Close()
	}
	if p.stdin != nil {
		_ = p.stdin.Close()
	}

	if err == nil {
		metrics.IncSubprocessExit(p.tool, "clean")
		return nil
	}

	metrics.IncSubprocessExit(p.tool, "error")
	code := 1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &Error{
		Tool:     p.tool,
		Args:     p.args,
		ExitCode: code,
		Stderr:   p.ring.LastN(20),
		Err:      err,
	}
}

func closeFiles(groups ...[]*os.File) {
	for _, files := range groups {
		for _, f := range files {
			_ = f.Close()
		}
	}
}
