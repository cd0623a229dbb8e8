// pattern: Imperative Shell

package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/term"
	"github.com/creack/pty"

	"reposync/internal/logging"
)

// Command is one external program invocation.
type Command struct {
	Name   string
	Args   []string
	Dir    string   // working directory; empty means the process working directory
	Env    []string // KEY=VALUE pairs appended to the inherited environment
	Silent bool     // capture output instead of streaming it
}

// String renders the command line, quoting arguments that contain spaces.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Result is the outcome of a Command. Failures are data: a non-zero exit
// and a failure to spawn both produce Success=false.
type Result struct {
	Success  bool
	Output   string // combined stdout/stderr, escape sequences stripped; partial on failure
	ExitCode int    // -1 when the process could not be started
	Err      error
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// Func adapts a function to Runner. Tests use it to script command results.
type Func func(ctx context.Context, cmd Command) Result

// Run calls f.
func (f Func) Run(ctx context.Context, cmd Command) Result {
	return f(ctx, cmd)
}

// Options configures Exec.
type Options struct {
	Stdout io.Writer // live output of non-silent commands; defaults to os.Stdout
	Stdin  io.Reader // input of non-silent commands; defaults to os.Stdin
	Logger *logging.ScopedLogger
	PTY    bool // stream non-silent commands through a pseudo-terminal
	Quiet  bool // treat every command as silent
}

// Exec runs commands with os/exec.
type Exec struct {
	stdout io.Writer
	stdin  io.Reader
	input  *inputPump
	logger *logging.ScopedLogger
	usePTY bool
	quiet  bool
}

// New creates an Exec runner.
func New(opts Options) *Exec {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger()
	}
	return &Exec{
		stdout: opts.Stdout,
		stdin:  opts.Stdin,
		input:  &inputPump{src: opts.Stdin},
		logger: opts.Logger,
		usePTY: opts.PTY,
		quiet:  opts.Quiet,
	}
}

// Run executes cmd and waits for it to finish.
func (e *Exec) Run(ctx context.Context, cmd Command) Result {
	e.logger.Debug("running command", "command", cmd.String(), "dir", cmd.Dir, "silent", cmd.Silent || e.quiet)

	var (
		output []byte
		err    error
	)
	if cmd.Silent || e.quiet {
		output, err = e.build(ctx, cmd).CombinedOutput()
	} else {
		output, err = e.stream(ctx, cmd)
	}

	res := resultFrom(output, err)
	if !res.Success {
		e.logger.Debug("command failed", "command", cmd.String(), "exit_code", res.ExitCode, "output", tail(res.Output, 2000))
	}
	return res
}

func (e *Exec) build(ctx context.Context, cmd Command) *exec.Cmd {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	return c
}

// stream runs cmd with live output, keeping the tail for the Result.
func (e *Exec) stream(ctx context.Context, cmd Command) ([]byte, error) {
	buf := &tailBuffer{limit: 64 << 10}
	out := io.MultiWriter(e.stdout, buf)

	if e.usePTY {
		c := e.build(ctx, cmd)
		ptmx, err := pty.Start(c)
		if err == nil {
			restore := e.attachTerminal(ptmx)
			done := make(chan struct{})
			go e.input.forward(ptmx, done)

			_, copyErr := io.Copy(out, ptmx)
			waitErr := c.Wait()
			close(done)
			restore()
			_ = ptmx.Close()
			// Reading a pty whose child exited returns EIO on Linux.
			if copyErr != nil && !errors.Is(copyErr, syscall.EIO) && waitErr == nil {
				e.logger.Debug("pty copy failed", "command", cmd.String(), "error", copyErr)
			}
			return buf.Bytes(), waitErr
		}
		e.logger.Debug("pty unavailable, streaming through pipes", "error", err)
	}

	c := e.build(ctx, cmd)
	c.Stdin = e.stdin
	c.Stdout = out
	c.Stderr = out
	err := c.Run()
	return buf.Bytes(), err
}

// attachTerminal sizes ptmx like the local terminal and switches the
// terminal to raw mode so keystrokes reach the child unbuffered. The
// returned func undoes the mode change.
func (e *Exec) attachTerminal(ptmx *os.File) func() {
	f, ok := e.stdin.(*os.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return func() {}
	}
	_ = pty.InheritSize(f, ptmx)
	state, err := term.MakeRaw(f.Fd())
	if err != nil {
		e.logger.Debug("raw mode unavailable", "error", err)
		return func() {}
	}
	return func() { _ = term.Restore(f.Fd(), state) }
}

// inputPump reads src on one goroutine for the lifetime of the runner.
// Input arriving between two commands goes to the next one.
type inputPump struct {
	src   io.Reader
	once  sync.Once
	chunk chan []byte
}

func (p *inputPump) start() {
	p.chunk = make(chan []byte)
	go func() {
		defer close(p.chunk)
		buf := make([]byte, 1024)
		for {
			n, err := p.src.Read(buf)
			if n > 0 {
				p.chunk <- append([]byte(nil), buf[:n]...)
			}
			if err != nil {
				return
			}
		}
	}()
}

// forward copies input to w until done is closed or the source is exhausted.
func (p *inputPump) forward(w io.Writer, done <-chan struct{}) {
	p.once.Do(p.start)
	for {
		select {
		case <-done:
			return
		case data, ok := <-p.chunk:
			if !ok {
				return
			}
			// Errors are non-fatal: the child may already have exited.
			_, _ = w.Write(data)
		}
	}
}

func resultFrom(output []byte, err error) Result {
	text := ansi.Strip(string(output))
	if err == nil {
		return Result{Success: true, Output: text}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{Output: text, ExitCode: exitErr.ExitCode(), Err: err}
	}
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return Result{Output: text + err.Error(), ExitCode: -1, Err: err}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
	if over := b.buf.Len() - b.limit; over > 0 {
		b.buf.Next(over)
	}
	return len(p), nil
}

func (b *tailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
