package backend

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"toolview/internal/logging"
)

// Command describes how to launch a backend subprocess.
type Command struct {
	Path string
	Args []string
	Env  []string // appended to the inherited environment
	Dir  string
}

// Process wraps a line-oriented JSON subprocess: writes go to stdin one
// line at a time, stdout lines stream out of Lines, stderr is logged and
// its tail kept for exit diagnostics.
type Process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	wmu   sync.Mutex
	lines chan []byte

	done    chan struct{}
	waitErr error

	stderrMu   sync.Mutex
	stderrTail []string

	closeOnce sync.Once
}

const stderrTailLines = 20

// StartProcess launches the subprocess and begins pumping its stdout.
func StartProcess(command Command) (*Process, error) {
	cmd := exec.Command(command.Path, command.Args...)
	cmd.Dir = command.Dir
	cmd.Env = append(os.Environ(), command.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command.Path, err)
	}

	p := &Process{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan []byte, 32),
		done:  make(chan struct{}),
	}

	go p.pumpStdout(stdout)
	go p.pumpStderr(stderr)
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	logging.Debug("backend process started", "path", command.Path, "pid", cmd.Process.Pid)
	return p, nil
}

func (p *Process) pumpStdout(r io.Reader) {
	defer close(p.lines)
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)
	for scanner.Scan() {
		// Scanner reuses its buffer between calls.
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		p.lines <- line
	}
	if err := scanner.Err(); err != nil {
		logging.Debug("backend stdout closed", "error", err)
	}
}

func (p *Process) pumpStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		logging.Debug("backend stderr", "line", line)
		p.stderrMu.Lock()
		p.stderrTail = append(p.stderrTail, line)
		if len(p.stderrTail) > stderrTailLines {
			p.stderrTail = p.stderrTail[len(p.stderrTail)-stderrTailLines:]
		}
		p.stderrMu.Unlock()
	}
}

// Lines returns the stdout line stream. The channel closes when the
// process exits or stdout is closed.
func (p *Process) Lines() <-chan []byte {
	return p.lines
}

// WriteLine sends one line to the subprocess stdin.
func (p *Process) WriteLine(b []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	if _, err := p.stdin.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write to backend: %w", err)
	}
	return nil
}

// Signal delivers a signal to the subprocess, typically SIGINT for an
// interrupt.
func (p *Process) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Signal(sig)
}

// Done is closed once the subprocess has been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitErr returns the subprocess exit error, decorated with the stderr
// tail when one was captured. It is only meaningful after Done is closed.
func (p *Process) ExitErr() error {
	if p.waitErr == nil {
		return nil
	}
	p.stderrMu.Lock()
	tail := strings.Join(p.stderrTail, "\n")
	p.stderrMu.Unlock()
	if tail == "" {
		return p.waitErr
	}
	return fmt.Errorf("%w\n%s", p.waitErr, tail)
}

// Close shuts the subprocess down: stdin is closed to signal EOF, then the
// process receives SIGTERM, escalating to SIGKILL if it lingers.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.stdin.Close()
		if p.cmd.Process != nil {
			p.cmd.Process.Signal(syscall.SIGTERM)
		}
		go func() {
			select {
			case <-p.done:
			case <-time.After(3 * time.Second):
				if p.cmd.Process != nil {
					p.cmd.Process.Kill()
				}
			}
		}()
	})
	<-p.done
	return p.waitErr
}
