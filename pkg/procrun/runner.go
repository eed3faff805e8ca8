// Package procrun spawns one external diagnostic command and streams its
// output incrementally.
//
// The runner deliberately knows nothing about deadlines: timeout enforcement
// belongs to the caller so that decoder flush and partial-output capture
// happen the same way whether a process was killed or failed on its own.
package procrun

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Spec describes the process to spawn.
type Spec struct {
	// Path is the executable name or path, resolved via PATH lookup.
	Path string

	// Args is the argument list, not including Path.
	Args []string
}

// OutputFunc receives one raw chunk of stdout or stderr as it arrives.
// Chunks are delivered in arrival order per stream; the byte slice is only
// valid for the duration of the call.
type OutputFunc func(chunk []byte)

// Handle controls a started process.
type Handle struct {
	cmd *exec.Cmd

	mu     sync.Mutex
	killed bool

	readers sync.WaitGroup
}

const readBufferSize = 4096

// Start spawns the process described by spec and begins streaming output.
//
// onStdout and onStderr are invoked from internal reader goroutines, one per
// stream, so each callback sees its own stream in order but the two streams
// interleave arbitrarily. After Kill returns, no further callbacks fire.
//
// A spawn failure (missing binary, permission denied) is returned as an
// error with no Handle; nothing was started.
func Start(spec Spec, onStdout, onStderr OutputFunc) (*Handle, error) {
	cmd := exec.Command(spec.Path, spec.Args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Path, err)
	}

	h := &Handle{cmd: cmd}
	h.readers.Add(2)
	go h.pump(stdout, onStdout)
	go h.pump(stderr, onStderr)
	return h, nil
}

// pump reads a stream to EOF, forwarding chunks unless the handle was killed.
func (h *Handle) pump(r io.Reader, deliver OutputFunc) {
	defer h.readers.Done()
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.mu.Lock()
			if !h.killed && deliver != nil {
				deliver(buf[:n])
			}
			h.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Kill forcibly terminates the process. Once Kill returns, no further output
// callbacks fire, even if pipe reads are still draining.
func (h *Handle) Kill() {
	h.mu.Lock()
	h.killed = true
	h.mu.Unlock()
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
}

// Wait blocks until the process exits and both output streams are drained.
//
// The returned exit code is non-nil when the process terminated with a
// process-level code (including non-zero). It is nil when no code exists,
// e.g. the process was killed; killed is true in that case when Kill was
// called on this handle.
func (h *Handle) Wait() (exitCode *int, killed bool, err error) {
	h.readers.Wait()
	waitErr := h.cmd.Wait()

	h.mu.Lock()
	killed = h.killed
	h.mu.Unlock()

	if waitErr == nil {
		code := 0
		return &code, killed, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return &code, killed, nil
		}
		// Terminated by signal; no process-level exit code.
		return nil, killed, nil
	}
	return nil, killed, waitErr
}
