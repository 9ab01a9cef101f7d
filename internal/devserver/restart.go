package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/RoJaebl/portfolio/internal/ctxlog"
)

// DefaultGrace is how long a supervised process gets to exit after an
// interrupt before it is killed.
const DefaultGrace = 5 * time.Second

// Restarter keeps one instance of a command running and replaces it every
// time a restart is requested.
type Restarter struct {
	Command []string
	Dir     string
	Env     []string
	Grace   time.Duration
	Stdout  io.Writer
	Stderr  io.Writer
}

// Run starts the command and supervises it until ctx is done. A value on
// restarts stops the current process and starts a new one. If the process
// exits on its own, Run waits for the next restart request.
func (r *Restarter) Run(ctx context.Context, restarts <-chan string) error {
	logger := ctxlog.FromContext(ctx)
	if len(r.Command) == 0 {
		return errors.New("restart strategy needs a command")
	}

	for {
		cmd, exited, err := r.start()
		if err != nil {
			return err
		}
		logger.Info("🔁 Process started", "command", r.Command, "pid", cmd.Process.Pid)

		select {
		case <-ctx.Done():
			r.stop(cmd, exited)
			logger.Info("Process stopped", "pid", cmd.Process.Pid)
			return nil
		case reason := <-restarts:
			logger.Info("Restarting process", "reason", reason)
			r.stop(cmd, exited)
		case err := <-exited:
			if err != nil {
				logger.Warn("Process exited", "error", err)
			} else {
				logger.Info("Process exited")
			}
			logger.Info("Waiting for changes before restart")
			select {
			case <-ctx.Done():
				return nil
			case reason := <-restarts:
				logger.Info("Restarting process", "reason", reason)
			}
		}
	}
}

func (r *Restarter) start() (*exec.Cmd, <-chan error, error) {
	cmd := exec.Command(r.Command[0], r.Command[1:]...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if r.Stdout != nil {
		cmd.Stdout = r.Stdout
	}
	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting %q: %w", r.Command[0], err)
	}
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	return cmd, exited, nil
}

// stop interrupts the process, then kills it once the grace period runs out.
func (r *Restarter) stop(cmd *exec.Cmd, exited <-chan error) {
	grace := r.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		cmd.Process.Kill()
	}
	select {
	case <-exited:
	case <-time.After(grace):
		cmd.Process.Kill()
		<-exited
	}
}
