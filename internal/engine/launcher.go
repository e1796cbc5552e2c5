package engine

import (
	"errors"
	"io"
	"os"
	"os/exec"
)

// process is one running invocation of the migration tool.
type process interface {
	PID() int
	Stdout() io.Reader
	Stderr() io.Reader
	Signal(sig os.Signal) error
	Kill() error
	// Wait blocks until the process exits and returns its exit code.
	Wait() (int, error)
}

// launcher spawns the migration tool. Swapped for a fake in tests.
type launcher interface {
	Launch(path string, args []string, extraEnv []string) (process, error)
}

type execLauncher struct{}

func (execLauncher) Launch(path string, args []string, extraEnv []string) (process, error) {
	cmd := exec.Command(path, args...)
	cmd.Env = append(os.Environ(), extraEnv...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &osProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type osProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (p *osProcess) PID() int                  { return p.cmd.Process.Pid }
func (p *osProcess) Stdout() io.Reader         { return p.stdout }
func (p *osProcess) Stderr() io.Reader         { return p.stderr }
func (p *osProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }
func (p *osProcess) Kill() error               { return p.cmd.Process.Kill() }

func (p *osProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}
