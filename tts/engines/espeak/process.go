package espeak

import (
	"context"
	"os/exec"
	"strings"
)

// Process is a running speech subprocess.
type Process interface {
	// Wait blocks until the process exits.
	Wait() error
	Pause() error
	Resume() error
	Kill() error
}

// Runner starts speech subprocesses.
type Runner interface {
	LookPath(file string) (string, error)
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	Start(name string, args []string, stdin string) (Process, error)
}

// ExecRunner runs real subprocesses.
type ExecRunner struct{}

// LookPath searches PATH for file.
func (ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Output runs name and returns its standard output.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Start launches name with stdin attached before the process starts.
func (ExecRunner) Start(name string, args []string, stdin string) (Process, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Pause() error {
	return suspend(p.cmd.Process)
}

func (p *execProcess) Resume() error {
	return cont(p.cmd.Process)
}

// Kill continues a suspended process first so it can die.
func (p *execProcess) Kill() error {
	_ = cont(p.cmd.Process)
	return p.cmd.Process.Kill()
}
