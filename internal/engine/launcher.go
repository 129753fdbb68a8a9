package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// Process is a running engine with line-oriented pipes.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Wait() error
	Kill() error
	Pid() int
}

// Launcher starts engine processes. Tests substitute an in-memory engine.
type Launcher interface {
	Launch(ctx context.Context, path string, args ...string) (Process, error)
}

// ExecLauncher launches a real executable.
type ExecLauncher struct{}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
}

func (ExecLauncher) Launch(_ context.Context, path string, args ...string) (Process, error) {
	// the process must outlive the request that happened to start it
	cmd := exec.Command(path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine %s: %w", path, err)
	}
	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }
func (p *execProcess) Wait() error           { return p.cmd.Wait() }

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// well-known install locations probed when no path is configured
var binaryCandidates = []string{
	"/usr/games/stockfish",
	"/usr/local/bin/stockfish",
	"/usr/bin/stockfish",
	"/opt/homebrew/bin/stockfish",
}

// FindBinary resolves the engine executable. An explicit path wins, then
// PATH lookup, then a list of common install locations.
func FindBinary(explicit string) (string, error) {
	return findBinary(explicit, binaryCandidates)
}

func findBinary(explicit string, candidates []string) (string, error) {
	if explicit != "" {
		if err := checkExecutable(explicit); err != nil {
			return "", fmt.Errorf("engine binary %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if p, err := exec.LookPath("stockfish"); err == nil {
		return p, nil
	}
	for _, c := range candidates {
		if checkExecutable(c) == nil {
			return filepath.Clean(c), nil
		}
	}
	return "", fmt.Errorf("stockfish binary not found, set STOCKFISH_PATH")
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("not executable")
	}
	return nil
}
