package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"chess_review/internal/domain"
)

// Probe starts a throwaway engine process, completes the handshake and quits.
// It never touches the shared client's process.
func Probe(ctx context.Context, launcher Launcher, path string, timeout time.Duration) domain.ProbeResult {
	started := time.Now()
	res := domain.ProbeResult{Path: path, Stdout: []string{}}
	finish := func(err error) domain.ProbeResult {
		res.ElapsedMs = time.Since(started).Milliseconds()
		if err != nil {
			res.Error = err.Error()
		} else {
			res.OK = true
		}
		return res
	}

	if launcher == nil {
		launcher = ExecLauncher{}
	}
	proc, err := launcher.Launch(ctx, path)
	if err != nil {
		return finish(fmt.Errorf("spawn: %w", err))
	}
	defer func() {
		_ = proc.Kill()
	}()

	lines := make(chan string, 64)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer func() {
			_ = proc.Wait()
		}()
		defer close(lines)
		scanner := bufio.NewScanner(proc.Stdout())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
	}()

	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	send := func(cmd string) error {
		_, err := io.WriteString(proc.Stdin(), cmd+"\n")
		return err
	}
	expect := func(want EventType) error {
		for {
			select {
			case <-pctx.Done():
				return fmt.Errorf("timed out after %s", timeout)
			case line, ok := <-lines:
				if !ok {
					return fmt.Errorf("engine exited")
				}
				res.Stdout = append(res.Stdout, line)
				ev, err := ParseLine(line)
				if err != nil {
					continue
				}
				if ev.Type == EventID && ev.Key == "name" {
					res.Name = ev.Value
				}
				if ev.Type == want {
					return nil
				}
			}
		}
	}

	if err := send("uci"); err != nil {
		return finish(err)
	}
	if err := expect(EventUCIOK); err != nil {
		return finish(err)
	}
	if err := send("isready"); err != nil {
		return finish(err)
	}
	if err := expect(EventReadyOK); err != nil {
		return finish(err)
	}
	_ = send("quit")
	return finish(nil)
}

// Probe runs a one-off handshake with the client's configured binary.
func (c *Client) Probe(ctx context.Context) domain.ProbeResult {
	return Probe(ctx, c.launcher, c.cfg.Path, c.cfg.HandshakeTimeout)
}
