package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultExecTimeout bounds one command run.
const DefaultExecTimeout = 30 * time.Second

// ExecConfig configures an ExecSource.
type ExecConfig struct {
	Program    []string
	As         string
	Env        map[string]string
	WorkingDir string
	Timeout    time.Duration
}

// ExecSource collects the stdout of one command.
type ExecSource struct {
	cfg ExecConfig
}

func NewExecSource(cfg ExecConfig) (*ExecSource, error) {
	if len(cfg.Program) == 0 {
		return nil, fmt.Errorf("program is required")
	}
	if cfg.As == "" {
		return nil, fmt.Errorf("exec input requires an entry name")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultExecTimeout
	}
	return &ExecSource{cfg: cfg}, nil
}

func (s *ExecSource) Name() string {
	return fmt.Sprintf("exec(%s)", s.cfg.Program[0])
}

func (s *ExecSource) Collect(ctx context.Context) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.cfg.Program[0], s.cfg.Program[1:]...)
	if s.cfg.WorkingDir != "" {
		cmd.Dir = s.cfg.WorkingDir
	}

	cmd.Env = os.Environ()
	for k, v := range s.cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("command timed out after %s: %s", s.cfg.Timeout, stderrStr)
		}
		if stderrStr != "" {
			return nil, fmt.Errorf("command failed: %w: %s", err, stderrStr)
		}
		return nil, fmt.Errorf("command failed: %w", err)
	}

	return []Item{{Name: s.cfg.As, Content: stdout.Bytes()}}, nil
}
