package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"quorum/internal/domain"
)

const defaultShellTimeout = 60 * time.Second

// ShellHandler runs shell commands. Commands finishing within the sync
// threshold return their output directly; longer ones are backgrounded:
// the handler returns an asynchronous Ack carrying a check ID, delivers
// the final output through the invocation's completion callback, and
// answers later check_id polls from its check table.
type ShellHandler struct {
	schema    domain.ActionSchema
	allowed   map[string]bool // first-token allowlist, empty = all
	threshold time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	checks map[string]*shellCheck
}

type shellCheck struct {
	done     bool
	output   string
	exitCode int
	err      error
}

type shellParams struct {
	Command   string `json:"command,omitempty"`
	CheckID   string `json:"check_id,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

// NewShellHandler creates the execute_shell handler.
func NewShellHandler(schema domain.ActionSchema, allowed []string, threshold time.Duration, logger *slog.Logger) *ShellHandler {
	m := make(map[string]bool, len(allowed))
	for _, cmd := range allowed {
		m[cmd] = true
	}
	if threshold <= 0 {
		threshold = 2 * time.Second
	}
	return &ShellHandler{
		schema:    schema,
		allowed:   m,
		threshold: threshold,
		logger:    logger,
		checks:    make(map[string]*shellCheck),
	}
}

func (h *ShellHandler) Kind() domain.ActionKind       { return domain.ActionExecuteShell }
func (h *ShellHandler) ParamsSchema() json.RawMessage { return ParamsSchemaJSON(h.schema) }

func (h *ShellHandler) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	return Execute(ctx, "handler.execute_shell", h.logger, inv,
		func(ctx context.Context, _ trace.Span, p shellParams) (any, error) {
			if p.CheckID != "" {
				return h.poll(p.CheckID)
			}
			return h.runCommand(ctx, inv, p)
		})
}

// poll answers a check_id query for a previously backgrounded command.
func (h *ShellHandler) poll(checkID string) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	check, ok := h.checks[checkID]
	if !ok {
		return nil, domain.NewDomainError("Shell.poll", domain.ErrNotFound, checkID)
	}
	if !check.done {
		return map[string]any{"check_id": checkID, "status": "running"}, nil
	}
	delete(h.checks, checkID)
	if check.err != nil {
		return nil, check.err
	}
	return map[string]any{
		"check_id":  checkID,
		"status":    "done",
		"output":    check.output,
		"exit_code": check.exitCode,
	}, nil
}

func (h *ShellHandler) runCommand(ctx context.Context, inv domain.Invocation, p shellParams) (any, error) {
	if len(h.allowed) > 0 {
		name := strings.Fields(p.Command)
		if len(name) == 0 || !h.allowed[name[0]] {
			return nil, domain.NewDomainError("Shell", domain.ErrActionNotAllowed, p.Command)
		}
	}

	timeout := defaultShellTimeout
	if p.TimeoutMS > 0 {
		timeout = time.Duration(p.TimeoutMS) * time.Millisecond
	}
	// The command must outlive ctx when it goes async; its own timeout
	// bounds it instead.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	cmd := exec.CommandContext(runCtx, "sh", "-c", p.Command)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start command: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		cancel()
		return shellResult(out.String(), err)
	case <-time.After(h.threshold):
	}

	// Still running past the threshold: background it.
	checkID := uuid.NewString()
	check := &shellCheck{}
	h.mu.Lock()
	h.checks[checkID] = check
	h.mu.Unlock()

	go func() {
		defer cancel()
		err := <-waitErr
		value, resultErr := shellResult(out.String(), err)

		h.mu.Lock()
		check.done = true
		check.output = out.String()
		check.exitCode = cmd.ProcessState.ExitCode()
		check.err = resultErr
		h.mu.Unlock()

		if inv.Complete != nil {
			inv.Complete(domain.Completion{ActionID: inv.ActionID, Value: value, Err: resultErr})
		}
	}()

	h.logger.Debug("shell command backgrounded",
		"action_id", inv.ActionID, "check_id", checkID)
	return domain.Ack{Async: true, Status: "running", CheckID: checkID}, nil
}

func shellResult(output string, err error) (any, error) {
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("command exited %d: %s", exitErr.ExitCode(), strings.TrimSpace(output))
		}
		return nil, err
	}
	return map[string]any{"output": output, "exit_code": 0}, nil
}
