package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"quorum/internal/domain"
)

// FileReadHandler reads files confined to the workspace root.
type FileReadHandler struct {
	schema domain.ActionSchema
	root   string
	logger *slog.Logger
}

type fileReadParams struct {
	Path     string `json:"path"`
	MaxBytes int    `json:"max_bytes,omitempty"`
}

// NewFileReadHandler creates the file_read handler rooted at root.
func NewFileReadHandler(schema domain.ActionSchema, root string, logger *slog.Logger) *FileReadHandler {
	return &FileReadHandler{schema: schema, root: root, logger: logger}
}

func (h *FileReadHandler) Kind() domain.ActionKind       { return domain.ActionFileRead }
func (h *FileReadHandler) ParamsSchema() json.RawMessage { return ParamsSchemaJSON(h.schema) }

func (h *FileReadHandler) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	return Execute(ctx, "handler.file_read", h.logger, inv,
		func(_ context.Context, _ trace.Span, p fileReadParams) (any, error) {
			path, err := workspacePath(h.root, p.Path)
			if err != nil {
				return nil, err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, domain.NewDomainError("FileRead", domain.ErrNotFound, p.Path)
			}
			truncated := false
			if p.MaxBytes > 0 && len(data) > p.MaxBytes {
				data = data[:p.MaxBytes]
				truncated = true
			}
			return map[string]any{
				"path":      p.Path,
				"content":   string(data),
				"truncated": truncated,
			}, nil
		})
}

// FileWriteHandler writes files confined to the workspace root.
type FileWriteHandler struct {
	schema domain.ActionSchema
	root   string
	logger *slog.Logger
}

type fileWriteParams struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// NewFileWriteHandler creates the file_write handler rooted at root.
func NewFileWriteHandler(schema domain.ActionSchema, root string, logger *slog.Logger) *FileWriteHandler {
	return &FileWriteHandler{schema: schema, root: root, logger: logger}
}

func (h *FileWriteHandler) Kind() domain.ActionKind       { return domain.ActionFileWrite }
func (h *FileWriteHandler) ParamsSchema() json.RawMessage { return ParamsSchemaJSON(h.schema) }

func (h *FileWriteHandler) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	return Execute(ctx, "handler.file_write", h.logger, inv,
		func(_ context.Context, _ trace.Span, p fileWriteParams) (any, error) {
			path, err := workspacePath(h.root, p.Path)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return nil, fmt.Errorf("create parent directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(p.Content), 0600); err != nil {
				return nil, fmt.Errorf("write %s: %w", p.Path, err)
			}
			return map[string]any{"path": p.Path, "bytes": len(p.Content)}, nil
		})
}

// workspacePath resolves rel inside root, rejecting absolute paths and
// traversal out of the workspace.
func workspacePath(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", domain.NewDomainError("Workspace", domain.ErrActionNotAllowed,
			fmt.Sprintf("absolute path %q", rel))
	}
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", domain.NewDomainError("Workspace", domain.ErrActionNotAllowed,
			fmt.Sprintf("path %q escapes the workspace", rel))
	}
	return filepath.Join(root, clean), nil
}
