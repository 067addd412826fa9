package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"quorum/internal/domain"
	"quorum/internal/infra/tracer"
)

const webFetchBodyLimit = 1 << 20 // 1 MiB

// WebFetchHandler fetches a URL over HTTP.
type WebFetchHandler struct {
	schema domain.ActionSchema
	client *http.Client
	logger *slog.Logger
}

type webFetchParams struct {
	URL  string `json:"url"`
	Mode string `json:"mode,omitempty"`
}

// NewWebFetchHandler creates the web_fetch handler. A nil client gets a
// default with a 30 second timeout.
func NewWebFetchHandler(schema domain.ActionSchema, client *http.Client, logger *slog.Logger) *WebFetchHandler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebFetchHandler{schema: schema, client: client, logger: logger}
}

func (h *WebFetchHandler) Kind() domain.ActionKind       { return domain.ActionWebFetch }
func (h *WebFetchHandler) ParamsSchema() json.RawMessage { return ParamsSchemaJSON(h.schema) }

func (h *WebFetchHandler) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	return Execute(ctx, "handler.web_fetch", h.logger, inv,
		func(ctx context.Context, span trace.Span, p webFetchParams) (any, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
			if err != nil {
				return nil, domain.NewDomainError("WebFetch", domain.ErrInvalidInput, err.Error())
			}
			resp, err := h.client.Do(req)
			if err != nil {
				return nil, domain.NewDomainError("WebFetch", domain.ErrProviderError, err.Error())
			}
			defer resp.Body.Close()

			span.SetAttributes(tracer.IntAttr("http.status_code", resp.StatusCode))
			body, err := io.ReadAll(io.LimitReader(resp.Body, webFetchBodyLimit))
			if err != nil {
				return nil, fmt.Errorf("read body: %w", err)
			}

			content := string(body)
			switch p.Mode {
			case "links":
				return map[string]any{
					"status": resp.StatusCode,
					"links":  extractLinks(content),
				}, nil
			case "raw":
				// content stays as fetched
			default: // "text" and unset
				content = stripTags(content)
			}
			return map[string]any{
				"status":  resp.StatusCode,
				"content": content,
			}, nil
		})
}

var (
	tagPattern  = regexp.MustCompile(`(?s)<[^>]*>`)
	hrefPattern = regexp.MustCompile(`href="([^"]+)"`)
)

func stripTags(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	return strings.Join(strings.Fields(text), " ")
}

func extractLinks(html string) []string {
	matches := hrefPattern.FindAllStringSubmatch(html, -1)
	links := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			links = append(links, m[1])
		}
	}
	return links
}
