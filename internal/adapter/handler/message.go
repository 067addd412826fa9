package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"quorum/internal/domain"
)

// Message is one delivered agent-to-agent message.
type Message struct {
	ID     string    `json:"id"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

// MessageSink accepts outbound agent messages.
type MessageSink interface {
	Deliver(ctx context.Context, msg Message) error
}

// MessageHandler delivers send_message actions to a sink.
type MessageHandler struct {
	schema domain.ActionSchema
	sink   MessageSink
	logger *slog.Logger
}

type messageParams struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// NewMessageHandler creates the send_message handler.
func NewMessageHandler(schema domain.ActionSchema, sink MessageSink, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{schema: schema, sink: sink, logger: logger}
}

func (h *MessageHandler) Kind() domain.ActionKind       { return domain.ActionSendMessage }
func (h *MessageHandler) ParamsSchema() json.RawMessage { return ParamsSchemaJSON(h.schema) }

func (h *MessageHandler) Execute(ctx context.Context, inv domain.Invocation) (any, error) {
	return Execute(ctx, "handler.send_message", h.logger, inv,
		func(ctx context.Context, _ trace.Span, p messageParams) (any, error) {
			msg := Message{
				ID:     ulid.Make().String(),
				From:   inv.AgentID,
				To:     p.To,
				Body:   p.Body,
				SentAt: time.Now().UTC(),
			}
			if err := h.sink.Deliver(ctx, msg); err != nil {
				return nil, err
			}
			return map[string]any{"message_id": msg.ID, "delivered_to": msg.To}, nil
		})
}

// MemoryPostOffice is an in-process MessageSink keeping per-recipient inboxes.
type MemoryPostOffice struct {
	mu      sync.Mutex
	inboxes map[string][]Message
}

// NewMemoryPostOffice creates an empty in-process post office.
func NewMemoryPostOffice() *MemoryPostOffice {
	return &MemoryPostOffice{inboxes: make(map[string][]Message)}
}

func (p *MemoryPostOffice) Deliver(_ context.Context, msg Message) error {
	p.mu.Lock()
	p.inboxes[msg.To] = append(p.inboxes[msg.To], msg)
	p.mu.Unlock()
	return nil
}

// Inbox returns the messages delivered to one recipient, oldest first.
func (p *MemoryPostOffice) Inbox(agentID string) []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := p.inboxes[agentID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
