package pressroom

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink.
// Useful when no notification collaborator is wired in, and for testing.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) ArticleCreated(ctx context.Context, article *Article) error { return nil }

func (n *NoopEventSink) ArticleUpdated(ctx context.Context, article *Article) error { return nil }

func (n *NoopEventSink) ArticleDeleted(ctx context.Context, tenantID string, id uuid.UUID) error {
	return nil
}

func (n *NoopEventSink) ArticlePublished(ctx context.Context, event ArticlePublishedEvent) error {
	return nil
}

// LoggingEventSink logs every domain event but takes no other action.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink that writes to the given logger.
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) ArticleCreated(ctx context.Context, article *Article) error {
	l.logger.Info("article created", "article_id", article.ID, "tenant_id", article.TenantID)
	return nil
}

func (l *LoggingEventSink) ArticleUpdated(ctx context.Context, article *Article) error {
	l.logger.Info("article updated", "article_id", article.ID, "tenant_id", article.TenantID)
	return nil
}

func (l *LoggingEventSink) ArticleDeleted(ctx context.Context, tenantID string, id uuid.UUID) error {
	l.logger.Info("article deleted", "article_id", id, "tenant_id", tenantID)
	return nil
}

func (l *LoggingEventSink) ArticlePublished(ctx context.Context, event ArticlePublishedEvent) error {
	l.logger.Info("article published", "article_id", event.ArticleID, "tenant_id", event.TenantID)
	return nil
}

// ChannelEventSink forwards ArticlePublished events to a buffered channel
// for an asynchronous consumer (the notification collaborator). When the
// buffer is full the event is dropped with a log line rather than blocking
// the publishing request.
type ChannelEventSink struct {
	NoopEventSink
	published chan ArticlePublishedEvent
	logger    *slog.Logger
}

// NewChannelEventSink creates a channel-backed sink with the given buffer size.
func NewChannelEventSink(buffer int, logger *slog.Logger) *ChannelEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelEventSink{
		published: make(chan ArticlePublishedEvent, buffer),
		logger:    logger,
	}
}

// Published exposes the event stream for the consumer.
func (c *ChannelEventSink) Published() <-chan ArticlePublishedEvent {
	return c.published
}

func (c *ChannelEventSink) ArticlePublished(ctx context.Context, event ArticlePublishedEvent) error {
	select {
	case c.published <- event:
	default:
		c.logger.Warn("published event buffer full, dropping event",
			"article_id", event.ArticleID, "tenant_id", event.TenantID)
	}
	return nil
}

// NoopAuditSink discards audit entries.
type NoopAuditSink struct{}

// NewNoopAuditSink creates a new no-operation audit sink
func NewNoopAuditSink() AuditSink {
	return &NoopAuditSink{}
}

func (n *NoopAuditSink) Record(ctx context.Context, entry AuditEntry) {}

// LoggingAuditSink writes audit entries to a structured logger. Audit-log
// persistence proper lives outside this module; the log stream is the
// default sink.
type LoggingAuditSink struct {
	logger *slog.Logger
}

// NewLoggingAuditSink creates an audit sink that writes to the given logger.
func NewLoggingAuditSink(logger *slog.Logger) AuditSink {
	return &LoggingAuditSink{logger: logger}
}

func (l *LoggingAuditSink) Record(ctx context.Context, entry AuditEntry) {
	l.logger.Info("audit",
		"tenant_id", entry.TenantID,
		"subject_type", entry.SubjectType,
		"subject_id", entry.SubjectID,
		"actor_id", entry.ActorID,
		"event", entry.Event,
		"description", entry.Description,
	)
}

// MemoryAuditSink collects audit entries in memory, for tests.
type MemoryAuditSink struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewMemoryAuditSink creates an in-memory audit sink.
func NewMemoryAuditSink() *MemoryAuditSink {
	return &MemoryAuditSink{}
}

func (m *MemoryAuditSink) Record(ctx context.Context, entry AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

// Entries returns a copy of the recorded entries in record order.
func (m *MemoryAuditSink) Entries() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
