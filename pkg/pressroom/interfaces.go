package pressroom

import (
	"context"

	"github.com/google/uuid"
)

// PrimaryStore is the authoritative article persistence. Every read and
// write is scoped to a tenant; an article is never visible outside the
// tenant that owns it. A primary write must be durable before any derived
// propagation is attempted.
type PrimaryStore interface {
	CreateArticle(ctx context.Context, article *Article) error
	GetArticle(ctx context.Context, tenantID string, id uuid.UUID) (*Article, error)
	UpdateArticle(ctx context.Context, article *Article) error
	DeleteArticle(ctx context.Context, tenantID string, id uuid.UUID) error
	ListArticles(ctx context.Context, tenantID string) ([]*Article, error)
}

// VersionStore is the append-only snapshot log. Capture never dedupes:
// identical payloads captured twice are stored as two entries.
type VersionStore interface {
	// Capture appends an immutable snapshot and returns its id.
	Capture(ctx context.Context, tenantID string, articleID uuid.UUID, payload SnapshotPayload) (uuid.UUID, error)

	// ListFor returns the snapshots of an article in creation order,
	// newest last.
	ListFor(ctx context.Context, tenantID string, articleID uuid.UUID) ([]*Snapshot, error)

	// Get returns the snapshot with the given id, or ErrSnapshotNotFound.
	// It does not touch the primary store; applying the payload is the
	// caller's job.
	Get(ctx context.Context, snapshotID uuid.UUID) (*Snapshot, error)
}

// MirrorStore is the derived document replica. Documents are keyed by the
// article id, fully replaced on each upsert, and may transiently lag the
// primary store.
type MirrorStore interface {
	Upsert(ctx context.Context, article *Article) error
	// Delete removes the mirrored document. Deleting a missing document is
	// treated as success.
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*Article, error)
}

// SearchIndex is the derived full-text projection, one logical index per
// tenant. Upsert and Remove failures must never abort the originating
// primary mutation; the service logs and swallows them.
type SearchIndex interface {
	// Upsert (re)indexes every populated locale of the article under the
	// article id.
	Upsert(ctx context.Context, article *Article) error

	// Remove deletes the document. Removing an already-removed document
	// returns success.
	Remove(ctx context.Context, tenantID string, id uuid.UUID) error

	// Query runs a full-text search over title and body restricted to the
	// locale, title weighted above body, with bounded fuzziness and
	// title-prefix suggestions. On backend failure it returns an empty
	// result together with the error.
	Query(ctx context.Context, tenantID string, locale Locale, text string) (*SearchResult, error)
}

// Authorizer is the capability-check collaborator. Role and permission
// storage lives outside this module; the service only consumes the verdict.
type Authorizer interface {
	Can(actor Actor, capability Capability) bool
}

// AuditSink is the audit-log collaborator, invoked fire-and-forget after
// each successful mutation.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry)
}

// EventSink receives domain notifications. ArticlePublished is the
// at-least-once contract event consumed by the notification collaborator;
// the rest are informational hooks. Sink errors never fail the operation
// that fired them.
type EventSink interface {
	ArticleCreated(ctx context.Context, article *Article) error
	ArticleUpdated(ctx context.Context, article *Article) error
	ArticleDeleted(ctx context.Context, tenantID string, id uuid.UUID) error
	ArticlePublished(ctx context.Context, event ArticlePublishedEvent) error
}
