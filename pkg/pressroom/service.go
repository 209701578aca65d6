package pressroom

import (
	"context"

	"github.com/google/uuid"
)

// Service orchestrates PrimaryStore, MirrorStore, SearchIndex, VersionStore
// and the workflow state machine into application-level operations. Every
// call receives the already-resolved TenantContext; the service never
// resolves tenancy itself.
//
// Ordering contract: the PrimaryStore write of an operation completes (and
// is durable) before MirrorStore/SearchIndex propagation is attempted.
// Derived-store failures are logged and swallowed; primary failures abort
// the operation with no derived writes attempted.
type Service interface {
	// Create validates the input, stores a new draft article and
	// propagates it to the derived stores. No snapshot is taken.
	Create(ctx context.Context, tenant TenantContext, actor Actor, req CreateArticleRequest) (*Article, error)

	// Get returns the tenant's article, or ErrArticleNotFound.
	Get(ctx context.Context, tenant TenantContext, id uuid.UUID) (*Article, error)

	// List returns the tenant's articles that carry a title for the given
	// locale, newest first. An empty locale lists everything.
	List(ctx context.Context, tenant TenantContext, locale Locale) ([]*Article, error)

	// Update captures a snapshot of the current state, merges the partial
	// fields and persists the result.
	Update(ctx context.Context, tenant TenantContext, actor Actor, req UpdateArticleRequest) (*Article, error)

	// Delete removes the article from the primary store and best-effort
	// from the derived stores. Snapshots are left orphaned.
	Delete(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) error

	// SubmitForReview moves a draft into review.
	SubmitForReview(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) (*Article, error)

	// Approve moves a reviewed article into published, stamping
	// PublishedAt and emitting ArticlePublished.
	Approve(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) (*Article, error)

	// Reject returns an article in review to draft. Content is untouched.
	Reject(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) (*Article, error)

	// PublishDirect publishes from draft or review in one step, for
	// elevated roles. Side effects match Approve.
	PublishDirect(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) (*Article, error)

	// History returns the article's snapshots in creation order, newest
	// last.
	History(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) ([]*Snapshot, error)

	// Restore overwrites the article's editable fields with a snapshot's
	// payload. Status is untouched and no new snapshot is taken.
	Restore(ctx context.Context, tenant TenantContext, actor Actor, id, snapshotID uuid.UUID) (*Article, error)

	// Search runs a full-text query against the tenant's index. Empty
	// text yields an empty result, not an error.
	Search(ctx context.Context, tenant TenantContext, locale Locale, text string) (*SearchResult, error)
}
