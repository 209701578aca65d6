package pressroom

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	primary    PrimaryStore
	versions   VersionStore
	mirror     MirrorStore
	index      SearchIndex
	authorizer Authorizer
	audit      AuditSink
	events     EventSink
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithPrimaryStore sets the authoritative article store (required).
func WithPrimaryStore(store PrimaryStore) Option {
	return func(s *service) {
		s.primary = store
	}
}

// WithVersionStore sets the snapshot log (required).
func WithVersionStore(store VersionStore) Option {
	return func(s *service) {
		s.versions = store
	}
}

// WithMirrorStore sets the derived document replica.
func WithMirrorStore(store MirrorStore) Option {
	return func(s *service) {
		s.mirror = store
	}
}

// WithSearchIndex sets the derived search projection.
func WithSearchIndex(index SearchIndex) Option {
	return func(s *service) {
		s.index = index
	}
}

// WithAuthorizer sets the capability-check collaborator. Without one, every
// check passes.
func WithAuthorizer(a Authorizer) Option {
	return func(s *service) {
		s.authorizer = a
	}
}

// WithAuditSink sets the audit-log collaborator.
func WithAuditSink(sink AuditSink) Option {
	return func(s *service) {
		s.audit = sink
	}
}

// WithEventSink sets the domain-event sink.
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.events = sink
	}
}

// WithLogger sets the structured logger used for swallowed derived-store
// failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		authorizer: allowAll{},
		audit:      NewNoopAuditSink(),
		events:     NewNoopEventSink(),
		logger:     slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.primary == nil {
		return nil, fmt.Errorf("primary store is required")
	}
	if s.versions == nil {
		return nil, fmt.Errorf("version store is required")
	}

	return s, nil
}

// allowAll passes every capability check. It is the default when no
// authorizer collaborator is wired in.
type allowAll struct{}

func (allowAll) Can(Actor, Capability) bool { return true }

func (s *service) authorize(actor Actor, capability Capability) error {
	if s.authorizer.Can(actor, capability) {
		return nil
	}
	return fmt.Errorf("%w: actor %s lacks %s", ErrNotAuthorized, actor.ID, capability)
}

// Article operations

func (s *service) Create(ctx context.Context, tenant TenantContext, actor Actor, req CreateArticleRequest) (*Article, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(actor, CapEditArticle); err != nil {
		return nil, err
	}

	locale := req.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	now := time.Now().UTC()
	article := &Article{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Title:     req.Title.Clone(),
		Body:      req.Body.Clone(),
		Status:    StatusDraft,
		Metadata:  cloneMetadata(req.Metadata),
		Locale:    locale,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.primary.CreateArticle(ctx, article); err != nil {
		return nil, &ArticleError{ArticleID: article.ID, Op: "create", Err: err}
	}

	s.propagate(ctx, article)
	s.record(ctx, tenant, actor, article.ID, "created", "article created")
	if err := s.events.ArticleCreated(ctx, article); err != nil {
		s.logger.Error("article created event failed", "article_id", article.ID, "error", err)
	}

	return article, nil
}

func (s *service) Get(ctx context.Context, tenant TenantContext, id uuid.UUID) (*Article, error) {
	return s.primary.GetArticle(ctx, tenant.ID, id)
}

func (s *service) List(ctx context.Context, tenant TenantContext, locale Locale) ([]*Article, error) {
	articles, err := s.primary.ListArticles(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if locale == "" {
		return articles, nil
	}
	filtered := articles[:0]
	for _, a := range articles {
		if a.Title[locale] != "" {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

func (s *service) Update(ctx context.Context, tenant TenantContext, actor Actor, req UpdateArticleRequest) (*Article, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(actor, CapEditArticle); err != nil {
		return nil, err
	}

	current, err := s.primary.GetArticle(ctx, tenant.ID, req.ArticleID)
	if err != nil {
		return nil, err
	}

	// Snapshot the pre-update state before any field is touched.
	if _, err := s.versions.Capture(ctx, tenant.ID, current.ID, PayloadOf(current)); err != nil {
		return nil, &ArticleError{ArticleID: current.ID, Op: "snapshot", Err: err}
	}

	updated := current.Clone()
	updated.Title = updated.Title.Merge(req.Title)
	updated.Body = updated.Body.Merge(req.Body)
	if req.Metadata != nil {
		updated.Metadata = cloneMetadata(req.Metadata)
	}
	updated.UpdatedAt = time.Now().UTC()

	if err := s.primary.UpdateArticle(ctx, updated); err != nil {
		return nil, &ArticleError{ArticleID: updated.ID, Op: "update", Err: err}
	}

	s.propagate(ctx, updated)
	s.record(ctx, tenant, actor, updated.ID, "updated", "article updated")
	if err := s.events.ArticleUpdated(ctx, updated); err != nil {
		s.logger.Error("article updated event failed", "article_id", updated.ID, "error", err)
	}

	return updated, nil
}

func (s *service) Delete(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) error {
	if err := s.authorize(actor, CapEditArticle); err != nil {
		return err
	}

	if _, err := s.primary.GetArticle(ctx, tenant.ID, id); err != nil {
		return err
	}
	if err := s.primary.DeleteArticle(ctx, tenant.ID, id); err != nil {
		return &ArticleError{ArticleID: id, Op: "delete", Err: err}
	}

	if s.mirror != nil {
		if err := s.mirror.Delete(ctx, tenant.ID, id); err != nil {
			s.swallow(&DerivedStoreError{Store: "mirror", TenantID: tenant.ID, ArticleID: id, Op: "delete", Err: err})
		}
	}
	if s.index != nil {
		if err := s.index.Remove(ctx, tenant.ID, id); err != nil {
			s.swallow(&DerivedStoreError{Store: "search", TenantID: tenant.ID, ArticleID: id, Op: "remove", Err: err})
		}
	}

	s.record(ctx, tenant, actor, id, "deleted", "article deleted")
	if err := s.events.ArticleDeleted(ctx, tenant.ID, id); err != nil {
		s.logger.Error("article deleted event failed", "article_id", id, "error", err)
	}

	return nil
}

// Workflow operations

func (s *service) SubmitForReview(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) (*Article, error) {
	return s.transition(ctx, tenant, actor, id, CapReviewArticle, StatusReview, "submitted_for_review")
}

func (s *service) Approve(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) (*Article, error) {
	return s.transition(ctx, tenant, actor, id, CapApproveArticle, StatusPublished, "approved")
}

func (s *service) Reject(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) (*Article, error) {
	return s.transition(ctx, tenant, actor, id, CapRejectArticle, StatusDraft, "rejected")
}

func (s *service) PublishDirect(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) (*Article, error) {
	if err := s.authorize(actor, CapPublishArticle); err != nil {
		return nil, err
	}

	article, err := s.primary.GetArticle(ctx, tenant.ID, id)
	if err != nil {
		return nil, err
	}
	if err := CanPublishDirect(article.Status); err != nil {
		return nil, err
	}

	return s.applyStatus(ctx, tenant, actor, article, StatusPublished, "published")
}

func (s *service) transition(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID, capability Capability, to Status, event string) (*Article, error) {
	if err := s.authorize(actor, capability); err != nil {
		return nil, err
	}

	article, err := s.primary.GetArticle(ctx, tenant.ID, id)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(article.Status, to); err != nil {
		return nil, err
	}

	return s.applyStatus(ctx, tenant, actor, article, to, event)
}

// applyStatus persists an already-validated status change. Status
// transitions do not create snapshots; only content edits do.
func (s *service) applyStatus(ctx context.Context, tenant TenantContext, actor Actor, article *Article, to Status, event string) (*Article, error) {
	now := time.Now().UTC()
	updated := article.Clone()
	updated.Status = to
	updated.UpdatedAt = now
	if to == StatusPublished {
		updated.PublishedAt = &now
	} else if article.Status == StatusPublished {
		updated.PublishedAt = nil
	}

	if err := s.primary.UpdateArticle(ctx, updated); err != nil {
		return nil, &ArticleError{ArticleID: updated.ID, Op: event, Err: err}
	}

	// PublishedAt is part of the searchable document, so every status
	// change re-propagates.
	s.propagate(ctx, updated)
	s.record(ctx, tenant, actor, updated.ID, event, "article "+event)

	if to == StatusPublished {
		publishedEvent := ArticlePublishedEvent{
			ArticleID:   updated.ID,
			TenantID:    tenant.ID,
			PublishedAt: now,
		}
		if err := s.events.ArticlePublished(ctx, publishedEvent); err != nil {
			s.logger.Error("article published event failed", "article_id", updated.ID, "error", err)
		}
	}

	return updated, nil
}

// Version operations

func (s *service) History(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID) ([]*Snapshot, error) {
	if err := s.authorize(actor, CapViewHistory); err != nil {
		return nil, err
	}
	if _, err := s.primary.GetArticle(ctx, tenant.ID, id); err != nil {
		return nil, err
	}
	return s.versions.ListFor(ctx, tenant.ID, id)
}

func (s *service) Restore(ctx context.Context, tenant TenantContext, actor Actor, id, snapshotID uuid.UUID) (*Article, error) {
	if err := s.authorize(actor, CapRestoreVersion); err != nil {
		return nil, err
	}

	article, err := s.primary.GetArticle(ctx, tenant.ID, id)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.versions.Get(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	if snapshot.ArticleID != id || snapshot.TenantID != tenant.ID {
		return nil, ErrSnapshotNotFound
	}

	// Overwrite the editable fields with the snapshot payload. Status is
	// untouched and the pre-restore state is not snapshotted, so there is
	// no redo after a restore.
	restored := article.Clone()
	restored.Title = snapshot.Payload.Title.Clone()
	restored.Body = snapshot.Payload.Body.Clone()
	restored.Metadata = snapshot.Payload.Metadata
	if snapshot.Payload.Locale != "" {
		restored.Locale = snapshot.Payload.Locale
	}
	restored.UpdatedAt = time.Now().UTC()

	if err := s.primary.UpdateArticle(ctx, restored); err != nil {
		return nil, &ArticleError{ArticleID: id, Op: "restore", Err: err}
	}

	s.propagate(ctx, restored)
	s.record(ctx, tenant, actor, id, "restored", fmt.Sprintf("article restored to snapshot %s", snapshotID))

	return restored, nil
}

// Search operations

func (s *service) Search(ctx context.Context, tenant TenantContext, locale Locale, text string) (*SearchResult, error) {
	// The HTTP layer rejects empty queries before calling; tolerate them
	// here with an empty result rather than a backend round trip.
	if strings.TrimSpace(text) == "" {
		return &SearchResult{}, nil
	}
	if locale == "" {
		locale = DefaultLocale
	}
	if !locale.IsValid() {
		return &SearchResult{}, fmt.Errorf("%w: %s", ErrInvalidLocale, locale)
	}
	if s.index == nil {
		return &SearchResult{}, nil
	}

	result, err := s.index.Query(ctx, tenant.ID, locale, text)
	if err != nil {
		s.logger.Error("search query failed", "tenant_id", tenant.ID, "locale", locale, "error", err)
		return &SearchResult{}, err
	}
	return result, nil
}

// Helpers

// propagate pushes the authoritative article into the derived stores.
// Failures are logged and swallowed: the primary write already committed,
// and the next write or reconcile pass converges the replicas.
func (s *service) propagate(ctx context.Context, article *Article) {
	if s.mirror != nil {
		if err := s.mirror.Upsert(ctx, article); err != nil {
			s.swallow(&DerivedStoreError{Store: "mirror", TenantID: article.TenantID, ArticleID: article.ID, Op: "upsert", Err: err})
		}
	}
	if s.index != nil {
		if err := s.index.Upsert(ctx, article); err != nil {
			s.swallow(&DerivedStoreError{Store: "search", TenantID: article.TenantID, ArticleID: article.ID, Op: "upsert", Err: err})
		}
	}
}

func (s *service) swallow(err *DerivedStoreError) {
	s.logger.Error("derived store propagation failed",
		"store", err.Store,
		"op", err.Op,
		"tenant_id", err.TenantID,
		"article_id", err.ArticleID,
		"error", err.Err,
	)
}

func (s *service) record(ctx context.Context, tenant TenantContext, actor Actor, id uuid.UUID, event, description string) {
	s.audit.Record(ctx, AuditEntry{
		TenantID:    tenant.ID,
		SubjectType: "article",
		SubjectID:   id.String(),
		ActorID:     actor.ID,
		Event:       event,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	})
}
