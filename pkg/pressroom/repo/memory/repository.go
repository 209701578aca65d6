package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pressroom-io/pressroom/pkg/pressroom"
)

// Repository implements pressroom.PrimaryStore and pressroom.VersionStore
// using in-memory storage. Articles are partitioned per tenant; snapshots
// are keyed globally with an ordered per-article index.
type Repository struct {
	mu                 sync.RWMutex
	articles           map[string]map[uuid.UUID]*pressroom.Article
	snapshots          map[uuid.UUID]*pressroom.Snapshot
	snapshotsByArticle map[uuid.UUID][]uuid.UUID
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		articles:           make(map[string]map[uuid.UUID]*pressroom.Article),
		snapshots:          make(map[uuid.UUID]*pressroom.Snapshot),
		snapshotsByArticle: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Article operations

func (r *Repository) CreateArticle(ctx context.Context, article *pressroom.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant := r.articles[article.TenantID]
	if tenant == nil {
		tenant = make(map[uuid.UUID]*pressroom.Article)
		r.articles[article.TenantID] = tenant
	}

	// Store a copy to avoid external modifications
	tenant[article.ID] = article.Clone()

	return nil
}

func (r *Repository) GetArticle(ctx context.Context, tenantID string, id uuid.UUID) (*pressroom.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	article, exists := r.articles[tenantID][id]
	if !exists {
		return nil, pressroom.ErrArticleNotFound
	}

	return article.Clone(), nil
}

func (r *Repository) UpdateArticle(ctx context.Context, article *pressroom.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant := r.articles[article.TenantID]
	if _, exists := tenant[article.ID]; !exists {
		return pressroom.ErrArticleNotFound
	}

	tenant[article.ID] = article.Clone()

	return nil
}

func (r *Repository) DeleteArticle(ctx context.Context, tenantID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant := r.articles[tenantID]
	if _, exists := tenant[id]; !exists {
		return pressroom.ErrArticleNotFound
	}

	delete(tenant, id)
	// Snapshots of a deleted article are left orphaned; history is never
	// purged by normal operations.

	return nil
}

func (r *Repository) ListArticles(ctx context.Context, tenantID string) ([]*pressroom.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*pressroom.Article
	for _, article := range r.articles[tenantID] {
		result = append(result, article.Clone())
	}

	// Sort by created_at descending, id as a stable tie-break
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	return result, nil
}

// Snapshot operations

func (r *Repository) Capture(ctx context.Context, tenantID string, articleID uuid.UUID, payload pressroom.SnapshotPayload) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := &pressroom.Snapshot{
		ID:        uuid.New(),
		ArticleID: articleID,
		TenantID:  tenantID,
		Payload:   clonePayload(payload),
		CreatedAt: time.Now().UTC(),
	}

	r.snapshots[snapshot.ID] = snapshot
	r.snapshotsByArticle[articleID] = append(r.snapshotsByArticle[articleID], snapshot.ID)

	return snapshot.ID, nil
}

func (r *Repository) ListFor(ctx context.Context, tenantID string, articleID uuid.UUID) ([]*pressroom.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.snapshotsByArticle[articleID]
	result := make([]*pressroom.Snapshot, 0, len(ids))
	for _, id := range ids {
		snapshot := r.snapshots[id]
		if snapshot == nil || snapshot.TenantID != tenantID {
			continue
		}
		result = append(result, cloneSnapshot(snapshot))
	}

	return result, nil
}

func (r *Repository) Get(ctx context.Context, snapshotID uuid.UUID) (*pressroom.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, exists := r.snapshots[snapshotID]
	if !exists {
		return nil, pressroom.ErrSnapshotNotFound
	}

	return cloneSnapshot(snapshot), nil
}

// Helpers

func clonePayload(payload pressroom.SnapshotPayload) pressroom.SnapshotPayload {
	out := payload
	out.Title = payload.Title.Clone()
	out.Body = payload.Body.Clone()
	if payload.Metadata != nil {
		out.Metadata = make(map[string]any, len(payload.Metadata))
		for k, v := range payload.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func cloneSnapshot(snapshot *pressroom.Snapshot) *pressroom.Snapshot {
	out := *snapshot
	out.Payload = clonePayload(snapshot.Payload)
	return &out
}
