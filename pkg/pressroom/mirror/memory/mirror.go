// Package memory provides an in-memory document mirror, useful for
// tests and single process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pressroom-io/pressroom/pkg/pressroom"
)

// Mirror implements pressroom.MirrorStore backed by a map.
type Mirror struct {
	mu       sync.RWMutex
	articles map[string]map[uuid.UUID]*pressroom.Article
}

func New() *Mirror {
	return &Mirror{
		articles: make(map[string]map[uuid.UUID]*pressroom.Article),
	}
}

func (m *Mirror) Upsert(ctx context.Context, article *pressroom.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tenant, ok := m.articles[article.TenantID]
	if !ok {
		tenant = make(map[uuid.UUID]*pressroom.Article)
		m.articles[article.TenantID] = tenant
	}
	tenant[article.ID] = article.Clone()
	return nil
}

func (m *Mirror) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tenant, ok := m.articles[tenantID]; ok {
		delete(tenant, id)
	}
	return nil
}

func (m *Mirror) Get(ctx context.Context, tenantID string, id uuid.UUID) (*pressroom.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if tenant, ok := m.articles[tenantID]; ok {
		if article, ok := tenant[id]; ok {
			return article.Clone(), nil
		}
	}
	return nil, pressroom.ErrArticleNotFound
}
