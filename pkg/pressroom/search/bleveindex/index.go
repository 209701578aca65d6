// Package bleveindex provides full text search over articles using
// bleve. Every tenant gets an isolated index, and translatable fields
// are indexed per locale so queries only see the requested language.
package bleveindex

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/pressroom-io/pressroom/pkg/pressroom"
)

const (
	maxResults     = 50
	maxSuggestions = 5
	titleBoost     = 3.0
)

// Index implements pressroom.SearchIndex. Pass an empty path to New to
// keep indexes in memory only.
type Index struct {
	mu      sync.RWMutex
	path    string
	indexes map[string]bleve.Index
}

func New(path string) *Index {
	return &Index{
		path:    path,
		indexes: make(map[string]bleve.Index),
	}
}

// NewMemOnly returns an index that never touches disk.
func NewMemOnly() *Index {
	return New("")
}

func buildMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Store = true
	for _, locale := range pressroom.Locales {
		doc.AddFieldMappingsAt("title_"+string(locale), text)
		doc.AddFieldMappingsAt("body_"+string(locale), text)
	}

	status := bleve.NewKeywordFieldMapping()
	status.Store = true
	doc.AddFieldMappingsAt("status", status)

	published := bleve.NewDateTimeFieldMapping()
	published.Store = true
	doc.AddFieldMappingsAt("published_at", published)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

func (i *Index) forTenant(tenantID string, create bool) (bleve.Index, error) {
	i.mu.RLock()
	idx, ok := i.indexes[tenantID]
	i.mu.RUnlock()
	if ok {
		return idx, nil
	}
	if !create {
		return nil, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if idx, ok := i.indexes[tenantID]; ok {
		return idx, nil
	}

	var (
		idx2 bleve.Index
		err  error
	)
	if i.path == "" {
		idx2, err = bleve.NewMemOnly(buildMapping())
	} else {
		dir := filepath.Join(i.path, "articles_"+tenantID)
		idx2, err = bleve.Open(dir)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx2, err = bleve.New(dir, buildMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open index for tenant %s: %w", tenantID, err)
	}

	i.indexes[tenantID] = idx2
	return idx2, nil
}

func (i *Index) Upsert(ctx context.Context, article *pressroom.Article) error {
	idx, err := i.forTenant(article.TenantID, true)
	if err != nil {
		return err
	}

	doc := map[string]interface{}{
		"status": string(article.Status),
	}
	for locale, text := range article.Title {
		doc["title_"+string(locale)] = text
	}
	for locale, text := range article.Body {
		doc["body_"+string(locale)] = text
	}
	if article.PublishedAt != nil {
		doc["published_at"] = article.PublishedAt.UTC()
	}

	if err := idx.Index(article.ID.String(), doc); err != nil {
		return fmt.Errorf("failed to index article %s: %w", article.ID, err)
	}
	return nil
}

func (i *Index) Remove(ctx context.Context, tenantID string, id uuid.UUID) error {
	idx, err := i.forTenant(tenantID, false)
	if err != nil || idx == nil {
		return err
	}
	// bleve deletes are a no-op for absent ids
	if err := idx.Delete(id.String()); err != nil {
		return fmt.Errorf("failed to remove article %s: %w", id, err)
	}
	return nil
}

func (i *Index) Query(ctx context.Context, tenantID string, locale pressroom.Locale, text string) (*pressroom.SearchResult, error) {
	result := &pressroom.SearchResult{}

	idx, err := i.forTenant(tenantID, false)
	if err != nil {
		return result, err
	}
	if idx == nil {
		return result, nil
	}

	titleField := "title_" + string(locale)
	bodyField := "body_" + string(locale)

	titleQ := bleve.NewMatchQuery(text)
	titleQ.SetField(titleField)
	titleQ.SetBoost(titleBoost)
	titleQ.SetFuzziness(1)

	bodyQ := bleve.NewMatchQuery(text)
	bodyQ.SetField(bodyField)
	bodyQ.SetFuzziness(1)

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(titleQ, bodyQ), maxResults, 0, false)
	req.Fields = []string{titleField, "status", "published_at"}
	req.SortBy([]string{"-_score", "-published_at", "_id"})

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return result, fmt.Errorf("search failed for tenant %s: %w", tenantID, err)
	}

	for _, hit := range res.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		match := pressroom.ArticleSummary{ID: id, Score: hit.Score}
		if title, ok := hit.Fields[titleField].(string); ok {
			match.Title = title
		}
		if status, ok := hit.Fields["status"].(string); ok {
			match.Status = pressroom.Status(status)
		}
		if raw, ok := hit.Fields["published_at"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				match.PublishedAt = &ts
			}
		}
		result.Matches = append(result.Matches, match)
	}

	suggestions, err := i.suggest(ctx, idx, titleField, text)
	if err != nil {
		return result, err
	}
	result.Suggestions = suggestions

	return result, nil
}

func (i *Index) suggest(ctx context.Context, idx bleve.Index, titleField, text string) ([]string, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil, nil
	}

	// The standard analyzer splits ideographic text into single-character
	// terms, so a term-level prefix query alone cannot see multi-character
	// prefixes. Candidates come from both a prefix and a match query, and
	// the stored title decides whether a hit is a real prefix match.
	prefix := bleve.NewPrefixQuery(needle)
	prefix.SetField(titleField)

	match := bleve.NewMatchQuery(text)
	match.SetField(titleField)

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(prefix, match), maxResults, 0, false)
	req.Fields = []string{titleField}
	req.SortBy([]string{"-_score", "_id"})

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("suggest failed: %w", err)
	}

	seen := make(map[string]bool)
	var suggestions []string
	for _, hit := range res.Hits {
		title, ok := hit.Fields[titleField].(string)
		if !ok || title == "" || seen[title] {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(title), needle) {
			continue
		}
		seen[title] = true
		suggestions = append(suggestions, title)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions, nil
}

// Close releases all tenant indexes.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var firstErr error
	for tenantID, idx := range i.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(i.indexes, tenantID)
	}
	return firstErr
}
