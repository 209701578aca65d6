package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/pressroom-io/pressroom/pkg/pressroom"
)

// ArticleHandler handles HTTP requests for articles using pkg/pressroom
type ArticleHandler struct {
	service pressroom.Service
}

// NewArticleHandler creates a new article handler
func NewArticleHandler(service pressroom.Service) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// Routes returns the routes for articles
func (h *ArticleHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateArticle)
	r.Get("/", h.ListArticles)
	r.Get("/search", h.SearchArticles)
	r.Get("/{id}", h.GetArticle)
	r.Put("/{id}", h.UpdateArticle)
	r.Delete("/{id}", h.DeleteArticle)

	// Workflow routes
	r.Post("/{id}/submit", h.SubmitForReview)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/publish", h.PublishDirect)

	// Routes for version history
	r.Get("/{id}/versions", h.ListVersions)
	r.Post("/{id}/versions/{versionID}/restore", h.RestoreVersion)

	return r
}

// CreateArticleRequest is the request body for creating an article
type CreateArticleRequest struct {
	Title    map[string]string      `json:"title"`
	Body     map[string]string      `json:"body"`
	Locale   string                 `json:"locale,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateArticleRequest is the request body for updating an article
type UpdateArticleRequest struct {
	Title    map[string]string      `json:"title,omitempty"`
	Body     map[string]string      `json:"body,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ArticleResponse is the response body for an article
type ArticleResponse struct {
	ID          string                 `json:"id"`
	TenantID    string                 `json:"tenant_id"`
	Title       map[string]string      `json:"title"`
	Body        map[string]string      `json:"body"`
	Status      string                 `json:"status"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Locale      string                 `json:"locale"`
	PublishedAt *time.Time             `json:"published_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// SnapshotResponse is the response body for an article snapshot
type SnapshotResponse struct {
	ID        string            `json:"id"`
	ArticleID string            `json:"article_id"`
	Title     map[string]string `json:"title"`
	Body      map[string]string `json:"body"`
	Locale    string            `json:"locale"`
	CreatedAt time.Time         `json:"created_at"`
}

// SearchResponse is the response body for a search request
type SearchResponse struct {
	Matches     []SearchMatch `json:"matches"`
	Suggestions []string      `json:"suggestions"`
}

// SearchMatch is one ranked search hit
type SearchMatch struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Score       float64    `json:"score"`
}

func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "tenant not resolved", http.StatusInternalServerError)
		return
	}

	var req CreateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	article, err := h.service.Create(r.Context(), tenant, ActorFromContext(r.Context()), pressroom.CreateArticleRequest{
		Title:    toTranslations(req.Title),
		Body:     toTranslations(req.Body),
		Locale:   pressroom.Locale(req.Locale),
		Metadata: req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toArticleResponse(article))
}

func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	tenant, id, ok := h.tenantAndID(w, r)
	if !ok {
		return
	}

	article, err := h.service.Get(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, toArticleResponse(article))
}

func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "tenant not resolved", http.StatusInternalServerError)
		return
	}

	locale := pressroom.Locale(r.URL.Query().Get("locale"))
	articles, err := h.service.List(r.Context(), tenant, locale)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]*ArticleResponse, 0, len(articles))
	for _, article := range articles {
		resp = append(resp, toArticleResponse(article))
	}
	render.JSON(w, r, resp)
}

func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	tenant, id, ok := h.tenantAndID(w, r)
	if !ok {
		return
	}

	var req UpdateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	article, err := h.service.Update(r.Context(), tenant, ActorFromContext(r.Context()), pressroom.UpdateArticleRequest{
		ArticleID: id,
		Title:     toTranslations(req.Title),
		Body:      toTranslations(req.Body),
		Metadata:  req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, toArticleResponse(article))
}

func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	tenant, id, ok := h.tenantAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), tenant, ActorFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}

	render.NoContent(w, r)
}

func (h *ArticleHandler) SubmitForReview(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.SubmitForReview)
}

func (h *ArticleHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *ArticleHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

func (h *ArticleHandler) PublishDirect(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.PublishDirect)
}

type transitionFunc func(ctx context.Context, tenant pressroom.TenantContext, actor pressroom.Actor, id uuid.UUID) (*pressroom.Article, error)

func (h *ArticleHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	tenant, id, ok := h.tenantAndID(w, r)
	if !ok {
		return
	}

	article, err := fn(r.Context(), tenant, ActorFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, toArticleResponse(article))
}

func (h *ArticleHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	tenant, id, ok := h.tenantAndID(w, r)
	if !ok {
		return
	}

	snapshots, err := h.service.History(r.Context(), tenant, ActorFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]*SnapshotResponse, 0, len(snapshots))
	for _, snapshot := range snapshots {
		resp = append(resp, toSnapshotResponse(snapshot))
	}
	render.JSON(w, r, resp)
}

func (h *ArticleHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	tenant, id, ok := h.tenantAndID(w, r)
	if !ok {
		return
	}

	versionID, err := uuid.Parse(chi.URLParam(r, "versionID"))
	if err != nil {
		http.Error(w, "invalid version ID", http.StatusBadRequest)
		return
	}

	article, err := h.service.Restore(r.Context(), tenant, ActorFromContext(r.Context()), id, versionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, toArticleResponse(article))
}

func (h *ArticleHandler) SearchArticles(w http.ResponseWriter, r *http.Request) {
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "tenant not resolved", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	locale := pressroom.Locale(query.Get("locale"))

	result, err := h.service.Search(r.Context(), tenant, locale, query.Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := SearchResponse{
		Matches:     make([]SearchMatch, 0, len(result.Matches)),
		Suggestions: result.Suggestions,
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []string{}
	}
	for _, match := range result.Matches {
		resp.Matches = append(resp.Matches, SearchMatch{
			ID:          match.ID.String(),
			Title:       match.Title,
			Status:      string(match.Status),
			PublishedAt: match.PublishedAt,
			Score:       match.Score,
		})
	}
	render.JSON(w, r, resp)
}

func (h *ArticleHandler) tenantAndID(w http.ResponseWriter, r *http.Request) (pressroom.TenantContext, uuid.UUID, bool) {
	tenant, ok := TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "tenant not resolved", http.StatusInternalServerError)
		return pressroom.TenantContext{}, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid article ID", http.StatusBadRequest)
		return pressroom.TenantContext{}, uuid.Nil, false
	}

	return tenant, id, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		transitionErr *pressroom.TransitionError
		validationErr validation.Errors
	)

	switch {
	case errors.As(err, &validationErr):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, map[string]interface{}{"error": "validation failed", "fields": validationErr})
	case errors.Is(err, pressroom.ErrInvalidLocale), errors.Is(err, pressroom.ErrNoTranslations):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, pressroom.ErrArticleNotFound), errors.Is(err, pressroom.ErrSnapshotNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, pressroom.ErrNotAuthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.As(err, &transitionErr):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toTranslations(m map[string]string) pressroom.Translations {
	if m == nil {
		return nil
	}
	out := make(pressroom.Translations, len(m))
	for locale, text := range m {
		out[pressroom.Locale(locale)] = text
	}
	return out
}

func fromTranslations(t pressroom.Translations) map[string]string {
	out := make(map[string]string, len(t))
	for locale, text := range t {
		out[string(locale)] = text
	}
	return out
}

func toArticleResponse(article *pressroom.Article) *ArticleResponse {
	return &ArticleResponse{
		ID:          article.ID.String(),
		TenantID:    article.TenantID,
		Title:       fromTranslations(article.Title),
		Body:        fromTranslations(article.Body),
		Status:      string(article.Status),
		Metadata:    article.Metadata,
		Locale:      string(article.Locale),
		PublishedAt: article.PublishedAt,
		CreatedAt:   article.CreatedAt,
		UpdatedAt:   article.UpdatedAt,
	}
}

func toSnapshotResponse(snapshot *pressroom.Snapshot) *SnapshotResponse {
	return &SnapshotResponse{
		ID:        snapshot.ID.String(),
		ArticleID: snapshot.ArticleID.String(),
		Title:     fromTranslations(snapshot.Payload.Title),
		Body:      fromTranslations(snapshot.Payload.Body),
		Locale:    string(snapshot.Payload.Locale),
		CreatedAt: snapshot.CreatedAt,
	}
}
