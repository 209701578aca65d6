package pressroom

import (
	"time"

	"github.com/google/uuid"
)

// Status is the domain type for article lifecycle states.
type Status string

// Article status constants (typed).
const (
	StatusDraft     Status = "draft"
	StatusReview    Status = "review"
	StatusPublished Status = "published"
)

// IsValid reports whether s is a known article status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusReview, StatusPublished:
		return true
	}
	return false
}

// Locale is a supported language/region code for translatable fields.
type Locale string

// Supported locales. DefaultLocale is used when a request carries none.
const (
	LocaleEN   Locale = "en"
	LocaleZhTW Locale = "zh_TW"
	LocaleZhCN Locale = "zh_CN"

	DefaultLocale = LocaleZhTW
)

// Locales lists every supported locale.
var Locales = []Locale{LocaleEN, LocaleZhTW, LocaleZhCN}

// IsValid reports whether l is one of the supported locales.
func (l Locale) IsValid() bool {
	for _, known := range Locales {
		if l == known {
			return true
		}
	}
	return false
}

// Translations maps a locale to the localized value of a translatable field.
// A missing key means the field has no translation for that locale.
type Translations map[Locale]string

// Clone returns an independent copy of t. A nil map clones to nil.
func (t Translations) Clone() Translations {
	if t == nil {
		return nil
	}
	out := make(Translations, len(t))
	for l, v := range t {
		out[l] = v
	}
	return out
}

// Merge overlays the entries of other onto a copy of t, key-wise. Locales
// absent from other are left untouched.
func (t Translations) Merge(other Translations) Translations {
	if len(other) == 0 {
		return t.Clone()
	}
	out := t.Clone()
	if out == nil {
		out = make(Translations, len(other))
	}
	for l, v := range other {
		out[l] = v
	}
	return out
}

// Article is the versioned, workflow-governed content unit at the center of
// the system. The PrimaryStore copy is authoritative; MirrorStore and
// SearchIndex hold derived projections keyed by the same ID.
type Article struct {
	ID          uuid.UUID      `json:"id"`
	TenantID    string         `json:"tenant_id"`
	Title       Translations   `json:"title"`
	Body        Translations   `json:"body"`
	Status      Status         `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Locale      Locale         `json:"locale"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the article.
func (a *Article) Clone() *Article {
	out := *a
	out.Title = a.Title.Clone()
	out.Body = a.Body.Clone()
	out.Metadata = cloneMetadata(a.Metadata)
	if a.PublishedAt != nil {
		at := *a.PublishedAt
		out.PublishedAt = &at
	}
	return &out
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HasTranslation reports whether both title and body carry a non-empty value
// for the given locale.
func (a *Article) HasTranslation(locale Locale) bool {
	return a.Title[locale] != "" && a.Body[locale] != ""
}

// SnapshotPayload captures an article's editable fields at a point in time.
// Status and timestamps are deliberately excluded: restoring a snapshot never
// moves the article through its workflow.
type SnapshotPayload struct {
	Title    Translations   `json:"title"`
	Body     Translations   `json:"body"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Locale   Locale         `json:"locale"`
}

// PayloadOf extracts a snapshot payload from the article's current state.
func PayloadOf(a *Article) SnapshotPayload {
	c := a.Clone()
	return SnapshotPayload{
		Title:    c.Title,
		Body:     c.Body,
		Metadata: c.Metadata,
		Locale:   c.Locale,
	}
}

// Snapshot is an immutable historical copy of an article's editable fields.
// Snapshot IDs are globally unique within the VersionStore.
type Snapshot struct {
	ID        uuid.UUID       `json:"id"`
	ArticleID uuid.UUID       `json:"article_id"`
	TenantID  string          `json:"tenant_id"`
	Payload   SnapshotPayload `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// TenantContext carries the already-resolved identity of the active tenant.
// It is threaded explicitly through every service call; there is no ambient
// "current tenant" state anywhere in the process.
type TenantContext struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Capability names an action an actor may be authorized to perform. The set
// mirrors the editorial permission model.
type Capability string

// Editorial capabilities.
const (
	CapEditArticle    Capability = "edit_article"
	CapPublishArticle Capability = "publish_article"
	CapReviewArticle  Capability = "review_article"
	CapApproveArticle Capability = "approve_article"
	CapRejectArticle  Capability = "reject_article"
	CapViewHistory    Capability = "view_article_history"
	CapRestoreVersion Capability = "restore_article_version"
)

// Actor identifies the user performing an operation, with the roles granted
// to them inside the active tenant.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Roles []string  `json:"roles"`
}

// ArticleSummary is a search projection of an article: just enough to render
// a result list without a round trip to the primary store.
type ArticleSummary struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Status      Status     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Score       float64    `json:"score"`
}

// SearchResult is the outcome of a full-text query: relevance-ordered
// matches plus deduplicated title-prefix suggestions.
type SearchResult struct {
	Matches     []ArticleSummary `json:"matches"`
	Suggestions []string         `json:"suggestions"`
}

// ArticlePublishedEvent is emitted at least once after every successful
// publish-type transition. Consumers (notification delivery and the like)
// process it asynchronously.
type ArticlePublishedEvent struct {
	ArticleID   uuid.UUID `json:"article_id"`
	TenantID    string    `json:"tenant_id"`
	PublishedAt time.Time `json:"published_at"`
}

// AuditEntry records a successful mutation for the audit-log collaborator.
type AuditEntry struct {
	TenantID    string    `json:"tenant_id"`
	SubjectType string    `json:"subject_type"`
	SubjectID   string    `json:"subject_id"`
	ActorID     uuid.UUID `json:"actor_id"`
	Event       string    `json:"event"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
