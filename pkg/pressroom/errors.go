package pressroom

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrArticleNotFound indicates an article was not found in the tenant's store
	ErrArticleNotFound = errors.New("article not found")

	// ErrSnapshotNotFound indicates a snapshot was not found
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrNotAuthorized indicates the actor lacks the required capability
	ErrNotAuthorized = errors.New("actor not authorized")

	// ErrInvalidLocale indicates a locale outside the supported set
	ErrInvalidLocale = errors.New("invalid locale")

	// ErrNoTranslations indicates no locale has both title and body populated
	ErrNoTranslations = errors.New("at least one locale must have title and body")

	// ErrInvalidStatus indicates an unknown article status
	ErrInvalidStatus = errors.New("invalid article status")
)

// ArticleError represents an error related to article operations
type ArticleError struct {
	ArticleID uuid.UUID
	Op        string
	Err       error
}

func (e *ArticleError) Error() string {
	return fmt.Sprintf("article operation %s failed for article %s: %v", e.Op, e.ArticleID, e.Err)
}

func (e *ArticleError) Unwrap() error {
	return e.Err
}

// TransitionError represents a status transition rejected by the state
// machine, identifying the illegal pair.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// DerivedStoreError represents a MirrorStore or SearchIndex failure. It is
// logged and swallowed by the service: the primary write already succeeded
// and the derived stores are re-synced on the next write or reconcile pass.
type DerivedStoreError struct {
	Store     string
	TenantID  string
	ArticleID uuid.UUID
	Op        string
	Err       error
}

func (e *DerivedStoreError) Error() string {
	return fmt.Sprintf("%s operation %s failed for article %s (tenant %s): %v",
		e.Store, e.Op, e.ArticleID, e.TenantID, e.Err)
}

func (e *DerivedStoreError) Unwrap() error {
	return e.Err
}
