package pressroom

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Request DTOs

const maxTitleLength = 255

// CreateArticleRequest contains parameters for creating a new article.
// Status is not accepted here: every article starts as a draft.
type CreateArticleRequest struct {
	Title    Translations   `json:"title"`
	Body     Translations   `json:"body"`
	Locale   Locale         `json:"locale,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks the request against the content rules: known locales
// only, titles bounded, and at least one locale carrying both a title and a
// body.
func (r CreateArticleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.Required,
			validation.By(validTranslationKeys),
			validation.By(boundedTitles),
			validation.By(r.hasCompleteLocale)),
		validation.Field(&r.Body, validation.Required, validation.By(validTranslationKeys)),
		validation.Field(&r.Locale, validation.By(optionalLocale)),
	)
}

func (r CreateArticleRequest) hasCompleteLocale(any) error {
	for _, locale := range Locales {
		if r.Title[locale] != "" && r.Body[locale] != "" {
			return nil
		}
	}
	return ErrNoTranslations
}

// UpdateArticleRequest contains the partial fields of an update. Locale maps
// merge key-wise into the stored article; a nil map leaves the field alone.
// Metadata, being opaque, is replaced wholesale when non-nil.
type UpdateArticleRequest struct {
	ArticleID uuid.UUID      `json:"article_id"`
	Title     Translations   `json:"title,omitempty"`
	Body      Translations   `json:"body,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Validate checks the partial fields that are present.
func (r UpdateArticleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ArticleID, validation.By(requiredUUID)),
		validation.Field(&r.Title, validation.By(validTranslationKeys), validation.By(boundedTitles)),
		validation.Field(&r.Body, validation.By(validTranslationKeys)),
	)
}

func validTranslationKeys(value any) error {
	t, _ := value.(Translations)
	for locale := range t {
		if !locale.IsValid() {
			return fmt.Errorf("%w: %s", ErrInvalidLocale, locale)
		}
	}
	return nil
}

func boundedTitles(value any) error {
	t, _ := value.(Translations)
	for locale, title := range t {
		if len(title) > maxTitleLength {
			return fmt.Errorf("title for locale %s exceeds %d characters", locale, maxTitleLength)
		}
	}
	return nil
}

func optionalLocale(value any) error {
	l, _ := value.(Locale)
	if l == "" || l.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidLocale, l)
}

func requiredUUID(value any) error {
	id, _ := value.(uuid.UUID)
	if id == uuid.Nil {
		return validation.ErrRequired
	}
	return nil
}
