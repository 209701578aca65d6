// Package mongo provides a MongoDB-backed document mirror. Each tenant
// gets its own collection, keyed by the same article id as the primary
// store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pressroom-io/pressroom/pkg/pressroom"
)

type articleDoc struct {
	ID          string            `bson:"_id"`
	TenantID    string            `bson:"tenant_id"`
	Title       map[string]string `bson:"title"`
	Body        map[string]string `bson:"body"`
	Status      string            `bson:"status"`
	Metadata    map[string]any    `bson:"metadata,omitempty"`
	Locale      string            `bson:"locale"`
	PublishedAt *time.Time        `bson:"published_at,omitempty"`
	CreatedAt   time.Time         `bson:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at"`
}

// Mirror implements pressroom.MirrorStore on top of a mongo database.
type Mirror struct {
	db *mongo.Database
}

// New connects to MongoDB and returns a mirror over the named database.
func New(ctx context.Context, uri, database string) (*Mirror, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Mirror{db: client.Database(database)}, nil
}

// NewWithDatabase wraps an existing database handle.
func NewWithDatabase(db *mongo.Database) *Mirror {
	return &Mirror{db: db}
}

func (m *Mirror) collection(tenantID string) *mongo.Collection {
	return m.db.Collection("articles_" + tenantID)
}

func (m *Mirror) Upsert(ctx context.Context, article *pressroom.Article) error {
	doc := toDoc(article)
	_, err := m.collection(article.TenantID).ReplaceOne(ctx,
		bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert article %s: %w", doc.ID, err)
	}
	return nil
}

func (m *Mirror) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	_, err := m.collection(tenantID).DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete article %s: %w", id, err)
	}
	return nil
}

func (m *Mirror) Get(ctx context.Context, tenantID string, id uuid.UUID) (*pressroom.Article, error) {
	var doc articleDoc
	err := m.collection(tenantID).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, pressroom.ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to get article %s: %w", id, err)
	}
	return fromDoc(&doc)
}

func toDoc(article *pressroom.Article) *articleDoc {
	doc := &articleDoc{
		ID:          article.ID.String(),
		TenantID:    article.TenantID,
		Title:       make(map[string]string, len(article.Title)),
		Body:        make(map[string]string, len(article.Body)),
		Status:      string(article.Status),
		Metadata:    article.Metadata,
		Locale:      string(article.Locale),
		PublishedAt: article.PublishedAt,
		CreatedAt:   article.CreatedAt,
		UpdatedAt:   article.UpdatedAt,
	}
	for locale, text := range article.Title {
		doc.Title[string(locale)] = text
	}
	for locale, text := range article.Body {
		doc.Body[string(locale)] = text
	}
	return doc
}

func fromDoc(doc *articleDoc) (*pressroom.Article, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid article id %q: %w", doc.ID, err)
	}
	article := &pressroom.Article{
		ID:          id,
		TenantID:    doc.TenantID,
		Title:       make(pressroom.Translations, len(doc.Title)),
		Body:        make(pressroom.Translations, len(doc.Body)),
		Status:      pressroom.Status(doc.Status),
		Metadata:    doc.Metadata,
		Locale:      pressroom.Locale(doc.Locale),
		PublishedAt: doc.PublishedAt,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	for locale, text := range doc.Title {
		article.Title[pressroom.Locale(locale)] = text
	}
	for locale, text := range doc.Body {
		article.Body[pressroom.Locale(locale)] = text
	}
	return article, nil
}
