package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressroom-io/pressroom/pkg/pressroom"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements pressroom.PrimaryStore and pressroom.VersionStore
// using PostgreSQL. Translatable fields and metadata are stored as jsonb.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("article already exists")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Article operations

func (r *Repository) CreateArticle(ctx context.Context, article *pressroom.Article) error {
	title, body, metadata, err := marshalFields(article)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO articles (
			id, tenant_id, title, body, status, metadata, locale,
			published_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		article.ID, article.TenantID, title, body, string(article.Status),
		metadata, string(article.Locale), article.PublishedAt,
		article.CreatedAt, article.UpdatedAt)

	if err != nil {
		return handlePostgresError("create article", err)
	}

	return nil
}

func (r *Repository) GetArticle(ctx context.Context, tenantID string, id uuid.UUID) (*pressroom.Article, error) {
	query := `
		SELECT id, tenant_id, title, body, status, metadata, locale,
		       published_at, created_at, updated_at
		FROM articles WHERE tenant_id = $1 AND id = $2`

	article, err := scanArticle(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pressroom.ErrArticleNotFound
		}
		return nil, err
	}

	return article, nil
}

func (r *Repository) UpdateArticle(ctx context.Context, article *pressroom.Article) error {
	title, body, metadata, err := marshalFields(article)
	if err != nil {
		return err
	}

	query := `
		UPDATE articles SET
			title = $3, body = $4, status = $5, metadata = $6,
			locale = $7, published_at = $8, updated_at = $9
		WHERE tenant_id = $1 AND id = $2`

	tag, err := r.db.Exec(ctx, query,
		article.TenantID, article.ID, title, body, string(article.Status),
		metadata, string(article.Locale), article.PublishedAt, article.UpdatedAt)

	if err != nil {
		return handlePostgresError("update article", err)
	}
	if tag.RowsAffected() == 0 {
		return pressroom.ErrArticleNotFound
	}

	return nil
}

func (r *Repository) DeleteArticle(ctx context.Context, tenantID string, id uuid.UUID) error {
	query := `DELETE FROM articles WHERE tenant_id = $1 AND id = $2`

	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return handlePostgresError("delete article", err)
	}
	if tag.RowsAffected() == 0 {
		return pressroom.ErrArticleNotFound
	}

	return nil
}

func (r *Repository) ListArticles(ctx context.Context, tenantID string) ([]*pressroom.Article, error) {
	query := `
		SELECT id, tenant_id, title, body, status, metadata, locale,
		       published_at, created_at, updated_at
		FROM articles WHERE tenant_id = $1
		ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, handlePostgresError("list articles", err)
	}
	defer rows.Close()

	var articles []*pressroom.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}

	return articles, rows.Err()
}

// Snapshot operations

func (r *Repository) Capture(ctx context.Context, tenantID string, articleID uuid.UUID, payload pressroom.SnapshotPayload) (uuid.UUID, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal snapshot payload: %w", err)
	}

	query := `
		INSERT INTO article_snapshots (id, tenant_id, article_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	id := uuid.New()
	_, err = r.db.Exec(ctx, query, id, tenantID, articleID, raw, time.Now().UTC())
	if err != nil {
		return uuid.Nil, handlePostgresError("capture snapshot", err)
	}

	return id, nil
}

func (r *Repository) ListFor(ctx context.Context, tenantID string, articleID uuid.UUID) ([]*pressroom.Snapshot, error) {
	query := `
		SELECT id, tenant_id, article_id, payload, created_at
		FROM article_snapshots
		WHERE tenant_id = $1 AND article_id = $2
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, tenantID, articleID)
	if err != nil {
		return nil, handlePostgresError("list snapshots", err)
	}
	defer rows.Close()

	var snapshots []*pressroom.Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, rows.Err()
}

func (r *Repository) Get(ctx context.Context, snapshotID uuid.UUID) (*pressroom.Snapshot, error) {
	query := `
		SELECT id, tenant_id, article_id, payload, created_at
		FROM article_snapshots WHERE id = $1`

	snapshot, err := scanSnapshot(r.db.QueryRow(ctx, query, snapshotID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pressroom.ErrSnapshotNotFound
		}
		return nil, err
	}

	return snapshot, nil
}

// Row helpers

func marshalFields(article *pressroom.Article) (title, body, metadata []byte, err error) {
	if title, err = json.Marshal(article.Title); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal title: %w", err)
	}
	if body, err = json.Marshal(article.Body); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal body: %w", err)
	}
	if article.Metadata != nil {
		if metadata, err = json.Marshal(article.Metadata); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}
	return title, body, metadata, nil
}

func scanArticle(row pgx.Row) (*pressroom.Article, error) {
	var (
		article        pressroom.Article
		title, body    []byte
		metadata       []byte
		status, locale string
	)

	err := row.Scan(&article.ID, &article.TenantID, &title, &body, &status,
		&metadata, &locale, &article.PublishedAt, &article.CreatedAt, &article.UpdatedAt)
	if err != nil {
		return nil, err
	}

	article.Status = pressroom.Status(status)
	article.Locale = pressroom.Locale(locale)
	if err := json.Unmarshal(title, &article.Title); err != nil {
		return nil, fmt.Errorf("unmarshal title: %w", err)
	}
	if err := json.Unmarshal(body, &article.Body); err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &article.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return &article, nil
}

func scanSnapshot(row pgx.Row) (*pressroom.Snapshot, error) {
	var (
		snapshot pressroom.Snapshot
		payload  []byte
	)

	err := row.Scan(&snapshot.ID, &snapshot.TenantID, &snapshot.ArticleID, &payload, &snapshot.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payload, &snapshot.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot payload: %w", err)
	}

	return &snapshot, nil
}
