package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroom-io/pressroom/pkg/pressroom"
	mirrormemory "github.com/pressroom-io/pressroom/pkg/pressroom/mirror/memory"
	"github.com/pressroom-io/pressroom/pkg/pressroom/reconcile"
	"github.com/pressroom-io/pressroom/pkg/pressroom/repo/memory"
)

func seedArticle(t *testing.T, repo *memory.Repository, tenantID, title string) *pressroom.Article {
	t.Helper()

	article := &pressroom.Article{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Title:     pressroom.Translations{pressroom.LocaleZhTW: title},
		Body:      pressroom.Translations{pressroom.LocaleZhTW: "內容"},
		Status:    pressroom.StatusPublished,
		Locale:    pressroom.DefaultLocale,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateArticle(context.Background(), article))
	return article
}

func TestNewRequiresDerivedStore(t *testing.T) {
	repo := memory.New()

	_, err := reconcile.New(repo, reconcile.Options{})
	assert.Error(t, err)

	_, err = reconcile.New(nil, reconcile.Options{Mirror: mirrormemory.New()})
	assert.Error(t, err)
}

func TestRunRepairsMirror(t *testing.T) {
	repo := memory.New()
	mirror := mirrormemory.New()
	ctx := context.Background()

	first := seedArticle(t, repo, "cw", "一")
	second := seedArticle(t, repo, "health", "二")

	// The mirror starts empty; a reconcile pass backfills it
	r, err := reconcile.New(repo, reconcile.Options{Mirror: mirror})
	require.NoError(t, err)

	result, err := r.Run(ctx, []string{"cw", "health"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalFound)
	assert.Equal(t, int64(2), result.TotalRepaired)
	assert.Equal(t, int64(0), result.TotalFailed)

	got, err := mirror.Get(ctx, "cw", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Title, got.Title)

	_, err = mirror.Get(ctx, "health", second.ID)
	assert.NoError(t, err)
}

type flakyMirror struct {
	failID uuid.UUID
	inner  *mirrormemory.Mirror
}

func (f *flakyMirror) Upsert(ctx context.Context, article *pressroom.Article) error {
	if article.ID == f.failID {
		return errors.New("write refused")
	}
	return f.inner.Upsert(ctx, article)
}

func (f *flakyMirror) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	return f.inner.Delete(ctx, tenantID, id)
}

func (f *flakyMirror) Get(ctx context.Context, tenantID string, id uuid.UUID) (*pressroom.Article, error) {
	return f.inner.Get(ctx, tenantID, id)
}

func TestRunContinuesPastFailures(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	bad := seedArticle(t, repo, "cw", "壞")
	good := seedArticle(t, repo, "cw", "好")

	mirror := &flakyMirror{failID: bad.ID, inner: mirrormemory.New()}
	r, err := reconcile.New(repo, reconcile.Options{Mirror: mirror})
	require.NoError(t, err)

	result, err := r.Run(ctx, []string{"cw"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalFound)
	assert.Equal(t, int64(1), result.TotalRepaired)
	assert.Equal(t, int64(1), result.TotalFailed)
	assert.Equal(t, []string{bad.ID.String()}, result.FailedIDs)

	// The healthy article still made it through
	_, err = mirror.Get(ctx, "cw", good.ID)
	assert.NoError(t, err)
}
