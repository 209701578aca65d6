package pressroom_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroom-io/pressroom/pkg/pressroom"
	"github.com/pressroom-io/pressroom/pkg/pressroom/authz"
	mirrormemory "github.com/pressroom-io/pressroom/pkg/pressroom/mirror/memory"
	"github.com/pressroom-io/pressroom/pkg/pressroom/repo/memory"
	"github.com/pressroom-io/pressroom/pkg/pressroom/search/bleveindex"
)

var (
	tenantCW     = pressroom.TenantContext{ID: "cw", Name: "CommonWealth"}
	tenantHealth = pressroom.TenantContext{ID: "health", Name: "Health"}

	chiefEditor = pressroom.Actor{ID: uuid.New(), Roles: []string{authz.RoleChiefEditor}}
	editor      = pressroom.Actor{ID: uuid.New(), Roles: []string{authz.RoleEditor}}
	reviewer    = pressroom.Actor{ID: uuid.New(), Roles: []string{authz.RoleReviewer}}
	nobody      = pressroom.Actor{ID: uuid.New()}
)

type testEnv struct {
	svc    pressroom.Service
	repo   *memory.Repository
	mirror *mirrormemory.Mirror
	index  *bleveindex.Index
	audit  *pressroom.MemoryAuditSink
	events *pressroom.ChannelEventSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:   memory.New(),
		mirror: mirrormemory.New(),
		index:  bleveindex.NewMemOnly(),
		audit:  pressroom.NewMemoryAuditSink(),
		events: pressroom.NewChannelEventSink(16, nil),
	}
	t.Cleanup(func() { env.index.Close() })

	svc, err := pressroom.New(
		pressroom.WithPrimaryStore(env.repo),
		pressroom.WithVersionStore(env.repo),
		pressroom.WithMirrorStore(env.mirror),
		pressroom.WithSearchIndex(env.index),
		pressroom.WithAuthorizer(authz.NewDefault()),
		pressroom.WithAuditSink(env.audit),
		pressroom.WithEventSink(env.events),
	)
	require.NoError(t, err)

	env.svc = svc
	return env
}

func createDraft(t *testing.T, env *testEnv, tenant pressroom.TenantContext, title, body string) *pressroom.Article {
	t.Helper()

	article, err := env.svc.Create(context.Background(), tenant, editor, pressroom.CreateArticleRequest{
		Title: pressroom.Translations{pressroom.LocaleZhTW: title},
		Body:  pressroom.Translations{pressroom.LocaleZhTW: body},
	})
	require.NoError(t, err)
	return article
}

func TestServiceCreation(t *testing.T) {
	repo := memory.New()

	tests := []struct {
		name        string
		options     []pressroom.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []pressroom.Option{},
			expectError: true,
		},
		{
			name: "missing version store should fail",
			options: []pressroom.Option{
				pressroom.WithPrimaryStore(repo),
			},
			expectError: true,
		},
		{
			name: "with both stores should succeed",
			options: []pressroom.Option{
				pressroom.WithPrimaryStore(repo),
				pressroom.WithVersionStore(repo),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := pressroom.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestCreateArticle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	metadata := map[string]interface{}{"section": "news"}
	article, err := env.svc.Create(ctx, tenantCW, editor, pressroom.CreateArticleRequest{
		Title:    pressroom.Translations{pressroom.LocaleZhTW: "測試標題"},
		Body:     pressroom.Translations{pressroom.LocaleZhTW: "測試內容"},
		Metadata: metadata,
	})
	require.NoError(t, err)

	// The article owns its own metadata copy
	metadata["section"] = "sports"
	assert.Equal(t, map[string]interface{}{"section": "news"}, article.Metadata)

	assert.NotEqual(t, uuid.Nil, article.ID)
	assert.Equal(t, "cw", article.TenantID)
	assert.Equal(t, pressroom.StatusDraft, article.Status)
	assert.Equal(t, pressroom.DefaultLocale, article.Locale)
	assert.Nil(t, article.PublishedAt)

	// Round trip through the primary store
	got, err := env.svc.Get(ctx, tenantCW, article.ID)
	require.NoError(t, err)
	assert.Equal(t, article.Title, got.Title)
	assert.Equal(t, article.Body, got.Body)

	// The mirror received the same document
	mirrored, err := env.mirror.Get(ctx, "cw", article.ID)
	require.NoError(t, err)
	assert.Equal(t, article.Title, mirrored.Title)

	// An audit entry was recorded
	entries := env.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "created", entries[0].Event)
	assert.Equal(t, article.ID.String(), entries[0].SubjectID)
	assert.Equal(t, editor.ID, entries[0].ActorID)
}

func TestCreateArticleRejectsInvalidRequest(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), tenantCW, editor, pressroom.CreateArticleRequest{
		Title: pressroom.Translations{pressroom.LocaleZhTW: "標題"},
	})
	assert.Error(t, err)
}

func TestEditorialWorkflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := createDraft(t, env, tenantCW, "測試", "內容")

	// Actors without review rights cannot submit; editors only edit
	_, err := env.svc.SubmitForReview(ctx, tenantCW, nobody, article.ID)
	assert.ErrorIs(t, err, pressroom.ErrNotAuthorized)
	_, err = env.svc.SubmitForReview(ctx, tenantCW, editor, article.ID)
	assert.ErrorIs(t, err, pressroom.ErrNotAuthorized)

	// The chief editor submits for review
	inReview, err := env.svc.SubmitForReview(ctx, tenantCW, chiefEditor, article.ID)
	require.NoError(t, err)
	assert.Equal(t, pressroom.StatusReview, inReview.Status)

	// The editor cannot approve their own submission
	_, err = env.svc.Approve(ctx, tenantCW, editor, article.ID)
	assert.ErrorIs(t, err, pressroom.ErrNotAuthorized)

	// The reviewer approves and the article goes live
	published, err := env.svc.Approve(ctx, tenantCW, reviewer, article.ID)
	require.NoError(t, err)
	assert.Equal(t, pressroom.StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	// Exactly one published event was emitted
	select {
	case event := <-env.events.Published():
		assert.Equal(t, article.ID, event.ArticleID)
		assert.Equal(t, "cw", event.TenantID)
	default:
		t.Fatal("expected a published event")
	}
	select {
	case <-env.events.Published():
		t.Fatal("expected exactly one published event")
	default:
	}

	// The published article is findable through search
	result, err := env.svc.Search(ctx, tenantCW, pressroom.LocaleZhTW, "測試")
	require.NoError(t, err)
	require.NotEmpty(t, result.Matches)
	assert.Equal(t, article.ID, result.Matches[0].ID)
}

func TestRejectReturnsToDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := createDraft(t, env, tenantCW, "標題", "內容")

	_, err := env.svc.SubmitForReview(ctx, tenantCW, chiefEditor, article.ID)
	require.NoError(t, err)

	rejected, err := env.svc.Reject(ctx, tenantCW, reviewer, article.ID)
	require.NoError(t, err)
	assert.Equal(t, pressroom.StatusDraft, rejected.Status)
	assert.Nil(t, rejected.PublishedAt)
}

func TestIllegalTransitionsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := createDraft(t, env, tenantCW, "標題", "內容")

	// Approving a draft skips review and must fail
	_, err := env.svc.Approve(ctx, tenantCW, chiefEditor, article.ID)
	var transitionErr *pressroom.TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, pressroom.StatusDraft, transitionErr.From)
	assert.Equal(t, pressroom.StatusPublished, transitionErr.To)

	// Submitting an article already in review must fail
	_, err = env.svc.SubmitForReview(ctx, tenantCW, chiefEditor, article.ID)
	require.NoError(t, err)
	_, err = env.svc.SubmitForReview(ctx, tenantCW, chiefEditor, article.ID)
	assert.ErrorAs(t, err, &transitionErr)
}

func TestPublishDirect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := createDraft(t, env, tenantCW, "標題", "內容")

	// Editors lack the publish capability
	_, err := env.svc.PublishDirect(ctx, tenantCW, editor, article.ID)
	assert.ErrorIs(t, err, pressroom.ErrNotAuthorized)

	// The chief editor publishes straight from draft
	published, err := env.svc.PublishDirect(ctx, tenantCW, chiefEditor, article.ID)
	require.NoError(t, err)
	assert.Equal(t, pressroom.StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	// Publishing an already published article is rejected
	_, err = env.svc.PublishDirect(ctx, tenantCW, chiefEditor, article.ID)
	var transitionErr *pressroom.TransitionError
	assert.ErrorAs(t, err, &transitionErr)

	// One event for the single successful publish
	select {
	case event := <-env.events.Published():
		assert.Equal(t, article.ID, event.ArticleID)
	default:
		t.Fatal("expected a published event")
	}
}

func TestUpdateCapturesSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := createDraft(t, env, tenantCW, "第一版", "內容一")

	_, err := env.svc.Update(ctx, tenantCW, editor, pressroom.UpdateArticleRequest{
		ArticleID: article.ID,
		Title:     pressroom.Translations{pressroom.LocaleZhTW: "第二版"},
	})
	require.NoError(t, err)

	updated, err := env.svc.Update(ctx, tenantCW, editor, pressroom.UpdateArticleRequest{
		ArticleID: article.ID,
		Title:     pressroom.Translations{pressroom.LocaleZhTW: "第三版"},
		Body:      pressroom.Translations{pressroom.LocaleEN: "English body"},
	})
	require.NoError(t, err)

	// Merging adds the new locale and keeps the old one
	assert.Equal(t, "第三版", updated.Title[pressroom.LocaleZhTW])
	assert.Equal(t, "內容一", updated.Body[pressroom.LocaleZhTW])
	assert.Equal(t, "English body", updated.Body[pressroom.LocaleEN])

	// Each update captured the pre-update state, oldest first
	snapshots, err := env.svc.History(ctx, tenantCW, editor, article.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "第一版", snapshots[0].Payload.Title[pressroom.LocaleZhTW])
	assert.Equal(t, "第二版", snapshots[1].Payload.Title[pressroom.LocaleZhTW])
	for _, snapshot := range snapshots {
		assert.Equal(t, article.ID, snapshot.ArticleID)
		assert.Equal(t, "cw", snapshot.TenantID)
	}
}

func TestHistoryRequiresCapability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := createDraft(t, env, tenantCW, "標題", "內容")

	_, err := env.svc.History(ctx, tenantCW, nobody, article.ID)
	assert.ErrorIs(t, err, pressroom.ErrNotAuthorized)

	_, err = env.svc.History(ctx, tenantCW, editor, uuid.New())
	assert.ErrorIs(t, err, pressroom.ErrArticleNotFound)
}

func TestRestore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := createDraft(t, env, tenantCW, "原始標題", "原始內容")

	_, err := env.svc.Update(ctx, tenantCW, editor, pressroom.UpdateArticleRequest{
		ArticleID: article.ID,
		Title:     pressroom.Translations{pressroom.LocaleZhTW: "改過的標題"},
	})
	require.NoError(t, err)

	snapshots, err := env.svc.History(ctx, tenantCW, editor, article.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	// Only the chief editor may restore
	_, err = env.svc.Restore(ctx, tenantCW, editor, article.ID, snapshots[0].ID)
	assert.ErrorIs(t, err, pressroom.ErrNotAuthorized)

	restored, err := env.svc.Restore(ctx, tenantCW, chiefEditor, article.ID, snapshots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "原始標題", restored.Title[pressroom.LocaleZhTW])
	assert.Equal(t, pressroom.StatusDraft, restored.Status)

	// Restoring does not capture a new snapshot
	after, err := env.svc.History(ctx, tenantCW, chiefEditor, article.ID)
	require.NoError(t, err)
	assert.Len(t, after, 1)
}

func TestRestoreRejectsForeignSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := createDraft(t, env, tenantCW, "甲", "甲文")
	other := createDraft(t, env, tenantCW, "乙", "乙文")

	_, err := env.svc.Update(ctx, tenantCW, editor, pressroom.UpdateArticleRequest{
		ArticleID: other.ID,
		Title:     pressroom.Translations{pressroom.LocaleZhTW: "乙二"},
	})
	require.NoError(t, err)

	snapshots, err := env.svc.History(ctx, tenantCW, editor, other.ID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	// A snapshot belonging to another article cannot be restored
	_, err = env.svc.Restore(ctx, tenantCW, chiefEditor, article.ID, snapshots[0].ID)
	assert.ErrorIs(t, err, pressroom.ErrSnapshotNotFound)

	// Nor can a missing snapshot
	_, err = env.svc.Restore(ctx, tenantCW, chiefEditor, article.ID, uuid.New())
	assert.ErrorIs(t, err, pressroom.ErrSnapshotNotFound)
}

func TestDeleteArticle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := createDraft(t, env, tenantCW, "要刪的", "內容")

	require.NoError(t, env.svc.Delete(ctx, tenantCW, editor, article.ID))

	_, err := env.svc.Get(ctx, tenantCW, article.ID)
	assert.ErrorIs(t, err, pressroom.ErrArticleNotFound)

	_, err = env.mirror.Get(ctx, "cw", article.ID)
	assert.ErrorIs(t, err, pressroom.ErrArticleNotFound)

	result, err := env.svc.Search(ctx, tenantCW, pressroom.LocaleZhTW, "要刪的")
	require.NoError(t, err)
	assert.Empty(t, result.Matches)

	// Deleting twice reports not found
	err = env.svc.Delete(ctx, tenantCW, editor, article.ID)
	assert.ErrorIs(t, err, pressroom.ErrArticleNotFound)
}

func TestTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	article := createDraft(t, env, tenantCW, "雜誌文章", "內容")

	// Another tenant cannot see, mutate, or search the article
	_, err := env.svc.Get(ctx, tenantHealth, article.ID)
	assert.ErrorIs(t, err, pressroom.ErrArticleNotFound)

	_, err = env.svc.SubmitForReview(ctx, tenantHealth, chiefEditor, article.ID)
	assert.ErrorIs(t, err, pressroom.ErrArticleNotFound)

	result, err := env.svc.Search(ctx, tenantHealth, pressroom.LocaleZhTW, "雜誌")
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
}

func TestListFiltersByLocale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createDraft(t, env, tenantCW, "中文限定", "內容")
	_, err := env.svc.Create(ctx, tenantCW, editor, pressroom.CreateArticleRequest{
		Title:  pressroom.Translations{pressroom.LocaleEN: "English only"},
		Body:   pressroom.Translations{pressroom.LocaleEN: "Body"},
		Locale: pressroom.LocaleEN,
	})
	require.NoError(t, err)

	all, err := env.svc.List(ctx, tenantCW, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	english, err := env.svc.List(ctx, tenantCW, pressroom.LocaleEN)
	require.NoError(t, err)
	require.Len(t, english, 1)
	assert.Equal(t, "English only", english[0].Title[pressroom.LocaleEN])
}

func TestSearchEdgeCases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Empty query returns an empty result without error
	result, err := env.svc.Search(ctx, tenantCW, pressroom.LocaleZhTW, "   ")
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Empty(t, result.Suggestions)

	// Empty locale falls back to the default locale
	createDraft(t, env, tenantCW, "預設語系", "內容")
	result, err = env.svc.Search(ctx, tenantCW, "", "預設")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Matches)

	// Unknown locale is rejected with an empty result
	result, err = env.svc.Search(ctx, tenantCW, pressroom.Locale("fr"), "quoi")
	assert.ErrorIs(t, err, pressroom.ErrInvalidLocale)
	assert.Empty(t, result.Matches)
}

// failingMirror and failingIndex simulate derived store outages.

type failingMirror struct{}

func (failingMirror) Upsert(context.Context, *pressroom.Article) error {
	return errors.New("mirror down")
}
func (failingMirror) Delete(context.Context, string, uuid.UUID) error {
	return errors.New("mirror down")
}
func (failingMirror) Get(context.Context, string, uuid.UUID) (*pressroom.Article, error) {
	return nil, errors.New("mirror down")
}

type failingIndex struct{}

func (failingIndex) Upsert(context.Context, *pressroom.Article) error {
	return errors.New("index down")
}
func (failingIndex) Remove(context.Context, string, uuid.UUID) error {
	return errors.New("index down")
}
func (failingIndex) Query(context.Context, string, pressroom.Locale, string) (*pressroom.SearchResult, error) {
	return nil, errors.New("index down")
}

func TestDerivedStoreFailuresAreSwallowed(t *testing.T) {
	repo := memory.New()
	svc, err := pressroom.New(
		pressroom.WithPrimaryStore(repo),
		pressroom.WithVersionStore(repo),
		pressroom.WithMirrorStore(failingMirror{}),
		pressroom.WithSearchIndex(failingIndex{}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	article, err := svc.Create(ctx, tenantCW, editor, pressroom.CreateArticleRequest{
		Title: pressroom.Translations{pressroom.LocaleZhTW: "標題"},
		Body:  pressroom.Translations{pressroom.LocaleZhTW: "內容"},
	})
	require.NoError(t, err)

	// The primary write committed despite both derived stores failing
	got, err := svc.Get(ctx, tenantCW, article.ID)
	require.NoError(t, err)
	assert.Equal(t, article.ID, got.ID)

	// Deleting also survives derived failures
	require.NoError(t, svc.Delete(ctx, tenantCW, editor, article.ID))

	// Search failures surface the error alongside an empty result
	result, err := svc.Search(ctx, tenantCW, pressroom.LocaleZhTW, "標題")
	assert.Error(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result.Matches)
}

// failingPrimary fails every write to prove primary errors are fatal.

type failingPrimary struct {
	pressroom.PrimaryStore
}

func (failingPrimary) CreateArticle(context.Context, *pressroom.Article) error {
	return fmt.Errorf("primary down")
}

func TestPrimaryStoreFailureIsFatal(t *testing.T) {
	repo := memory.New()
	svc, err := pressroom.New(
		pressroom.WithPrimaryStore(failingPrimary{PrimaryStore: repo}),
		pressroom.WithVersionStore(repo),
	)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), tenantCW, editor, pressroom.CreateArticleRequest{
		Title: pressroom.Translations{pressroom.LocaleZhTW: "標題"},
		Body:  pressroom.Translations{pressroom.LocaleZhTW: "內容"},
	})
	require.Error(t, err)

	var articleErr *pressroom.ArticleError
	require.ErrorAs(t, err, &articleErr)
	assert.Equal(t, "create", articleErr.Op)
}
