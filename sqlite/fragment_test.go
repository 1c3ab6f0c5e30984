package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFragment(contentID string, index, total int, text string, vector ...float32) *sitechat.Fragment {
	if len(vector) == 0 {
		vector = []float32{1, 0}
	}
	return &sitechat.Fragment{
		ContentID:   contentID,
		ChunkIndex:  index,
		TotalChunks: total,
		Text:        text,
		Embedding:   vector,
		Metadata: sitechat.FragmentMetadata{
			SourceURL:   "https://example.com/a",
			ChunkIndex:  index,
			TotalChunks: total,
			ContentID:   contentID,
		},
	}
}

// embedAll plans and stores one fragment per text.
func embedAll(t *testing.T, db *sqlite.DB, contentID string, texts []string) {
	t.Helper()
	svc := sqlite.NewFragmentService(db)
	ctx := context.Background()
	require.NoError(t, svc.PlanFragments(ctx, contentID, len(texts)))
	var fragments []*sitechat.Fragment
	for i, text := range texts {
		fragments = append(fragments, newFragment(contentID, i, len(texts), text))
	}
	require.NoError(t, svc.CreateFragments(ctx, contentID, fragments))
}

func TestFragmentService_PlanFragments(t *testing.T) {
	t.Parallel()

	t.Run("records the plan and clears fragments", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		site := createSite(t, db, "docs")
		_, c := savePage(t, db, site.ID, "https://example.com/a", "text")
		embedAll(t, db, c.ID, []string{"a", "b"})

		err := sqlite.NewFragmentService(db).PlanFragments(context.Background(), c.ID, 3)

		require.NoError(t, err)
		found, err := sqlite.NewContentService(db).FindContentByID(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, found.TotalChunks)
		assert.Zero(t, found.FragmentCount)
	})

	t.Run("returns ENOTFOUND for unknown content", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)

		err := sqlite.NewFragmentService(db).PlanFragments(context.Background(), "missing", 2)

		require.Error(t, err)
		assert.Equal(t, sitechat.ENOTFOUND, sitechat.ErrorCode(err))
	})

	t.Run("rejects non-positive totals", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)

		err := sqlite.NewFragmentService(db).PlanFragments(context.Background(), "any", 0)

		require.Error(t, err)
		assert.Equal(t, sitechat.EINVALID, sitechat.ErrorCode(err))
	})
}

func TestFragmentService_CreateFragments(t *testing.T) {
	t.Parallel()

	t.Run("stores fragments and reads them back in order", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewFragmentService(db)
		ctx := context.Background()
		site := createSite(t, db, "docs")
		_, c := savePage(t, db, site.ID, "https://example.com/a", "text")
		require.NoError(t, svc.PlanFragments(ctx, c.ID, 2))

		err := svc.CreateFragments(ctx, c.ID, []*sitechat.Fragment{
			newFragment(c.ID, 1, 2, "second", 0.5, -0.25),
			newFragment(c.ID, 0, 2, "first", 1, 2),
		})

		require.NoError(t, err)
		fragments, err := svc.FindFragments(ctx, sitechat.FragmentFilter{ContentID: &c.ID})
		require.NoError(t, err)
		require.Len(t, fragments, 2)
		assert.Equal(t, "first", fragments[0].Text)
		assert.Equal(t, []float32{1, 2}, fragments[0].Embedding)
		assert.Equal(t, []float32{0.5, -0.25}, fragments[1].Embedding)
		assert.Equal(t, "https://example.com/a", fragments[1].Metadata.SourceURL)
		assert.NotEmpty(t, fragments[1].ID)
	})

	t.Run("completes a partially embedded record", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewFragmentService(db)
		contents := sqlite.NewContentService(db)
		ctx := context.Background()
		site := createSite(t, db, "docs")
		_, c := savePage(t, db, site.ID, "https://example.com/a", "text")
		require.NoError(t, svc.PlanFragments(ctx, c.ID, 2))
		require.NoError(t, svc.CreateFragments(ctx, c.ID, []*sitechat.Fragment{newFragment(c.ID, 0, 2, "first")}))

		partial, err := contents.FindContentByID(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, partial.Partial())
		assert.False(t, partial.Embedded())

		require.NoError(t, svc.CreateFragments(ctx, c.ID, []*sitechat.Fragment{newFragment(c.ID, 1, 2, "second")}))

		complete, err := contents.FindContentByID(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, complete.Embedded())
	})

	t.Run("rejects fragments that do not match the plan", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewFragmentService(db)
		ctx := context.Background()
		site := createSite(t, db, "docs")
		_, c := savePage(t, db, site.ID, "https://example.com/a", "text")
		_, other := savePage(t, db, site.ID, "https://example.com/b", "other")
		require.NoError(t, svc.PlanFragments(ctx, c.ID, 3))
		require.NoError(t, svc.CreateFragments(ctx, c.ID, []*sitechat.Fragment{newFragment(c.ID, 0, 3, "first")}))

		for name, fragments := range map[string][]*sitechat.Fragment{
			"wrong total":       {newFragment(c.ID, 1, 4, "x")},
			"index out of plan": {newFragment(c.ID, 3, 3, "x")},
			"index reused":      {newFragment(c.ID, 0, 3, "x")},
			"duplicate index":   {newFragment(c.ID, 1, 3, "x"), newFragment(c.ID, 1, 3, "y")},
			"other content":     {newFragment(other.ID, 1, 3, "x")},
			"mixed dimensions":  {newFragment(c.ID, 1, 3, "x", 1, 0), newFragment(c.ID, 2, 3, "y", 1, 0, 0)},
			"missing embedding": {{ContentID: c.ID, ChunkIndex: 1, TotalChunks: 3, Text: "x"}},
		} {
			err := svc.CreateFragments(ctx, c.ID, fragments)
			require.Error(t, err, name)
			assert.Equal(t, sitechat.EINVALID, sitechat.ErrorCode(err), name)
		}

		found, err := sqlite.NewContentService(db).FindContentByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, found.FragmentCount)
	})

	t.Run("returns ENOTFOUND for unknown content", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)

		err := sqlite.NewFragmentService(db).CreateFragments(context.Background(), "missing", []*sitechat.Fragment{newFragment("missing", 0, 1, "x")})

		require.Error(t, err)
		assert.Equal(t, sitechat.ENOTFOUND, sitechat.ErrorCode(err))
	})
}

func TestFragmentService_NearestNeighbors(t *testing.T) {
	t.Parallel()

	t.Run("orders fragments by cosine distance", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewFragmentService(db)
		ctx := context.Background()
		site := createSite(t, db, "docs")
		_, c := savePage(t, db, site.ID, "https://example.com/a", "text")
		require.NoError(t, svc.PlanFragments(ctx, c.ID, 3))
		require.NoError(t, svc.CreateFragments(ctx, c.ID, []*sitechat.Fragment{
			newFragment(c.ID, 0, 3, "east", 1, 0),
			newFragment(c.ID, 1, 3, "north", 0, 1),
			newFragment(c.ID, 2, 3, "north-east", 1, 1),
		}))

		results, err := svc.NearestNeighbors(ctx, []float32{2, 0.1}, 2)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "east", results[0].Fragment.Text)
		assert.Equal(t, "north-east", results[1].Fragment.Text)
		assert.Less(t, results[0].Distance, results[1].Distance)
		assert.InDelta(t, 0.0012, results[0].Distance, 0.001)
	})

	t.Run("ignores fragments of other dimensions", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewFragmentService(db)
		ctx := context.Background()
		site := createSite(t, db, "docs")
		_, a := savePage(t, db, site.ID, "https://example.com/a", "a")
		_, b := savePage(t, db, site.ID, "https://example.com/b", "b")
		require.NoError(t, svc.PlanFragments(ctx, a.ID, 1))
		require.NoError(t, svc.PlanFragments(ctx, b.ID, 1))
		require.NoError(t, svc.CreateFragments(ctx, a.ID, []*sitechat.Fragment{newFragment(a.ID, 0, 1, "2d", 1, 0)}))
		require.NoError(t, svc.CreateFragments(ctx, b.ID, []*sitechat.Fragment{newFragment(b.ID, 0, 1, "3d", 1, 0, 0)}))

		results, err := svc.NearestNeighbors(ctx, []float32{1, 0}, 10)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "2d", results[0].Fragment.Text)
	})

	t.Run("returns empty result for empty store", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)

		results, err := sqlite.NewFragmentService(db).NearestNeighbors(context.Background(), []float32{1, 0}, 5)

		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("rejects empty vectors", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)

		_, err := sqlite.NewFragmentService(db).NearestNeighbors(context.Background(), nil, 5)

		require.Error(t, err)
		assert.Equal(t, sitechat.EINVALID, sitechat.ErrorCode(err))
	})
}
