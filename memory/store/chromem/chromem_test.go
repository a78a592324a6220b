package chromem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tidemark-ai/tiermem/memory"
	"github.com/tidemark-ai/tiermem/memory/embedder/mock"
)

func embedText(t *testing.T, text string) []float32 {
	t.Helper()
	emb, err := mock.New().Embed(context.Background(), text)
	require.NoError(t, err)
	return emb
}

func longRecord(t *testing.T, owner, content string) *memory.Record {
	t.Helper()
	rec := memory.NewRecord(owner, content, memory.SourceExtracted, time.Hour)
	rec.Tier = memory.TierLong
	rec.TTLExpiresAt = time.Time{}
	rec.AccessCount = 3
	rec.Embedding = embedText(t, content)
	return rec
}

func TestUpsertAndQuery(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	rec := longRecord(t, "alice", "my favorite color is blue")
	require.NoError(t, s.Upsert(ctx, "alice", rec))

	results, err := s.Query(ctx, "alice", embedText(t, "favorite color"), 5, 0.05)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, rec.ID, results[0].Record.ID)
	require.Equal(t, "my favorite color is blue", results[0].Record.Content)
	require.Equal(t, memory.TierLong, results[0].Record.Tier)
	require.Equal(t, int64(3), results[0].Record.AccessCount)
	require.Greater(t, results[0].Score, 0.05)
	require.LessOrEqual(t, results[0].Score, 1.0)
}

func TestUpsertSameIDOverwrites(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	rec := longRecord(t, "alice", "my favorite color is blue")
	require.NoError(t, s.Upsert(ctx, "alice", rec))
	rec.AccessCount = 7
	require.NoError(t, s.Upsert(ctx, "alice", rec))

	n, err := s.Count(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	results, err := s.Query(ctx, "alice", embedText(t, "favorite color"), 5, 0.05)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(7), results[0].Record.AccessCount)
}

func TestQueryMinScoreExcludes(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "alice", longRecord(t, "alice", "my favorite color is blue")))
	require.NoError(t, s.Upsert(ctx, "alice", longRecord(t, "alice", "parrots can mimic speech")))

	results, err := s.Query(ctx, "alice", embedText(t, "my favorite color"), 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Contains(t, results[0].Record.Content, "blue")
}

func TestQueryEmptyCollection(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	results, err := s.Query(context.Background(), "nobody", embedText(t, "anything"), 5, 0.05)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestDeleteMatching(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "alice", longRecord(t, "alice", "my favorite color is blue")))
	require.NoError(t, s.Upsert(ctx, "alice", longRecord(t, "alice", "I have a dog named Rex")))

	removed, err := s.DeleteMatching(ctx, "alice", embedText(t, "my favorite color"), 0.6)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	n, err := s.Count(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// Nothing left above the threshold: a normal zero-count outcome.
	removed, err = s.DeleteMatching(ctx, "alice", embedText(t, "my favorite color"), 0.6)
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestOwnerIsolation(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "alice", longRecord(t, "alice", "my favorite color is blue")))
	require.NoError(t, s.Upsert(ctx, "bob", longRecord(t, "bob", "my favorite color is green")))

	results, err := s.Query(ctx, "alice", embedText(t, "favorite color"), 10, 0.05)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Contains(t, results[0].Record.Content, "blue")

	removed, err := s.DeleteMatching(ctx, "alice", embedText(t, "favorite color"), 0.1)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	n, err := s.Count(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestTotalCount(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "alice", longRecord(t, "alice", "alice fact one")))
	require.NoError(t, s.Upsert(ctx, "alice", longRecord(t, "alice", "alice fact two")))
	require.NoError(t, s.Upsert(ctx, "bob", longRecord(t, "bob", "bob fact")))

	total, err := s.TotalCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, total)
}

func TestPersistentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewPersistent(dir)
	require.NoError(t, err)
	rec := longRecord(t, "alice", "my favorite color is blue")
	require.NoError(t, s.Upsert(ctx, "alice", rec))

	// A fresh store over the same directory sees the record.
	s2, err := NewPersistent(dir)
	require.NoError(t, err)
	results, err := s2.Query(ctx, "alice", embedText(t, "favorite color"), 5, 0.05)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, rec.ID, results[0].Record.ID)
}

func TestTotalCountSeesPersistedCollections(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewPersistent(dir)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, "alice", longRecord(t, "alice", "my favorite color is blue")))
	require.NoError(t, s.Upsert(ctx, "bob", longRecord(t, "bob", "I love sailing on weekends")))

	// The reopened store must aggregate collections loaded from disk
	// before any owner has been queried through it.
	s2, err := NewPersistent(dir)
	require.NoError(t, err)

	total, err := s2.TotalCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, total)

	n, err := s2.Count(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDeleteByID(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	rec := longRecord(t, "alice", "my favorite color is blue")
	require.NoError(t, s.Upsert(ctx, "alice", rec))

	require.NoError(t, s.Delete(ctx, "alice", rec.ID))
	n, err := s.Count(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, n)

	// Unknown IDs are a no-op.
	require.NoError(t, s.Delete(ctx, "alice", "no-such-id"))
}

func TestSpentContextIsUnavailable(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Query(ctx, "alice", embedText(t, "anything"), 5, 0.05)
	require.ErrorIs(t, err, memory.ErrUnavailable)
}
