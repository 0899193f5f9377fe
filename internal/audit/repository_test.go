package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/doorman/internal/access"
	"github.com/nerrad567/doorman/internal/infrastructure/database"
	"github.com/nerrad567/doorman/migrations"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	require.NoError(t, db.Migrate(ctx, migrations.FS))
	return NewSQLiteRepository(db.DB)
}

func TestCreateAndList(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, kind := range []string{"detected", "denied", "detected", "allowed", "opened"} {
		e := &Entry{Kind: kind, Device: "phone/AA:BB:CC:DD:EE:FF (-70)", SiteID: "door-001", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, repo.Create(ctx, e))
		assert.NotEmpty(t, e.ID)
	}

	all, err := repo.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 5, all.Total)
	assert.Equal(t, 50, all.Limit)
	require.Len(t, all.Entries, 5)
	assert.Equal(t, "opened", all.Entries[0].Kind, "newest first")
	assert.True(t, all.Entries[0].CreatedAt.Equal(base.Add(4*time.Second)))

	detected, err := repo.List(ctx, Filter{Kind: "detected"})
	require.NoError(t, err)
	assert.Equal(t, 2, detected.Total)

	page, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "denied", page.Entries[1].Kind)

	recent, err := repo.List(ctx, Filter{Since: base.Add(3 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, 2, recent.Total)
}

func TestListEmpty(t *testing.T) {
	res, err := setupTestRepo(t).List(context.Background(), Filter{Limit: 1000})
	require.NoError(t, err)
	assert.NotNil(t, res.Entries)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 200, res.Limit)
}

func TestRecorderWritesEvents(t *testing.T) {
	repo := setupTestRepo(t)
	rec := NewRecorder(repo, "door-001")
	ctx := context.Background()

	rec.Record(ctx, access.Event{Kind: access.EventDetected, Device: "phone", At: time.Now()})
	rec.Record(ctx, access.Event{
		Kind:  access.EventFailed,
		Stage: "actuate",
		Err:   errors.New("relay jammed"),
		At:    time.Now(),
	})

	res, err := repo.List(ctx, Filter{Kind: string(access.EventFailed)})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "actuate", res.Entries[0].Stage)
	assert.Equal(t, "relay jammed", res.Entries[0].Error)
	assert.Equal(t, "door-001", res.Entries[0].SiteID)
}

type failingRepo struct{ warned int }

func (f *failingRepo) Create(context.Context, *Entry) error { return errors.New("database is locked") }

func (f *failingRepo) List(context.Context, Filter) (*ListResult, error) { return nil, nil }

func (f *failingRepo) Warn(string, ...any) { f.warned++ }

func TestRecorderLogsFailures(t *testing.T) {
	repo := &failingRepo{}
	rec := NewRecorder(repo, "door-001")
	rec.SetLogger(repo)

	rec.Record(context.Background(), access.Event{Kind: access.EventOpened})
	assert.Equal(t, 1, repo.warned)
}
