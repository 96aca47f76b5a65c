package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadhunter/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleRecords() []model.BusinessRecord {
	return []model.BusinessRecord{
		{
			Number: 1, Name: "Sharma Sweets", Rating: model.Float(4.5), ReviewCount: model.Int(1234),
			Phone: "+91 98765 43210", Address: "12 MG Road, Lucknow 226001", Hours: model.NotFound,
			Website: model.NotFound, PlusCode: model.NotFound, Latitude: "26.8467", Longitude: "80.9462",
			PermalinkURL: "https://maps.example/place/a", PlaceID: "0x1:0x2", Method: model.MethodStructured,
		},
		{
			Number: 2, Name: "Gupta Kirana", Phone: model.NotFound, Address: model.NotFound,
			Hours: model.NotFound, Website: model.NotFound, PlusCode: model.NotFound,
			Latitude: model.NotFound, Longitude: model.NotFound, PermalinkURL: "https://maps.example/place/b",
			PlaceID: model.NotFound, Method: model.MethodRegex,
		},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "snapshots/lucknow")
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusQueued, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "snapshots/lucknow", got.Source)
		assert.Equal(t, model.RunStatusQueued, got.Status)
		assert.Nil(t, got.Stats)
		assert.Empty(t, got.Error)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("UpdateRunStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "fixture")
		require.NoError(t, err)
		require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusExtracting))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusExtracting, got.Status)

		err = s.UpdateRunStatus(ctx, "missing", model.RunStatusExtracting)
		assert.True(t, IsNotFound(err))
	})

	t.Run("CompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "fixture")
		require.NoError(t, err)

		stats := &model.RunStats{Discovered: 5, Extracted: 4, Skipped: 1, Unique: 3, Duplicates: 1, DurationMs: 1500}
		require.NoError(t, s.CompleteRun(ctx, run.ID, stats))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		require.NotNil(t, got.Stats)
		assert.Equal(t, *stats, *got.Stats)
	})

	t.Run("FailRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "fixture")
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, run.ID, "no entities found"))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "no entities found", got.Error)
	})

	t.Run("ListRunsFilter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.CreateRun(ctx, "a")
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, "b")
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, a.ID, "boom"))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, a.ID, failed[0].ID)

		bySource, err := s.ListRuns(ctx, RunFilter{Source: "b"})
		require.NoError(t, err)
		require.Len(t, bySource, 1)
		assert.Equal(t, "b", bySource[0].Source)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("SaveAndListRecords", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "fixture")
		require.NoError(t, err)

		recs := sampleRecords()
		require.NoError(t, s.SaveRecords(ctx, run.ID, model.StageRaw, recs))
		require.NoError(t, s.SaveRecords(ctx, run.ID, model.StageUnique, recs[:1]))

		raw, err := s.ListRecords(ctx, run.ID, model.StageRaw)
		require.NoError(t, err)
		assert.Equal(t, recs, raw)

		unique, err := s.ListRecords(ctx, run.ID, model.StageUnique)
		require.NoError(t, err)
		assert.Equal(t, recs[:1], unique)
	})

	t.Run("SaveRecordsReplacesStage", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "fixture")
		require.NoError(t, err)

		recs := sampleRecords()
		require.NoError(t, s.SaveRecords(ctx, run.ID, model.StageRaw, recs))
		require.NoError(t, s.SaveRecords(ctx, run.ID, model.StageRaw, recs[1:]))

		raw, err := s.ListRecords(ctx, run.ID, model.StageRaw)
		require.NoError(t, err)
		assert.Equal(t, recs[1:], raw)
	})

	t.Run("ListRecordsEmpty", func(t *testing.T) {
		s := newStore(t)
		recs, err := s.ListRecords(context.Background(), "missing", model.StageRaw)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestNewSQLite_BadPath(t *testing.T) {
	_, err := NewSQLite(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}
