package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/lostfound/core"
	"github.com/poiesic/lostfound/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) storage.ReportRepository {
	t.Helper()
	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func TestAddReports(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	reports := []*core.Report{
		{Kind: core.KindLost, Title: "black wallet", Description: "leather, contains ID card"},
		{Kind: core.KindFound, Title: "car keys", Description: "Toyota brand", Status: core.StatusOpen},
	}

	added, err := repo.AddReports(ctx, reports...)
	require.NoError(t, err)
	require.Len(t, added, 2)

	assert.NotZero(t, added[0].Id)
	assert.NotZero(t, added[1].Id)
	assert.NotEqual(t, added[0].Id, added[1].Id)
	assert.Equal(t, core.StatusOpen, added[0].Status, "status defaults to open")
	assert.False(t, added[0].ReportedAt.IsZero(), "reported-at defaults to now")

	got, err := repo.GetReport(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "black wallet", got.Title)
	assert.Equal(t, "leather, contains ID card", got.Description)
	assert.Equal(t, core.KindLost, got.Kind)
}

func TestGetReport_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetReport(context.Background(), core.ID(999))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetReports_SkipsMissing(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	added, err := repo.AddReports(ctx,
		&core.Report{Kind: core.KindLost, Title: "phone"},
		&core.Report{Kind: core.KindLost, Title: "bag"},
	)
	require.NoError(t, err)

	got, err := repo.GetReports(ctx, added[1].Id, core.ID(12345), added[0].Id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bag", got[0].Title)
	assert.Equal(t, "phone", got[1].Title)
}

func TestListReports(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	added, err := repo.AddReports(ctx,
		&core.Report{Kind: core.KindFound, Title: "umbrella"},
		&core.Report{Kind: core.KindLost, Title: "wallet"},
		&core.Report{Kind: core.KindFound, Title: "keys"},
		&core.Report{Kind: core.KindFound, Title: "scarf", Status: core.StatusResolved},
		&core.Report{Kind: core.KindFound, Title: "watch"},
	)
	require.NoError(t, err)

	t.Run("open found in submission order", func(t *testing.T) {
		got, err := repo.ListReports(ctx, core.KindFound, core.StatusOpen)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, added[0].Id, got[0].Id)
		assert.Equal(t, added[2].Id, got[1].Id)
		assert.Equal(t, added[4].Id, got[2].Id)
	})

	t.Run("resolved found", func(t *testing.T) {
		got, err := repo.ListReports(ctx, core.KindFound, core.StatusResolved)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "scarf", got[0].Title)
	})

	t.Run("open lost", func(t *testing.T) {
		got, err := repo.ListReports(ctx, core.KindLost, core.StatusOpen)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "wallet", got[0].Title)
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := repo.ListReports(ctx, core.Kind(0), core.StatusOpen)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestUpdateReports(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	added, err := repo.AddReports(ctx, &core.Report{Kind: core.KindLost, Title: "phone"})
	require.NoError(t, err)
	report := added[0]

	t.Run("text and status change", func(t *testing.T) {
		report.Description = "cracked screen"
		report.Status = core.StatusResolved
		_, err := repo.UpdateReports(ctx, report)
		require.NoError(t, err)

		got, err := repo.GetReport(ctx, report.Id)
		require.NoError(t, err)
		assert.Equal(t, "cracked screen", got.Description)

		open, err := repo.ListReports(ctx, core.KindLost, core.StatusOpen)
		require.NoError(t, err)
		assert.Empty(t, open)

		resolved, err := repo.ListReports(ctx, core.KindLost, core.StatusResolved)
		require.NoError(t, err)
		require.Len(t, resolved, 1)
	})

	t.Run("kind is immutable", func(t *testing.T) {
		changed := *report
		changed.Kind = core.KindFound
		_, err := repo.UpdateReports(ctx, &changed)
		assert.ErrorIs(t, err, storage.ErrKindChanged)

		got, err := repo.GetReport(ctx, report.Id)
		require.NoError(t, err)
		assert.Equal(t, core.KindLost, got.Kind)
	})

	t.Run("missing report", func(t *testing.T) {
		_, err := repo.UpdateReports(ctx, &core.Report{Id: 4242, Kind: core.KindLost, Title: "x"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestDeleteReports(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	added, err := repo.AddReports(ctx, &core.Report{Kind: core.KindFound, Title: "bicycle"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteReports(ctx, added[0].Id))

	_, err = repo.GetReport(ctx, added[0].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	listed, err := repo.ListReports(ctx, core.KindFound, core.StatusOpen)
	require.NoError(t, err)
	assert.Empty(t, listed)

	recent, err := repo.RecentReports(ctx, core.KindFound, 5)
	require.NoError(t, err)
	assert.Empty(t, recent)

	assert.ErrorIs(t, repo.DeleteReports(ctx, added[0].Id), storage.ErrNotFound)
}

func TestRecentReports(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err = repo.AddReports(ctx,
		&core.Report{Kind: core.KindLost, Title: "Lost 1", ReportedAt: now.Add(-4 * time.Hour)},
		&core.Report{Kind: core.KindFound, Title: "Found 1", ReportedAt: now.Add(-3 * time.Hour)},
		&core.Report{Kind: core.KindLost, Title: "Lost 2", ReportedAt: now.Add(-2 * time.Hour)},
		&core.Report{Kind: core.KindLost, Title: "Lost 3", ReportedAt: now.Add(-1 * time.Hour)},
		&core.Report{Kind: core.KindLost, Title: "Lost 4", ReportedAt: now},
	)
	if err != nil {
		t.Fatalf("Failed to add reports: %v", err)
	}

	results, err := repo.RecentReports(ctx, core.KindLost, 3)
	if err != nil {
		t.Fatalf("Failed to get recent reports: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 reports, got %d", len(results))
	}

	// Most recent first
	if results[0].Title != "Lost 4" {
		t.Errorf("Expected 'Lost 4' first, got '%s'", results[0].Title)
	}
	if results[1].Title != "Lost 3" {
		t.Errorf("Expected 'Lost 3' second, got '%s'", results[1].Title)
	}
	if results[2].Title != "Lost 2" {
		t.Errorf("Expected 'Lost 2' third, got '%s'", results[2].Title)
	}

	found, err := repo.RecentReports(ctx, core.KindFound, 3)
	if err != nil {
		t.Fatalf("Failed to get recent found reports: %v", err)
	}
	if len(found) != 1 || found[0].Title != "Found 1" {
		t.Fatalf("Expected only 'Found 1', got %d reports", len(found))
	}

	zero, err := repo.RecentReports(ctx, core.KindLost, 0)
	if err != nil {
		t.Fatalf("Failed to get zero reports: %v", err)
	}
	if len(zero) != 0 {
		t.Fatalf("Expected 0 reports, got %d", len(zero))
	}
}

func TestResolveReport(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	added, err := repo.AddReports(ctx, &core.Report{Kind: core.KindLost, Title: "child, age 7"})
	require.NoError(t, err)

	resolved, err := repo.ResolveReport(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusResolved, resolved.Status)
	assert.False(t, resolved.ResolvedAt.IsZero())

	got, err := repo.GetReport(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusResolved, got.Status)

	_, err = repo.ResolveReport(ctx, added[0].Id)
	assert.ErrorIs(t, err, storage.ErrAlreadyResolved)

	_, err = repo.ResolveReport(ctx, core.ID(31337))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSearchReports(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := repo.AddReports(ctx,
		&core.Report{Kind: core.KindLost, Title: "Black Wallet", Location: "Gate 3", ReportedAt: now.Add(-time.Hour)},
		&core.Report{Kind: core.KindFound, Title: "umbrella", Description: "black, folding", ReportedAt: now},
		&core.Report{Kind: core.KindFound, Title: "phone", Category: "Electronics", Location: "Gate 3", ReportedAt: now.Add(-2 * time.Hour)},
	)
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{"black", []string{"umbrella", "Black Wallet"}},
		{"GATE 3", []string{"Black Wallet", "phone"}},
		{"electronics", []string{"phone"}},
		{"bicycle", nil},
		{"", []string{"umbrella", "Black Wallet", "phone"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := repo.SearchReports(ctx, tt.query)
			require.NoError(t, err)
			var titles []string
			for _, r := range got {
				titles = append(titles, r.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestStats(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.AddReports(ctx,
		&core.Report{Kind: core.KindLost, Title: "a", Location: "Gate 3"},
		&core.Report{Kind: core.KindLost, Title: "b", Location: "Gate 3"},
		&core.Report{Kind: core.KindFound, Title: "c", Location: "Ghat"},
		&core.Report{Kind: core.KindFound, Title: "d", Location: "Ghat", Status: core.StatusResolved},
	)
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.OpenLost)
	assert.Equal(t, 1, stats.OpenFound)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, map[string]int{"Gate 3": 2, "Ghat": 2}, stats.ByLocation)
}

func TestOperationsAfterClose(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	require.NoError(t, backend.Close())

	_, err = repo.GetReport(context.Background(), core.ID(1))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
