package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegis-hr/aegis-identity/internal/audit"
)

type fakeTimelineRepo struct {
	rows      []audit.TimelineRow
	gotLimit  int
	gotOffset int
}

func (f *fakeTimelineRepo) Window(ctx context.Context, filters audit.TimelineFilters, limit, offset int) ([]audit.TimelineRow, error) {
	f.gotLimit = limit
	f.gotOffset = offset
	if limit > len(f.rows) {
		limit = len(f.rows)
	}
	return f.rows[:limit], nil
}

func makeRows(n int) []audit.TimelineRow {
	rows := make([]audit.TimelineRow, n)
	for i := range rows {
		rows[i] = audit.TimelineRow{At: time.Now(), Action: "login", Entity: "principal", EntityID: "x"}
	}
	return rows
}

func TestTimelineDefaultsAndHasNext(t *testing.T) {
	repo := &fakeTimelineRepo{rows: makeRows(25)}
	svc := audit.NewService(repo)

	result, err := svc.Timeline(context.Background(), audit.TimelineFilters{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.Page)
	require.Equal(t, 21, repo.gotLimit, "fetches one extra row to detect next page")
	require.Equal(t, 0, repo.gotOffset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &fakeTimelineRepo{rows: makeRows(10)}
	svc := audit.NewService(repo)

	result, err := svc.Timeline(context.Background(), audit.TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 50, result.Paging.PageSize)
	require.False(t, result.Paging.HasNext)
}

func TestTimelineOffset(t *testing.T) {
	repo := &fakeTimelineRepo{rows: makeRows(5)}
	svc := audit.NewService(repo)

	_, err := svc.Timeline(context.Background(), audit.TimelineFilters{Page: 3, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 20, repo.gotOffset)
}
