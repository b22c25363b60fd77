package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pqv2x/falconsweep/internal/metrics"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen_InMemory(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
}

func TestRecordAndList(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	result := SweepResult{
		Tag:           "scheme=falcon;fragment=512",
		Scheme:        "falcon",
		RunsRequested: 10,
		RunsCompleted: 10,
		Summary: metrics.Summary{
			Count:        10,
			MeanTotalUS:  1500.5,
			StdevTotalUS: 42.0,
			MinTotalUS:   1400,
			MaxTotalUS:   1600,
		},
	}
	require.NoError(t, st.RecordSummary(ctx, result))

	got, err := st.ListResults(ctx, result.Tag)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, result.Tag, got[0].Tag)
	assert.Equal(t, "falcon", got[0].Scheme)
	assert.Equal(t, 10, got[0].Summary.Count)
	assert.InDelta(t, 1500.5, got[0].Summary.MeanTotalUS, 1e-9)
	assert.NotEmpty(t, got[0].CreatedAt)
}

func TestListResults_FilterByTag(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordSummary(ctx, SweepResult{Tag: "scheme=falcon", Scheme: "falcon"}))
	require.NoError(t, st.RecordSummary(ctx, SweepResult{Tag: "scheme=ecdsa", Scheme: "ecdsa"}))

	got, err := st.ListResults(ctx, "scheme=ecdsa")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ecdsa", got[0].Scheme)

	all, err := st.ListResults(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListResults_NewestFirst(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordSummary(ctx, SweepResult{Tag: "t", Scheme: "falcon", RunsCompleted: 1}))
	require.NoError(t, st.RecordSummary(ctx, SweepResult{Tag: "t", Scheme: "falcon", RunsCompleted: 2}))

	got, err := st.ListResults(ctx, "t")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].RunsCompleted)
}

func TestOpen_SchemaIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.RecordSummary(context.Background(), SweepResult{Tag: "t", Scheme: "falcon"}))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.ListResults(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, got, 1, "reopening must not reset existing rows")
}
