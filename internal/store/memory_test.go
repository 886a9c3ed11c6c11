package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestEmpty(t *testing.T) {
	s := NewMemoryStore(10, 0)

	_, err := s.Latest()

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveEnforcesMaxHistory(t *testing.T) {
	s := NewMemoryStore(2, 0)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		s.Save(ProbeResult{Timestamp: now.Add(time.Duration(i) * time.Minute), DurationMs: int64(i)})
	}

	got, err := s.Range(now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].DurationMs)

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.DurationMs)
}

func TestSaveEnforcesMaxAge(t *testing.T) {
	s := NewMemoryStore(0, time.Hour)
	now := time.Now().UTC()

	s.Save(ProbeResult{Timestamp: now.Add(-3 * time.Hour)})
	s.Save(ProbeResult{Timestamp: now.Add(-2 * time.Hour)})
	s.Save(ProbeResult{Timestamp: now, OK: true})

	got, err := s.Range(time.Time{}, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].OK)
}

func TestSaveKeepsNewestEvenWhenStale(t *testing.T) {
	s := NewMemoryStore(0, time.Minute)
	old := time.Now().UTC().Add(-time.Hour)

	s.Save(ProbeResult{Timestamp: old})

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, old, latest.Timestamp)
}

func TestRangeInclusiveBounds(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Save(ProbeResult{Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}

	got, err := s.Range(base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = s.Range(base.Add(time.Hour), base.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}
