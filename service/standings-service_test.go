package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func makeStanding(entryId string, likeCount int, rank int) *Standing {
	return &Standing{
		EntryId:     entryId,
		PostId:      "post-" + entryId,
		LikeCount:   likeCount,
		Rank:        rank,
		SubmittedAt: time.Now(),
	}
}

func TestDiffReportsAddedChangedRemoved(t *testing.T) {
	standingsService := &StandingsService{latestStandings: make(map[string]StandingMap)}

	first := StandingMap{
		"a": makeStanding("a", 5, 1),
		"b": makeStanding("b", 3, 2),
	}
	diffs := standingsService.Diff("comp", first)
	assert.Len(t, diffs, 2)
	for _, diff := range diffs {
		assert.Equal(t, Added, diff.DiffType)
	}

	// a gains a like, b drops out, c enters
	second := StandingMap{
		"a": makeStanding("a", 6, 1),
		"c": makeStanding("c", 4, 2),
	}
	diffs = standingsService.Diff("comp", second)
	byEntry := make(map[string]Difftype, len(diffs))
	for _, diff := range diffs {
		byEntry[diff.Standing.EntryId] = diff.DiffType
	}
	assert.Equal(t, Changed, byEntry["a"])
	assert.Equal(t, Added, byEntry["c"])
	assert.Equal(t, Removed, byEntry["b"])
}

func TestDiffUnchangedStandingsProduceNoDiffs(t *testing.T) {
	standingsService := &StandingsService{latestStandings: make(map[string]StandingMap)}

	standingsService.Diff("comp", StandingMap{"a": makeStanding("a", 5, 1)})
	diffs := standingsService.Diff("comp", StandingMap{"a": makeStanding("a", 5, 1)})
	assert.Empty(t, diffs)
}

func TestDiffAndCurrentStandingsAreConcurrencySafe(t *testing.T) {
	// the updater goroutine diffs while subscribers read snapshots
	standingsService := &StandingsService{latestStandings: make(map[string]StandingMap)}
	standingsService.Diff("comp", StandingMap{"a": makeStanding("a", 0, 1)})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 500; i++ {
			standingsService.Diff("comp", StandingMap{"a": makeStanding("a", i, 1)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			standings, err := standingsService.CurrentStandings("comp")
			assert.NoError(t, err)
			assert.Contains(t, standings, "a")
		}
	}()
	wg.Wait()
}
