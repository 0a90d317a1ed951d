package competition

import (
	"testing"
	"time"

	"vibtrix/repository"

	"github.com/stretchr/testify/assert"
)

func TestSyncVisibilityFirstRound(t *testing.T) {
	// a posted first round entry becomes visible in both feeds once the
	// round has started
	defer TearDown()
	competition := createCompetition([3]int{-24, 24, 2})
	firstRound := competition.Rounds[0]

	participant := addParticipant(competition)
	entry := addPostedEntry(participant, firstRound, 0, time.Now().Add(-time.Hour))

	engine := NewEngine(db)
	updated, err := engine.SyncVisibility(firstRound)
	assert.NoError(t, err)
	assert.Equal(t, 1, updated)

	reloaded := reloadEntry(entry.Id)
	assert.True(t, reloaded.VisibleInNormalFeed)
	assert.True(t, reloaded.VisibleInCompetitionFeed)
}

func TestSyncVisibilityNotStartedRoundWritesNothing(t *testing.T) {
	defer TearDown()
	competition := createCompetition([3]int{24, 48, 2})

	engine := NewEngine(db)
	updated, err := engine.SyncVisibility(competition.Rounds[0])
	assert.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestSyncVisibilityIsIdempotent(t *testing.T) {
	// the second run with unchanged qualification state writes nothing
	defer TearDown()
	competition := createCompetition([3]int{-24, 24, 2})
	firstRound := competition.Rounds[0]

	participant := addParticipant(competition)
	addPostedEntry(participant, firstRound, 0, time.Now().Add(-time.Hour))

	engine := NewEngine(db)
	updated, err := engine.SyncVisibility(firstRound)
	assert.NoError(t, err)
	assert.Equal(t, 1, updated)

	updated, err = engine.SyncVisibility(firstRound)
	assert.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestSyncVisibilityPreviousRoundDecides(t *testing.T) {
	// an ELIMINATED previous entry hides the current one from the
	// competition feed but not from the normal feed; an UNEVALUATED
	// previous entry counts as visible
	defer TearDown()
	competition := createCompetition([3]int{-72, -48, 2}, [3]int{-24, 24, 3})
	firstRound := competition.Rounds[0]
	secondRound := competition.Rounds[1]

	eliminated := addParticipant(competition)
	eliminatedFirst := addPostedEntry(eliminated, firstRound, 0, time.Now().Add(-60*time.Hour))
	db.Model(&repository.RoundEntry{}).Where("id = ?", eliminatedFirst.Id).
		Update("qualification", repository.QualificationEliminated)
	eliminatedSecond := addPostedEntry(eliminated, secondRound, 0, time.Now().Add(-time.Hour))

	unevaluated := addParticipant(competition)
	addPostedEntry(unevaluated, firstRound, 2, time.Now().Add(-60*time.Hour))
	unevaluatedSecond := addPostedEntry(unevaluated, secondRound, 0, time.Now().Add(-time.Hour))

	engine := NewEngine(db)
	_, err := engine.SyncVisibility(secondRound)
	assert.NoError(t, err)

	reloaded := reloadEntry(eliminatedSecond.Id)
	assert.False(t, reloaded.VisibleInCompetitionFeed)
	assert.True(t, reloaded.VisibleInNormalFeed)

	reloaded = reloadEntry(unevaluatedSecond.Id)
	assert.True(t, reloaded.VisibleInCompetitionFeed)
	assert.True(t, reloaded.VisibleInNormalFeed)
}

func TestSyncVisibilityMissingPreviousEntryHides(t *testing.T) {
	// a participant who never reached the previous round stays out of the
	// competition feed
	defer TearDown()
	competition := createCompetition([3]int{-72, -48, 2}, [3]int{-24, 24, 3})
	secondRound := competition.Rounds[1]

	latecomer := addParticipant(competition)
	entry := addPostedEntry(latecomer, secondRound, 0, time.Now().Add(-time.Hour))

	engine := NewEngine(db)
	_, err := engine.SyncVisibility(secondRound)
	assert.NoError(t, err)

	reloaded := reloadEntry(entry.Id)
	assert.False(t, reloaded.VisibleInCompetitionFeed)
	assert.True(t, reloaded.VisibleInNormalFeed)
}
