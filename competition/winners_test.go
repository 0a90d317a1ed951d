package competition

import (
	"testing"
	"time"

	"vibtrix/app_error"
	"vibtrix/repository"

	"github.com/stretchr/testify/assert"
)

func TestSelectWinnersRanksByLikesThenSubmission(t *testing.T) {
	// likes decide the ranking, the earlier submission wins a tie
	defer TearDown()
	competition := createCompetition([3]int{-72, -48, 0}, [3]int{-48, -24, 1})
	firstRound := competition.Rounds[0]
	finalRound := competition.Rounds[1]
	now := time.Now()

	late := addParticipant(competition)
	addPostedEntry(late, firstRound, 0, now.Add(-60*time.Hour))
	lateEntry := addPostedEntry(late, finalRound, 10, now.Add(-30*time.Hour))

	early := addParticipant(competition)
	addPostedEntry(early, firstRound, 0, now.Add(-60*time.Hour))
	earlyEntry := addPostedEntry(early, finalRound, 10, now.Add(-40*time.Hour))

	third := addParticipant(competition)
	addPostedEntry(third, firstRound, 0, now.Add(-60*time.Hour))
	thirdEntry := addPostedEntry(third, finalRound, 7, now.Add(-30*time.Hour))

	engine := NewEngine(db)
	winners, err := engine.SelectWinners(competition)
	assert.NoError(t, err)
	assert.Len(t, winners, 3)

	assert.Equal(t, early.Id, winners[0].ParticipantId)
	assert.Equal(t, late.Id, winners[1].ParticipantId)
	assert.Equal(t, third.Id, winners[2].ParticipantId)

	assert.Equal(t, 1, *reloadEntry(earlyEntry.Id).WinnerPosition)
	assert.Equal(t, 2, *reloadEntry(lateEntry.Id).WinnerPosition)
	assert.Equal(t, 3, *reloadEntry(thirdEntry.Id).WinnerPosition)
}

func TestSelectWinnersCapsAtThree(t *testing.T) {
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 0})
	finalRound := competition.Rounds[0]
	now := time.Now()

	entries := make([]*repository.RoundEntry, 0, 4)
	for i := 0; i < 4; i++ {
		participant := addParticipant(competition)
		entries = append(entries, addPostedEntry(participant, finalRound, 4-i, now.Add(-30*time.Hour)))
	}

	engine := NewEngine(db)
	winners, err := engine.SelectWinners(competition)
	assert.NoError(t, err)
	assert.Len(t, winners, 3)
	assert.Nil(t, reloadEntry(entries[3].Id).WinnerPosition)
}

func TestSelectWinnersExcludesDisqualifiedAndBrokenChains(t *testing.T) {
	defer TearDown()
	competition := createCompetition([3]int{-72, -48, 2}, [3]int{-48, -24, 1})
	firstRound := competition.Rounds[0]
	finalRound := competition.Rounds[1]
	now := time.Now()

	disqualified := addParticipant(competition)
	addPostedEntry(disqualified, firstRound, 5, now.Add(-60*time.Hour))
	addPostedEntry(disqualified, finalRound, 20, now.Add(-30*time.Hour))
	db.Model(&repository.Participant{}).Where("id = ?", disqualified.Id).
		Update("is_disqualified", true)

	// cleared the final round but not the first
	broken := addParticipant(competition)
	addPostedEntry(broken, firstRound, 1, now.Add(-60*time.Hour))
	addPostedEntry(broken, finalRound, 15, now.Add(-30*time.Hour))

	legitimate := addParticipant(competition)
	addPostedEntry(legitimate, firstRound, 2, now.Add(-60*time.Hour))
	addPostedEntry(legitimate, finalRound, 1, now.Add(-30*time.Hour))

	engine := NewEngine(db)
	winners, err := engine.SelectWinners(competition)
	assert.NoError(t, err)
	assert.Len(t, winners, 1)
	assert.Equal(t, legitimate.Id, winners[0].ParticipantId)
}

func TestSelectWinnersRequiresConcludedCompetition(t *testing.T) {
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 0}, [3]int{-24, 24, 1})

	engine := NewEngine(db)
	_, err := engine.SelectWinners(competition)
	assert.ErrorIs(t, err, app_error.ErrNotYetConcluded)
}

func TestSelectWinnersNoFinalistsTerminates(t *testing.T) {
	// zero finalists ends the competition with a recorded reason instead
	// of producing a winner list
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 5})
	finalRound := competition.Rounds[0]

	participant := addParticipant(competition)
	addPostedEntry(participant, finalRound, 2, time.Now().Add(-30*time.Hour))

	engine := NewEngine(db)
	winners, err := engine.SelectWinners(competition)
	assert.NoError(t, err)
	assert.Empty(t, winners)

	reloaded := reloadCompetition(competition.Id)
	assert.False(t, reloaded.IsActive)
	assert.Equal(t, "No participants in final round", *reloaded.CompletionReason)
}

func TestSelectWinnersIsIdempotent(t *testing.T) {
	// re-running the selection clears and reassigns the same positions
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 0})
	finalRound := competition.Rounds[0]
	now := time.Now()

	first := addParticipant(competition)
	firstEntry := addPostedEntry(first, finalRound, 3, now.Add(-30*time.Hour))
	second := addParticipant(competition)
	secondEntry := addPostedEntry(second, finalRound, 1, now.Add(-30*time.Hour))

	engine := NewEngine(db)
	_, err := engine.SelectWinners(competition)
	assert.NoError(t, err)
	_, err = engine.SelectWinners(competition)
	assert.NoError(t, err)

	assert.Equal(t, 1, *reloadEntry(firstEntry.Id).WinnerPosition)
	assert.Equal(t, 2, *reloadEntry(secondEntry.Id).WinnerPosition)
}
