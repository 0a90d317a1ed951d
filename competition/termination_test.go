package competition

import (
	"testing"
	"time"

	"vibtrix/repository"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateTerminationNoJoiners(t *testing.T) {
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 2}, [3]int{-24, 24, 3})

	engine := NewEngine(db)
	decision, err := engine.EvaluateTermination(competition)
	assert.NoError(t, err)
	assert.True(t, decision.Terminate)
	assert.Equal(t, "No one joined this competition, that's why it ended.", decision.Reason)
}

func TestEvaluateTerminationNoJoinersBeforeFirstRoundEnds(t *testing.T) {
	// enrollment is still open, nobody joining yet is not a termination
	defer TearDown()
	competition := createCompetition([3]int{-24, 24, 2})

	engine := NewEngine(db)
	decision, err := engine.EvaluateTermination(competition)
	assert.NoError(t, err)
	assert.False(t, decision.Terminate)
}

func TestEvaluateTerminationNoQualifiers(t *testing.T) {
	// posted entries exist but none reached the threshold
	defer TearDown()
	competition := createCompetition([3]int{-72, -48, 0}, [3]int{-48, -24, 5})
	firstRound := competition.Rounds[0]
	secondRound := competition.Rounds[1]

	participant := addParticipant(competition)
	addPostedEntry(participant, firstRound, 0, time.Now().Add(-60*time.Hour))
	addPostedEntry(participant, secondRound, 3, time.Now().Add(-36*time.Hour))

	engine := NewEngine(db)
	decision, err := engine.EvaluateTermination(competition)
	assert.NoError(t, err)
	assert.True(t, decision.Terminate)
	assert.Equal(t, "Round 2 required 5 likes but no participant achieved this target, so the competition has been ended.", decision.Reason)
}

func TestEvaluateTerminationSurvivesWhenSomeoneQualifies(t *testing.T) {
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 3})
	firstRound := competition.Rounds[0]

	failing := addParticipant(competition)
	addPostedEntry(failing, firstRound, 1, time.Now().Add(-30*time.Hour))
	passing := addParticipant(competition)
	addPostedEntry(passing, firstRound, 3, time.Now().Add(-30*time.Hour))

	engine := NewEngine(db)
	decision, err := engine.EvaluateTermination(competition)
	assert.NoError(t, err)
	assert.False(t, decision.Terminate)
}

func TestEvaluateTerminationSkipsRoundWithoutEntries(t *testing.T) {
	// a positive-threshold round with no posted entries at all does not
	// trigger the no-qualifiers rule
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 5})
	addParticipant(competition)

	engine := NewEngine(db)
	decision, err := engine.EvaluateTermination(competition)
	assert.NoError(t, err)
	assert.False(t, decision.Terminate)
}

func TestApplyTerminationPromotesPostedEntries(t *testing.T) {
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 2}, [3]int{-24, 24, 3})
	firstRound := competition.Rounds[0]

	participant := addParticipant(competition)
	posted := addPostedEntry(participant, firstRound, 0, time.Now().Add(-30*time.Hour))
	empty := addEmptyEntry(participant, competition.Rounds[1])

	engine := NewEngine(db)
	err := engine.ApplyTermination(competition, "Round 1 required 2 likes but no participant achieved this target, so the competition has been ended.")
	assert.NoError(t, err)

	reloaded := reloadCompetition(competition.Id)
	assert.False(t, reloaded.IsActive)
	assert.NotNil(t, reloaded.CompletionReason)
	assert.True(t, reloaded.StateIsConsistent())

	assert.True(t, reloadEntry(posted.Id).VisibleInNormalFeed)
	assert.False(t, reloadEntry(empty.Id).VisibleInNormalFeed)
}

func TestRepairCompetitionStateReactivates(t *testing.T) {
	// inactive without a reason, but the policy finds no ground to
	// terminate: the competition goes back to active
	defer TearDown()
	competition := createCompetition([3]int{-24, 24, 2})
	participant := addParticipant(competition)
	addPostedEntry(participant, competition.Rounds[0], 0, time.Now().Add(-time.Hour))

	db.Model(&repository.Competition{}).Where("id = ?", competition.Id).
		Update("is_active", false)
	competition = reloadCompetition(competition.Id)
	assert.False(t, competition.StateIsConsistent())

	engine := NewEngine(db)
	err := engine.RepairCompetitionState(competition)
	assert.NoError(t, err)

	reloaded := reloadCompetition(competition.Id)
	assert.True(t, reloaded.IsActive)
	assert.Nil(t, reloaded.CompletionReason)
}

func TestRepairCompetitionStateTerminates(t *testing.T) {
	// active with a stored reason; the policy re-derives the decision and
	// confirms the termination with its own reason
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 2})

	bogus := "some manually written reason"
	db.Model(&repository.Competition{}).Where("id = ?", competition.Id).
		Update("completion_reason", bogus)
	competition = reloadCompetition(competition.Id)
	assert.False(t, competition.StateIsConsistent())

	engine := NewEngine(db)
	err := engine.RepairCompetitionState(competition)
	assert.NoError(t, err)

	reloaded := reloadCompetition(competition.Id)
	assert.False(t, reloaded.IsActive)
	assert.Equal(t, "No one joined this competition, that's why it ended.", *reloaded.CompletionReason)
}

func TestStaleFutureRounds(t *testing.T) {
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 2}, [3]int{24, 48, 3})

	engine := NewEngine(db)
	err := engine.ApplyTermination(competition, "No one joined this competition, that's why it ended.")
	assert.NoError(t, err)

	stale := engine.StaleFutureRounds(competition)
	assert.Len(t, stale, 1)
	assert.Equal(t, "Round 2", stale[0].Name)
}
