package competition

import (
	"testing"
	"time"

	"vibtrix/app_error"
	"vibtrix/repository"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateRoundQualificationsZeroThreshold(t *testing.T) {
	// a threshold of zero passes any posted entry, while a participant
	// without a post is still eliminated
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 0}, [3]int{-24, 24, 5})
	firstRound := competition.Rounds[0]

	posted := addParticipant(competition)
	postedEntry := addPostedEntry(posted, firstRound, 0, time.Now().Add(-30*time.Hour))
	unposted := addParticipant(competition)
	unpostedEntry := addEmptyEntry(unposted, firstRound)

	engine := NewEngine(db)
	updated, err := engine.EvaluateRoundQualifications(firstRound)
	assert.NoError(t, err)
	assert.Equal(t, 2, updated)

	assert.Equal(t, repository.QualificationQualified, reloadEntry(postedEntry.Id).Qualification)
	assert.Equal(t, repository.QualificationEliminated, reloadEntry(unpostedEntry.Id).Qualification)
}

func TestEvaluateRoundQualificationsAdmitsToNextRound(t *testing.T) {
	// a qualified participant gets a round entry in the following round
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 2}, [3]int{-24, 24, 5})
	firstRound := competition.Rounds[0]
	secondRound := competition.Rounds[1]

	participant := addParticipant(competition)
	addPostedEntry(participant, firstRound, 3, time.Now().Add(-30*time.Hour))

	engine := NewEngine(db)
	_, err := engine.EvaluateRoundQualifications(firstRound)
	assert.NoError(t, err)

	entry, err := repository.NewParticipantRepository(db).GetEntryForParticipantAndRound(participant.Id, secondRound.Id)
	assert.NoError(t, err)
	assert.Nil(t, entry.PostId)
	assert.Equal(t, repository.QualificationUnevaluated, entry.Qualification)
}

func TestEvaluateRoundQualificationsChainedConjunction(t *testing.T) {
	// clearing the current round is not enough, every earlier round must
	// have been cleared too
	defer TearDown()
	competition := createCompetition([3]int{-72, -48, 3}, [3]int{-48, -24, 2})
	firstRound := competition.Rounds[0]
	secondRound := competition.Rounds[1]

	// failed round 1 (only 1 of 3 likes) but would clear round 2 on its own
	broken := addParticipant(competition)
	addPostedEntry(broken, firstRound, 1, time.Now().Add(-60*time.Hour))
	brokenEntry := addPostedEntry(broken, secondRound, 4, time.Now().Add(-36*time.Hour))

	// cleared both rounds
	intact := addParticipant(competition)
	addPostedEntry(intact, firstRound, 3, time.Now().Add(-60*time.Hour))
	intactEntry := addPostedEntry(intact, secondRound, 2, time.Now().Add(-36*time.Hour))

	engine := NewEngine(db)
	_, err := engine.EvaluateRoundQualifications(secondRound)
	assert.NoError(t, err)

	assert.Equal(t, repository.QualificationEliminated, reloadEntry(brokenEntry.Id).Qualification)
	assert.Equal(t, repository.QualificationQualified, reloadEntry(intactEntry.Id).Qualification)
}

func TestEvaluateRoundQualificationsRequiresEndedRound(t *testing.T) {
	defer TearDown()
	competition := createCompetition([3]int{-24, 24, 2})

	engine := NewEngine(db)
	_, err := engine.EvaluateRoundQualifications(competition.Rounds[0])
	assert.ErrorIs(t, err, app_error.ErrNotYetConcluded)
}

func TestEvaluateRoundQualificationsIsIdempotent(t *testing.T) {
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 1})
	firstRound := competition.Rounds[0]

	participant := addParticipant(competition)
	addPostedEntry(participant, firstRound, 2, time.Now().Add(-30*time.Hour))

	engine := NewEngine(db)
	updated, err := engine.EvaluateRoundQualifications(firstRound)
	assert.NoError(t, err)
	assert.Equal(t, 1, updated)

	updated, err = engine.EvaluateRoundQualifications(firstRound)
	assert.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestEvaluateQualificationSingleParticipant(t *testing.T) {
	defer TearDown()
	competition := createCompetition([3]int{-48, -24, 2})
	firstRound := competition.Rounds[0]

	participant := addParticipant(competition)
	entry := addPostedEntry(participant, firstRound, 2, time.Now().Add(-30*time.Hour))

	engine := NewEngine(db)
	qualified, err := engine.EvaluateQualification(participant, firstRound)
	assert.NoError(t, err)
	assert.True(t, qualified)
	assert.Equal(t, repository.QualificationQualified, reloadEntry(entry.Id).Qualification)
}
