package competition

import (
	"errors"
	"fmt"
	"log"
	"time"

	"vibtrix/repository"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// SyncVisibility reconciles the two visibility flags of every posted entry
// in the round and returns the number of entries actually written. The
// pass is idempotent: re-running it with unchanged qualification state
// writes nothing.
//
// A posted entry becomes visible in the normal feed once its round has
// started, unconditionally. Visibility in the competition feed depends on
// the previous round's stored qualification: the first round is always
// visible, an ELIMINATED or missing previous entry hides the current one,
// and an UNEVALUATED previous entry counts as visible. That last branch is
// deliberate: when qualification is unknown, the feed favors inclusion.
func (e *Engine) SyncVisibility(round *repository.Round) (int, error) {
	timer := prometheus.NewTimer(passDuration.WithLabelValues("visibility"))
	defer timer.ObserveDuration()

	if !round.HasStarted(time.Now()) {
		return 0, nil
	}
	rounds, err := e.competitionRepository.GetRoundsForCompetition(round.CompetitionId)
	if err != nil {
		return 0, fmt.Errorf("failed to load rounds: %v", err)
	}
	previousRound := previousOf(rounds, round.Id)

	entries, err := e.participantRepository.GetEntriesForRound(round.Id, true)
	if err != nil {
		return 0, fmt.Errorf("failed to load entries for round %s: %v", round.Id, err)
	}

	updated := 0
	for _, entry := range entries {
		visibleInCompetitionFeed := true
		if previousRound != nil {
			visibleInCompetitionFeed = e.previousRoundAdmits(entry.ParticipantId, previousRound)
		}

		if entry.VisibleInNormalFeed && entry.VisibleInCompetitionFeed == visibleInCompetitionFeed {
			continue
		}
		if err := e.participantRepository.UpdateEntryFlags(entry.Id, visibleInCompetitionFeed, true); err != nil {
			log.Printf("visibility pass: entry %s errored: %v", entry.Id, err)
			passErrorCounter.WithLabelValues("visibility").Inc()
			continue
		}
		updated++
	}
	if updated > 0 {
		entriesUpdatedCounter.WithLabelValues("visibility").Add(float64(updated))
	}
	return updated, nil
}

// previousRoundAdmits consults the stored qualification of the
// participant's entry in the preceding round.
func (e *Engine) previousRoundAdmits(participantId string, previousRound *repository.Round) bool {
	previousEntry, err := e.participantRepository.GetEntryForParticipantAndRound(participantId, previousRound.Id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// never reached the previous round
			return false
		}
		log.Printf("visibility pass: previous entry lookup for participant %s errored: %v", participantId, err)
		return false
	}
	return previousEntry.Qualification != repository.QualificationEliminated
}

func previousOf(rounds []*repository.Round, roundId string) *repository.Round {
	for i, round := range rounds {
		if round.Id == roundId {
			if i == 0 {
				return nil
			}
			return rounds[i-1]
		}
	}
	return nil
}
