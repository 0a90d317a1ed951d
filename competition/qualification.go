package competition

import (
	"fmt"
	"log"
	"time"

	"vibtrix/app_error"
	"vibtrix/repository"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluateQualification decides whether a participant qualified out of the
// given round. The round must have ended. Qualification is a conjunction
// over the whole round sequence: the participant must have cleared every
// round up to and including this one. A missing entry or missing post is
// an elimination, not an error. The result is persisted on the round entry
// as the system of record for the visibility synchronizer.
func (e *Engine) EvaluateQualification(participant *repository.Participant, round *repository.Round) (bool, error) {
	if !round.HasEnded(time.Now()) {
		return false, app_error.NotYetConcludedf("round %q", round.Name)
	}
	rounds, err := e.competitionRepository.GetRoundsForCompetition(round.CompetitionId)
	if err != nil {
		return false, fmt.Errorf("failed to load rounds: %v", err)
	}
	loaded, err := e.participantRepository.GetParticipantById(participant.Id)
	if err != nil {
		return false, app_error.NotFoundf("participant %s", participant.Id)
	}
	likeCounts, err := e.likeCountsForParticipants([]*repository.Participant{loaded})
	if err != nil {
		return false, err
	}

	qualified := e.chainQualifies(rounds, round, loaded, likeCounts)
	entry := loaded.EntryForRound(round.Id)
	if entry != nil {
		status := repository.QualificationEliminated
		if qualified {
			status = repository.QualificationQualified
		}
		if entry.Qualification != status {
			if err := e.participantRepository.UpdateEntryQualification(entry.Id, status); err != nil {
				return qualified, fmt.Errorf("failed to persist qualification for entry %s: %v", entry.Id, err)
			}
		}
	}
	return qualified, nil
}

// EvaluateRoundQualifications scores every participant of the round's
// competition against the round and persists changed statuses. Individual
// participant failures are logged and skipped, the pass continues.
func (e *Engine) EvaluateRoundQualifications(round *repository.Round) (int, error) {
	timer := prometheus.NewTimer(passDuration.WithLabelValues("qualification"))
	defer timer.ObserveDuration()

	if !round.HasEnded(time.Now()) {
		return 0, app_error.NotYetConcludedf("round %q", round.Name)
	}
	rounds, err := e.competitionRepository.GetRoundsForCompetition(round.CompetitionId)
	if err != nil {
		return 0, fmt.Errorf("failed to load rounds: %v", err)
	}
	participants, err := e.participantRepository.GetParticipantsForCompetition(round.CompetitionId)
	if err != nil {
		return 0, fmt.Errorf("failed to load participants: %v", err)
	}
	likeCounts, err := e.likeCountsForParticipants(participants)
	if err != nil {
		return 0, err
	}

	nextRound := nextOf(rounds, round.Id)

	updated := 0
	qualifiedCount := 0
	eliminatedCount := 0
	for _, participant := range participants {
		entry := participant.EntryForRound(round.Id)
		if entry == nil {
			continue
		}
		qualified := e.chainQualifies(rounds, round, participant, likeCounts)
		status := repository.QualificationEliminated
		if qualified {
			status = repository.QualificationQualified
			qualifiedCount++
			// qualification admits the participant to the next round
			if nextRound != nil {
				if _, err := e.participantRepository.EnsureEntry(participant.Id, nextRound.Id); err != nil {
					log.Printf("qualification pass: admitting participant %s to round %s errored: %v", participant.Id, nextRound.Id, err)
					passErrorCounter.WithLabelValues("qualification").Inc()
				}
			}
		} else {
			eliminatedCount++
		}
		if entry.Qualification == status {
			continue
		}
		if err := e.participantRepository.UpdateEntryQualification(entry.Id, status); err != nil {
			log.Printf("qualification pass: entry %s errored: %v", entry.Id, err)
			passErrorCounter.WithLabelValues("qualification").Inc()
			continue
		}
		entry.Qualification = status
		updated++
	}
	if updated > 0 {
		entriesUpdatedCounter.WithLabelValues("qualification").Add(float64(updated))
		e.publish(round.CompetitionId, RoundEvaluated{
			Type:       "round_evaluated",
			RoundId:    round.Id,
			Qualified:  qualifiedCount,
			Eliminated: eliminatedCount,
		})
	}
	return updated, nil
}

// chainQualifies walks the rounds in start order up to and including the
// target round. The participant must hold a posted entry clearing each
// round's like threshold; a threshold of zero passes any posted entry.
func (e *Engine) chainQualifies(rounds []*repository.Round, upTo *repository.Round, participant *repository.Participant, likeCounts map[string]int) bool {
	for _, round := range rounds {
		entry := participant.EntryForRound(round.Id)
		if entry == nil || entry.PostId == nil {
			return false
		}
		if likeCounts[*entry.PostId] < round.LikesToPass {
			return false
		}
		if round.Id == upTo.Id {
			return true
		}
	}
	// target round does not belong to this competition's round list
	return false
}

func nextOf(rounds []*repository.Round, roundId string) *repository.Round {
	for i, round := range rounds {
		if round.Id == roundId {
			if i+1 < len(rounds) {
				return rounds[i+1]
			}
			return nil
		}
	}
	return nil
}

// likeCountsForParticipants batches one like-count query over every post
// referenced by the participants' round entries.
func (e *Engine) likeCountsForParticipants(participants []*repository.Participant) (map[string]int, error) {
	postIds := make([]string, 0)
	for _, participant := range participants {
		for _, entry := range participant.RoundEntries {
			if entry.PostId != nil {
				postIds = append(postIds, *entry.PostId)
			}
		}
	}
	counts, err := e.postRepository.GetLikeCounts(postIds)
	if err != nil {
		return nil, fmt.Errorf("failed to load like counts: %v", err)
	}
	return counts, nil
}
