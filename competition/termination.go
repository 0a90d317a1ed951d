package competition

import (
	"fmt"
	"log"
	"time"

	"vibtrix/repository"

	"github.com/prometheus/client_golang/prometheus"
)

// TerminationDecision is the outcome of the termination policy for one
// competition. Reason is set iff Terminate is true.
type TerminationDecision struct {
	Terminate bool   `json:"terminate"`
	Reason    string `json:"reason,omitempty"`
}

const noJoinersReason = "No one joined this competition, that's why it ended."

func noQualifiersReason(round *repository.Round) string {
	return fmt.Sprintf("%s required %d likes but no participant achieved this target, so the competition has been ended.",
		round.Name, round.LikesToPass)
}

// EvaluateTermination applies the termination policy in priority order,
// first match wins:
//  1. the first round ended with no participants at all,
//  2. the earliest ended round with a positive threshold where posted
//     entries exist but none reached the threshold.
//
// The decision is computed without writing; ApplyTermination commits it.
func (e *Engine) EvaluateTermination(competition *repository.Competition) (*TerminationDecision, error) {
	timer := prometheus.NewTimer(passDuration.WithLabelValues("termination"))
	defer timer.ObserveDuration()

	now := time.Now()
	firstRound := competition.FirstRound()
	if firstRound == nil {
		return &TerminationDecision{}, nil
	}

	if firstRound.HasEnded(now) {
		participantCount, err := e.participantRepository.CountParticipants(competition.Id)
		if err != nil {
			return nil, fmt.Errorf("failed to count participants: %v", err)
		}
		if participantCount < 1 {
			return &TerminationDecision{Terminate: true, Reason: noJoinersReason}, nil
		}
	}

	for _, round := range competition.Rounds {
		if !round.HasEnded(now) || round.LikesToPass <= 0 {
			continue
		}
		entries, err := e.participantRepository.GetEntriesForRound(round.Id, true)
		if err != nil {
			return nil, fmt.Errorf("failed to load entries for round %s: %v", round.Id, err)
		}
		if len(entries) == 0 {
			continue
		}
		likeCounts, err := e.likeCountsForEntries(entries)
		if err != nil {
			return nil, err
		}
		anyPassed := false
		for _, entry := range entries {
			if likeCounts[*entry.PostId] >= round.LikesToPass {
				anyPassed = true
				break
			}
		}
		if !anyPassed {
			return &TerminationDecision{Terminate: true, Reason: noQualifiersReason(round)}, nil
		}
	}

	return &TerminationDecision{}, nil
}

// ApplyTermination ends the competition with the given reason and promotes
// every posted entry into the normal feed; once a competition is over, the
// competition feed is irrelevant and the normal feed shows everything that
// was posted. Future round dates are left untouched (see DESIGN.md).
func (e *Engine) ApplyTermination(competition *repository.Competition, reason string) error {
	if err := e.competitionRepository.SetCompetitionState(competition.Id, false, &reason); err != nil {
		return fmt.Errorf("failed to terminate competition %s: %v", competition.Id, err)
	}
	competition.IsActive = false
	competition.CompletionReason = &reason

	promoted, err := e.participantRepository.ForceNormalFeedVisibility(competition.Id)
	if err != nil {
		return fmt.Errorf("failed to promote entries to normal feed: %v", err)
	}
	if promoted > 0 {
		entriesUpdatedCounter.WithLabelValues("termination").Add(float64(promoted))
	}
	log.Printf("competition %s terminated: %s (%d entries promoted to normal feed)", competition.Id, reason, promoted)
	e.publish(competition.Id, CompetitionTerminated{Type: "competition_terminated", Reason: reason})
	return nil
}

// RepairCompetitionState re-derives the isActive/completionReason pair for
// a competition whose stored state violates the invariant. Neither stored
// flag is trusted; the termination policy is the only authority.
func (e *Engine) RepairCompetitionState(competition *repository.Competition) error {
	if competition.StateIsConsistent() {
		return nil
	}
	decision, err := e.EvaluateTermination(competition)
	if err != nil {
		return err
	}
	if decision.Terminate {
		return e.ApplyTermination(competition, decision.Reason)
	}
	if err := e.competitionRepository.SetCompetitionState(competition.Id, true, nil); err != nil {
		return fmt.Errorf("failed to reactivate competition %s: %v", competition.Id, err)
	}
	competition.IsActive = true
	competition.CompletionReason = nil
	log.Printf("competition %s state repaired: active again", competition.Id)
	return nil
}

// StaleFutureRounds reports rounds scheduled to start after the
// competition was terminated. The policy never rewrites their dates; the
// caller decides what to do with them.
func (e *Engine) StaleFutureRounds(competition *repository.Competition) []*repository.Round {
	if competition.IsActive {
		return nil
	}
	now := time.Now()
	stale := make([]*repository.Round, 0)
	for _, round := range competition.Rounds {
		if round.StartDate.After(now) {
			stale = append(stale, round)
		}
	}
	return stale
}

func (e *Engine) likeCountsForEntries(entries []*repository.RoundEntry) (map[string]int, error) {
	postIds := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.PostId != nil {
			postIds = append(postIds, *entry.PostId)
		}
	}
	counts, err := e.postRepository.GetLikeCounts(postIds)
	if err != nil {
		return nil, fmt.Errorf("failed to load like counts: %v", err)
	}
	return counts, nil
}
