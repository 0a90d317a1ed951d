package competition

import (
	"fmt"
	"log"
	"sort"
	"time"

	"vibtrix/app_error"
	"vibtrix/repository"

	"github.com/prometheus/client_golang/prometheus"
)

const noFinalistsReason = "No participants in final round"

// WinnerResult is one ranked finalist of a concluded competition.
type WinnerResult struct {
	ParticipantId string    `json:"participant_id"`
	UserId        string    `json:"user_id"`
	Position      int       `json:"position"`
	LikeCount     int       `json:"like_count"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type finalist struct {
	participant *repository.Participant
	entry       *repository.RoundEntry
	likeCount   int
	submittedAt time.Time
}

// SelectWinners ranks the qualified finalists of a concluded competition
// and persists winner positions 1-3 on their final round entries. Every
// round must have ended. Finalists are participants who were never
// disqualified, cleared every prior round's threshold, and cleared the
// final round's own post and threshold requirement. Ranking is by final
// round like count descending; ties go to the earlier submission.
//
// Zero finalists is a termination policy case, not a winner list: the
// competition is ended with a recorded reason and an empty list returned.
func (e *Engine) SelectWinners(competition *repository.Competition) ([]WinnerResult, error) {
	timer := prometheus.NewTimer(passDuration.WithLabelValues("winners"))
	defer timer.ObserveDuration()

	now := time.Now()
	if len(competition.Rounds) == 0 {
		return nil, app_error.NotFoundf("competition %s has no rounds", competition.Id)
	}
	if !competition.HasEnded(now) {
		return nil, app_error.NotYetConcludedf("competition %q", competition.Title)
	}
	finalRound := competition.LastRound()
	priorRounds := competition.Rounds[:len(competition.Rounds)-1]

	participants, err := e.participantRepository.GetParticipantsForCompetition(competition.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %v", err)
	}
	likeCounts, err := e.likeCountsForParticipants(participants)
	if err != nil {
		return nil, err
	}

	finalists := make([]finalist, 0)
	for _, participant := range participants {
		if participant.IsDisqualified {
			continue
		}
		if !clearsRounds(priorRounds, participant, likeCounts) {
			continue
		}
		entry := participant.EntryForRound(finalRound.Id)
		if entry == nil || entry.PostId == nil || entry.Post == nil {
			continue
		}
		likeCount := likeCounts[*entry.PostId]
		if likeCount < finalRound.LikesToPass {
			continue
		}
		finalists = append(finalists, finalist{
			participant: participant,
			entry:       entry,
			likeCount:   likeCount,
			submittedAt: entry.Post.CreatedAt,
		})
	}

	if len(finalists) == 0 {
		if err := e.ApplyTermination(competition, noFinalistsReason); err != nil {
			return nil, err
		}
		return []WinnerResult{}, nil
	}

	sort.Slice(finalists, func(i, j int) bool {
		if finalists[i].likeCount != finalists[j].likeCount {
			return finalists[i].likeCount > finalists[j].likeCount
		}
		return finalists[i].submittedAt.Before(finalists[j].submittedAt)
	})

	if err := e.participantRepository.ClearWinnerPositions(finalRound.Id); err != nil {
		return nil, fmt.Errorf("failed to clear winner positions: %v", err)
	}

	winners := make([]WinnerResult, 0, 3)
	for i, f := range finalists {
		if i >= 3 {
			break
		}
		position := i + 1
		if err := e.participantRepository.SetWinnerPosition(f.entry.Id, position); err != nil {
			log.Printf("winner pass: entry %s errored: %v", f.entry.Id, err)
			passErrorCounter.WithLabelValues("winners").Inc()
			continue
		}
		winners = append(winners, WinnerResult{
			ParticipantId: f.participant.Id,
			UserId:        f.participant.UserId,
			Position:      position,
			LikeCount:     f.likeCount,
			SubmittedAt:   f.submittedAt,
		})
	}
	entriesUpdatedCounter.WithLabelValues("winners").Add(float64(len(winners)))
	e.publish(competition.Id, WinnersSelected{Type: "winners_selected", Winners: winners})
	return winners, nil
}

// clearsRounds checks the posted entry and like threshold of every round
// in order; elimination at any round is final.
func clearsRounds(rounds []*repository.Round, participant *repository.Participant, likeCounts map[string]int) bool {
	for _, round := range rounds {
		entry := participant.EntryForRound(round.Id)
		if entry == nil || entry.PostId == nil {
			return false
		}
		if likeCounts[*entry.PostId] < round.LikesToPass {
			return false
		}
	}
	return true
}
