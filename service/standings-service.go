package service

import (
	"sort"
	"sync"
	"time"

	"vibtrix/repository"

	"gorm.io/gorm"
)

// Standing is one row of a competition's live ranking for the round that
// is currently running.
type Standing struct {
	EntryId       string    `json:"entry_id"`
	ParticipantId string    `json:"participant_id"`
	UserId        string    `json:"user_id"`
	Username      string    `json:"username"`
	PostId        string    `json:"post_id"`
	LikeCount     int       `json:"like_count"`
	Rank          int       `json:"rank"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type StandingMap map[string]*Standing

type Difftype string

const (
	Added     Difftype = "Added"
	Removed   Difftype = "Removed"
	Changed   Difftype = "Changed"
	Unchanged Difftype = "Unchanged"
)

type StandingDifference struct {
	Standing *Standing `json:"standing"`
	DiffType Difftype  `json:"diff_type"`
}

type StandingsService struct {
	latestStandings       map[string]StandingMap
	competitionRepository *repository.CompetitionRepository
	participantRepository *repository.ParticipantRepository
	postRepository        *repository.PostRepository
	// Mutex to protect latestStandings, shared between the updater
	// goroutine and websocket subscribers
	standingsMutex sync.Mutex
}

func NewStandingsService(db *gorm.DB) *StandingsService {
	return &StandingsService{
		latestStandings:       make(map[string]StandingMap),
		competitionRepository: repository.NewCompetitionRepository(db),
		participantRepository: repository.NewParticipantRepository(db),
		postRepository:        repository.NewPostRepository(db),
	}
}

// ComputeStandings ranks the competition-feed entries of the currently
// running (or latest started) round by like count, earlier submission first
// on ties.
func (s *StandingsService) ComputeStandings(competitionId string) (StandingMap, error) {
	comp, err := s.competitionRepository.GetCompetitionById(competitionId)
	if err != nil {
		return nil, err
	}
	round := currentOrLatestRound(comp, time.Now())
	if round == nil {
		return StandingMap{}, nil
	}
	entries, err := s.participantRepository.GetCompetitionFeedEntries(round.Id)
	if err != nil {
		return nil, err
	}
	postIds := make([]string, 0, len(entries))
	for _, entry := range entries {
		postIds = append(postIds, *entry.PostId)
	}
	likeCounts, err := s.postRepository.GetLikeCounts(postIds)
	if err != nil {
		return nil, err
	}

	standings := make([]*Standing, 0, len(entries))
	for _, entry := range entries {
		standing := &Standing{
			EntryId:       entry.Id,
			ParticipantId: entry.ParticipantId,
			PostId:        *entry.PostId,
			LikeCount:     likeCounts[*entry.PostId],
			SubmittedAt:   entry.Post.CreatedAt,
		}
		if entry.Participant != nil && entry.Participant.User != nil {
			standing.UserId = entry.Participant.User.Id
			standing.Username = entry.Participant.User.Username
		}
		standings = append(standings, standing)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].LikeCount != standings[j].LikeCount {
			return standings[i].LikeCount > standings[j].LikeCount
		}
		return standings[i].SubmittedAt.Before(standings[j].SubmittedAt)
	})

	standingMap := make(StandingMap, len(standings))
	for i, standing := range standings {
		standing.Rank = i + 1
		standingMap[standing.EntryId] = standing
	}
	return standingMap, nil
}

// CurrentStandings returns the last broadcast state of a competition,
// computing and caching it on first subscription.
func (s *StandingsService) CurrentStandings(competitionId string) (StandingMap, error) {
	s.standingsMutex.Lock()
	if standings, ok := s.latestStandings[competitionId]; ok {
		s.standingsMutex.Unlock()
		return standings, nil
	}
	s.standingsMutex.Unlock()

	standings, err := s.ComputeStandings(competitionId)
	if err != nil {
		return nil, err
	}
	s.standingsMutex.Lock()
	s.latestStandings[competitionId] = standings
	s.standingsMutex.Unlock()
	return standings, nil
}

// Diff compares fresh standings against the last broadcast state and
// returns only the rows a subscriber needs to update.
func (s *StandingsService) Diff(competitionId string, fresh StandingMap) []*StandingDifference {
	s.standingsMutex.Lock()
	defer s.standingsMutex.Unlock()
	previous := s.latestStandings[competitionId]
	diffs := make([]*StandingDifference, 0)
	for entryId, standing := range fresh {
		old, ok := previous[entryId]
		switch {
		case !ok:
			diffs = append(diffs, &StandingDifference{Standing: standing, DiffType: Added})
		case old.LikeCount != standing.LikeCount || old.Rank != standing.Rank:
			diffs = append(diffs, &StandingDifference{Standing: standing, DiffType: Changed})
		}
	}
	for entryId, old := range previous {
		if _, ok := fresh[entryId]; !ok {
			diffs = append(diffs, &StandingDifference{Standing: old, DiffType: Removed})
		}
	}
	s.latestStandings[competitionId] = fresh
	return diffs
}
