package service

import (
	"fmt"
	"sort"
	"time"

	"vibtrix/repository"

	"gorm.io/gorm"
)

type FeedService struct {
	competitionRepository *repository.CompetitionRepository
	participantRepository *repository.ParticipantRepository
	postRepository        *repository.PostRepository
}

func NewFeedService(db *gorm.DB) *FeedService {
	return &FeedService{
		competitionRepository: repository.NewCompetitionRepository(db),
		participantRepository: repository.NewParticipantRepository(db),
		postRepository:        repository.NewPostRepository(db),
	}
}

// FeedEntry is one post in a competition feed, with its derived like count.
type FeedEntry struct {
	Entry     *repository.RoundEntry
	LikeCount int
}

// GetCompetitionFeed returns the competition-feed entries of a round,
// most liked first. An empty roundId selects the latest started round.
func (s *FeedService) GetCompetitionFeed(competitionId string, roundId string) ([]*FeedEntry, error) {
	comp, err := s.competitionRepository.GetCompetitionById(competitionId)
	if err != nil {
		return nil, err
	}
	var round *repository.Round
	if roundId == "" {
		round = currentOrLatestRound(comp, time.Now())
		if round == nil {
			return []*FeedEntry{}, nil
		}
	} else {
		for _, r := range comp.Rounds {
			if r.Id == roundId {
				round = r
				break
			}
		}
		if round == nil {
			return nil, fmt.Errorf("round %s does not belong to competition %s", roundId, competitionId)
		}
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

	feed := make([]*FeedEntry, 0, len(entries))
	for _, entry := range entries {
		feed = append(feed, &FeedEntry{Entry: entry, LikeCount: likeCounts[*entry.PostId]})
	}
	sort.Slice(feed, func(i, j int) bool {
		if feed[i].LikeCount != feed[j].LikeCount {
			return feed[i].LikeCount > feed[j].LikeCount
		}
		return feed[i].Entry.Post.CreatedAt.Before(feed[j].Entry.Post.CreatedAt)
	})
	return feed, nil
}

// currentOrLatestRound picks the running round, or the last started one
// when the competition is between or past rounds.
func currentOrLatestRound(comp *repository.Competition, now time.Time) *repository.Round {
	var latest *repository.Round
	for _, round := range comp.Rounds {
		if !round.HasStarted(now) {
			break
		}
		latest = round
		if !round.HasEnded(now) {
			return round
		}
	}
	return latest
}
