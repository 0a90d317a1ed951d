package service

import (
	"errors"
	"fmt"
	"time"

	"vibtrix/app_error"
	"vibtrix/competition"
	"vibtrix/repository"

	"gorm.io/gorm"
)

type ParticipantService struct {
	competitionRepository *repository.CompetitionRepository
	participantRepository *repository.ParticipantRepository
	paymentRepository     *repository.PaymentRepository
	postRepository        *repository.PostRepository
	userRepository        *repository.UserRepository
	engine                *competition.Engine
}

func NewParticipantService(db *gorm.DB, engine *competition.Engine) *ParticipantService {
	return &ParticipantService{
		competitionRepository: repository.NewCompetitionRepository(db),
		participantRepository: repository.NewParticipantRepository(db),
		paymentRepository:     repository.NewPaymentRepository(db),
		postRepository:        repository.NewPostRepository(db),
		userRepository:        repository.NewUserRepository(db),
		engine:                engine,
	}
}

// JoinCompetition admits a user into a competition: enrollment window,
// eligibility filters and the payment gate are all checked here. Settings
// are passed in by the caller; the payment gate only applies when payments
// are enabled site-wide and the competition is paid.
func (s *ParticipantService) JoinCompetition(userId string, competitionId string, settings *repository.SiteSettings) (*repository.Participant, error) {
	comp, err := s.competitionRepository.GetCompetitionById(competitionId)
	if err != nil {
		return nil, err
	}
	if !comp.StateIsConsistent() {
		return nil, app_error.InconsistentStatef("competition %s", comp.Id)
	}
	if !comp.IsActive {
		return nil, fmt.Errorf("competition is not active")
	}

	now := time.Now()
	firstRound := comp.FirstRound()
	if firstRound == nil {
		return nil, fmt.Errorf("competition has no rounds")
	}
	if firstRound.HasEnded(now) {
		return nil, fmt.Errorf("enrollment for this competition has ended")
	}
	if comp.LastRound().HasEnded(now) {
		return nil, fmt.Errorf("competition has already ended")
	}

	_, err = s.participantRepository.GetParticipantForUser(userId, competitionId)
	if err == nil {
		return nil, fmt.Errorf("you are already participating in this competition")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err := s.userRepository.GetUserById(userId)
	if err != nil {
		return nil, err
	}
	if err := checkEligibility(comp, user, now); err != nil {
		return nil, err
	}

	if comp.IsPaid && settings.PaymentsEnabled {
		paid, err := s.paymentRepository.HasCompletedPayment(userId, competitionId)
		if err != nil {
			return nil, err
		}
		if !paid {
			return nil, fmt.Errorf("entry fee payment required to join this competition")
		}
	}

	participant := &repository.Participant{
		UserId:        userId,
		CompetitionId: competitionId,
	}
	participant, err = s.participantRepository.SaveParticipant(participant)
	if err != nil {
		return nil, err
	}
	// admission to the first round happens on join; later rounds are
	// provisioned by the qualification pass
	_, err = s.participantRepository.SaveEntry(&repository.RoundEntry{
		ParticipantId: participant.Id,
		RoundId:       firstRound.Id,
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

func checkEligibility(comp *repository.Competition, user *repository.User, now time.Time) error {
	if comp.MinAge != nil || comp.MaxAge != nil {
		age, err := user.Age(now)
		if err != nil {
			return fmt.Errorf("age verification failed: %v", err)
		}
		if comp.MinAge != nil && age < *comp.MinAge {
			return fmt.Errorf("you must be at least %d years old to participate", *comp.MinAge)
		}
		if comp.MaxAge != nil && age > *comp.MaxAge {
			return fmt.Errorf("you must be at most %d years old to participate", *comp.MaxAge)
		}
	}
	if comp.Gender != nil {
		if user.Gender == nil || *user.Gender != *comp.Gender {
			return fmt.Errorf("this competition is restricted by gender")
		}
	}
	return nil
}

// SubmitPost attaches a new post to the participant's entry in the round
// that is currently running. One post per round; the entry must have been
// provisioned by admission or qualification.
func (s *ParticipantService) SubmitPost(userId string, competitionId string, content string, mediaUrl *string) (*repository.RoundEntry, error) {
	comp, err := s.competitionRepository.GetCompetitionById(competitionId)
	if err != nil {
		return nil, err
	}
	if !comp.StateIsConsistent() {
		return nil, app_error.InconsistentStatef("competition %s", comp.Id)
	}
	if !comp.IsActive {
		return nil, fmt.Errorf("competition is not active")
	}
	participant, err := s.participantRepository.GetParticipantForUser(userId, competitionId)
	if err != nil {
		return nil, fmt.Errorf("you are not participating in this competition")
	}
	if participant.IsDisqualified {
		return nil, fmt.Errorf("you have been disqualified from this competition")
	}

	now := time.Now()
	var currentRound *repository.Round
	for _, round := range comp.Rounds {
		if round.HasStarted(now) && !round.HasEnded(now) {
			currentRound = round
			break
		}
	}
	if currentRound == nil {
		return nil, fmt.Errorf("no round is currently accepting posts")
	}

	entry, err := s.participantRepository.GetEntryForParticipantAndRound(participant.Id, currentRound.Id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("you did not qualify for round %q", currentRound.Name)
		}
		return nil, err
	}
	if entry.PostId != nil {
		return nil, fmt.Errorf("you already submitted a post for round %q", currentRound.Name)
	}

	post, err := s.postRepository.SavePost(&repository.Post{
		UserId:   userId,
		Content:  content,
		MediaUrl: mediaUrl,
	})
	if err != nil {
		return nil, err
	}
	entry.PostId = &post.Id
	entry, err = s.participantRepository.SaveEntry(entry)
	if err != nil {
		return nil, err
	}

	// visibility flags are derived, never hand-set
	if _, err := s.engine.SyncVisibility(currentRound); err != nil {
		return nil, err
	}
	return s.participantRepository.GetEntryById(entry.Id)
}

// DisqualifyParticipant flags a participant with a reason. Their posted
// entries stay in the normal feed; the next visibility pass demotes them
// from the competition feed.
func (s *ParticipantService) DisqualifyParticipant(participantId string, reason string) (*repository.Participant, error) {
	participant, err := s.participantRepository.GetParticipantById(participantId)
	if err != nil {
		return nil, err
	}
	participant.IsDisqualified = true
	participant.DisqualificationReason = &reason
	return s.participantRepository.SaveParticipant(participant)
}

func (s *ParticipantService) GetParticipantsForCompetition(competitionId string) ([]*repository.Participant, error) {
	return s.participantRepository.GetParticipantsForCompetition(competitionId)
}
