package service

import (
	"fmt"
	"log"
	"time"

	"vibtrix/competition"
	"vibtrix/repository"

	"gorm.io/gorm"
)

type CompetitionService struct {
	competitionRepository *repository.CompetitionRepository
	participantRepository *repository.ParticipantRepository
	engine                *competition.Engine
}

func NewCompetitionService(db *gorm.DB, engine *competition.Engine) *CompetitionService {
	return &CompetitionService{
		competitionRepository: repository.NewCompetitionRepository(db),
		participantRepository: repository.NewParticipantRepository(db),
		engine:                engine,
	}
}

func (s *CompetitionService) GetAllCompetitions() ([]*repository.Competition, error) {
	return s.competitionRepository.FindAll()
}

func (s *CompetitionService) GetCompetitionById(competitionId string) (*repository.Competition, error) {
	return s.competitionRepository.GetCompetitionById(competitionId)
}

func (s *CompetitionService) GetActiveCompetitions() ([]*repository.Competition, error) {
	return s.competitionRepository.GetActiveCompetitions()
}

func (s *CompetitionService) GetCompetitionBySlug(slug string) (*repository.Competition, error) {
	return s.competitionRepository.GetCompetitionBySlug(slug)
}

// CreateCompetition persists a competition after validating its round
// schedule. Round ordering is enforced at write time so downstream passes
// can rely on it.
func (s *CompetitionService) CreateCompetition(comp *repository.Competition) (*repository.Competition, error) {
	if err := validateRoundSchedule(comp.Rounds); err != nil {
		return nil, err
	}
	return s.competitionRepository.Save(comp)
}

func (s *CompetitionService) UpdateCompetition(competitionId string, update *repository.Competition) (*repository.Competition, error) {
	comp, err := s.competitionRepository.GetCompetitionById(competitionId)
	if err != nil {
		return nil, err
	}
	if update.Title != "" {
		comp.Title = update.Title
	}
	if update.Description != nil {
		comp.Description = update.Description
	}
	if update.MinAge != nil {
		comp.MinAge = update.MinAge
	}
	if update.MaxAge != nil {
		comp.MaxAge = update.MaxAge
	}
	if update.Gender != nil {
		comp.Gender = update.Gender
	}
	if len(update.Rounds) > 0 {
		if err := validateRoundSchedule(update.Rounds); err != nil {
			return nil, err
		}
		comp.Rounds = update.Rounds
	}
	return s.competitionRepository.Save(comp)
}

func (s *CompetitionService) DeleteCompetition(competitionId string) error {
	comp, err := s.competitionRepository.GetCompetitionById(competitionId)
	if err != nil {
		return err
	}
	return s.competitionRepository.Delete(comp)
}

// validateRoundSchedule rejects schedules where a round starts before the
// previous one ended. The original system allowed this and needed
// maintenance scripts to repair it afterwards.
func validateRoundSchedule(rounds []*repository.Round) error {
	for i, round := range rounds {
		if !round.EndDate.After(round.StartDate) {
			return fmt.Errorf("round %q must end after it starts", round.Name)
		}
		if round.LikesToPass < 0 {
			return fmt.Errorf("round %q has a negative like threshold", round.Name)
		}
		if i > 0 && round.StartDate.Before(rounds[i-1].EndDate) {
			return fmt.Errorf("round %q starts before round %q ends", round.Name, rounds[i-1].Name)
		}
	}
	return nil
}

// ProcessCompetition runs the full engine pass for one competition.
func (s *CompetitionService) ProcessCompetition(competitionId string) error {
	comp, err := s.competitionRepository.GetCompetitionById(competitionId)
	if err != nil {
		return err
	}
	return s.engine.ProcessCompetition(comp)
}

// ProcessAllActive runs the engine pass over every active competition,
// logging and skipping individual failures.
func (s *CompetitionService) ProcessAllActive() (int, error) {
	competitions, err := s.competitionRepository.GetActiveCompetitions()
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, comp := range competitions {
		if err := s.engine.ProcessCompetition(comp); err != nil {
			log.Printf("processing competition %s failed: %v", comp.Id, err)
			continue
		}
		processed++
	}
	return processed, nil
}

// RepairInconsistentStates re-derives the state pair for every drifted
// competition and reports stale future rounds of terminated ones.
func (s *CompetitionService) RepairInconsistentStates() (int, error) {
	competitions, err := s.competitionRepository.GetInconsistentCompetitions()
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, comp := range competitions {
		if err := s.engine.RepairCompetitionState(comp); err != nil {
			log.Printf("repairing competition %s failed: %v", comp.Id, err)
			continue
		}
		for _, round := range s.engine.StaleFutureRounds(comp) {
			log.Printf("competition %s: round %q still scheduled to start at %s after termination",
				comp.Id, round.Name, round.StartDate.Format(time.RFC3339))
		}
		repaired++
	}
	return repaired, nil
}

func (s *CompetitionService) EvaluateTermination(competitionId string) (*competition.TerminationDecision, error) {
	comp, err := s.competitionRepository.GetCompetitionById(competitionId)
	if err != nil {
		return nil, err
	}
	return s.engine.EvaluateTermination(comp)
}

func (s *CompetitionService) SelectWinners(competitionId string) ([]competition.WinnerResult, error) {
	comp, err := s.competitionRepository.GetCompetitionById(competitionId)
	if err != nil {
		return nil, err
	}
	return s.engine.SelectWinners(comp)
}
