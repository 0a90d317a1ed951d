package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type Competition struct {
	Id                  string         `gorm:"primaryKey"`
	Title               string         `gorm:"not null"`
	Slug                string         `gorm:"uniqueIndex;not null"`
	Description         *string        `gorm:"null"`
	IsActive            bool           `gorm:"not null;default:true"`
	CompletionReason    *string        `gorm:"null"`
	MinAge              *int           `gorm:"null"`
	MaxAge              *int           `gorm:"null"`
	Gender              *Gender        `gorm:"type:vibtrix.gender;null"`
	IsPaid              bool           `gorm:"not null;default:false"`
	EntryFee            int            `gorm:"not null;default:0"`
	FeedStickersEnabled bool           `gorm:"not null;default:true"`
	CreatedAt           time.Time      `gorm:"not null;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"not null;autoUpdateTime"`
	Rounds              []*Round       `gorm:"foreignKey:CompetitionId;constraint:OnDelete:CASCADE"`
	Participants        []*Participant `gorm:"foreignKey:CompetitionId;constraint:OnDelete:CASCADE"`
}

func (c *Competition) BeforeCreate(tx *gorm.DB) error {
	if c.Id == "" {
		c.Id = uuid.NewString()
	}
	return nil
}

// FirstRound returns the earliest round by start date, or nil if the
// competition has no rounds. Rounds are preloaded in start order.
func (c *Competition) FirstRound() *Round {
	if len(c.Rounds) == 0 {
		return nil
	}
	return c.Rounds[0]
}

func (c *Competition) LastRound() *Round {
	if len(c.Rounds) == 0 {
		return nil
	}
	return c.Rounds[len(c.Rounds)-1]
}

// HasEnded reports whether every round's end date lies in the past.
func (c *Competition) HasEnded(now time.Time) bool {
	if len(c.Rounds) == 0 {
		return false
	}
	for _, round := range c.Rounds {
		if !round.HasEnded(now) {
			return false
		}
	}
	return true
}

// StateIsConsistent checks the isActive/completionReason pairing invariant.
func (c *Competition) StateIsConsistent() bool {
	if c.IsActive {
		return c.CompletionReason == nil
	}
	return c.CompletionReason != nil
}

type Round struct {
	Id            string    `gorm:"primaryKey"`
	CompetitionId string    `gorm:"not null;index"`
	Name          string    `gorm:"not null"`
	StartDate     time.Time `gorm:"not null"`
	EndDate       time.Time `gorm:"not null"`
	LikesToPass   int       `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime"`

	Competition *Competition `gorm:"foreignKey:CompetitionId;constraint:OnDelete:CASCADE"`
}

func (r *Round) BeforeCreate(tx *gorm.DB) error {
	if r.Id == "" {
		r.Id = uuid.NewString()
	}
	return nil
}

func (r *Round) HasStarted(now time.Time) bool {
	return !r.StartDate.After(now)
}

func (r *Round) HasEnded(now time.Time) bool {
	return r.EndDate.Before(now)
}

type CompetitionRepository struct {
	DB *gorm.DB
}

func NewCompetitionRepository(db *gorm.DB) *CompetitionRepository {
	return &CompetitionRepository{DB: db}
}

func orderedRounds(db *gorm.DB) *gorm.DB {
	return db.Order("start_date ASC")
}

func (r *CompetitionRepository) GetCompetitionById(competitionId string) (*Competition, error) {
	var competition Competition
	result := r.DB.Preload("Rounds", orderedRounds).First(&competition, "id = ?", competitionId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &competition, nil
}

func (r *CompetitionRepository) GetCompetitionBySlug(slug string) (*Competition, error) {
	var competition Competition
	result := r.DB.Preload("Rounds", orderedRounds).First(&competition, "slug = ?", slug)
	if result.Error != nil {
		return nil, result.Error
	}
	return &competition, nil
}

func (r *CompetitionRepository) FindAll() ([]*Competition, error) {
	var competitions []*Competition
	result := r.DB.Preload("Rounds", orderedRounds).Order("created_at DESC").Find(&competitions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find competitions: %v", result.Error)
	}
	return competitions, nil
}

// GetActiveCompetitions returns competitions the termination policy must
// still evaluate: active with no completion reason recorded.
func (r *CompetitionRepository) GetActiveCompetitions() ([]*Competition, error) {
	timer := prometheus.NewTimer(queryDuration.WithLabelValues("GetActiveCompetitions"))
	defer timer.ObserveDuration()
	var competitions []*Competition
	result := r.DB.Preload("Rounds", orderedRounds).
		Where("is_active = ? AND completion_reason IS NULL", true).
		Find(&competitions)
	if result.Error != nil {
		return nil, result.Error
	}
	return competitions, nil
}

// GetInconsistentCompetitions returns competitions whose stored
// isActive/completionReason pair violates the state invariant.
func (r *CompetitionRepository) GetInconsistentCompetitions() ([]*Competition, error) {
	var competitions []*Competition
	result := r.DB.Preload("Rounds", orderedRounds).
		Where("(is_active = ? AND completion_reason IS NOT NULL) OR (is_active = ? AND completion_reason IS NULL)", true, false).
		Find(&competitions)
	if result.Error != nil {
		return nil, result.Error
	}
	return competitions, nil
}

func (r *CompetitionRepository) Save(competition *Competition) (*Competition, error) {
	result := r.DB.Save(competition)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to save competition: %v", result.Error)
	}
	return competition, nil
}

func (r *CompetitionRepository) Delete(competition *Competition) error {
	return r.DB.Delete(competition).Error
}

// SetCompetitionState writes the isActive/completionReason pair in one
// update so the state invariant cannot drift between two writes.
func (r *CompetitionRepository) SetCompetitionState(competitionId string, isActive bool, completionReason *string) error {
	result := r.DB.Model(&Competition{}).Where("id = ?", competitionId).
		Updates(map[string]interface{}{
			"is_active":         isActive,
			"completion_reason": completionReason,
		})
	return result.Error
}

func (r *CompetitionRepository) SaveRound(round *Round) (*Round, error) {
	result := r.DB.Save(round)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to save round: %v", result.Error)
	}
	return round, nil
}

func (r *CompetitionRepository) GetRoundById(roundId string) (*Round, error) {
	var round Round
	result := r.DB.First(&round, "id = ?", roundId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &round, nil
}

// GetRoundsForCompetition returns the competition's rounds in start order.
func (r *CompetitionRepository) GetRoundsForCompetition(competitionId string) ([]*Round, error) {
	var rounds []*Round
	result := r.DB.Where("competition_id = ?", competitionId).Order("start_date ASC").Find(&rounds)
	if result.Error != nil {
		return nil, result.Error
	}
	return rounds, nil
}
