package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// QualificationStatus replaces the original tri-state boolean: an entry
// stays UNEVALUATED until its round has been scored, and downstream
// visibility treats UNEVALUATED as visible.
type QualificationStatus string

const (
	QualificationUnevaluated QualificationStatus = "UNEVALUATED"
	QualificationQualified   QualificationStatus = "QUALIFIED"
	QualificationEliminated  QualificationStatus = "ELIMINATED"
)

type Participant struct {
	Id                     string    `gorm:"primaryKey"`
	UserId                 string    `gorm:"not null;uniqueIndex:idx_participant_user_competition"`
	CompetitionId          string    `gorm:"not null;uniqueIndex:idx_participant_user_competition"`
	IsDisqualified         bool      `gorm:"not null;default:false"`
	DisqualificationReason *string   `gorm:"null"`
	CreatedAt              time.Time `gorm:"not null;autoCreateTime"`

	User         *User         `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	Competition  *Competition  `gorm:"foreignKey:CompetitionId;constraint:OnDelete:CASCADE"`
	RoundEntries []*RoundEntry `gorm:"foreignKey:ParticipantId;constraint:OnDelete:CASCADE"`
}

func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.Id == "" {
		p.Id = uuid.NewString()
	}
	return nil
}

// EntryForRound returns the participant's entry for the given round, or nil.
func (p *Participant) EntryForRound(roundId string) *RoundEntry {
	for _, entry := range p.RoundEntries {
		if entry.RoundId == roundId {
			return entry
		}
	}
	return nil
}

type RoundEntry struct {
	Id                       string              `gorm:"primaryKey"`
	ParticipantId            string              `gorm:"not null;uniqueIndex:idx_entry_participant_round"`
	RoundId                  string              `gorm:"not null;uniqueIndex:idx_entry_participant_round"`
	PostId                   *string             `gorm:"null"`
	VisibleInCompetitionFeed bool                `gorm:"not null;default:false"`
	VisibleInNormalFeed      bool                `gorm:"not null;default:false"`
	Qualification            QualificationStatus `gorm:"type:vibtrix.qualification_status;not null;default:'UNEVALUATED'"`
	WinnerPosition           *int                `gorm:"null"`
	CreatedAt                time.Time           `gorm:"not null;autoCreateTime"`
	UpdatedAt                time.Time           `gorm:"not null;autoUpdateTime"`

	Participant *Participant `gorm:"foreignKey:ParticipantId;constraint:OnDelete:CASCADE"`
	Round       *Round       `gorm:"foreignKey:RoundId;constraint:OnDelete:CASCADE"`
	Post        *Post        `gorm:"foreignKey:PostId;constraint:OnDelete:SET NULL"`
}

func (e *RoundEntry) BeforeCreate(tx *gorm.DB) error {
	if e.Id == "" {
		e.Id = uuid.NewString()
	}
	return nil
}

type ParticipantRepository struct {
	DB *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{DB: db}
}

func (r *ParticipantRepository) GetParticipantById(participantId string) (*Participant, error) {
	var participant Participant
	result := r.DB.Preload("RoundEntries").First(&participant, "id = ?", participantId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &participant, nil
}

func (r *ParticipantRepository) GetParticipantForUser(userId string, competitionId string) (*Participant, error) {
	var participant Participant
	result := r.DB.First(&participant, "user_id = ? AND competition_id = ?", userId, competitionId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &participant, nil
}

// GetParticipantsForCompetition returns participants with their round
// entries and submitted posts preloaded.
func (r *ParticipantRepository) GetParticipantsForCompetition(competitionId string) ([]*Participant, error) {
	timer := prometheus.NewTimer(queryDuration.WithLabelValues("GetParticipantsForCompetition"))
	defer timer.ObserveDuration()
	participants := make([]*Participant, 0)
	result := r.DB.Preload("User").Preload("RoundEntries").Preload("RoundEntries.Post").
		Find(&participants, "competition_id = ?", competitionId)
	if result.Error != nil {
		return nil, result.Error
	}
	return participants, nil
}

func (r *ParticipantRepository) CountParticipants(competitionId string) (int64, error) {
	var count int64
	result := r.DB.Model(&Participant{}).Where("competition_id = ?", competitionId).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

func (r *ParticipantRepository) SaveParticipant(participant *Participant) (*Participant, error) {
	result := r.DB.Save(participant)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to save participant: %v", result.Error)
	}
	return participant, nil
}

func (r *ParticipantRepository) GetEntryById(entryId string) (*RoundEntry, error) {
	var entry RoundEntry
	result := r.DB.Preload("Post").First(&entry, "id = ?", entryId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &entry, nil
}

func (r *ParticipantRepository) GetEntryForParticipantAndRound(participantId string, roundId string) (*RoundEntry, error) {
	var entry RoundEntry
	result := r.DB.Preload("Post").First(&entry, "participant_id = ? AND round_id = ?", participantId, roundId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &entry, nil
}

// GetEntriesForRound returns all round entries for a round, optionally
// restricted to entries with a submitted post.
func (r *ParticipantRepository) GetEntriesForRound(roundId string, postedOnly bool) ([]*RoundEntry, error) {
	timer := prometheus.NewTimer(queryDuration.WithLabelValues("GetEntriesForRound"))
	defer timer.ObserveDuration()
	entries := make([]*RoundEntry, 0)
	query := r.DB.Preload("Post").Preload("Participant").Where("round_id = ?", roundId)
	if postedOnly {
		query = query.Where("post_id IS NOT NULL")
	}
	result := query.Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// GetCompetitionFeedEntries returns the round's posted entries that are
// visible in the competition feed.
func (r *ParticipantRepository) GetCompetitionFeedEntries(roundId string) ([]*RoundEntry, error) {
	timer := prometheus.NewTimer(queryDuration.WithLabelValues("GetCompetitionFeedEntries"))
	defer timer.ObserveDuration()
	entries := make([]*RoundEntry, 0)
	result := r.DB.Preload("Post").Preload("Post.User").Preload("Participant.User").
		Where("round_id = ? AND post_id IS NOT NULL AND visible_in_competition_feed = ?", roundId, true).
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// EnsureEntry creates the participant's entry for a round if it does not
// exist yet. Used when a qualified participant is admitted to the next round.
func (r *ParticipantRepository) EnsureEntry(participantId string, roundId string) (*RoundEntry, error) {
	entry := &RoundEntry{ParticipantId: participantId, RoundId: roundId}
	result := r.DB.Where("participant_id = ? AND round_id = ?", participantId, roundId).FirstOrCreate(entry)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to ensure round entry: %v", result.Error)
	}
	return entry, nil
}

func (r *ParticipantRepository) SaveEntry(entry *RoundEntry) (*RoundEntry, error) {
	result := r.DB.Save(entry)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to save round entry: %v", result.Error)
	}
	return entry, nil
}

// UpdateEntryFlags writes only the two visibility flags for one entry.
func (r *ParticipantRepository) UpdateEntryFlags(entryId string, visibleInCompetitionFeed bool, visibleInNormalFeed bool) error {
	result := r.DB.Model(&RoundEntry{}).Where("id = ?", entryId).
		Updates(map[string]interface{}{
			"visible_in_competition_feed": visibleInCompetitionFeed,
			"visible_in_normal_feed":      visibleInNormalFeed,
		})
	return result.Error
}

// UpdateEntryQualification persists the evaluated qualification status.
func (r *ParticipantRepository) UpdateEntryQualification(entryId string, status QualificationStatus) error {
	result := r.DB.Model(&RoundEntry{}).Where("id = ?", entryId).
		Update("qualification", status)
	return result.Error
}

// ForceNormalFeedVisibility sets visibleInNormalFeed on every posted entry
// of a competition. Used when a competition terminates early.
func (r *ParticipantRepository) ForceNormalFeedVisibility(competitionId string) (int64, error) {
	result := r.DB.Model(&RoundEntry{}).
		Where("round_id IN (?)", r.DB.Model(&Round{}).Select("id").Where("competition_id = ?", competitionId)).
		Where("post_id IS NOT NULL").
		Where("visible_in_normal_feed = ?", false).
		Update("visible_in_normal_feed", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ClearWinnerPositions resets winner positions on a round before re-ranking.
func (r *ParticipantRepository) ClearWinnerPositions(roundId string) error {
	result := r.DB.Model(&RoundEntry{}).Where("round_id = ?", roundId).
		Where("winner_position IS NOT NULL").
		Update("winner_position", nil)
	return result.Error
}

func (r *ParticipantRepository) SetWinnerPosition(entryId string, position int) error {
	result := r.DB.Model(&RoundEntry{}).Where("id = ?", entryId).
		Update("winner_position", position)
	return result.Error
}
