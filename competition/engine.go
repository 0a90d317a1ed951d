package competition

import (
	"time"

	"vibtrix/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

// Engine is the single authority for competition business rules:
// qualification, feed visibility, termination and winner selection.
// Every controller, cron pass and maintenance endpoint goes through it.
type Engine struct {
	competitionRepository *repository.CompetitionRepository
	participantRepository *repository.ParticipantRepository
	postRepository        *repository.PostRepository
	publisher             Publisher
}

// Publisher receives lifecycle events emitted by the engine. A nil
// publisher disables emission.
type Publisher interface {
	Publish(competitionId string, event any) error
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{
		competitionRepository: repository.NewCompetitionRepository(db),
		participantRepository: repository.NewParticipantRepository(db),
		postRepository:        repository.NewPostRepository(db),
	}
}

func (e *Engine) WithPublisher(publisher Publisher) *Engine {
	e.publisher = publisher
	return e
}

func (e *Engine) publish(competitionId string, event any) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(competitionId, event); err != nil {
		// Event emission is best effort, passes must not abort on it.
		passErrorCounter.WithLabelValues("publish").Inc()
	}
}

var passDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "competition_pass_duration_seconds",
	Help: "Duration of competition engine passes",
	Buckets: []float64{
		0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10,
	},
}, []string{"pass"})

var entriesUpdatedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "competition_entries_updated_total",
	Help: "Number of round entries written by engine passes",
}, []string{"pass"})

var passErrorCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "competition_pass_errors_total",
	Help: "Number of per-entity errors during engine passes",
}, []string{"pass"})

// CompetitionTerminated is published when the termination policy ends a
// competition early.
type CompetitionTerminated struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// WinnersSelected is published once winner positions are assigned.
type WinnersSelected struct {
	Type    string         `json:"type"`
	Winners []WinnerResult `json:"winners"`
}

// RoundEvaluated is published after a round's qualifications are scored.
type RoundEvaluated struct {
	Type       string `json:"type"`
	RoundId    string `json:"round_id"`
	Qualified  int    `json:"qualified"`
	Eliminated int    `json:"eliminated"`
}

// ProcessCompetition runs the full engine pass for one competition:
// qualification for ended rounds, visibility for started rounds, the
// termination policy, and winner selection once every round is over.
// Each step is idempotent, so the pass is safe to re-run on every tick.
func (e *Engine) ProcessCompetition(competition *repository.Competition) error {
	timer := prometheus.NewTimer(passDuration.WithLabelValues("process"))
	defer timer.ObserveDuration()

	now := time.Now()
	for _, round := range competition.Rounds {
		if round.HasEnded(now) {
			if _, err := e.EvaluateRoundQualifications(round); err != nil {
				return err
			}
		}
	}
	for _, round := range competition.Rounds {
		if round.HasStarted(now) {
			if _, err := e.SyncVisibility(round); err != nil {
				return err
			}
		}
	}

	decision, err := e.EvaluateTermination(competition)
	if err != nil {
		return err
	}
	if decision.Terminate {
		return e.ApplyTermination(competition, decision.Reason)
	}

	if competition.HasEnded(now) {
		_, err = e.SelectWinners(competition)
		return err
	}
	return nil
}
