package competition

import (
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"vibtrix/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/ory/dockertest/v3"
)

var db *gorm.DB
var enumQueries = []string{
	`CREATE TYPE vibtrix.qualification_status AS ENUM ('UNEVALUATED', 'QUALIFIED', 'ELIMINATED')`,
	`CREATE TYPE vibtrix.payment_status AS ENUM ('CREATED', 'COMPLETED', 'FAILED')`,
	`CREATE TYPE vibtrix.gender AS ENUM ('MALE', 'FEMALE', 'OTHER')`,
}

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}

	// uses pool to try to connect to Docker
	err = pool.Client.Ping()
	if err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.Run("postgres", "17.2-alpine", []string{"POSTGRES_USER=postgres", "POSTGRES_PASSWORD=postgres", "DATABASE_NAME=postgres"})
	if err != nil {
		log.Fatalf("Could not start resource: %s", err)
	}
	resource.Expire(600) // Tell docker to hard kill the container in 10 minutes
	sqlInfo := fmt.Sprintf(
		"host=localhost port=%s user=postgres password=postgres dbname=postgres sslmode=disable search_path=vibtrix",
		resource.GetPort("5432/tcp"))

	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	if err := pool.Retry(func() error {
		var err error
		db, err = gorm.Open(postgres.Open(sqlInfo), &gorm.Config{
			NamingStrategy: schema.NamingStrategy{
				TablePrefix:   "vibtrix.",
				SingularTable: false,
			},
			Logger: logger.Default.LogMode(logger.Silent),
		})

		if err != nil {
			return err
		}
		db.Exec(`CREATE SCHEMA IF NOT EXISTS vibtrix`)
		for _, query := range enumQueries {
			x := db.Exec(query)
			if x.Error != nil {
				if strings.Contains(x.Error.Error(), "already exists") {
					continue
				}
			}
		}
		return db.AutoMigrate(
			&repository.User{},
			&repository.Competition{},
			&repository.Round{},
			&repository.Participant{},
			&repository.RoundEntry{},
			&repository.Post{},
			&repository.Like{},
			&repository.Payment{},
			&repository.SiteSettings{},
			&repository.RecurringJob{},
		)

	}); err != nil {
		log.Fatalf("Could not connect to database: %s", err)
	}

	defer func() {
		if err := pool.Purge(resource); err != nil {
			log.Fatalf("Could not purge resource: %s", err)
		}
	}()
	m.Run()
}

func TearDown() {
	db.Exec("DELETE FROM vibtrix.likes")
	db.Exec("DELETE FROM vibtrix.round_entries")
	db.Exec("DELETE FROM vibtrix.posts")
	db.Exec("DELETE FROM vibtrix.participants")
	db.Exec("DELETE FROM vibtrix.rounds")
	db.Exec("DELETE FROM vibtrix.payments")
	db.Exec("DELETE FROM vibtrix.competitions")
	db.Exec("DELETE FROM vibtrix.users")
}

var userCounter = 0

func createUser() *repository.User {
	userCounter++
	user := &repository.User{
		Username:     fmt.Sprintf("user%d", userCounter),
		DisplayName:  fmt.Sprintf("User %d", userCounter),
		PasswordHash: "x",
	}
	if err := db.Create(user).Error; err != nil {
		log.Fatalf("Error creating user: %v", err)
	}
	return user
}

var competitionCounter = 0

// createCompetition builds a competition whose rounds are given as
// (start offset, end offset, likes to pass) triples relative to now.
func createCompetition(roundSpecs ...[3]int) *repository.Competition {
	competitionCounter++
	now := time.Now()
	rounds := make([]*repository.Round, 0, len(roundSpecs))
	for i, spec := range roundSpecs {
		rounds = append(rounds, &repository.Round{
			Name:        fmt.Sprintf("Round %d", i+1),
			StartDate:   now.Add(time.Duration(spec[0]) * time.Hour),
			EndDate:     now.Add(time.Duration(spec[1]) * time.Hour),
			LikesToPass: spec[2],
		})
	}
	competition := &repository.Competition{
		Title:    fmt.Sprintf("competition%d", competitionCounter),
		Slug:     fmt.Sprintf("competition-%d", competitionCounter),
		IsActive: true,
		Rounds:   rounds,
	}
	if err := db.Create(competition).Error; err != nil {
		log.Fatalf("Error creating competition: %v", err)
	}
	return competition
}

func addParticipant(competition *repository.Competition) *repository.Participant {
	user := createUser()
	participant := &repository.Participant{
		UserId:        user.Id,
		CompetitionId: competition.Id,
	}
	if err := db.Create(participant).Error; err != nil {
		log.Fatalf("Error creating participant: %v", err)
	}
	return participant
}

// addPostedEntry submits a post into the round for the participant and
// gives it the requested number of likes from freshly created users.
func addPostedEntry(participant *repository.Participant, round *repository.Round, likes int, postedAt time.Time) *repository.RoundEntry {
	post := &repository.Post{
		UserId:    participant.UserId,
		Content:   "entry post",
		CreatedAt: postedAt,
	}
	if err := db.Create(post).Error; err != nil {
		log.Fatalf("Error creating post: %v", err)
	}
	for i := 0; i < likes; i++ {
		liker := createUser()
		if err := db.Create(&repository.Like{UserId: liker.Id, PostId: post.Id}).Error; err != nil {
			log.Fatalf("Error creating like: %v", err)
		}
	}
	entry := &repository.RoundEntry{
		ParticipantId: participant.Id,
		RoundId:       round.Id,
		PostId:        &post.Id,
	}
	if err := db.Create(entry).Error; err != nil {
		log.Fatalf("Error creating round entry: %v", err)
	}
	return entry
}

func addEmptyEntry(participant *repository.Participant, round *repository.Round) *repository.RoundEntry {
	entry := &repository.RoundEntry{
		ParticipantId: participant.Id,
		RoundId:       round.Id,
	}
	if err := db.Create(entry).Error; err != nil {
		log.Fatalf("Error creating round entry: %v", err)
	}
	return entry
}

func reloadEntry(entryId string) *repository.RoundEntry {
	var entry repository.RoundEntry
	if err := db.First(&entry, "id = ?", entryId).Error; err != nil {
		log.Fatalf("Error reloading entry: %v", err)
	}
	return &entry
}

func reloadCompetition(competitionId string) *repository.Competition {
	competition, err := repository.NewCompetitionRepository(db).GetCompetitionById(competitionId)
	if err != nil {
		log.Fatalf("Error reloading competition: %v", err)
	}
	return competition
}

func TestProcessCompetitionFullPass(t *testing.T) {
	// one pass over a running competition scores the ended round, syncs
	// the visibility of the current one and leaves the competition active
	defer TearDown()
	competition := createCompetition([3]int{-72, -48, 2}, [3]int{-48, 24, 3})
	firstRound := competition.Rounds[0]
	secondRound := competition.Rounds[1]
	now := time.Now()

	survivor := addParticipant(competition)
	addPostedEntry(survivor, firstRound, 2, now.Add(-60*time.Hour))
	survivorSecond := addPostedEntry(survivor, secondRound, 0, now.Add(-time.Hour))

	eliminated := addParticipant(competition)
	addPostedEntry(eliminated, firstRound, 1, now.Add(-60*time.Hour))
	eliminatedSecond := addPostedEntry(eliminated, secondRound, 0, now.Add(-time.Hour))

	engine := NewEngine(db)
	err := engine.ProcessCompetition(competition)
	if err != nil {
		t.Errorf("Error in ProcessCompetition: %v", err)
	}

	reloaded := reloadEntry(survivorSecond.Id)
	if !reloaded.VisibleInCompetitionFeed || !reloaded.VisibleInNormalFeed {
		t.Errorf("survivor entry should be visible in both feeds, got competition=%v normal=%v",
			reloaded.VisibleInCompetitionFeed, reloaded.VisibleInNormalFeed)
	}

	reloaded = reloadEntry(eliminatedSecond.Id)
	if reloaded.VisibleInCompetitionFeed {
		t.Errorf("eliminated entry should be hidden from the competition feed")
	}
	if !reloaded.VisibleInNormalFeed {
		t.Errorf("eliminated entry should still be visible in the normal feed")
	}

	if !reloadCompetition(competition.Id).IsActive {
		t.Errorf("competition should still be active")
	}
}
