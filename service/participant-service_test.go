package service

import (
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"vibtrix/competition"
	"vibtrix/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
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

func makePaid(comp *repository.Competition, entryFee int) {
	result := db.Model(&repository.Competition{}).
		Where("id = ?", comp.Id).
		Updates(map[string]any{"is_paid": true, "entry_fee": entryFee})
	if result.Error != nil {
		log.Fatalf("Error marking competition paid: %v", result.Error)
	}
}

var paymentCounter = 0

func addPayment(userId string, competitionId string, status repository.PaymentStatus) {
	paymentCounter++
	payment := &repository.Payment{
		UserId:          userId,
		CompetitionId:   competitionId,
		RazorpayOrderId: fmt.Sprintf("order_%d", paymentCounter),
		Amount:          49900,
		Status:          status,
	}
	if err := db.Create(payment).Error; err != nil {
		log.Fatalf("Error creating payment: %v", err)
	}
}

func newParticipantService() *ParticipantService {
	return NewParticipantService(db, competition.NewEngine(db))
}

func settingsWithPayments(enabled bool) *repository.SiteSettings {
	return &repository.SiteSettings{
		Id:              "settings",
		LikesEnabled:    true,
		CommentsEnabled: true,
		PaymentsEnabled: enabled,
	}
}

func TestJoinCompetitionCreatesFirstRoundEntry(t *testing.T) {
	defer TearDown()
	comp := createCompetition([3]int{1, 24, 0}, [3]int{25, 48, 0})
	user := createUser()

	participant, err := newParticipantService().JoinCompetition(user.Id, comp.Id, settingsWithPayments(false))
	assert.NoError(t, err)

	entry, err := repository.NewParticipantRepository(db).GetEntryForParticipantAndRound(participant.Id, comp.Rounds[0].Id)
	assert.NoError(t, err)
	assert.Nil(t, entry.PostId)
	assert.Equal(t, repository.QualificationUnevaluated, entry.Qualification)

	// no entry for the second round yet, the qualification pass provisions it
	_, err = repository.NewParticipantRepository(db).GetEntryForParticipantAndRound(participant.Id, comp.Rounds[1].Id)
	assert.Error(t, err)
}

func TestJoinCompetitionRejectsDuplicate(t *testing.T) {
	defer TearDown()
	comp := createCompetition([3]int{1, 24, 0})
	user := createUser()
	participantService := newParticipantService()

	_, err := participantService.JoinCompetition(user.Id, comp.Id, settingsWithPayments(false))
	assert.NoError(t, err)

	_, err = participantService.JoinCompetition(user.Id, comp.Id, settingsWithPayments(false))
	assert.ErrorContains(t, err, "already participating")
}

func TestJoinCompetitionRejectsAfterFirstRoundEnded(t *testing.T) {
	defer TearDown()
	comp := createCompetition([3]int{-48, -24, 0}, [3]int{-24, 24, 0})
	user := createUser()

	_, err := newParticipantService().JoinCompetition(user.Id, comp.Id, settingsWithPayments(false))
	assert.ErrorContains(t, err, "enrollment for this competition has ended")
}

func TestJoinCompetitionPaymentGate(t *testing.T) {
	defer TearDown()
	comp := createCompetition([3]int{1, 24, 0})
	makePaid(comp, 49900)
	user := createUser()
	participantService := newParticipantService()

	_, err := participantService.JoinCompetition(user.Id, comp.Id, settingsWithPayments(true))
	assert.ErrorContains(t, err, "entry fee payment required")

	// a CREATED order is not enough, the capture has to be verified
	addPayment(user.Id, comp.Id, repository.PaymentCreated)
	_, err = participantService.JoinCompetition(user.Id, comp.Id, settingsWithPayments(true))
	assert.ErrorContains(t, err, "entry fee payment required")

	addPayment(user.Id, comp.Id, repository.PaymentCompleted)
	participant, err := participantService.JoinCompetition(user.Id, comp.Id, settingsWithPayments(true))
	assert.NoError(t, err)

	_, err = repository.NewParticipantRepository(db).GetEntryForParticipantAndRound(participant.Id, comp.Rounds[0].Id)
	assert.NoError(t, err)
}

func TestJoinCompetitionPaymentGateSkippedWhenPaymentsDisabled(t *testing.T) {
	defer TearDown()
	comp := createCompetition([3]int{1, 24, 0})
	makePaid(comp, 49900)
	user := createUser()

	_, err := newParticipantService().JoinCompetition(user.Id, comp.Id, settingsWithPayments(false))
	assert.NoError(t, err)
}

func TestJoinCompetitionAgeGate(t *testing.T) {
	defer TearDown()
	comp := createCompetition([3]int{1, 24, 0})
	minAge := 18
	db.Model(&repository.Competition{}).Where("id = ?", comp.Id).Update("min_age", minAge)
	participantService := newParticipantService()

	tooYoung := createUser()
	dob := time.Now().AddDate(-15, 0, 0).Format("02-01-2006")
	tooYoung.DateOfBirth = &dob
	db.Save(tooYoung)

	_, err := participantService.JoinCompetition(tooYoung.Id, comp.Id, settingsWithPayments(false))
	assert.ErrorContains(t, err, "at least 18 years old")

	oldEnough := createUser()
	dob = time.Now().AddDate(-20, 0, 0).Format("02-01-2006")
	oldEnough.DateOfBirth = &dob
	db.Save(oldEnough)

	_, err = participantService.JoinCompetition(oldEnough.Id, comp.Id, settingsWithPayments(false))
	assert.NoError(t, err)
}

func TestJoinCompetitionGenderGate(t *testing.T) {
	defer TearDown()
	comp := createCompetition([3]int{1, 24, 0})
	db.Model(&repository.Competition{}).Where("id = ?", comp.Id).Update("gender", repository.GenderFemale)
	participantService := newParticipantService()

	noProfileGender := createUser()
	_, err := participantService.JoinCompetition(noProfileGender.Id, comp.Id, settingsWithPayments(false))
	assert.ErrorContains(t, err, "restricted by gender")

	matching := createUser()
	gender := repository.GenderFemale
	matching.Gender = &gender
	db.Save(matching)

	_, err = participantService.JoinCompetition(matching.Id, comp.Id, settingsWithPayments(false))
	assert.NoError(t, err)
}
