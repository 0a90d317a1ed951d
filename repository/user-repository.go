package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Permission string

const (
	PermissionAdmin Permission = "admin"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

type User struct {
	Id           string         `gorm:"primaryKey"`
	Username     string         `gorm:"uniqueIndex;not null"`
	DisplayName  string         `gorm:"not null"`
	PasswordHash string         `gorm:"not null"`
	Gender       *Gender        `gorm:"type:vibtrix.gender;null"`
	DateOfBirth  *string        `gorm:"null"`
	AvatarUrl    *string        `gorm:"null"`
	Permissions  pq.StringArray `gorm:"type:text[];not null;default:'{}'"`
	CreatedAt    time.Time      `gorm:"not null;autoCreateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Id == "" {
		u.Id = uuid.NewString()
	}
	return nil
}

// Age parses the DD-MM-YYYY birth date and returns full years at the given time.
func (u *User) Age(now time.Time) (int, error) {
	if u.DateOfBirth == nil {
		return 0, fmt.Errorf("user %s has no date of birth", u.Id)
	}
	birthDate, err := time.Parse("02-01-2006", *u.DateOfBirth)
	if err != nil {
		return 0, fmt.Errorf("invalid date of birth %q: %v", *u.DateOfBirth, err)
	}
	age := now.Year() - birthDate.Year()
	if now.Month() < birthDate.Month() ||
		(now.Month() == birthDate.Month() && now.Day() < birthDate.Day()) {
		age--
	}
	return age, nil
}

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) GetUserById(userId string) (*User, error) {
	var user User
	result := r.DB.First(&user, "id = ?", userId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

func (r *UserRepository) GetUserByUsername(username string) (*User, error) {
	var user User
	result := r.DB.First(&user, "username = ?", username)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

func (r *UserRepository) SaveUser(user *User) (*User, error) {
	result := r.DB.Save(user)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to save user: %v", result.Error)
	}
	return user, nil
}
