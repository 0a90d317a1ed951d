package service

import (
	"fmt"

	"vibtrix/auth"
	"vibtrix/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	userRepository *repository.UserRepository
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{
		userRepository: repository.NewUserRepository(db),
	}
}

func (s *UserService) GetUserById(userId string) (*repository.User, error) {
	return s.userRepository.GetUserById(userId)
}

func (s *UserService) Register(username string, displayName string, password string, gender *repository.Gender, dateOfBirth *string) (*repository.User, error) {
	if _, err := s.userRepository.GetUserByUsername(username); err == nil {
		return nil, fmt.Errorf("username %q is already taken", username)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}
	return s.userRepository.SaveUser(&repository.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Gender:       gender,
		DateOfBirth:  dateOfBirth,
	})
}

// Login validates credentials and returns a signed session token.
func (s *UserService) Login(username string, password string) (string, *repository.User, error) {
	user, err := s.userRepository.GetUserByUsername(username)
	if err != nil {
		return "", nil, fmt.Errorf("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid username or password")
	}
	token, err := auth.CreateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
