package service

import (
	"fmt"

	"vibtrix/repository"

	"gorm.io/gorm"
)

type PostService struct {
	postRepository     *repository.PostRepository
	settingsRepository *repository.SettingsRepository
}

func NewPostService(db *gorm.DB) *PostService {
	return &PostService{
		postRepository:     repository.NewPostRepository(db),
		settingsRepository: repository.NewSettingsRepository(db),
	}
}

func (s *PostService) GetPost(postId string) (*repository.Post, int, error) {
	post, err := s.postRepository.GetPostById(postId)
	if err != nil {
		return nil, 0, err
	}
	likeCount, err := s.postRepository.GetLikeCount(postId)
	if err != nil {
		return nil, 0, err
	}
	return post, likeCount, nil
}

// LikePost records a like for a user. Liking twice is a no-op.
func (s *PostService) LikePost(userId string, postId string) error {
	settings, err := s.settingsRepository.GetSettings()
	if err != nil {
		return err
	}
	if !settings.LikesEnabled {
		return fmt.Errorf("likes are currently disabled")
	}
	if _, err := s.postRepository.GetPostById(postId); err != nil {
		return err
	}
	return s.postRepository.AddLike(userId, postId)
}

func (s *PostService) UnlikePost(userId string, postId string) error {
	if _, err := s.postRepository.GetPostById(postId); err != nil {
		return err
	}
	return s.postRepository.RemoveLike(userId, postId)
}
