package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type Post struct {
	Id        string    `gorm:"primaryKey"`
	UserId    string    `gorm:"not null;index"`
	Content   string    `gorm:"not null"`
	MediaUrl  *string   `gorm:"null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`

	User  *User   `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	Likes []*Like `gorm:"foreignKey:PostId;constraint:OnDelete:CASCADE"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.Id == "" {
		p.Id = uuid.NewString()
	}
	return nil
}

type Like struct {
	UserId    string    `gorm:"primaryKey"`
	PostId    string    `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`

	User *User `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	Post *Post `gorm:"foreignKey:PostId;constraint:OnDelete:CASCADE"`
}

type PostRepository struct {
	DB *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{DB: db}
}

func (r *PostRepository) GetPostById(postId string) (*Post, error) {
	var post Post
	result := r.DB.First(&post, "id = ?", postId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &post, nil
}

func (r *PostRepository) SavePost(post *Post) (*Post, error) {
	result := r.DB.Save(post)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to save post: %v", result.Error)
	}
	return post, nil
}

// GetLikeCount returns the derived like count for one post.
func (r *PostRepository) GetLikeCount(postId string) (int, error) {
	var count int64
	result := r.DB.Model(&Like{}).Where("post_id = ?", postId).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(count), nil
}

type likeCountRow struct {
	PostId string
	Count  int
}

// GetLikeCounts returns the like count per post for a batch of posts.
// Posts with no likes are present in the map with a zero count.
func (r *PostRepository) GetLikeCounts(postIds []string) (map[string]int, error) {
	timer := prometheus.NewTimer(queryDuration.WithLabelValues("GetLikeCounts"))
	defer timer.ObserveDuration()
	counts := make(map[string]int, len(postIds))
	for _, postId := range postIds {
		counts[postId] = 0
	}
	if len(postIds) == 0 {
		return counts, nil
	}
	rows := make([]likeCountRow, 0)
	result := r.DB.Model(&Like{}).
		Select("post_id, count(*) as count").
		Where("post_id IN ?", postIds).
		Group("post_id").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	for _, row := range rows {
		counts[row.PostId] = row.Count
	}
	return counts, nil
}

func (r *PostRepository) AddLike(userId string, postId string) error {
	like := &Like{UserId: userId, PostId: postId}
	result := r.DB.FirstOrCreate(like, &Like{UserId: userId, PostId: postId})
	return result.Error
}

func (r *PostRepository) RemoveLike(userId string, postId string) error {
	result := r.DB.Delete(&Like{}, &Like{UserId: userId, PostId: postId})
	return result.Error
}
