package controller

import (
	"errors"
	"time"

	"vibtrix/repository"
	"vibtrix/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PostController struct {
	postService *service.PostService
}

func NewPostController(db *gorm.DB) *PostController {
	return &PostController{
		postService: service.NewPostService(db),
	}
}

func setupPostController(db *gorm.DB) []RouteInfo {
	e := NewPostController(db)
	basePath := "/posts/:post_id"
	routes := []RouteInfo{
		{Method: "GET", Path: "", HandlerFunc: e.getPostHandler()},
		{Method: "POST", Path: "/like", HandlerFunc: e.likePostHandler(), Authenticated: true},
		{Method: "DELETE", Path: "/like", HandlerFunc: e.unlikePostHandler(), Authenticated: true},
	}
	for i, route := range routes {
		routes[i].Path = basePath + route.Path
	}
	return routes
}

// @Description Fetches a post with its like count
// @Tags post
// @Produce json
// @Param post_id path string true "Post Id"
// @Success 200 {object} PostResponse
// @Router /posts/{post_id} [get]
func (e *PostController) getPostHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		post, likeCount, err := e.postService.GetPost(c.Param("post_id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Post not found"})
			} else {
				c.JSON(500, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(200, toPostResponse(post, likeCount))
	}
}

// @Description Likes a post as the authenticated user
// @Tags post
// @Param post_id path string true "Post Id"
// @Success 204
// @Security BearerAuth
// @Router /posts/{post_id}/like [post]
func (e *PostController) likePostHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := e.postService.LikePost(userIdFromContext(c), c.Param("post_id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Post not found"})
			} else {
				c.JSON(400, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(204, nil)
	}
}

// @Description Removes the authenticated user's like from a post
// @Tags post
// @Param post_id path string true "Post Id"
// @Success 204
// @Security BearerAuth
// @Router /posts/{post_id}/like [delete]
func (e *PostController) unlikePostHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := e.postService.UnlikePost(userIdFromContext(c), c.Param("post_id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Post not found"})
			} else {
				c.JSON(400, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(204, nil)
	}
}

type PostResponse struct {
	Id        string    `json:"id"`
	UserId    string    `json:"user_id"`
	Content   string    `json:"content"`
	MediaUrl  *string   `json:"media_url"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

func toPostResponse(post *repository.Post, likeCount int) PostResponse {
	return PostResponse{
		Id:        post.Id,
		UserId:    post.UserId,
		Content:   post.Content,
		MediaUrl:  post.MediaUrl,
		LikeCount: likeCount,
		CreatedAt: post.CreatedAt,
	}
}
