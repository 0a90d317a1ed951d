package controller

import (
	"errors"
	"time"

	"vibtrix/service"
	"vibtrix/utils"

	"github.com/gin-contrib/cache"
	"github.com/gin-contrib/cache/persistence"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type FeedController struct {
	feedService *service.FeedService
}

func NewFeedController(db *gorm.DB) *FeedController {
	return &FeedController{
		feedService: service.NewFeedService(db),
	}
}

func setupFeedController(db *gorm.DB, cacheStore persistence.CacheStore) []RouteInfo {
	e := NewFeedController(db)
	return []RouteInfo{
		{Method: "GET", Path: "/competitions/:competition_id/feed", HandlerFunc: cache.CachePage(cacheStore, 10*time.Second, e.getCompetitionFeedHandler())},
	}
}

// @Description Fetches the competition feed for a round, most liked posts first. Defaults to the currently running round.
// @Tags feed
// @Produce json
// @Param competition_id path string true "Competition Id"
// @Param round_id query string false "Round Id"
// @Success 200 {array} FeedEntryResponse
// @Router /competitions/{competition_id}/feed [get]
func (e *FeedController) getCompetitionFeedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		feed, err := e.feedService.GetCompetitionFeed(c.Param("competition_id"), c.Query("round_id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Competition not found"})
			} else {
				c.JSON(400, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(200, utils.Map(feed, toFeedEntryResponse))
	}
}

type FeedEntryResponse struct {
	EntryId     string    `json:"entry_id"`
	PostId      string    `json:"post_id"`
	UserId      string    `json:"user_id"`
	Username    string    `json:"username"`
	Content     string    `json:"content"`
	MediaUrl    *string   `json:"media_url"`
	LikeCount   int       `json:"like_count"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func toFeedEntryResponse(feedEntry *service.FeedEntry) FeedEntryResponse {
	entry := feedEntry.Entry
	response := FeedEntryResponse{
		EntryId:   entry.Id,
		PostId:    *entry.PostId,
		LikeCount: feedEntry.LikeCount,
	}
	if entry.Post != nil {
		response.Content = entry.Post.Content
		response.MediaUrl = entry.Post.MediaUrl
		response.SubmittedAt = entry.Post.CreatedAt
		if entry.Post.User != nil {
			response.UserId = entry.Post.User.Id
			response.Username = entry.Post.User.Username
		}
	}
	return response
}
