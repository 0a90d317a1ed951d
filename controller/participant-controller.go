package controller

import (
	"errors"

	"vibtrix/app_error"
	"vibtrix/competition"
	"vibtrix/repository"
	"vibtrix/service"
	"vibtrix/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ParticipantController struct {
	participantService *service.ParticipantService
	settingsService    *service.SettingsService
}

func NewParticipantController(db *gorm.DB, engine *competition.Engine) *ParticipantController {
	return &ParticipantController{
		participantService: service.NewParticipantService(db, engine),
		settingsService:    service.NewSettingsService(db),
	}
}

func setupParticipantController(db *gorm.DB, engine *competition.Engine) []RouteInfo {
	e := NewParticipantController(db, engine)
	basePath := "/competitions/:competition_id"
	routes := []RouteInfo{
		{Method: "POST", Path: "/participate", HandlerFunc: e.participateHandler(), Authenticated: true},
		{Method: "POST", Path: "/posts", HandlerFunc: e.submitPostHandler(), Authenticated: true},
		{Method: "GET", Path: "/participants", HandlerFunc: e.getParticipantsHandler()},
		{Method: "POST", Path: "/participants/:participant_id/disqualify", HandlerFunc: e.disqualifyHandler(), Authenticated: true, RequiredRoles: []string{"admin"}},
	}
	for i, route := range routes {
		routes[i].Path = basePath + route.Path
	}
	return routes
}

// @Description Joins the authenticated user into a competition
// @Tags participant
// @Produce json
// @Param competition_id path string true "Competition Id"
// @Success 201 {object} ParticipantResponse
// @Security BearerAuth
// @Router /competitions/{competition_id}/participate [post]
func (e *ParticipantController) participateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := e.settingsService.GetSettings()
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		participant, err := e.participantService.JoinCompetition(userIdFromContext(c), c.Param("competition_id"), settings)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Competition not found"})
			} else if errors.Is(err, app_error.ErrInconsistentState) {
				app_error.WithHTTPStatus(c, err, app_error.HTTPStatusFor(err))
			} else {
				c.JSON(400, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(201, toParticipantResponse(participant))
	}
}

// @Description Submits a post into the currently running round
// @Tags participant
// @Accept json
// @Produce json
// @Param competition_id path string true "Competition Id"
// @Param post body PostSubmit true "Post to submit"
// @Success 201 {object} RoundEntryResponse
// @Security BearerAuth
// @Router /competitions/{competition_id}/posts [post]
func (e *ParticipantController) submitPostHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var submit PostSubmit
		if err := c.BindJSON(&submit); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		entry, err := e.participantService.SubmitPost(userIdFromContext(c), c.Param("competition_id"), submit.Content, submit.MediaUrl)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Competition not found"})
			} else if errors.Is(err, app_error.ErrInconsistentState) {
				app_error.WithHTTPStatus(c, err, app_error.HTTPStatusFor(err))
			} else {
				c.JSON(400, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(201, toRoundEntryResponse(entry))
	}
}

// @Description Lists the participants of a competition
// @Tags participant
// @Produce json
// @Param competition_id path string true "Competition Id"
// @Success 200 {array} ParticipantResponse
// @Router /competitions/{competition_id}/participants [get]
func (e *ParticipantController) getParticipantsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		participants, err := e.participantService.GetParticipantsForCompetition(c.Param("competition_id"))
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, utils.Map(participants, toParticipantResponse))
	}
}

// @Description Disqualifies a participant with a reason
// @Tags participant
// @Accept json
// @Produce json
// @Param competition_id path string true "Competition Id"
// @Param participant_id path string true "Participant Id"
// @Param body body DisqualifyRequest true "Reason"
// @Success 200 {object} ParticipantResponse
// @Router /competitions/{competition_id}/participants/{participant_id}/disqualify [post]
func (e *ParticipantController) disqualifyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request DisqualifyRequest
		if err := c.BindJSON(&request); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		participant, err := e.participantService.DisqualifyParticipant(c.Param("participant_id"), request.Reason)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Participant not found"})
			} else {
				c.JSON(500, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(200, toParticipantResponse(participant))
	}
}

type PostSubmit struct {
	Content  string  `json:"content" binding:"required"`
	MediaUrl *string `json:"media_url"`
}

type DisqualifyRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ParticipantResponse struct {
	Id                     string  `json:"id"`
	UserId                 string  `json:"user_id"`
	CompetitionId          string  `json:"competition_id"`
	IsDisqualified         bool    `json:"is_disqualified"`
	DisqualificationReason *string `json:"disqualification_reason"`
}

type RoundEntryResponse struct {
	Id                       string                         `json:"id"`
	RoundId                  string                         `json:"round_id"`
	PostId                   *string                        `json:"post_id"`
	VisibleInCompetitionFeed bool                           `json:"visible_in_competition_feed"`
	VisibleInNormalFeed      bool                           `json:"visible_in_normal_feed"`
	Qualification            repository.QualificationStatus `json:"qualification"`
	WinnerPosition           *int                           `json:"winner_position"`
}

func toParticipantResponse(participant *repository.Participant) ParticipantResponse {
	return ParticipantResponse{
		Id:                     participant.Id,
		UserId:                 participant.UserId,
		CompetitionId:          participant.CompetitionId,
		IsDisqualified:         participant.IsDisqualified,
		DisqualificationReason: participant.DisqualificationReason,
	}
}

func toRoundEntryResponse(entry *repository.RoundEntry) RoundEntryResponse {
	return RoundEntryResponse{
		Id:                       entry.Id,
		RoundId:                  entry.RoundId,
		PostId:                   entry.PostId,
		VisibleInCompetitionFeed: entry.VisibleInCompetitionFeed,
		VisibleInNormalFeed:      entry.VisibleInNormalFeed,
		Qualification:            entry.Qualification,
		WinnerPosition:           entry.WinnerPosition,
	}
}
