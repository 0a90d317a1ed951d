package controller

import (
	"errors"
	"time"

	"vibtrix/app_error"
	"vibtrix/competition"
	"vibtrix/repository"
	"vibtrix/service"
	"vibtrix/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CompetitionController struct {
	competitionService *service.CompetitionService
}

func NewCompetitionController(db *gorm.DB, engine *competition.Engine) *CompetitionController {
	return &CompetitionController{
		competitionService: service.NewCompetitionService(db, engine),
	}
}

func setupCompetitionController(db *gorm.DB, engine *competition.Engine) []RouteInfo {
	e := NewCompetitionController(db, engine)
	basePath := "/competitions"
	routes := []RouteInfo{
		{Method: "GET", Path: "", HandlerFunc: e.getCompetitionsHandler()},
		{Method: "GET", Path: "/current", HandlerFunc: e.getCurrentCompetitionsHandler()},
		{Method: "GET", Path: "/slug/:slug", HandlerFunc: e.getCompetitionBySlugHandler()},
		{Method: "POST", Path: "", HandlerFunc: e.createCompetitionHandler(), Authenticated: true, RequiredRoles: []string{"admin"}},
		{Method: "GET", Path: "/:competition_id", HandlerFunc: e.getCompetitionHandler()},
		{Method: "PATCH", Path: "/:competition_id", HandlerFunc: e.updateCompetitionHandler(), Authenticated: true, RequiredRoles: []string{"admin"}},
		{Method: "DELETE", Path: "/:competition_id", HandlerFunc: e.deleteCompetitionHandler(), Authenticated: true, RequiredRoles: []string{"admin"}},
		{Method: "GET", Path: "/:competition_id/winners", HandlerFunc: e.getWinnersHandler()},
		{Method: "POST", Path: "/:competition_id/process", HandlerFunc: e.processCompetitionHandler(), Authenticated: true, RequiredRoles: []string{"admin"}},
		{Method: "POST", Path: "/process-all", HandlerFunc: e.processAllHandler(), Authenticated: true, RequiredRoles: []string{"admin"}},
		{Method: "POST", Path: "/repair", HandlerFunc: e.repairHandler(), Authenticated: true, RequiredRoles: []string{"admin"}},
	}
	for i, route := range routes {
		routes[i].Path = basePath + route.Path
	}
	return routes
}

// @Description Fetches all competitions
// @Tags competition
// @Produce json
// @Success 200 {array} CompetitionResponse
// @Router /competitions [get]
func (e *CompetitionController) getCompetitionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		competitions, err := e.competitionService.GetAllCompetitions()
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, utils.Map(competitions, toCompetitionResponse))
	}
}

// @Description Fetches the competitions that are currently active
// @Tags competition
// @Produce json
// @Success 200 {array} CompetitionResponse
// @Router /competitions/current [get]
func (e *CompetitionController) getCurrentCompetitionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		competitions, err := e.competitionService.GetActiveCompetitions()
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, utils.Map(competitions, toCompetitionResponse))
	}
}

// @Description Gets a competition by its slug
// @Tags competition
// @Produce json
// @Param slug path string true "Competition Slug"
// @Success 200 {object} CompetitionResponse
// @Router /competitions/slug/{slug} [get]
func (e *CompetitionController) getCompetitionBySlugHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		comp, err := e.competitionService.GetCompetitionBySlug(c.Param("slug"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Competition not found"})
			} else {
				c.JSON(500, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(200, toCompetitionResponse(comp))
	}
}

// @Description Gets a competition by id
// @Tags competition
// @Produce json
// @Param competition_id path string true "Competition Id"
// @Success 200 {object} CompetitionResponse
// @Router /competitions/{competition_id} [get]
func (e *CompetitionController) getCompetitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		comp, err := e.competitionService.GetCompetitionById(c.Param("competition_id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Competition not found"})
			} else {
				c.JSON(500, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(200, toCompetitionResponse(comp))
	}
}

// @Description Creates a competition with its round schedule
// @Tags competition
// @Accept json
// @Produce json
// @Param competition body CompetitionCreate true "Competition to create"
// @Success 201 {object} CompetitionResponse
// @Router /competitions [post]
func (e *CompetitionController) createCompetitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var competitionCreate CompetitionCreate
		if err := c.BindJSON(&competitionCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		comp, err := e.competitionService.CreateCompetition(competitionCreate.toModel())
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(201, toCompetitionResponse(comp))
	}
}

// @Description Updates a competition
// @Tags competition
// @Accept json
// @Produce json
// @Param competition_id path string true "Competition Id"
// @Param competition body CompetitionCreate true "Fields to update"
// @Success 200 {object} CompetitionResponse
// @Router /competitions/{competition_id} [patch]
func (e *CompetitionController) updateCompetitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var competitionUpdate CompetitionCreate
		if err := c.BindJSON(&competitionUpdate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		comp, err := e.competitionService.UpdateCompetition(c.Param("competition_id"), competitionUpdate.toModel())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Competition not found"})
			} else {
				c.JSON(400, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(200, toCompetitionResponse(comp))
	}
}

// @Description Deletes a competition
// @Tags competition
// @Param competition_id path string true "Competition Id"
// @Success 204
// @Router /competitions/{competition_id} [delete]
func (e *CompetitionController) deleteCompetitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := e.competitionService.DeleteCompetition(c.Param("competition_id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Competition not found"})
			} else {
				c.JSON(500, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(204, nil)
	}
}

// @Description Ranks the finalists of a concluded competition
// @Tags competition
// @Produce json
// @Param competition_id path string true "Competition Id"
// @Success 200 {array} competition.WinnerResult
// @Router /competitions/{competition_id}/winners [get]
func (e *CompetitionController) getWinnersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		winners, err := e.competitionService.SelectWinners(c.Param("competition_id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Competition not found"})
			} else {
				app_error.WithHTTPStatus(c, err, app_error.HTTPStatusFor(err))
			}
			return
		}
		c.JSON(200, winners)
	}
}

// @Description Runs the full engine pass for one competition
// @Tags competition
// @Param competition_id path string true "Competition Id"
// @Success 204
// @Router /competitions/{competition_id}/process [post]
func (e *CompetitionController) processCompetitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := e.competitionService.ProcessCompetition(c.Param("competition_id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Competition not found"})
			} else {
				app_error.WithHTTPStatus(c, err, app_error.HTTPStatusFor(err))
			}
			return
		}
		c.JSON(204, nil)
	}
}

// @Description Runs the engine pass over every active competition
// @Tags competition
// @Produce json
// @Success 200 {object} map[string]int
// @Router /competitions/process-all [post]
func (e *CompetitionController) processAllHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		processed, err := e.competitionService.ProcessAllActive()
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"processed": processed})
	}
}

// @Description Repairs competitions whose stored state violates the active/reason invariant
// @Tags competition
// @Produce json
// @Success 200 {object} map[string]int
// @Router /competitions/repair [post]
func (e *CompetitionController) repairHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		repaired, err := e.competitionService.RepairInconsistentStates()
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"repaired": repaired})
	}
}

type RoundCreate struct {
	Name        string    `json:"name" binding:"required"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
	LikesToPass int       `json:"likes_to_pass"`
}

type CompetitionCreate struct {
	Title               string             `json:"title" binding:"required"`
	Slug                string             `json:"slug" binding:"required"`
	Description         *string            `json:"description"`
	MinAge              *int               `json:"min_age"`
	MaxAge              *int               `json:"max_age"`
	Gender              *repository.Gender `json:"gender"`
	IsPaid              bool               `json:"is_paid"`
	EntryFee            int                `json:"entry_fee"`
	FeedStickersEnabled bool               `json:"feed_stickers_enabled"`
	Rounds              []RoundCreate      `json:"rounds"`
}

func (e *CompetitionCreate) toModel() *repository.Competition {
	return &repository.Competition{
		Title:               e.Title,
		Slug:                e.Slug,
		Description:         e.Description,
		IsActive:            true,
		MinAge:              e.MinAge,
		MaxAge:              e.MaxAge,
		Gender:              e.Gender,
		IsPaid:              e.IsPaid,
		EntryFee:            e.EntryFee,
		FeedStickersEnabled: e.FeedStickersEnabled,
		Rounds: utils.Map(e.Rounds, func(r RoundCreate) *repository.Round {
			return &repository.Round{
				Name:        r.Name,
				StartDate:   r.StartDate,
				EndDate:     r.EndDate,
				LikesToPass: r.LikesToPass,
			}
		}),
	}
}

type RoundResponse struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	LikesToPass int       `json:"likes_to_pass"`
}

type CompetitionResponse struct {
	Id               string          `json:"id"`
	Title            string          `json:"title"`
	Slug             string          `json:"slug"`
	Description      *string         `json:"description"`
	IsActive         bool            `json:"is_active"`
	CompletionReason *string         `json:"completion_reason"`
	IsPaid           bool            `json:"is_paid"`
	EntryFee         int             `json:"entry_fee"`
	Rounds           []RoundResponse `json:"rounds"`
}

func toCompetitionResponse(comp *repository.Competition) CompetitionResponse {
	return CompetitionResponse{
		Id:               comp.Id,
		Title:            comp.Title,
		Slug:             comp.Slug,
		Description:      comp.Description,
		IsActive:         comp.IsActive,
		CompletionReason: comp.CompletionReason,
		IsPaid:           comp.IsPaid,
		EntryFee:         comp.EntryFee,
		Rounds: utils.Map(comp.Rounds, func(r *repository.Round) RoundResponse {
			return RoundResponse{
				Id:          r.Id,
				Name:        r.Name,
				StartDate:   r.StartDate,
				EndDate:     r.EndDate,
				LikesToPass: r.LikesToPass,
			}
		}),
	}
}
