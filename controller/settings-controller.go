package controller

import (
	"vibtrix/repository"
	"vibtrix/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SettingsController struct {
	settingsService *service.SettingsService
}

func NewSettingsController(db *gorm.DB) *SettingsController {
	return &SettingsController{
		settingsService: service.NewSettingsService(db),
	}
}

func setupSettingsController(db *gorm.DB) []RouteInfo {
	e := NewSettingsController(db)
	return []RouteInfo{
		{Method: "GET", Path: "/settings", HandlerFunc: e.getSettingsHandler()},
		{Method: "PATCH", Path: "/settings", HandlerFunc: e.updateSettingsHandler(), Authenticated: true, RequiredRoles: []string{"admin"}},
	}
}

// @Description Fetches the platform feature toggles
// @Tags settings
// @Produce json
// @Success 200 {object} repository.SiteSettings
// @Router /settings [get]
func (e *SettingsController) getSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := e.settingsService.GetSettings()
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, settings)
	}
}

// @Description Updates the platform feature toggles
// @Tags settings
// @Accept json
// @Produce json
// @Param settings body repository.SiteSettings true "Toggles to store"
// @Success 200 {object} repository.SiteSettings
// @Router /settings [patch]
func (e *SettingsController) updateSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var settings repository.SiteSettings
		if err := c.BindJSON(&settings); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		updated, err := e.settingsService.UpdateSettings(&settings)
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, updated)
	}
}
