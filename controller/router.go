package controller

import (
	"vibtrix/auth"
	"vibtrix/client"
	"vibtrix/competition"
	"vibtrix/service"

	"github.com/gin-contrib/cache/persistence"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RouteInfo struct {
	Method        string
	Path          string
	HandlerFunc   gin.HandlerFunc
	Authenticated bool
	RequiredRoles []string
}

func SetRoutes(r *gin.Engine, db *gorm.DB, cacheStore persistence.CacheStore) {
	engine := competition.NewEngine(db).WithPublisher(service.NewKafkaPublisher())
	razorpayClient := client.NewRazorpayClient()

	routes := make([]RouteInfo, 0)
	routes = append(routes, setupCompetitionController(db, engine)...)
	routes = append(routes, setupParticipantController(db, engine)...)
	routes = append(routes, setupPostController(db)...)
	routes = append(routes, setupFeedController(db, cacheStore)...)
	routes = append(routes, setupStandingsController(db)...)
	routes = append(routes, setupPaymentController(db, razorpayClient)...)
	routes = append(routes, setupSettingsController(db)...)
	routes = append(routes, setupUserController(db)...)
	routes = append(routes, setupRecurringJobsController(db, engine)...)
	for _, route := range routes {
		handlerfuncs := make([]gin.HandlerFunc, 0)
		if route.Authenticated {
			handlerfuncs = append(handlerfuncs, AuthMiddleware(route.RequiredRoles))
		}
		handlerfuncs = append(handlerfuncs, route.HandlerFunc)
		r.Handle(route.Method, "/api"+route.Path, handlerfuncs...)
	}
}

func AuthMiddleware(roles []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authCookie, err := c.Cookie("auth")
		if err != nil {
			c.JSON(401, gin.H{"error": "Unauthenticated"})
			c.Abort()
			return
		}
		token, err := auth.ParseToken(authCookie)
		if err != nil || !token.Valid {
			c.JSON(401, gin.H{"error": "Unauthenticated"})
			c.Abort()
			return
		}
		claims := &auth.Claims{}
		claims.FromJWTClaims(token.Claims)
		if err := claims.Valid(); err != nil {
			c.JSON(401, gin.H{"error": "Unauthenticated"})
			c.Abort()
			return
		}
		c.Set("user_id", claims.UserId)
		c.Set("permissions", claims.Permissions)
		if len(roles) == 0 {
			c.Next()
			return
		}
		for _, requiredRole := range roles {
			for _, userRole := range claims.Permissions {
				if requiredRole == userRole {
					c.Next()
					return
				}
			}
		}
		c.JSON(403, gin.H{"error": "Unauthorized"})
		c.Abort()
	}
}

func userIdFromContext(c *gin.Context) string {
	userId, ok := c.Get("user_id")
	if !ok {
		return ""
	}
	return userId.(string)
}
