package controller

import (
	"errors"
	"os"

	"vibtrix/repository"
	"vibtrix/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserController struct {
	userService *service.UserService
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{
		userService: service.NewUserService(db),
	}
}

func setupUserController(db *gorm.DB) []RouteInfo {
	e := NewUserController(db)
	return []RouteInfo{
		{Method: "POST", Path: "/users/register", HandlerFunc: e.registerHandler()},
		{Method: "POST", Path: "/users/login", HandlerFunc: e.loginHandler()},
		{Method: "POST", Path: "/users/logout", HandlerFunc: e.logoutHandler()},
		{Method: "GET", Path: "/users/self", HandlerFunc: e.getSelfHandler(), Authenticated: true},
	}
}

// @Description Registers a new user account
// @Tags user
// @Accept json
// @Produce json
// @Param user body UserCreate true "User to create"
// @Success 201 {object} UserResponse
// @Router /users/register [post]
func (e *UserController) registerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var userCreate UserCreate
		if err := c.BindJSON(&userCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		user, err := e.userService.Register(userCreate.Username, userCreate.DisplayName, userCreate.Password, userCreate.Gender, userCreate.DateOfBirth)
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(201, toUserResponse(user))
	}
}

// @Description Logs a user in and sets the session cookie
// @Tags user
// @Accept json
// @Produce json
// @Param credentials body UserLogin true "Credentials"
// @Success 200 {object} UserResponse
// @Router /users/login [post]
func (e *UserController) loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var login UserLogin
		if err := c.BindJSON(&login); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		token, user, err := e.userService.Login(login.Username, login.Password)
		if err != nil {
			c.JSON(401, gin.H{"error": err.Error()})
			return
		}
		c.SetCookie("auth", token, 60*60*24*21, "/", os.Getenv("PUBLIC_DOMAIN"), false, true)
		c.JSON(200, toUserResponse(user))
	}
}

// @Description Clears the session cookie
// @Tags user
// @Success 204
// @Router /users/logout [post]
func (e *UserController) logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie("auth", "", -1, "/", os.Getenv("PUBLIC_DOMAIN"), false, true)
		c.JSON(204, nil)
	}
}

// @Description Fetches the authenticated user
// @Tags user
// @Produce json
// @Success 200 {object} UserResponse
// @Security BearerAuth
// @Router /users/self [get]
func (e *UserController) getSelfHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := e.userService.GetUserById(userIdFromContext(c))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "User not found"})
			} else {
				c.JSON(500, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(200, toUserResponse(user))
	}
}

type UserCreate struct {
	Username    string             `json:"username" binding:"required"`
	DisplayName string             `json:"display_name" binding:"required"`
	Password    string             `json:"password" binding:"required"`
	Gender      *repository.Gender `json:"gender"`
	DateOfBirth *string            `json:"date_of_birth"`
}

type UserLogin struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	Id          string             `json:"id"`
	Username    string             `json:"username"`
	DisplayName string             `json:"display_name"`
	Gender      *repository.Gender `json:"gender"`
	DateOfBirth *string            `json:"date_of_birth"`
	AvatarUrl   *string            `json:"avatar_url"`
	Permissions []string           `json:"permissions"`
}

func toUserResponse(user *repository.User) UserResponse {
	return UserResponse{
		Id:          user.Id,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Gender:      user.Gender,
		DateOfBirth: user.DateOfBirth,
		AvatarUrl:   user.AvatarUrl,
		Permissions: user.Permissions,
	}
}
