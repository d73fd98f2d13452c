package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/l-t-m-f/XO-TicTacToe/internal/api/models"
	"github.com/l-t-m-f/XO-TicTacToe/internal/api/response"
	"github.com/l-t-m-f/XO-TicTacToe/internal/api/service"
	"github.com/l-t-m-f/XO-TicTacToe/internal/apperror"
)

// UserController handles user-related HTTP requests.
type UserController struct {
	userService service.UserService
}

// NewUserController creates a new UserController.
func NewUserController(userService service.UserService) *UserController {
	return &UserController{
		userService: userService,
	}
}

// Register handles the user registration endpoint.
func (uc *UserController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	err := uc.userService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, apperror.ErrUserExists) {
			response.ErrorResponse(c, http.StatusConflict, err.Error())
			return
		}
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.SuccessResponse(c, gin.H{"message": "User created successfully"})
}

// Login handles the user login endpoint.
func (uc *UserController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	login, err := uc.userService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidCredentials) {
			response.ErrorResponse(c, http.StatusUnauthorized, err.Error())
			return
		}
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.SuccessResponse(c, login)
}

// GuestLogin hands out a playable identity without an account.
func (uc *UserController) GuestLogin(c *gin.Context) {
	login, err := uc.userService.GuestLogin(c.Request.Context())
	if err != nil {
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.SuccessResponse(c, login)
}
