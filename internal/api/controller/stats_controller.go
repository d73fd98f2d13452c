package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/l-t-m-f/XO-TicTacToe/internal/api/middleware"
	"github.com/l-t-m-f/XO-TicTacToe/internal/api/response"
	"github.com/l-t-m-f/XO-TicTacToe/internal/api/service"
)

// StatsController serves leaderboard and per-player record endpoints.
type StatsController struct {
	statsService service.StatsService
}

// NewStatsController creates a new StatsController.
func NewStatsController(statsService service.StatsService) *StatsController {
	return &StatsController{
		statsService: statsService,
	}
}

// Leaderboard returns the top players by wins. The optional "limit" query
// parameter caps the page size.
func (sc *StatsController) Leaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "limit must be a number")
		return
	}

	standings, err := sc.statsService.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.SuccessResponse(c, gin.H{"leaderboard": standings})
}

// MyStats returns the authenticated player's aggregate record.
func (sc *StatsController) MyStats(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)
	if playerID == "" {
		response.ErrorResponse(c, http.StatusUnauthorized, "missing player identity")
		return
	}

	stats, err := sc.statsService.PlayerStats(c.Request.Context(), playerID)
	if err != nil {
		response.ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.SuccessResponse(c, stats)
}
