package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/l-t-m-f/XO-TicTacToe/internal/api/models"
	"github.com/l-t-m-f/XO-TicTacToe/internal/api/repository"
	"github.com/l-t-m-f/XO-TicTacToe/internal/events"
	"github.com/l-t-m-f/XO-TicTacToe/internal/game"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// StatsService records finished games and serves aggregated standings.
type StatsService interface {
	RecordFinishedGame(ctx context.Context, payload *events.GameFinishedPayload) error
	Leaderboard(ctx context.Context, limit int) ([]models.PlayerStats, error)
	PlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error)
}

type statsService struct {
	statsRepo repository.StatsRepository
}

// NewStatsService creates a new StatsService.
func NewStatsService(statsRepo repository.StatsRepository) StatsService {
	return &statsService{statsRepo: statsRepo}
}

// RecordFinishedGame writes one result row per human seat. Bot seats are
// skipped, so a human-versus-bot game yields a single row.
func (s *statsService) RecordFinishedGame(ctx context.Context, payload *events.GameFinishedPayload) error {
	seats := []struct {
		playerID string
		mark     game.Mark
	}{
		{payload.PlayerXID, game.X},
		{payload.PlayerOID, game.O},
	}

	for _, seat := range seats {
		if seat.playerID == "" || slices.Contains(payload.BotIDs, seat.playerID) {
			continue
		}

		outcome := models.OutcomeDraw
		switch payload.Winner {
		case "":
		case seat.mark.String():
			outcome = models.OutcomeWin
		default:
			outcome = models.OutcomeLoss
		}

		result := &models.GameResult{
			RoomID:     payload.RoomID,
			PlayerID:   seat.playerID,
			Mark:       seat.mark.String(),
			Outcome:    outcome,
			Difficulty: payload.Difficulty,
		}
		if err := s.statsRepo.RecordResult(ctx, result); err != nil {
			return fmt.Errorf("failed to record result for player %s: %w", seat.playerID, err)
		}
	}
	return nil
}

// Leaderboard returns the top players by wins. A non-positive limit falls
// back to the default page size.
func (s *statsService) Leaderboard(ctx context.Context, limit int) ([]models.PlayerStats, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	return s.statsRepo.Leaderboard(ctx, limit)
}

// PlayerStats returns one player's aggregate record.
func (s *statsService) PlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	return s.statsRepo.PlayerStats(ctx, playerID)
}
