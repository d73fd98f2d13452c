package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/l-t-m-f/XO-TicTacToe/internal/api/models"
)

// StatsRepository defines the interface for game result persistence and
// aggregation.
type StatsRepository interface {
	RecordResult(ctx context.Context, result *models.GameResult) error
	Leaderboard(ctx context.Context, limit int) ([]models.PlayerStats, error)
	PlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error)
}

type sqliteStatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new SQLite-based StatsRepository.
func NewStatsRepository(db *sqlx.DB) StatsRepository {
	return &sqliteStatsRepository{db: db}
}

// RecordResult inserts one player's outcome of a finished game.
func (r *sqliteStatsRepository) RecordResult(ctx context.Context, result *models.GameResult) error {
	query := `INSERT INTO game_results (room_id, player_id, mark, outcome, difficulty) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, result.RoomID, result.PlayerID, result.Mark, result.Outcome, result.Difficulty)
	if err != nil {
		return fmt.Errorf("failed to record game result: %w", err)
	}
	return nil
}

const statsColumns = `
	player_id,
	COUNT(*) AS games,
	SUM(CASE WHEN outcome = 'win' THEN 1 ELSE 0 END) AS wins,
	SUM(CASE WHEN outcome = 'loss' THEN 1 ELSE 0 END) AS losses,
	SUM(CASE WHEN outcome = 'draw' THEN 1 ELSE 0 END) AS draws`

// Leaderboard aggregates every player's results, best win count first.
func (r *sqliteStatsRepository) Leaderboard(ctx context.Context, limit int) ([]models.PlayerStats, error) {
	query := `SELECT` + statsColumns + `
	FROM game_results
	GROUP BY player_id
	ORDER BY wins DESC, games ASC, player_id ASC
	LIMIT ?`

	stats := make([]models.PlayerStats, 0, limit)
	if err := r.db.SelectContext(ctx, &stats, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	return stats, nil
}

// PlayerStats aggregates one player's results. A player with no recorded
// games gets a zeroed row, not an error.
func (r *sqliteStatsRepository) PlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	query := `SELECT` + statsColumns + `
	FROM game_results
	WHERE player_id = ?
	GROUP BY player_id`

	var stats models.PlayerStats
	err := r.db.GetContext(ctx, &stats, query, playerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.PlayerStats{PlayerID: playerID}, nil
		}
		return nil, fmt.Errorf("failed to query player stats: %w", err)
	}
	return &stats, nil
}
