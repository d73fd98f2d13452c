package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/l-t-m-f/XO-TicTacToe/internal/api/models"
	"github.com/l-t-m-f/XO-TicTacToe/internal/api/repository/mocks"
	"github.com/l-t-m-f/XO-TicTacToe/internal/api/service"
	"github.com/l-t-m-f/XO-TicTacToe/internal/events"
)

func TestRecordFinishedGame(t *testing.T) {
	ctx := context.Background()

	collectResults := func(repo *mocks.MockStatsRepository, into *[]models.GameResult) {
		repo.EXPECT().
			RecordResult(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, result *models.GameResult) error {
				*into = append(*into, *result)
				return nil
			}).
			AnyTimes()
	}

	t.Run("bot seat yields no row", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		statsRepo := mocks.NewMockStatsRepository(ctrl)
		svc := service.NewStatsService(statsRepo)

		var recorded []models.GameResult
		collectResults(statsRepo, &recorded)

		err := svc.RecordFinishedGame(ctx, &events.GameFinishedPayload{
			RoomID:     "room-1",
			Winner:     "X",
			PlayerXID:  "alice",
			PlayerOID:  "bot-94ce21d7",
			BotIDs:     []string{"bot-94ce21d7"},
			Difficulty: "hard",
		})
		require.NoError(t, err)

		require.Len(t, recorded, 1)
		require.Equal(t, "alice", recorded[0].PlayerID)
		require.Equal(t, "X", recorded[0].Mark)
		require.Equal(t, models.OutcomeWin, recorded[0].Outcome)
		require.Equal(t, "hard", recorded[0].Difficulty)
		require.Equal(t, "room-1", recorded[0].RoomID)
	})

	t.Run("losing human gets a loss row", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		statsRepo := mocks.NewMockStatsRepository(ctrl)
		svc := service.NewStatsService(statsRepo)

		var recorded []models.GameResult
		collectResults(statsRepo, &recorded)

		err := svc.RecordFinishedGame(ctx, &events.GameFinishedPayload{
			RoomID:     "room-2",
			Winner:     "O",
			PlayerXID:  "alice",
			PlayerOID:  "bot-94ce21d7",
			BotIDs:     []string{"bot-94ce21d7"},
			Difficulty: "medium",
		})
		require.NoError(t, err)

		require.Len(t, recorded, 1)
		require.Equal(t, models.OutcomeLoss, recorded[0].Outcome)
	})

	t.Run("draw yields draw rows for every human seat", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		statsRepo := mocks.NewMockStatsRepository(ctrl)
		svc := service.NewStatsService(statsRepo)

		var recorded []models.GameResult
		collectResults(statsRepo, &recorded)

		err := svc.RecordFinishedGame(ctx, &events.GameFinishedPayload{
			RoomID:    "room-3",
			PlayerXID: "alice",
			PlayerOID: "bob",
		})
		require.NoError(t, err)

		require.Len(t, recorded, 2)
		require.Equal(t, models.OutcomeDraw, recorded[0].Outcome)
		require.Equal(t, models.OutcomeDraw, recorded[1].Outcome)
		require.Equal(t, "alice", recorded[0].PlayerID)
		require.Equal(t, "bob", recorded[1].PlayerID)
	})
}

func TestLeaderboardClampsLimit(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name      string
		requested int
		effective int
	}{
		{"zero falls back to default", 0, 10},
		{"negative falls back to default", -3, 10},
		{"oversized is capped", 1000, 100},
		{"in range passes through", 25, 25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			statsRepo := mocks.NewMockStatsRepository(ctrl)
			svc := service.NewStatsService(statsRepo)

			statsRepo.EXPECT().
				Leaderboard(gomock.Any(), tc.effective).
				Return([]models.PlayerStats{}, nil)

			_, err := svc.Leaderboard(ctx, tc.requested)
			require.NoError(t, err)
		})
	}
}
