package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/l-t-m-f/XO-TicTacToe/internal/api/controller"
	"github.com/l-t-m-f/XO-TicTacToe/internal/api/middleware"
	"github.com/l-t-m-f/XO-TicTacToe/internal/config"
	"github.com/l-t-m-f/XO-TicTacToe/internal/hub"
	"github.com/l-t-m-f/XO-TicTacToe/internal/hub/types"
	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
)

var tracer = otel.Tracer("server")

// Server owns the HTTP surface: the REST API, the health probe, and the
// websocket endpoint that feeds the hub.
type Server struct {
	engine   *gin.Engine
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewServer wires all routes onto a gin engine.
func NewServer(h *hub.Hub, userController *controller.UserController, statsController *controller.StatsController, authCfg config.AuthConfig) *Server {
	s := &Server{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group("/api")
	{
		api.POST("/register", userController.Register)
		api.POST("/login", userController.Login)
		api.POST("/guest", userController.GuestLogin)
		api.GET("/leaderboard", statsController.Leaderboard)

		me := api.Group("/me", middleware.Auth([]byte(authCfg.JWTSecret)))
		me.GET("/stats", statsController.MyStats)
	}

	engine.GET("/ws", s.handleWebSocket)
	engine.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	s.engine = engine
	return s
}

// Engine exposes the router for the http.Server in main.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// handleWebSocket's only responsibility is to upgrade the connection and
// pass a registration request to the hub. It does not distinguish between
// new and reconnecting players.
func (s *Server) handleWebSocket(c *gin.Context) {
	r := c.Request
	ctx, span := tracer.Start(r.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", r.URL.String()),
		attribute.String("http.method", r.Method),
	))
	defer span.End()

	conn, err := s.upgrader.Upgrade(c.Writer, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	// Get playerID from URL, or generate a new one.
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		playerID = uuid.New().String()
	}
	span.SetAttributes(attribute.String("player.id", playerID))

	p := player.NewPlayer(playerID, conn)

	// Get game mode preferences
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "bot"
	}
	difficulty := r.URL.Query().Get("difficulty")
	if difficulty == "" {
		difficulty = "easy"
	}
	span.SetAttributes(attribute.String("game.mode", mode), attribute.String("game.difficulty", difficulty))

	// Send the registration request to the hub for processing.
	req := &types.RegistrationRequest{
		Player:     p,
		PlayerID:   p.ID,
		Mode:       mode,
		Difficulty: difficulty,
		Ctx:        ctx, // Pass the context with the span
	}
	s.hub.Register() <- req
}
