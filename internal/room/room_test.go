package room

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/l-t-m-f/XO-TicTacToe/internal/apperror"
	"github.com/l-t-m-f/XO-TicTacToe/internal/events"
	"github.com/l-t-m-f/XO-TicTacToe/internal/game"
	"github.com/l-t-m-f/XO-TicTacToe/internal/player"
	"github.com/l-t-m-f/XO-TicTacToe/internal/repository"
	"github.com/l-t-m-f/XO-TicTacToe/pkg/proto"
)

// fakeConn records everything written to a player so tests can inspect
// error replies. ReadMessage is never used by these tests.
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) { return 0, nil, io.EOF }
func (c *fakeConn) Close() error                      { return nil }

func (c *fakeConn) lastMessage(t *testing.T) *proto.ServerToClientMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.written, "expected a message on the connection")
	var msg proto.ServerToClientMessage
	require.NoError(t, json.Unmarshal(c.written[len(c.written)-1], &msg))
	return &msg
}

func (c *fakeConn) writtenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.written)
}

// fakePublisher captures pub/sub traffic instead of hitting Redis.
type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
}

type publishedMessage struct {
	channel string
	payload []byte
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var data []byte
	switch v := message.(type) {
	case []byte:
		data = append([]byte(nil), v...)
	case string:
		data = []byte(v)
	}
	f.published = append(f.published, publishedMessage{channel: channel, payload: data})
	return redis.NewIntCmd(ctx)
}

func (f *fakePublisher) onChannel(channel string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]byte
	for _, m := range f.published {
		if m.channel == channel {
			out = append(out, m.payload)
		}
	}
	return out
}

func (f *fakePublisher) eventTypes(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, payload := range f.onChannel(events.EventsChannel) {
		var ev events.Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		types = append(types, ev.Type)
	}
	return types
}

func (f *fakePublisher) eventPayload(t *testing.T, eventType string, dest interface{}) {
	t.Helper()
	for _, payload := range f.onChannel(events.EventsChannel) {
		var ev events.Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		if ev.Type == eventType {
			require.NoError(t, json.Unmarshal(ev.Payload, dest))
			return
		}
	}
	t.Fatalf("no %q event was published", eventType)
}

// memGameRepository is an in-memory stand-in for the Redis game store with
// the same move validation rules. Create pins the opening side to X so
// tests stay deterministic.
type memGameRepository struct {
	mu      sync.Mutex
	games   map[string]*memGame
	votes   map[string]map[string]bool
	creates int
}

type memGame struct {
	board      game.Board
	turn       game.Mark
	winner     game.Mark
	status     string
	difficulty string
	playerXID  string
	playerOID  string
}

func newMemGameRepository() *memGameRepository {
	return &memGameRepository{
		games: make(map[string]*memGame),
		votes: make(map[string]map[string]bool),
	}
}

func (m *memGameRepository) Create(_ context.Context, roomID, playerXID, playerOID, difficulty string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	m.games[roomID] = &memGame{
		board:      *game.NewBoard(),
		turn:       game.X,
		status:     proto.StatusOngoing,
		difficulty: difficulty,
		playerXID:  playerXID,
		playerOID:  playerOID,
	}
	return nil
}

// state snapshots a game. Caller holds m.mu.
func (m *memGameRepository) state(roomID string) (*repository.GameState, error) {
	g, ok := m.games[roomID]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}
	board := g.board
	return &repository.GameState{
		Board:       &board,
		CurrentTurn: g.turn,
		Winner:      g.winner,
		Status:      g.status,
		Difficulty:  g.difficulty,
		PlayerXID:   g.playerXID,
		PlayerOID:   g.playerOID,
	}, nil
}

func (m *memGameRepository) FindByID(_ context.Context, id string) (*repository.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state(id)
}

func (m *memGameRepository) ApplyMove(_ context.Context, id string, mark game.Mark, cell game.Cell) (*repository.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}
	if g.status == proto.StatusFinished {
		return nil, apperror.ErrGameFinished
	}
	if g.turn != mark {
		return nil, apperror.ErrNotYourTurn
	}
	if err := g.board.Place(mark, cell); err != nil {
		return nil, err
	}
	g.turn = mark.Opponent()
	if winner, ok := g.board.Winner(); ok {
		g.winner = winner
		g.status = proto.StatusFinished
	} else if g.board.IsFull() {
		g.status = proto.StatusFinished
	}
	return m.state(id)
}

func (m *memGameRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	delete(m.votes, id)
	return nil
}

func (m *memGameRepository) RecordVote(_ context.Context, roomID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.votes[roomID] == nil {
		m.votes[roomID] = make(map[string]bool)
	}
	m.votes[roomID][playerID] = true
	return nil
}

func (m *memGameRepository) CountVotes(_ context.Context, roomID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.votes[roomID]), nil
}

func (m *memGameRepository) ClearVotes(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.votes, roomID)
	return nil
}

func (m *memGameRepository) forceFinish(roomID string, winner game.Mark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.games[roomID]
	g.winner = winner
	g.status = proto.StatusFinished
}

func (m *memGameRepository) createCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

type stubPlayerRepository struct{}

func (stubPlayerRepository) FindForReconnection(context.Context, string) (string, player.PlayerStatus, error) {
	return "", player.StatusDisconnected, nil
}
func (stubPlayerRepository) UpdateConnectionStatus(context.Context, string, player.PlayerStatus) error {
	return nil
}
func (stubPlayerRepository) UpdateForMatch(context.Context, string, string) error { return nil }
func (stubPlayerRepository) SetOffline(context.Context, string) error             { return nil }

// recordingCalculator plays the first open square and remembers how it
// was asked to play.
type recordingCalculator struct {
	mu           sync.Mutex
	difficulties []string
}

func (c *recordingCalculator) CalculateNextMove(b *game.Board, mark game.Mark, difficulty string) (game.Cell, bool) {
	c.mu.Lock()
	c.difficulties = append(c.difficulties, difficulty)
	c.mu.Unlock()
	empties := b.Empties()
	if len(empties) == 0 {
		return game.Cell{}, false
	}
	return empties[0], true
}

func (c *recordingCalculator) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.difficulties)
}

func (c *recordingCalculator) firstDifficulty() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.difficulties) == 0 {
		return ""
	}
	return c.difficulties[0]
}

func newTestRoom(t *testing.T, difficulty string) (*Room, *memGameRepository, *fakePublisher, *player.Player, *player.Player) {
	t.Helper()
	repo := newMemGameRepository()
	pub := &fakePublisher{}
	px := player.NewPlayer("player-x", &fakeConn{})
	po := player.NewPlayer("player-o", &fakeConn{})
	r := NewRoom("room-1", pub, repo, stubPlayerRepository{}, &recordingCalculator{}, time.Minute)
	r.AddPlayer(px)
	r.AddPlayer(po)
	require.NoError(t, repo.Create(context.Background(), r.ID, px.ID, po.ID, difficulty))
	return r, repo, pub, px, po
}

func conn(p *player.Player) *fakeConn { return p.Conn.(*fakeConn) }

func TestHandleMessageAppliesMoveAndPublishes(t *testing.T) {
	r, repo, pub, px, _ := newTestRoom(t, "hard")

	r.HandleMessage(px, []byte(`{"type":"move","position":[0,0]}`))

	state, err := repo.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, game.X, state.Board.At(game.Cell{Col: 0, Row: 0}))
	require.Equal(t, game.O, state.CurrentTurn)
	require.Equal(t, proto.StatusOngoing, state.Status)

	updates := pub.onChannel(RoomChannel(r.ID))
	require.Len(t, updates, 1)
	require.Equal(t, "update", string(updates[0]))
}

func TestHandleMessageRejectsOutOfTurn(t *testing.T) {
	r, repo, pub, _, po := newTestRoom(t, "hard")

	r.HandleMessage(po, []byte(`{"type":"move","position":[0,0]}`))

	msg := conn(po).lastMessage(t)
	require.Equal(t, "error", msg.Type)
	require.Equal(t, apperror.ErrNotYourTurn.Error(), msg.Reason)

	state, err := repo.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, state.Board.Empties(), 9)
	require.Empty(t, pub.onChannel(RoomChannel(r.ID)))
}

func TestHandleMessageRejectsOccupiedCell(t *testing.T) {
	r, _, _, px, po := newTestRoom(t, "hard")

	r.HandleMessage(px, []byte(`{"type":"move","position":[1,1]}`))
	r.HandleMessage(po, []byte(`{"type":"move","position":[1,1]}`))

	msg := conn(po).lastMessage(t)
	require.Equal(t, "error", msg.Type)
	require.Equal(t, apperror.ErrCellOccupied.Error(), msg.Reason)
}

func TestHandleMessageRejectsPlayerWithoutSeat(t *testing.T) {
	r, repo, _, _, _ := newTestRoom(t, "hard")
	stranger := player.NewPlayer("stranger", &fakeConn{})

	r.HandleMessage(stranger, []byte(`{"type":"move","position":[0,0]}`))

	msg := conn(stranger).lastMessage(t)
	require.Equal(t, "error", msg.Type)
	require.Equal(t, apperror.ErrNotYourSeat.Error(), msg.Reason)

	state, err := repo.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, state.Board.Empties(), 9)
}

func TestHandleMessageIgnoresMalformedPayloads(t *testing.T) {
	payloads := []string{
		"not json at all",
		`{"type":"dance"}`,
		`{"position":[0,0]}`,
	}

	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			r, repo, pub, px, _ := newTestRoom(t, "hard")

			r.HandleMessage(px, []byte(payload))

			state, err := repo.FindByID(context.Background(), r.ID)
			require.NoError(t, err)
			require.Len(t, state.Board.Empties(), 9)
			require.Empty(t, pub.onChannel(RoomChannel(r.ID)))
			require.Zero(t, conn(px).writtenCount())
		})
	}
}

func TestHandleMoveRequiresPosition(t *testing.T) {
	r, _, pub, px, _ := newTestRoom(t, "hard")

	r.HandleMessage(px, []byte(`{"type":"move"}`))

	msg := conn(px).lastMessage(t)
	require.Equal(t, "error", msg.Type)
	require.Equal(t, "move needs a [col, row] position", msg.Reason)
	require.Empty(t, pub.onChannel(RoomChannel(r.ID)))
}

func TestWinningMovePublishesGameFinished(t *testing.T) {
	r, repo, pub, px, po := newTestRoom(t, "medium")

	// X runs the top row while O fills the middle one.
	r.HandleMessage(px, []byte(`{"type":"move","position":[0,0]}`))
	r.HandleMessage(po, []byte(`{"type":"move","position":[0,1]}`))
	r.HandleMessage(px, []byte(`{"type":"move","position":[1,0]}`))
	r.HandleMessage(po, []byte(`{"type":"move","position":[1,1]}`))
	r.HandleMessage(px, []byte(`{"type":"move","position":[2,0]}`))

	state, err := repo.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.True(t, state.Finished())
	require.Equal(t, game.X, state.Winner)

	require.Len(t, pub.onChannel(RoomChannel(r.ID)), 5)
	require.Contains(t, pub.eventTypes(t), "game_finished")

	var payload events.GameFinishedPayload
	pub.eventPayload(t, "game_finished", &payload)
	require.Equal(t, r.ID, payload.RoomID)
	require.Equal(t, "X", payload.Winner)
	require.Equal(t, px.ID, payload.PlayerXID)
	require.Equal(t, po.ID, payload.PlayerOID)
	require.Empty(t, payload.BotIDs)
	require.Equal(t, "medium", payload.Difficulty)
}

func TestRematchBeforeGameOverRejected(t *testing.T) {
	r, repo, pub, px, _ := newTestRoom(t, "hard")

	r.HandleMessage(px, []byte(`{"type":"rematch"}`))

	msg := conn(px).lastMessage(t)
	require.Equal(t, "error", msg.Type)
	require.Equal(t, "game is not over yet", msg.Reason)

	require.Equal(t, 1, repo.createCount())
	require.Empty(t, pub.eventTypes(t))
}

func TestRematchWithBotResetsImmediately(t *testing.T) {
	repo := newMemGameRepository()
	pub := &fakePublisher{}
	human := player.NewPlayer("player-1", &fakeConn{})
	bot := player.NewPlayer("bot-1", &fakeConn{})
	bot.IsBot = true

	r := NewRoom("room-bot", pub, repo, stubPlayerRepository{}, &recordingCalculator{}, time.Minute)
	r.AddPlayer(human)
	r.AddPlayer(bot)
	require.NoError(t, repo.Create(context.Background(), r.ID, human.ID, bot.ID, "easy"))
	repo.forceFinish(r.ID, game.X)

	r.HandleMessage(human, []byte(`{"type":"rematch"}`))

	require.Equal(t, 2, repo.createCount())

	state, err := repo.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, proto.StatusOngoing, state.Status)
	require.Equal(t, game.Empty, state.Winner)
	require.Len(t, state.Board.Empties(), 9)
	// Seats swap on rematch, difficulty carries over.
	require.Equal(t, bot.ID, state.PlayerXID)
	require.Equal(t, human.ID, state.PlayerOID)
	require.Equal(t, "easy", state.Difficulty)

	votes, err := repo.CountVotes(context.Background(), r.ID)
	require.NoError(t, err)
	require.Zero(t, votes)

	types := pub.eventTypes(t)
	require.Contains(t, types, "rematch_successful")
	require.NotContains(t, types, "rematch_requested")
}

func TestRematchBetweenHumansNeedsBothVotes(t *testing.T) {
	r, repo, pub, px, po := newTestRoom(t, "hard")
	repo.forceFinish(r.ID, game.O)

	r.HandleMessage(px, []byte(`{"type":"rematch"}`))

	require.Equal(t, 1, repo.createCount())
	require.Contains(t, pub.eventTypes(t), "rematch_requested")
	require.NotContains(t, pub.eventTypes(t), "rematch_successful")

	r.HandleMessage(po, []byte(`{"type":"rematch"}`))

	require.Equal(t, 2, repo.createCount())
	require.Contains(t, pub.eventTypes(t), "rematch_successful")

	state, err := repo.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, proto.StatusOngoing, state.Status)
	require.Equal(t, po.ID, state.PlayerXID)
	require.Equal(t, px.ID, state.PlayerOID)

	votes, err := repo.CountVotes(context.Background(), r.ID)
	require.NoError(t, err)
	require.Zero(t, votes)
}

func TestMoveTimerProxiesMoveForStalledPlayer(t *testing.T) {
	repo := newMemGameRepository()
	pub := &fakePublisher{}
	calc := &recordingCalculator{}
	px := player.NewPlayer("player-x", &fakeConn{})
	po := player.NewPlayer("player-o", &fakeConn{})

	r := NewRoom("room-slow", pub, repo, stubPlayerRepository{}, calc, 30*time.Millisecond)
	r.AddPlayer(px)
	r.AddPlayer(po)
	require.NoError(t, repo.Create(context.Background(), r.ID, px.ID, po.ID, "hard"))

	go r.run()
	defer close(r.Done)

	require.Eventually(t, func() bool {
		return calc.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		state, err := repo.FindByID(context.Background(), r.ID)
		return err == nil && len(state.Board.Empties()) < 9
	}, 2*time.Second, 10*time.Millisecond)

	// Proxy moves always play at medium strength, whatever the room is set to.
	require.Equal(t, "medium", calc.firstDifficulty())
}

func TestStateMessageCarriesWinningLine(t *testing.T) {
	board, err := game.ParseGrid([][]string{
		{"X", "X", "X"},
		{"O", "O", ""},
		{"", "", ""},
	})
	require.NoError(t, err)

	state := &repository.GameState{
		Board:       board,
		CurrentTurn: game.O,
		Winner:      game.X,
		Status:      proto.StatusFinished,
	}

	msg := StateMessage(state)
	require.Equal(t, "update", msg.Type)
	require.Equal(t, "X", msg.Winner)
	require.Equal(t, proto.StatusFinished, msg.Status)
	require.Equal(t, []string{"X", "X", "X"}, msg.Board[0])
	require.Equal(t, [][]int{{0, 0}, {1, 0}, {2, 0}}, msg.WinningLine)
}

func TestStateMessageOngoingHasNoWinningLine(t *testing.T) {
	state := &repository.GameState{
		Board:       game.NewBoard(),
		CurrentTurn: game.X,
		Winner:      game.Empty,
		Status:      proto.StatusOngoing,
	}

	msg := StateMessage(state)
	require.Equal(t, "update", msg.Type)
	require.Empty(t, msg.Winner)
	require.Nil(t, msg.WinningLine)
}
