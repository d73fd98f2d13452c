package bot

import (
	"math/rand/v2"

	"github.com/l-t-m-f/XO-TicTacToe/internal/game"
)

// BotMoveCalculator implements the room.MoveCalculator interface.
type BotMoveCalculator struct{}

// CalculateNextMove calls the package-level function to satisfy the interface.
func (c *BotMoveCalculator) CalculateNextMove(b *game.Board, mark game.Mark, difficulty string) (game.Cell, bool) {
	return CalculateNextMove(b, mark, difficulty)
}

// CalculateNextMove determines the bot's next move based on the specified difficulty.
func CalculateNextMove(b *game.Board, botMark game.Mark, difficulty string) (game.Cell, bool) {
	switch difficulty {
	case "easy":
		return easyMove(b)
	case "medium":
		return mediumMove(b, botMark)
	default:
		return hardMove(b, botMark)
	}
}

// easyMove makes a completely random move.
func easyMove(b *game.Board) (game.Cell, bool) {
	availableMoves := b.Empties()
	if len(availableMoves) == 0 {
		return game.Cell{}, false
	}
	return availableMoves[rand.IntN(len(availableMoves))], true
}

// mediumMove will win if it can, block if it must, otherwise move randomly.
func mediumMove(b *game.Board, botMark game.Mark) (game.Cell, bool) {
	// 1. Win: take the move that completes a line for the bot
	if cell, ok := findWinningCell(b, botMark); ok {
		return cell, true
	}

	// 2. Block: deny the opponent the same
	if cell, ok := findWinningCell(b, botMark.Opponent()); ok {
		return cell, true
	}

	// 3. Random: otherwise any open square
	return easyMove(b)
}

// hardMove plays the exhaustive search move. It never loses: the worst it
// concedes with a defense available is a tie.
func hardMove(b *game.Board, botMark game.Mark) (game.Cell, bool) {
	resp := Search(b, botMark)
	if !resp.HasMove {
		return game.Cell{}, false
	}
	return resp.Move, true
}
