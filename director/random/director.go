package random

import (
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/they4kman/gosweep/game"
)

// Director reveals a random hidden, unflagged cell on every move
type Director struct {
	// Defaults to a randomly-seeded source
	Rand *rand.Rand

	session *game.Session
}

func (director *Director) Init(session *game.Session) {
	director.session = session
	if director.Rand == nil {
		director.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
}

func (director *Director) Act() bool {
	snapshot := director.session.Snapshot()
	if snapshot.Status.IsTerminal() {
		return false
	}

	candidates := HiddenCells(snapshot.Board)
	if len(candidates) == 0 {
		return false
	}

	cell := candidates[director.Rand.IntN(len(candidates))]
	director.session.Reveal(cell.Row, cell.Col)
	return true
}

// HiddenCells lists the cells that can still be revealed, in row-major order
func HiddenCells(board *game.Board) []game.Point {
	points := make([]game.Point, 0, board.Rows()*board.Cols())
	for row := 0; row < board.Rows(); row++ {
		for col := 0; col < board.Cols(); col++ {
			points = append(points, game.Point{Row: row, Col: col})
		}
	}

	return lo.Filter(points, func(point game.Point, _ int) bool {
		cell := board.CellAt(point.Row, point.Col)
		return !cell.IsRevealed && !cell.IsFlagged
	})
}
