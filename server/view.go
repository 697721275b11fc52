package server

import (
	"github.com/samber/lo"

	"github.com/they4kman/gosweep/game"
)

// Cell states as seen by the player
const (
	CellHidden   = "hidden"
	CellFlagged  = "flagged"
	CellRevealed = "revealed"
)

// CellView never tells whether a hidden cell is a mine
type CellView struct {
	State    string `json:"state"`
	Count    int    `json:"count,omitempty"`
	Mine     bool   `json:"mine,omitempty"`
	Exploded bool   `json:"exploded,omitempty"`
}

type GameView struct {
	Difficulty     game.Difficulty `json:"difficulty"`
	Config         game.Config     `json:"config"`
	Status         game.Status     `json:"status"`
	MinesLeft      int             `json:"minesLeft"`
	ElapsedSeconds int             `json:"elapsedSeconds"`
	BestTime       *int            `json:"bestTime"`
	Cells          [][]CellView    `json:"cells"`
}

func newGameView(snapshot game.Snapshot) GameView {
	exploded, hasExploded := snapshot.Board.Exploded()

	cells := lo.Map(snapshot.Board.Cells(), func(row []game.Cell, r int) []CellView {
		return lo.Map(row, func(cell game.Cell, c int) CellView {
			switch {
			case cell.IsRevealed:
				return CellView{
					State:    CellRevealed,
					Count:    cell.NeighborCount,
					Mine:     cell.IsMine,
					Exploded: hasExploded && exploded == (game.Point{Row: r, Col: c}),
				}
			case cell.IsFlagged:
				return CellView{State: CellFlagged}
			default:
				return CellView{State: CellHidden}
			}
		})
	})

	return GameView{
		Difficulty:     snapshot.Difficulty,
		Config:         snapshot.Config,
		Status:         snapshot.Status,
		MinesLeft:      snapshot.MinesLeft,
		ElapsedSeconds: snapshot.ElapsedSeconds,
		BestTime:       snapshot.BestTime,
		Cells:          cells,
	}
}
