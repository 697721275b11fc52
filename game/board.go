package game

import (
	"math/rand/v2"

	"github.com/they4kman/gosweep/util/collections"
)

type Board struct {
	rows, cols int // in number of cells
	numMines   int
	cells      [][]Cell

	exploded *Point
}

// NewBoard returns a rows×cols board of hidden, mine-free cells. The size is
// expected to be validated by the caller.
func NewBoard(rows, cols int) *Board {
	board := &Board{
		rows:  rows,
		cols:  cols,
		cells: make([][]Cell, rows),
	}
	for row := range board.cells {
		board.cells[row] = make([]Cell, cols)
	}
	return board
}

func (board *Board) Rows() int {
	return board.rows
}

func (board *Board) Cols() int {
	return board.cols
}

func (board *Board) NumMines() int {
	return board.numMines
}

func (board *Board) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < board.rows && col < board.cols
}

func (board *Board) CellAt(row, col int) *Cell {
	if board.InBounds(row, col) {
		return &board.cells[row][col]
	}
	return nil
}

// Exploded returns the mine that lost the game, if any
func (board *Board) Exploded() (Point, bool) {
	if board.exploded == nil {
		return Point{}, false
	}
	return *board.exploded, true
}

// Neighbors calls visit for each in-bounds cell at Chebyshev distance 1
func (board *Board) Neighbors(point Point, visit func(Point)) {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			neighbor := Point{Row: point.Row + dr, Col: point.Col + dc}
			if board.InBounds(neighbor.Row, neighbor.Col) {
				visit(neighbor)
			}
		}
	}
}

func (board *Board) safeZone(center Point) collections.Set[Point] {
	zone := collections.NewSet(center)
	board.Neighbors(center, zone.Add)
	return zone
}

// PlaceMines marks count distinct cells as mines, keeping the 3×3 area
// around (safeRow, safeCol) clear. When the board is too small for that, only
// the clicked cell is kept clear.
func (board *Board) PlaceMines(safeRow, safeCol, count int, rng *rand.Rand) {
	center := Point{Row: safeRow, Col: safeCol}
	numCells := board.rows * board.cols

	safe := board.safeZone(center)
	if numCells-safe.Len() < count {
		safe = collections.NewSet(center)
	}
	numEligible := numCells - safe.Len()
	if count > numEligible {
		count = numEligible
	}

	// Rejection sampling stalls once most eligible cells are taken
	if 2*count > numEligible {
		board.placeShuffled(safe, count, rng)
	} else {
		board.placeSampled(safe, count, rng)
	}
	board.numMines = count
}

func (board *Board) placeSampled(safe collections.Set[Point], count int, rng *rand.Rand) {
	for placed := 0; placed < count; {
		point := Point{Row: rng.IntN(board.rows), Col: rng.IntN(board.cols)}
		cell := &board.cells[point.Row][point.Col]
		if cell.IsMine || safe.Contains(point) {
			continue
		}
		cell.IsMine = true
		placed++
	}
}

func (board *Board) placeShuffled(safe collections.Set[Point], count int, rng *rand.Rand) {
	eligible := make([]Point, 0, board.rows*board.cols)
	for row := 0; row < board.rows; row++ {
		for col := 0; col < board.cols; col++ {
			if point := (Point{Row: row, Col: col}); !safe.Contains(point) {
				eligible = append(eligible, point)
			}
		}
	}

	rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	for _, point := range eligible[:count] {
		board.cells[point.Row][point.Col].IsMine = true
	}
}

// CalculateNeighbors sets the mine count of every non-mine cell
func (board *Board) CalculateNeighbors() {
	numMines := 0
	for row := range board.cells {
		for col := range board.cells[row] {
			cell := &board.cells[row][col]
			cell.NeighborCount = 0
			if cell.IsMine {
				numMines++
				continue
			}
			board.Neighbors(Point{Row: row, Col: col}, func(neighbor Point) {
				if board.cells[neighbor.Row][neighbor.Col].IsMine {
					cell.NeighborCount++
				}
			})
		}
	}
	board.numMines = numMines
}

// RevealMines discloses every mine, flagged or not, after the one at
// exploded was hit.
func (board *Board) RevealMines(exploded Point) {
	for row := range board.cells {
		for col := range board.cells[row] {
			if cell := &board.cells[row][col]; cell.IsMine {
				cell.IsRevealed = true
			}
		}
	}
	if cell := board.CellAt(exploded.Row, exploded.Col); cell != nil {
		cell.IsRevealed = true
		board.exploded = &exploded
	}
}

// CheckWin reports whether every non-mine cell is revealed. Flags don't count.
func (board *Board) CheckWin() bool {
	for row := range board.cells {
		for _, cell := range board.cells[row] {
			if !cell.IsMine && !cell.IsRevealed {
				return false
			}
		}
	}
	return true
}

func (board *Board) NumFlags() int {
	numFlags := 0
	for row := range board.cells {
		for _, cell := range board.cells[row] {
			if cell.IsFlagged {
				numFlags++
			}
		}
	}
	return numFlags
}

// Cells returns a copy of the grid, indexed [row][col]
func (board *Board) Cells() [][]Cell {
	cells := make([][]Cell, board.rows)
	for row := range board.cells {
		cells[row] = append([]Cell(nil), board.cells[row]...)
	}
	return cells
}

func (board *Board) Clone() *Board {
	clone := *board
	clone.cells = board.Cells()
	if board.exploded != nil {
		exploded := *board.exploded
		clone.exploded = &exploded
	}
	return &clone
}

// copyMines lays out the mines of other, which must have the same shape
func (board *Board) copyMines(other *Board) {
	for row := range board.cells {
		for col := range board.cells[row] {
			board.cells[row][col].IsMine = other.cells[row][col].IsMine
		}
	}
}

// fits reports whether board can serve as the mine layout of a game played
// with config
func (board *Board) fits(config Config) bool {
	if board == nil || board.rows != config.Rows || board.cols != config.Cols {
		return false
	}
	mines := 0
	for row := range board.cells {
		for col := range board.cells[row] {
			if board.cells[row][col].IsMine {
				mines++
			}
		}
	}
	return mines == config.Mines
}
