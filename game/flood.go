package game

import "github.com/gammazero/deque"

type NeighborGetter func(Point, func(Point))

// Visitor handles a dequeued cell and reports whether its neighbors should
// be enqueued
type Visitor func(Point) bool

func flood(start Point, visit Visitor, getNeighbors NeighborGetter) {
	var queue deque.Deque[Point]
	queue.PushBack(start)

	for queue.Len() > 0 {
		point := queue.PopFront()
		if !visit(point) {
			continue
		}
		getNeighbors(point, queue.PushBack)
	}
}

// Reveal uncovers (row, col) and, when it has no neighboring mines, the
// connected zero-count region around it plus that region's numbered border.
// Flagged cells are never uncovered. It returns the number of cells revealed.
func (board *Board) Reveal(row, col int) int {
	start := board.CellAt(row, col)
	if start == nil || start.IsRevealed || start.IsFlagged {
		return 0
	}

	numRevealed := 0
	flood(
		Point{Row: row, Col: col},
		func(point Point) bool {
			cell := &board.cells[point.Row][point.Col]
			if cell.IsRevealed || cell.IsFlagged {
				return false
			}
			cell.IsRevealed = true
			numRevealed++
			return !cell.IsMine && cell.NeighborCount == 0
		},
		func(point Point, enqueue func(Point)) {
			board.Neighbors(point, func(neighbor Point) {
				if !board.cells[neighbor.Row][neighbor.Col].IsRevealed {
					enqueue(neighbor)
				}
			})
		},
	)
	return numRevealed
}
