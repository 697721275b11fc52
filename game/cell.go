package game

import "fmt"

type Cell struct {
	IsMine        bool `json:"isMine"`
	IsRevealed    bool `json:"isRevealed"`
	IsFlagged     bool `json:"isFlagged"`
	NeighborCount int  `json:"neighborCount"`
}

type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (point Point) String() string {
	return fmt.Sprintf("(%d, %d)", point.Row, point.Col)
}

// Characters used by BoardSnapshot to encode one cell
const (
	cellExplodedMine = '*'
	cellFlaggedMine  = 'F'
	cellMine         = 'O'
	cellFlag         = 'f'
	cellRevealed     = '.'
	cellHidden       = '#'
)

func (cell Cell) serialize(isExploded bool) rune {
	switch {
	case cell.IsMine:
		switch {
		case isExploded:
			return cellExplodedMine
		case cell.IsFlagged:
			return cellFlaggedMine
		default:
			return cellMine
		}
	case cell.IsFlagged:
		return cellFlag
	case cell.IsRevealed:
		return cellRevealed
	default:
		return cellHidden
	}
}

// deserialize restores the cell from its snapshot character. Revealed mines
// are not encoded apart from the exploded one; a lost board re-derives them
// from its status.
func (cell *Cell) deserialize(c rune, fresh bool) (isExploded bool, ok bool) {
	*cell = Cell{}

	switch c {
	case cellExplodedMine, cellFlaggedMine, cellMine:
		cell.IsMine = true

		switch c {
		case cellExplodedMine:
			if !fresh {
				cell.IsRevealed = true
				isExploded = true
			}
		case cellFlaggedMine:
			cell.IsFlagged = !fresh
		}
	case cellFlag:
		cell.IsFlagged = !fresh
	case cellRevealed:
		cell.IsRevealed = !fresh
	case cellHidden:
	default:
		return false, false
	}

	return isExploded, true
}
