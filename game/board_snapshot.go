package game

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"
)

// BoardSnapshot is the replay record of a board, written as YAML
type BoardSnapshot struct {
	Difficulty     Difficulty `yaml:"difficulty"`
	Rows           int        `yaml:"rows"`
	Cols           int        `yaml:"cols"`
	Mines          int        `yaml:"mines"`
	Status         string     `yaml:"status"`
	ElapsedSeconds int        `yaml:"elapsed"`

	// One line per row, one character per cell
	SerializedBoard string `yaml:"board"`
}

func NewBoardSnapshot(snapshot Snapshot) *BoardSnapshot {
	board := snapshot.Board
	exploded, hasExploded := board.Exploded()

	lines := make([]string, board.rows)
	for row := range board.cells {
		var line strings.Builder
		for col, cell := range board.cells[row] {
			isExploded := hasExploded && exploded == Point{Row: row, Col: col}
			line.WriteRune(cell.serialize(isExploded))
		}
		lines[row] = line.String()
	}

	return &BoardSnapshot{
		Difficulty:      snapshot.Difficulty,
		Rows:            board.rows,
		Cols:            board.cols,
		Mines:           snapshot.Config.Mines,
		Status:          snapshot.Status.String(),
		ElapsedSeconds:  snapshot.ElapsedSeconds,
		SerializedBoard: strings.Join(lines, "\n"),
	}
}

func (snapshot *BoardSnapshot) Serialize() string {
	out, err := yaml.Marshal(snapshot)
	if err != nil {
		panic(err)
	}

	return string(out)
}

// Board rebuilds the recorded board, recounting neighbors. With fresh, every
// cell is hidden and unflagged again so the layout can be replayed.
func (snapshot *BoardSnapshot) Board(fresh bool) (*Board, error) {
	rows := strings.Split(strings.TrimSpace(snapshot.SerializedBoard), "\n")
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("board snapshot is empty")
	}

	board := NewBoard(len(rows), len(rows[0]))
	var exploded *Point
	for row, line := range rows {
		line = strings.TrimSpace(line)
		if len(line) != board.cols {
			return nil, fmt.Errorf("board snapshot row %d has %d cells, expected %d", row, len(line), board.cols)
		}
		for col, c := range line {
			isExploded, ok := board.cells[row][col].deserialize(c, fresh)
			if !ok {
				return nil, fmt.Errorf("board snapshot has invalid cell %q at %v", c, Point{Row: row, Col: col})
			}
			if isExploded {
				exploded = &Point{Row: row, Col: col}
			}
		}
	}
	board.CalculateNeighbors()

	if !fresh && (exploded != nil || snapshot.Status == Lost.String()) {
		board.RevealMines(Point{Row: -1, Col: -1})
		board.exploded = exploded
	}
	return board, nil
}

func LoadSnapshot(in string) (*BoardSnapshot, error) {
	var snapshot BoardSnapshot
	if err := yaml.Unmarshal([]byte(in), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
