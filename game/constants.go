package game

import (
	"fmt"
	"time"
)

type Status int

const (
	Idle Status = iota
	Playing
	Won
	Lost
)

var statusNames = map[Status]string{
	Idle:    "idle",
	Playing: "playing",
	Won:     "won",
	Lost:    "lost",
}

func (status Status) String() string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(status))
}

// IsTerminal reports whether the game has ended
func (status Status) IsTerminal() bool {
	return status == Won || status == Lost
}

func (status Status) MarshalText() ([]byte, error) {
	return []byte(status.String()), nil
}

func (status *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*status = parsed
	return nil
}

func ParseStatus(value string) (Status, error) {
	for status, name := range statusNames {
		if name == value {
			return status, nil
		}
	}
	return Idle, fmt.Errorf("invalid game status %q", value)
}

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Custom Difficulty = "custom"
)

var Presets = map[Difficulty]Config{
	Easy:   {Rows: 9, Cols: 9, Mines: 10},
	Medium: {Rows: 16, Cols: 16, Mines: 40},
	Hard:   {Rows: 16, Cols: 30, Mines: 99},
}

// PresetDifficulties lists the preset difficulties in display order
var PresetDifficulties = []Difficulty{Easy, Medium, Hard}

func ParseDifficulty(value string) (Difficulty, error) {
	switch difficulty := Difficulty(value); difficulty {
	case Easy, Medium, Hard, Custom:
		return difficulty, nil
	default:
		return "", fmt.Errorf("invalid difficulty %q", value)
	}
}

// Board size limits accepted for custom games
const (
	MinRows = 2
	MaxRows = 30
	MinCols = 2
	MaxCols = 50
)

const (
	TickInterval = time.Second

	bestTimeKeyPrefix = "minesweeper-best-"
)
