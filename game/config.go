package game

import "fmt"

type Config struct {
	Rows  int `json:"rows" yaml:"rows"`
	Cols  int `json:"cols" yaml:"cols"`
	Mines int `json:"mines" yaml:"mines"`
}

func (config Config) NumCells() int {
	return config.Rows * config.Cols
}

func (config Config) String() string {
	return fmt.Sprintf("%dx%d/%d", config.Rows, config.Cols, config.Mines)
}

// InvalidConfigError describes a board shape that cannot be played. Its
// message is meant to be shown to the player as-is.
type InvalidConfigError struct {
	Rows, Cols, Mines int
}

func (e *InvalidConfigError) Error() string {
	switch {
	case e.Rows < MinRows || e.Rows > MaxRows:
		return fmt.Sprintf("rows must be between %d and %d (got %d)", MinRows, MaxRows, e.Rows)
	case e.Cols < MinCols || e.Cols > MaxCols:
		return fmt.Sprintf("columns must be between %d and %d (got %d)", MinCols, MaxCols, e.Cols)
	default:
		return fmt.Sprintf("mines must be between 1 and %d (got %d)", e.Rows*e.Cols-1, e.Mines)
	}
}

// Validate checks the shape against the custom game limits. Sessions assume
// their configuration already passed this check.
func (config Config) Validate() error {
	invalid := config.Rows < MinRows || config.Rows > MaxRows ||
		config.Cols < MinCols || config.Cols > MaxCols ||
		config.Mines < 1 || config.Mines >= config.NumCells()
	if invalid {
		return &InvalidConfigError{Rows: config.Rows, Cols: config.Cols, Mines: config.Mines}
	}
	return nil
}

// ResolveConfig returns the configuration to play for a difficulty: the
// preset for easy/medium/hard, or the validated custom shape.
func ResolveConfig(difficulty Difficulty, custom Config) (Config, error) {
	if difficulty == Custom {
		if err := custom.Validate(); err != nil {
			return Config{}, err
		}
		return custom, nil
	}
	preset, ok := Presets[difficulty]
	if !ok {
		return Config{}, fmt.Errorf("invalid difficulty %q", difficulty)
	}
	return preset, nil
}

// BestTimeKey names the best-time record of a difficulty. Custom shapes get
// one record per rows/cols/mines combination.
func BestTimeKey(difficulty Difficulty, config Config) string {
	if difficulty == Custom {
		return fmt.Sprintf("%scustom-%dx%dx%d", bestTimeKeyPrefix, config.Rows, config.Cols, config.Mines)
	}
	return bestTimeKeyPrefix + string(difficulty)
}
