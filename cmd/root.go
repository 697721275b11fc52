package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/they4kman/gosweep/config"
	"github.com/they4kman/gosweep/game"
)

// Read from the environment before any command runs; flags that were set
// explicitly override it.
var settings config.Config

var logLevel, logFormat string

var rootCmd = &cobra.Command{
	Use:   "gosweep",
	Short: "Play manual or computer-driven Minesweeper",
	Long: `gosweep is a Minesweeper game which supports human- or
computer-driven playing.

Play in the terminal
	gosweep play

Serve games over HTTP and WebSocket
	gosweep serve

Make the computer play for you
	gosweep autoplay --director constraint
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		settings = config.Load()

		flags := cmd.Flags()
		if flags.Changed("log-level") {
			settings.LogLevel = logLevel
		}
		if flags.Changed("log-format") {
			settings.LogFormat = logFormat
		}
		if err := settings.ConfigureLogger(logrus.StandardLogger()); err != nil {
			return fmt.Errorf("configuring logger: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

type difficultyValue game.Difficulty

func newDifficultyValue(val game.Difficulty, p *game.Difficulty) *difficultyValue {
	*p = val
	return (*difficultyValue)(p)
}

func (difficultyVal *difficultyValue) String() string {
	return string(*difficultyVal)
}

func (difficultyVal *difficultyValue) Set(value string) error {
	difficulty, err := game.ParseDifficulty(value)
	if err != nil {
		return err
	}
	*difficultyVal = difficultyValue(difficulty)
	return nil
}

func (difficultyVal *difficultyValue) Type() string {
	return "game.Difficulty"
}

// shape collects the flags choosing the board of a new game
type shape struct {
	difficulty game.Difficulty
	custom     game.Config
}

func (s *shape) addFlags(cmd *cobra.Command) {
	// Define our -help without a shorthand, as we'll use -h for --height
	// Ref: https://github.com/spf13/cobra/issues/291
	cmd.Flags().Bool("help", false, "Help for this command")

	difficulties := make([]string, 0, len(game.PresetDifficulties)+1)
	for _, difficulty := range game.PresetDifficulties {
		difficulties = append(difficulties, string(difficulty))
	}
	difficulties = append(difficulties, string(game.Custom))

	cmd.Flags().VarP(newDifficultyValue(game.Easy, &s.difficulty), "difficulty", "d",
		fmt.Sprintf("Game difficulty: %s. custom uses --width, --height and --mines", strings.Join(difficulties, ", ")))
	cmd.Flags().IntVarP(&s.custom.Cols, "width", "w", 30, "Width of a custom game board, in cells")
	cmd.Flags().IntVarP(&s.custom.Rows, "height", "h", 16, "Height of a custom game board, in cells")
	cmd.Flags().IntVarP(&s.custom.Mines, "mines", "m", 99, "Number of mines to place in a custom game board")
}

func (s *shape) resolve() (game.Difficulty, game.Config, error) {
	config, err := game.ResolveConfig(s.difficulty, s.custom)
	if err != nil {
		return "", game.Config{}, err
	}
	return s.difficulty, config, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format, text or json (LOG_FORMAT)")
}
