package cmd

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/they4kman/gosweep/director/constraint"
	"github.com/they4kman/gosweep/director/random"
	"github.com/they4kman/gosweep/game"
	"github.com/they4kman/gosweep/store"
)

var directors = map[string]func(rng *rand.Rand, log logrus.FieldLogger) game.Director{
	"random": func(rng *rand.Rand, _ logrus.FieldLogger) game.Director {
		return &random.Director{Rand: rng}
	},
	"constraint": func(rng *rand.Rand, log logrus.FieldLogger) game.Director {
		return &constraint.Director{Rand: rng, Logger: log}
	},
}

var autoplayShape shape

var autoplayFlags struct {
	director string
	games    int
	seed     uint64
	snapshot string
}

var autoplayCmd = &cobra.Command{
	Use:   "autoplay",
	Short: "Make the computer play",
	Long: `Let a director play a number of games and report how many it won.

Use --seed to replay the same games, or --snapshot to replay the mine
layout of a saved board.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		newDirector, ok := directors[autoplayFlags.director]
		if !ok {
			return fmt.Errorf("unknown director %q, expected one of %s", autoplayFlags.director, strings.Join(directorNames(), ", "))
		}

		run := autoplayRun{
			newDirector:  newDirector,
			games:        autoplayFlags.games,
			seed:         autoplayFlags.seed,
			snapshotsDir: settings.SnapshotsDir,
			log:          logrus.StandardLogger(),
		}
		if !cmd.Flags().Changed("seed") {
			run.seed = rand.Uint64()
		}

		var err error
		if autoplayFlags.snapshot != "" {
			err = run.replay(autoplayFlags.snapshot)
		} else {
			run.difficulty, run.config, err = autoplayShape.resolve()
		}
		if err != nil {
			return err
		}

		tally := run.play()
		fmt.Fprintf(cmd.OutOrStdout(), "%s %v, seed %d: %s\n", run.difficulty, run.config, run.seed, tally)
		return nil
	},
}

type autoplayRun struct {
	newDirector func(*rand.Rand, logrus.FieldLogger) game.Director
	difficulty  game.Difficulty
	config      game.Config
	layout      *game.Board

	games        int
	seed         uint64
	snapshotsDir string
	log          logrus.FieldLogger
}

type autoplayTally struct {
	Played, Won, Lost int
}

func (tally autoplayTally) String() string {
	rate := 0.0
	if tally.Played > 0 {
		rate = 100 * float64(tally.Won) / float64(tally.Played)
	}
	return fmt.Sprintf("played %d, won %d, lost %d (%.1f%% wins)", tally.Played, tally.Won, tally.Lost, rate)
}

// replay plays the mine layout of a saved board in every game
func (run *autoplayRun) replay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading board snapshot: %w", err)
	}
	snapshot, err := game.LoadSnapshot(string(data))
	if err != nil {
		return fmt.Errorf("parsing board snapshot %s: %w", path, err)
	}
	layout, err := snapshot.Board(true)
	if err != nil {
		return fmt.Errorf("parsing board snapshot %s: %w", path, err)
	}

	config := game.Config{Rows: layout.Rows(), Cols: layout.Cols(), Mines: layout.NumMines()}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("cannot replay board snapshot %s: %w", path, err)
	}

	run.difficulty = snapshot.Difficulty
	run.config = config
	run.layout = layout
	return nil
}

// play runs the games one after the other. Every game gets its own source,
// derived from the run's seed and the game's index.
func (run *autoplayRun) play() autoplayTally {
	bestTimes := store.NewMemory()
	var tally autoplayTally

	for i := 0; i < run.games; i++ {
		rng := rand.New(rand.NewPCG(run.seed, uint64(i)))
		log := run.log.WithField("game", i)

		s := game.NewSession(run.difficulty, run.config, game.Options{
			Store:             bestTimes,
			Clock:             stoppedClock{},
			Logger:            log,
			Rand:              rng,
			Layout:            run.layout,
			SavedSnapshotsDir: run.snapshotsDir,
		})
		snapshot := game.Autoplay(s, run.newDirector(rng, log), 0)
		s.Close()

		tally.Played++
		switch snapshot.Status {
		case game.Won:
			tally.Won++
		case game.Lost:
			tally.Lost++
		}
	}
	return tally
}

// stoppedClock never ticks. Games played by a director take no time.
type stoppedClock struct{}

func (stoppedClock) Schedule(func()) func() {
	return func() {}
}

func directorNames() []string {
	names := make([]string, 0, len(directors))
	for name := range directors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	autoplayShape.addFlags(autoplayCmd)
	autoplayCmd.Flags().StringVar(&autoplayFlags.director, "director", "constraint",
		fmt.Sprintf("Computer player: %s", strings.Join(directorNames(), ", ")))
	autoplayCmd.Flags().IntVarP(&autoplayFlags.games, "games", "n", 100, "Number of games to play")
	autoplayCmd.Flags().Uint64Var(&autoplayFlags.seed, "seed", 0, "Seed of the mine layouts and the director's guesses; random when unset")
	autoplayCmd.Flags().StringVar(&autoplayFlags.snapshot, "snapshot", "", "Board snapshot whose mine layout every game replays")

	rootCmd.AddCommand(autoplayCmd)
}
