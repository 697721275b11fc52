package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/they4kman/gosweep/game"
	"github.com/they4kman/gosweep/store"
)

// Counters are drawn with three digits
const maxCounter = 999

var playShape shape

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal",
	Long: `Play a game in the terminal. Commands:

	r ROW COL                  reveal a cell
	f ROW COL                  flag or unflag a cell
	reset                      start over with the same board size
	new easy|medium|hard       start a preset game
	new custom ROWS COLS MINES start a custom game
	q                          quit

Best times are kept in the store named by BEST_TIME_STORE and BEST_TIME_DSN.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		difficulty, config, err := playShape.resolve()
		if err != nil {
			return err
		}

		log := logrus.StandardLogger()
		bestTimes, err := store.Open(cmd.Context(), store.Kind(settings.Store), settings.StoreDSN, log)
		if err != nil {
			return fmt.Errorf("opening best time store: %w", err)
		}
		defer bestTimes.Close()

		s := game.NewSession(difficulty, config, game.Options{
			Store:             bestTimes,
			Logger:            log,
			SavedSnapshotsDir: settings.SnapshotsDir,
		})
		defer s.Close()

		return newTerminal(s, cmd.InOrStdin(), cmd.OutOrStdout()).run()
	},
}

type terminal struct {
	session *game.Session
	in      *bufio.Scanner
	out     io.Writer
}

func newTerminal(s *game.Session, in io.Reader, out io.Writer) *terminal {
	return &terminal{
		session: s,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

var errQuit = errors.New("quit")

func (t *terminal) run() error {
	t.render(t.session.Snapshot())
	for {
		fmt.Fprint(t.out, "> ")
		if !t.in.Scan() {
			fmt.Fprintln(t.out)
			return t.in.Err()
		}

		snapshot, err := t.execute(t.in.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(t.out, err)
			continue
		}
		t.render(snapshot)
	}
}

// execute applies one command line to the session. An empty line redraws
// the current state.
func (t *terminal) execute(line string) (game.Snapshot, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return t.session.Snapshot(), nil
	}

	switch fields[0] {
	case "r", "reveal":
		row, col, err := t.parseCell(fields)
		if err != nil {
			return game.Snapshot{}, err
		}
		return t.session.Reveal(row, col), nil

	case "f", "flag":
		row, col, err := t.parseCell(fields)
		if err != nil {
			return game.Snapshot{}, err
		}
		return t.session.ToggleFlag(row, col), nil

	case "reset":
		return t.session.Reset(), nil

	case "new":
		difficulty, config, err := parseNewGame(fields[1:])
		if err != nil {
			return game.Snapshot{}, err
		}
		return t.session.Configure(difficulty, config), nil

	case "q", "quit", "exit":
		return game.Snapshot{}, errQuit

	default:
		return game.Snapshot{}, fmt.Errorf("unknown command %q (try r, f, reset, new or q)", fields[0])
	}
}

func (t *terminal) parseCell(fields []string) (int, int, error) {
	usage := fmt.Errorf("usage: %s ROW COL", fields[0])
	if len(fields) != 3 {
		return 0, 0, usage
	}
	row, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, usage
	}
	col, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, 0, usage
	}

	if config := t.session.Snapshot().Config; row < 0 || row >= config.Rows || col < 0 || col >= config.Cols {
		return 0, 0, fmt.Errorf("%v is off the %dx%d board", game.Point{Row: row, Col: col}, config.Rows, config.Cols)
	}
	return row, col, nil
}

func parseNewGame(args []string) (game.Difficulty, game.Config, error) {
	usage := errors.New("usage: new easy|medium|hard, or new custom ROWS COLS MINES")
	if len(args) == 0 {
		return "", game.Config{}, usage
	}
	difficulty, err := game.ParseDifficulty(args[0])
	if err != nil {
		return "", game.Config{}, usage
	}

	var custom game.Config
	if difficulty == game.Custom {
		if len(args) != 4 {
			return "", game.Config{}, usage
		}
		numbers := make([]int, 3)
		for i, arg := range args[1:] {
			if numbers[i], err = strconv.Atoi(arg); err != nil {
				return "", game.Config{}, usage
			}
		}
		custom = game.Config{Rows: numbers[0], Cols: numbers[1], Mines: numbers[2]}
	} else if len(args) != 1 {
		return "", game.Config{}, usage
	}

	config, err := game.ResolveConfig(difficulty, custom)
	if err != nil {
		return "", game.Config{}, err
	}
	return difficulty, config, nil
}

func (t *terminal) render(snapshot game.Snapshot) {
	fmt.Fprintln(t.out, renderHeader(snapshot))
	fmt.Fprint(t.out, renderBoard(snapshot.Board, false))

	switch snapshot.Status {
	case game.Won:
		fmt.Fprintf(t.out, "You won in %d seconds!\n", snapshot.ElapsedSeconds)
	case game.Lost:
		fmt.Fprintln(t.out, "Boom. Type reset to try again.")
	}
}

var statusFaces = map[game.Status]string{
	game.Idle:    ":)",
	game.Playing: ":)",
	game.Won:     "B)",
	game.Lost:    "X(",
}

// renderHeader draws the mine counter, the face and the timer, followed by
// the best time of the configuration
func renderHeader(snapshot game.Snapshot) string {
	best := "---"
	if snapshot.BestTime != nil {
		best = fmt.Sprintf("%03d", min(*snapshot.BestTime, maxCounter))
	}

	return fmt.Sprintf("[%03d] %s [%03d]  %s %v  best %s",
		max(snapshot.MinesLeft, 0),
		statusFaces[snapshot.Status],
		min(snapshot.ElapsedSeconds, maxCounter),
		snapshot.Difficulty,
		snapshot.Config,
		best,
	)
}

// renderBoard draws the board with row and column numbers. With showMines,
// the unrevealed mines are drawn too.
func renderBoard(board *game.Board, showMines bool) string {
	exploded, hasExploded := board.Exploded()
	labelWidth := len(strconv.Itoa(board.Rows() - 1))

	var out strings.Builder
	out.WriteString(strings.Repeat(" ", labelWidth))
	for col := 0; col < board.Cols(); col++ {
		fmt.Fprintf(&out, "%3d", col)
	}
	out.WriteByte('\n')

	for row := 0; row < board.Rows(); row++ {
		fmt.Fprintf(&out, "%*d", labelWidth, row)
		for col := 0; col < board.Cols(); col++ {
			isExploded := hasExploded && exploded == game.Point{Row: row, Col: col}
			fmt.Fprintf(&out, "%3c", cellGlyph(*board.CellAt(row, col), isExploded, showMines))
		}
		out.WriteByte('\n')
	}
	return out.String()
}

func cellGlyph(cell game.Cell, isExploded, showMines bool) rune {
	switch {
	case cell.IsRevealed && cell.IsMine:
		if isExploded {
			return 'X'
		}
		return '*'
	case cell.IsFlagged:
		return 'F'
	case cell.IsRevealed:
		if cell.NeighborCount == 0 {
			return '.'
		}
		return rune('0' + cell.NeighborCount)
	case showMines && cell.IsMine:
		return '*'
	default:
		return '#'
	}
}

func init() {
	playShape.addFlags(playCmd)
	rootCmd.AddCommand(playCmd)
}
