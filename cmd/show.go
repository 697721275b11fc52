package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/they4kman/gosweep/game"
)

var showFresh bool

var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Draw a saved board snapshot",
	Long: `Draw the board saved in a snapshot file, with every mine shown.

Snapshots are written to the snapshots directory (SNAPSHOTS_DIR) when a game
ends.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading board snapshot: %w", err)
		}
		return showSnapshot(cmd.OutOrStdout(), string(data), showFresh)
	},
}

func showSnapshot(out io.Writer, data string, fresh bool) error {
	snapshot, err := game.LoadSnapshot(data)
	if err != nil {
		return fmt.Errorf("parsing board snapshot: %w", err)
	}
	board, err := snapshot.Board(fresh)
	if err != nil {
		return fmt.Errorf("parsing board snapshot: %w", err)
	}

	fmt.Fprintf(out, "%s %dx%d/%d, %s after %d seconds\n",
		snapshot.Difficulty, board.Rows(), board.Cols(), board.NumMines(), snapshot.Status, snapshot.ElapsedSeconds)
	fmt.Fprint(out, renderBoard(board, true))
	return nil
}

func init() {
	showCmd.Flags().BoolVar(&showFresh, "fresh", false, "Draw the mine layout alone, as it was before the first move")
	rootCmd.AddCommand(showCmd)
}
