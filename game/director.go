package game

// Director is a computer player. It sees the game only through the session's
// snapshots and plays it through the session's commands.
type Director interface {
	// Init attaches the director to a session
	Init(*Session)

	// Act performs a single move. It returns false when the director has
	// nothing left to do.
	Act() bool
}

// Autoplay lets director play s until the game ends, the director gives up
// or maxMoves moves were made. A non-positive maxMoves allows two moves per
// cell, enough to flag or reveal every cell of the board.
func Autoplay(s *Session, director Director, maxMoves int) Snapshot {
	director.Init(s)

	snapshot := s.Snapshot()
	if maxMoves <= 0 {
		maxMoves = 2 * snapshot.Config.NumCells()
	}

	for moves := 0; moves < maxMoves && !snapshot.Status.IsTerminal(); moves++ {
		if !director.Act() {
			break
		}
		snapshot = s.Snapshot()
	}
	return snapshot
}
