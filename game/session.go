package game

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Snapshot is a copy of a session's state, safe to keep and render after the
// session has moved on.
type Snapshot struct {
	Difficulty     Difficulty
	Config         Config
	Status         Status
	Board          *Board
	MinesLeft      int
	ElapsedSeconds int
	BestTime       *int
}

// Session is one player's game. Commands are serialised; each returns the
// snapshot reached once it has been fully applied. Commands that don't apply
// in the current state leave the game untouched.
type Session struct {
	mu      sync.Mutex
	options Options
	log     logrus.FieldLogger

	difficulty Difficulty
	config     Config
	board      *Board
	status     Status
	minesLeft  int
	elapsed    int
	bestTime   *int

	// Ticks scheduled under an older generation are discarded
	generation uint64
	stopClock  func()
	closed     bool

	observers    map[int]func(Snapshot)
	nextObserver int
}

// NewSession starts an idle game. The configuration is expected to have
// passed ResolveConfig.
func NewSession(difficulty Difficulty, config Config, options Options) *Session {
	s := &Session{
		options:   options.withDefaults(),
		observers: map[int]func(Snapshot){},
	}
	s.configure(difficulty, config)
	return s
}

func (s *Session) Configure(difficulty Difficulty, config Config) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configure(difficulty, config)
	return s.commit()
}

// Reset starts over with the current difficulty and configuration
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configure(s.difficulty, s.config)
	return s.commit()
}

func (s *Session) Reveal(row, col int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reveal(row, col)
	return s.commit()
}

func (s *Session) ToggleFlag(row, col int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Playing {
		return s.commit()
	}
	cell := s.board.CellAt(row, col)
	if cell == nil || cell.IsRevealed {
		return s.commit()
	}

	cell.IsFlagged = !cell.IsFlagged
	if cell.IsFlagged {
		s.minesLeft--
	} else {
		s.minesLeft++
	}
	return s.commit()
}

// Tick advances the elapsed time by one second while playing
func (s *Session) Tick() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == Playing {
		s.elapsed++
	}
	return s.commit()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

// Subscribe registers observer to receive the snapshot after every command
// and every clock tick. Observers run while the session is locked: they must
// return quickly and must not call back into the session.
func (s *Session) Subscribe(observer func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = observer

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Close stops the clock for good. The session stays readable and playable,
// but its elapsed time no longer advances.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.haltClock()
}

func (s *Session) configure(difficulty Difficulty, config Config) {
	s.haltClock()

	s.difficulty = difficulty
	s.config = config
	s.board = NewBoard(config.Rows, config.Cols)
	s.status = Idle
	s.minesLeft = config.Mines
	s.elapsed = 0
	s.bestTime = nil

	s.log = s.options.Logger.WithFields(logrus.Fields{
		"difficulty": difficulty,
		"rows":       config.Rows,
		"cols":       config.Cols,
		"mines":      config.Mines,
	})

	if s.options.Store != nil {
		if best, ok := s.options.Store.Get(BestTimeKey(difficulty, config)); ok {
			s.bestTime = &best
		}
	}
}

func (s *Session) reveal(row, col int) {
	if s.status.IsTerminal() {
		return
	}
	cell := s.board.CellAt(row, col)
	if cell == nil || cell.IsFlagged || cell.IsRevealed {
		return
	}

	if s.status == Idle {
		s.placeMines(row, col)
		s.status = Playing
	}

	if cell.IsMine {
		s.board.RevealMines(Point{Row: row, Col: col})
		s.end(Lost)
		return
	}

	s.board.Reveal(row, col)
	if s.board.CheckWin() {
		s.recordWin()
		s.end(Won)
		return
	}

	if s.stopClock == nil {
		s.startClock()
	}
}

func (s *Session) placeMines(row, col int) {
	if layout := s.options.Layout; layout.fits(s.config) {
		s.board.copyMines(layout)
	} else {
		s.board.PlaceMines(row, col, s.config.Mines, s.options.rand())
	}
	s.board.CalculateNeighbors()

	s.log.WithField("cell", Point{Row: row, Col: col}).Debug("mines placed")
}

func (s *Session) recordWin() {
	elapsed := s.elapsed
	key := BestTimeKey(s.difficulty, s.config)

	best, ok := 0, false
	if s.options.Store != nil {
		best, ok = s.options.Store.Get(key)
	} else if s.bestTime != nil {
		best, ok = *s.bestTime, true
	}
	if ok && elapsed >= best {
		return
	}

	if s.options.Store != nil {
		s.options.Store.Set(key, elapsed)
	}
	s.bestTime = &elapsed
	s.log.WithField("seconds", elapsed).Info("new best time")
}

func (s *Session) end(status Status) {
	s.status = status
	s.haltClock()

	s.log.WithFields(logrus.Fields{
		"status":  status,
		"elapsed": s.elapsed,
	}).Info("game over")

	if s.options.SavedSnapshotsDir == "" && s.options.OnGameEnd == nil {
		return
	}
	snapshot := s.snapshot()
	s.options.saveSnapshot(snapshot)
	if s.options.OnGameEnd != nil {
		s.options.OnGameEnd(snapshot)
	}
}

func (s *Session) startClock() {
	if s.closed {
		return
	}
	generation := s.generation
	s.stopClock = s.options.Clock.Schedule(func() {
		s.tick(generation)
	})
}

func (s *Session) haltClock() {
	if s.stopClock != nil {
		s.stopClock()
		s.stopClock = nil
	}
	s.generation++
}

func (s *Session) tick(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || s.status != Playing {
		return
	}
	s.elapsed++
	s.commit()
}

func (s *Session) snapshot() Snapshot {
	snapshot := Snapshot{
		Difficulty:     s.difficulty,
		Config:         s.config,
		Status:         s.status,
		Board:          s.board.Clone(),
		MinesLeft:      s.minesLeft,
		ElapsedSeconds: s.elapsed,
	}
	if s.bestTime != nil {
		best := *s.bestTime
		snapshot.BestTime = &best
	}
	return snapshot
}

// commit publishes the state reached by a command to the observers
func (s *Session) commit() Snapshot {
	snapshot := s.snapshot()
	for _, observer := range s.observers {
		observer(snapshot)
	}
	return snapshot
}
