package game

import (
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// manualClock keeps every scheduled tick, stopped or not, so tests can fire
// stale ones
type manualClock struct {
	ticks   []func()
	running int
}

func (clock *manualClock) Schedule(tick func()) func() {
	clock.ticks = append(clock.ticks, tick)
	clock.running++

	stopped := false
	return func() {
		if !stopped {
			stopped = true
			clock.running--
		}
	}
}

func (clock *manualClock) fire(times int) {
	for i := 0; i < times; i++ {
		for _, tick := range clock.ticks {
			tick()
		}
	}
}

type mapStore map[string]int

func (store mapStore) Get(key string) (int, bool) {
	seconds, ok := store[key]
	return seconds, ok
}

func (store mapStore) Set(key string, seconds int) {
	store[key] = seconds
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestSession plays a custom game on the given mine layout
func newTestSession(t *testing.T, store BestTimeStore, rows ...string) (*Session, *manualClock) {
	t.Helper()
	layout := layoutBoard(t, rows...)
	clock := &manualClock{}
	config := Config{Rows: layout.Rows(), Cols: layout.Cols(), Mines: countMines(layout)}

	s := NewSession(Custom, config, Options{
		Store:  store,
		Clock:  clock,
		Logger: quietLogger(),
		Layout: layout,
	})
	return s, clock
}

func TestNewSessionIsIdle(t *testing.T) {
	s := NewSession(Easy, Presets[Easy], Options{Clock: &manualClock{}, Logger: quietLogger()})
	snapshot := s.Snapshot()

	if snapshot.Status != Idle {
		t.Errorf("status = %v, want idle", snapshot.Status)
	}
	if snapshot.MinesLeft != 10 || snapshot.ElapsedSeconds != 0 || snapshot.BestTime != nil {
		t.Errorf("unexpected snapshot %+v", snapshot)
	}
	if got := countMines(snapshot.Board); got != 0 {
		t.Errorf("idle board holds %d mines", got)
	}
}

func TestFirstRevealPlacesMines(t *testing.T) {
	for i := 0; i < 20; i++ {
		clock := &manualClock{}
		s := NewSession(Easy, Presets[Easy], Options{Clock: clock, Logger: quietLogger()})
		snapshot := s.Reveal(4, 4)

		if snapshot.Status != Playing && snapshot.Status != Won {
			t.Fatalf("status = %v after first reveal", snapshot.Status)
		}
		if got := countMines(snapshot.Board); got != 10 {
			t.Fatalf("board holds %d mines, want 10", got)
		}
		for point := range snapshot.Board.safeZone(Point{4, 4}) {
			cell := snapshot.Board.CellAt(point.Row, point.Col)
			if cell.IsMine || !cell.IsRevealed {
				t.Fatalf("safe zone cell %v = %+v", point, *cell)
			}
		}
		if snapshot.Status == Playing && clock.running != 1 {
			t.Fatalf("%d clocks running, want 1", clock.running)
		}
	}
}

func TestWinRecordsBestTime(t *testing.T) {
	store := mapStore{"minesweeper-best-custom-2x3x1": 50}
	s, clock := newTestSession(t, store,
		"..O",
		"...",
	)

	snapshot := s.Reveal(1, 0)
	if snapshot.Status != Playing {
		t.Fatalf("status = %v, want playing", snapshot.Status)
	}
	if got := countRevealed(snapshot.Board); got != 4 {
		t.Fatalf("%d cells revealed, want 4", got)
	}
	if snapshot.BestTime == nil || *snapshot.BestTime != 50 {
		t.Fatalf("best time = %v, want 50", snapshot.BestTime)
	}

	clock.fire(42)
	snapshot = s.Reveal(1, 2)
	if snapshot.Status != Won {
		t.Fatalf("status = %v, want won", snapshot.Status)
	}
	if snapshot.ElapsedSeconds != 42 {
		t.Errorf("elapsed = %d, want 42", snapshot.ElapsedSeconds)
	}
	if store["minesweeper-best-custom-2x3x1"] != 42 {
		t.Errorf("stored best = %d, want 42", store["minesweeper-best-custom-2x3x1"])
	}
	if snapshot.BestTime == nil || *snapshot.BestTime != 42 {
		t.Errorf("best time = %v, want 42", snapshot.BestTime)
	}
	if clock.running != 0 {
		t.Errorf("%d clocks still running after the win", clock.running)
	}

	clock.fire(5)
	if got := s.Snapshot().ElapsedSeconds; got != 42 {
		t.Errorf("stale ticks moved elapsed to %d", got)
	}

	snapshot = s.Reset()
	if snapshot.BestTime == nil || *snapshot.BestTime != 42 {
		t.Errorf("best time after reset = %v, want 42", snapshot.BestTime)
	}
	s.Reveal(1, 0)
	clock.fire(60)
	snapshot = s.Reveal(1, 2)
	if snapshot.Status != Won || snapshot.ElapsedSeconds != 60 {
		t.Fatalf("second game ended %v after %ds", snapshot.Status, snapshot.ElapsedSeconds)
	}
	if store["minesweeper-best-custom-2x3x1"] != 42 {
		t.Errorf("slower win overwrote best time with %d", store["minesweeper-best-custom-2x3x1"])
	}
	if *snapshot.BestTime != 42 {
		t.Errorf("best time = %d, want 42", *snapshot.BestTime)
	}
}

func TestWinWithoutStoredBestTime(t *testing.T) {
	store := mapStore{}
	s, _ := newTestSession(t, store,
		"O..",
		"...",
		"...",
	)

	snapshot := s.Reveal(2, 2)
	if snapshot.Status != Won {
		t.Fatalf("status = %v, want won", snapshot.Status)
	}
	if best, ok := store["minesweeper-best-custom-3x3x1"]; !ok || best != 0 {
		t.Errorf("stored best = %d, %v; want 0", best, ok)
	}
}

func TestInstantWinDoesNotStartClock(t *testing.T) {
	s, clock := newTestSession(t, nil,
		"O..",
		"...",
		"...",
	)

	snapshot := s.Reveal(2, 2)
	if snapshot.Status != Won {
		t.Fatalf("status = %v, want won", snapshot.Status)
	}
	if len(clock.ticks) != 0 {
		t.Errorf("clock was scheduled %d times", len(clock.ticks))
	}
	if snapshot.BestTime == nil || *snapshot.BestTime != 0 {
		t.Errorf("best time = %v, want 0", snapshot.BestTime)
	}
}

func TestLoseRevealsAllMines(t *testing.T) {
	s, clock := newTestSession(t, nil,
		"..O.",
		"..O.",
	)

	s.Reveal(1, 0)
	snapshot := s.ToggleFlag(1, 2)
	if snapshot.MinesLeft != 1 {
		t.Fatalf("mines left = %d, want 1", snapshot.MinesLeft)
	}

	snapshot = s.Reveal(0, 2)
	if snapshot.Status != Lost {
		t.Fatalf("status = %v, want lost", snapshot.Status)
	}
	for _, point := range []Point{{0, 2}, {1, 2}} {
		if !snapshot.Board.CellAt(point.Row, point.Col).IsRevealed {
			t.Errorf("mine at %v not revealed", point)
		}
	}
	if exploded, ok := snapshot.Board.Exploded(); !ok || exploded != (Point{0, 2}) {
		t.Errorf("exploded = %v, %v; want (0, 2)", exploded, ok)
	}
	if clock.running != 0 {
		t.Errorf("%d clocks still running after the loss", clock.running)
	}

	// Terminal: nothing changes any more
	before := countRevealed(snapshot.Board)
	s.ToggleFlag(1, 2)
	snapshot = s.Reveal(0, 0)
	if snapshot.Status != Lost || countRevealed(snapshot.Board) != before || snapshot.MinesLeft != 1 {
		t.Errorf("terminal game changed: %+v", snapshot)
	}
	clock.fire(3)
	if got := s.Snapshot().ElapsedSeconds; got != 0 {
		t.Errorf("elapsed = %d after loss, want 0", got)
	}
}

func TestToggleFlag(t *testing.T) {
	s, _ := newTestSession(t, nil,
		"..O",
		"...",
	)

	if snapshot := s.ToggleFlag(0, 0); snapshot.MinesLeft != 1 || snapshot.Board.CellAt(0, 0).IsFlagged {
		t.Error("flagging while idle should be ignored")
	}

	s.Reveal(1, 0)
	if snapshot := s.ToggleFlag(0, 0); snapshot.Board.CellAt(0, 0).IsFlagged || snapshot.MinesLeft != 1 {
		t.Error("flagging a revealed cell should be ignored")
	}

	s.ToggleFlag(0, 2)
	snapshot := s.ToggleFlag(1, 2)
	if snapshot.MinesLeft != -1 {
		t.Errorf("mines left = %d, want -1", snapshot.MinesLeft)
	}

	if snapshot = s.Reveal(1, 2); snapshot.Board.CellAt(1, 2).IsRevealed {
		t.Error("revealing a flagged cell should be ignored")
	}

	snapshot = s.ToggleFlag(1, 2)
	if snapshot.MinesLeft != 0 || snapshot.Board.CellAt(1, 2).IsFlagged {
		t.Errorf("unflagging left mines left = %d", snapshot.MinesLeft)
	}
	if snapshot = s.ToggleFlag(5, 5); snapshot.MinesLeft != 0 {
		t.Error("flagging out of bounds should be ignored")
	}
}

func TestWinWithFlaggedMine(t *testing.T) {
	s, _ := newTestSession(t, nil,
		"..O",
		"...",
	)
	s.Reveal(1, 0)
	s.ToggleFlag(0, 2)
	snapshot := s.Reveal(1, 2)

	if snapshot.Status != Won {
		t.Fatalf("status = %v, want won", snapshot.Status)
	}
	if snapshot.MinesLeft != 0 {
		t.Errorf("mines left = %d, want 0", snapshot.MinesLeft)
	}
	if cell := snapshot.Board.CellAt(0, 2); !cell.IsFlagged || cell.IsRevealed {
		t.Errorf("flagged mine = %+v", *cell)
	}
}

func TestRepeatedRevealKeepsLayout(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		clock := &manualClock{}
		s := NewSession(Easy, Presets[Easy], Options{
			Clock:  clock,
			Logger: quietLogger(),
			Rand:   rand.New(rand.NewPCG(seed, seed)),
		})
		first := s.Reveal(4, 4)
		if first.Status != Playing {
			continue
		}

		for i := 0; i < 2; i++ {
			snapshot := s.Reveal(4, 4)
			if snapshot.Status != Playing || countMines(snapshot.Board) != 10 {
				t.Fatalf("repeat reveal gave status %v with %d mines", snapshot.Status, countMines(snapshot.Board))
			}
			for row := 0; row < 9; row++ {
				for col := 0; col < 9; col++ {
					if got, want := snapshot.Board.CellAt(row, col).IsMine, first.Board.CellAt(row, col).IsMine; got != want {
						t.Fatalf("mine at (%d, %d) changed from %v to %v", row, col, want, got)
					}
				}
			}
		}
		if len(clock.ticks) != 1 {
			t.Errorf("clock scheduled %d times, want 1", len(clock.ticks))
		}
		return
	}
	t.Fatal("no seed left the game in progress after the first reveal")
}

func TestLayoutWithOtherMineCountIsIgnored(t *testing.T) {
	layout := layoutBoard(t, "..O", "...")
	s := NewSession(Custom, Config{Rows: 2, Cols: 3, Mines: 2}, Options{
		Clock:  &manualClock{},
		Logger: quietLogger(),
		Rand:   rand.New(rand.NewPCG(3, 4)),
		Layout: layout,
	})
	snapshot := s.Reveal(1, 0)

	if got := countMines(snapshot.Board); got != 2 {
		t.Fatalf("board holds %d mines, want 2", got)
	}
	if !snapshot.Board.CellAt(0, 2).IsMine || !snapshot.Board.CellAt(1, 2).IsMine {
		t.Errorf("mines were not placed outside the safe zone")
	}
	if snapshot.Status != Won || snapshot.MinesLeft != 2 {
		t.Errorf("status = %v, mines left = %d", snapshot.Status, snapshot.MinesLeft)
	}
}

func TestCloseIsFinal(t *testing.T) {
	s, clock := newTestSession(t, nil,
		"..O.",
		"..O.",
	)
	s.Close()

	snapshot := s.Reveal(1, 0)
	if snapshot.Status != Playing {
		t.Fatalf("status = %v, want playing", snapshot.Status)
	}
	s.Reset()
	s.Reveal(1, 0)

	if len(clock.ticks) != 0 {
		t.Errorf("closed session scheduled %d ticks", len(clock.ticks))
	}
}

func TestRevealOutOfBoundsIsIgnored(t *testing.T) {
	s, clock := newTestSession(t, nil,
		"..O",
		"...",
	)

	snapshot := s.Reveal(-1, 0)
	if snapshot.Status != Idle || len(clock.ticks) != 0 {
		t.Errorf("out of bounds reveal started the game: %v", snapshot.Status)
	}
}

func TestTickOnlyWhilePlaying(t *testing.T) {
	s, _ := newTestSession(t, nil,
		"..O",
		"...",
	)

	if got := s.Tick().ElapsedSeconds; got != 0 {
		t.Errorf("idle tick moved elapsed to %d", got)
	}
	s.Reveal(1, 0)
	s.Tick()
	if got := s.Tick().ElapsedSeconds; got != 2 {
		t.Errorf("elapsed = %d, want 2", got)
	}
}

func TestConfigureDiscardsStaleTicks(t *testing.T) {
	s, clock := newTestSession(t, nil,
		"..O",
		"...",
	)

	s.Reveal(1, 0)
	clock.fire(3)
	if got := s.Snapshot().ElapsedSeconds; got != 3 {
		t.Fatalf("elapsed = %d, want 3", got)
	}

	snapshot := s.Configure(Easy, Presets[Easy])
	if snapshot.Status != Idle || snapshot.ElapsedSeconds != 0 || snapshot.MinesLeft != 10 {
		t.Fatalf("unexpected snapshot after configure: %+v", snapshot)
	}
	if snapshot.Board.Rows() != 9 || snapshot.Board.Cols() != 9 {
		t.Errorf("board is %dx%d, want 9x9", snapshot.Board.Rows(), snapshot.Board.Cols())
	}
	if clock.running != 0 {
		t.Errorf("%d clocks still running", clock.running)
	}

	clock.fire(4)
	if got := s.Snapshot().ElapsedSeconds; got != 0 {
		t.Errorf("stale ticks moved elapsed to %d", got)
	}

	// A tick of the previous game must not count for the next one either
	s.Reveal(4, 4)
	if s.Snapshot().Status == Playing {
		stale := clock.ticks[0]
		stale()
		if got := s.Snapshot().ElapsedSeconds; got != 0 {
			t.Errorf("stale tick moved elapsed to %d", got)
		}
	}
}

func TestConfigureReadsBestTime(t *testing.T) {
	store := mapStore{"minesweeper-best-medium": 77}
	s := NewSession(Easy, Presets[Easy], Options{Store: store, Clock: &manualClock{}, Logger: quietLogger()})
	if s.Snapshot().BestTime != nil {
		t.Error("expected no best time for easy")
	}

	snapshot := s.Configure(Medium, Presets[Medium])
	if snapshot.BestTime == nil || *snapshot.BestTime != 77 {
		t.Errorf("best time = %v, want 77", snapshot.BestTime)
	}
}

func TestSubscribe(t *testing.T) {
	s, clock := newTestSession(t, nil,
		"..O",
		"...",
	)

	var seen []Snapshot
	cancel := s.Subscribe(func(snapshot Snapshot) {
		seen = append(seen, snapshot)
	})

	s.Reveal(1, 0)
	clock.fire(2)
	s.ToggleFlag(0, 2)
	if len(seen) != 4 {
		t.Fatalf("observer saw %d snapshots, want 4", len(seen))
	}
	if seen[2].ElapsedSeconds != 2 {
		t.Errorf("tick snapshot has elapsed %d, want 2", seen[2].ElapsedSeconds)
	}

	cancel()
	s.Reset()
	if len(seen) != 4 {
		t.Errorf("cancelled observer still notified")
	}
}

func TestGameEndSavesSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "replays")
	layout := layoutBoard(t, "..O", "...")
	var ended []Snapshot

	s := NewSession(Custom, Config{Rows: 2, Cols: 3, Mines: 1}, Options{
		Clock:             &manualClock{},
		Logger:            quietLogger(),
		Layout:            layout,
		SavedSnapshotsDir: dir,
		OnGameEnd: func(snapshot Snapshot) {
			ended = append(ended, snapshot)
		},
	})
	s.Reveal(1, 0)
	s.Reveal(0, 2)

	if len(ended) != 1 || ended[0].Status != Lost {
		t.Fatalf("OnGameEnd called with %+v", ended)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading snapshots dir: %v", err)
	}
	if len(entries) != 1 || !strings.Contains(entries[0].Name(), "_loss_") {
		t.Fatalf("unexpected snapshot files %v", entries)
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	snapshot, err := LoadSnapshot(string(data))
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snapshot.Status != "lost" || snapshot.SerializedBoard != "..*\n..#" {
		t.Errorf("unexpected snapshot %+v", snapshot)
	}
}

func TestTickerClockDrivesSession(t *testing.T) {
	layout := layoutBoard(t, "..O", "...")
	s := NewSession(Custom, Config{Rows: 2, Cols: 3, Mines: 1}, Options{
		Clock:  TickerClock{Interval: 5 * time.Millisecond},
		Logger: quietLogger(),
		Layout: layout,
	})
	defer s.Close()

	s.Reveal(1, 0)
	deadline := time.Now().Add(5 * time.Second)
	for s.Snapshot().ElapsedSeconds < 2 {
		if time.Now().After(deadline) {
			t.Fatal("clock did not tick")
		}
		time.Sleep(time.Millisecond)
	}

	s.Close()
	elapsed := s.Snapshot().ElapsedSeconds
	time.Sleep(30 * time.Millisecond)
	if got := s.Snapshot().ElapsedSeconds; got != elapsed {
		t.Errorf("closed session kept ticking: %d -> %d", elapsed, got)
	}
}

func TestGenerateReplayFilename(t *testing.T) {
	at := time.Date(2024, 3, 9, 17, 4, 5, 123, time.UTC)
	tests := []struct {
		status Status
		want   string
	}{
		{Won, "20240309_170405_win_000000123.yaml"},
		{Lost, "20240309_170405_loss_000000123.yaml"},
		{Playing, "20240309_170405_other_000000123.yaml"},
	}
	for _, tt := range tests {
		if got := generateReplayFilename(tt.status, at); got != tt.want {
			t.Errorf("generateReplayFilename(%v) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
