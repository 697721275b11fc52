package game

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// BestTimeStore holds the fastest winning time, in seconds, per configuration
// key. Implementations are expected to swallow their own failures: a record
// that cannot be read is reported as absent.
type BestTimeStore interface {
	Get(key string) (seconds int, ok bool)
	Set(key string, seconds int)
}

type Options struct {
	// Where best times are read and recorded. Without one, a session only
	// remembers the best times it achieved itself.
	Store BestTimeStore

	// Drives the elapsed time while playing. Defaults to a one-second TickerClock.
	Clock Clock

	Logger logrus.FieldLogger

	// Source of mine placement. A fresh randomly-seeded source is used for
	// every game when nil.
	Rand *rand.Rand

	// Mine layout to replay instead of placing mines randomly. It is used only
	// for games whose rows, columns and mine count all match it; the safe
	// zone is not enforced.
	Layout *Board

	// Path to directory where final snapshots of boards should be saved
	SavedSnapshotsDir string

	// Called with the final snapshot whenever a game is won or lost. It runs
	// while the session is locked and must not call back into it.
	OnGameEnd func(Snapshot)
}

func (options Options) withDefaults() Options {
	if options.Clock == nil {
		options.Clock = TickerClock{Interval: TickInterval}
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}
	return options
}

func (options Options) rand() *rand.Rand {
	if options.Rand != nil {
		return options.Rand
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (options Options) saveSnapshot(snapshot Snapshot) {
	if options.SavedSnapshotsDir == "" {
		return
	}
	log := options.Logger.WithField("dir", options.SavedSnapshotsDir)

	stat, err := os.Stat(options.SavedSnapshotsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Error("cannot save board snapshot")
			return
		}
		if err := os.MkdirAll(options.SavedSnapshotsDir, 0o777); err != nil {
			log.WithError(err).Error("cannot create snapshots directory")
			return
		}
	} else if !stat.Mode().IsDir() {
		log.Error("not a directory; cannot save snapshots to it")
		return
	}

	path := filepath.Join(options.SavedSnapshotsDir, generateReplayFilename(snapshot.Status, time.Now()))
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		log.WithError(err).Error("cannot save board snapshot")
		return
	}
	defer file.Close()

	if _, err := file.WriteString(NewBoardSnapshot(snapshot).Serialize()); err != nil {
		log.WithError(err).Error("cannot save board snapshot")
		return
	}
	log.WithField("file", filepath.Base(path)).Debug("saved board snapshot")
}

// generateReplayFilename names a snapshot after the moment the game ended and
// its outcome. The nanosecond suffix keeps games ending within the same
// second apart.
func generateReplayFilename(status Status, t time.Time) string {
	filenameBuilder := strings.Builder{}

	filenameBuilder.WriteString(t.Format("20060102_150405_"))

	var stateStr string
	switch status {
	case Won:
		stateStr = "win"
	case Lost:
		stateStr = "loss"
	default:
		stateStr = "other"
	}
	filenameBuilder.WriteString(stateStr)

	fmt.Fprintf(&filenameBuilder, "_%09d.yaml", t.Nanosecond())

	return filenameBuilder.String()
}
