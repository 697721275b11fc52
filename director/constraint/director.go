package constraint

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/they4kman/gosweep/director/random"
	"github.com/they4kman/gosweep/game"
	"github.com/they4kman/gosweep/util/collections"
)

// Director plays from what a human could see: the counts of revealed cells
// and its own flags. Each move it flags every cell that must be a mine and
// reveals every cell that must be safe; when nothing is certain it reveals
// the least likely mine, or a random cell.
type Director struct {
	// Defaults to a randomly-seeded source
	Rand *rand.Rand

	Logger logrus.FieldLogger

	session  *game.Session
	fallback random.Director

	observations []*Observation
}

// Observation states that exactly numMines of cells are mines
type Observation struct {
	origin   *game.Point
	numMines int
	cells    collections.Set[game.Point]
}

func (observation Observation) String() string {
	cells := lo.Map(observation.cells.Values(), func(cell game.Point, _ int) string {
		return cell.String()
	})
	sort.Strings(cells)

	var originRepr string
	if observation.origin == nil {
		originRepr = "?"
	} else {
		originRepr = observation.origin.String()
	}

	return fmt.Sprintf("Obs[%8s, %d ε %s]", originRepr, observation.numMines, strings.Join(cells, ", "))
}

func (observation Observation) MineProbability() float64 {
	return float64(observation.numMines) / float64(observation.cells.Len())
}

func (director *Director) Init(session *game.Session) {
	director.session = session
	if director.Rand == nil {
		director.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if director.Logger == nil {
		director.Logger = logrus.StandardLogger()
	}

	director.fallback = random.Director{Rand: director.Rand}
	director.fallback.Init(session)
	director.observations = nil
}

func (director *Director) Act() bool {
	snapshot := director.session.Snapshot()
	if snapshot.Status.IsTerminal() {
		return false
	}

	// Open in the middle, where the safe zone clears the most cells
	if snapshot.Status == game.Idle {
		director.session.Reveal(snapshot.Config.Rows/2, snapshot.Config.Cols/2)
		return true
	}

	director.observe(snapshot.Board)

	actors := []func(game.Snapshot) bool{
		director.actDeliberate,
		director.actLowestProbability,
		director.actRandom,
	}
	for _, actor := range actors {
		if actor(snapshot) {
			return true
		}
	}
	return false
}

func (director *Director) actRandom(game.Snapshot) bool {
	return director.fallback.Act()
}

// actLowestProbability reveals the constrained cell least likely to be a
// mine, provided it beats the odds of an unconstrained guess
func (director *Director) actLowestProbability(snapshot game.Snapshot) bool {
	cellProbabilities := make(map[game.Point]float64)
	for _, observation := range director.observations {
		probability := observation.MineProbability()
		for cell := range observation.cells {
			// A cell is as risky as the riskiest observation covering it
			if past, ok := cellProbabilities[cell]; !ok || probability > past {
				cellProbabilities[cell] = probability
			}
		}
	}
	if len(cellProbabilities) == 0 {
		return false
	}

	lowestProbability := math.Inf(1)
	for _, probability := range cellProbabilities {
		lowestProbability = math.Min(lowestProbability, probability)
	}

	hidden := random.HiddenCells(snapshot.Board)
	if len(hidden) > 0 && lowestProbability >= float64(snapshot.MinesLeft)/float64(len(hidden)) {
		return false
	}

	lowestProbabilityCells := lo.Filter(lo.Keys(cellProbabilities), func(cell game.Point, _ int) bool {
		return cellProbabilities[cell] <= lowestProbability
	})
	sort.Slice(lowestProbabilityCells, func(i, j int) bool {
		a, b := lowestProbabilityCells[i], lowestProbabilityCells[j]
		return a.Row < b.Row || (a.Row == b.Row && a.Col < b.Col)
	})

	cell := lowestProbabilityCells[director.Rand.IntN(len(lowestProbabilityCells))]
	director.Logger.WithFields(logrus.Fields{
		"cell":        cell,
		"probability": lowestProbability,
	}).Debug("guessing")
	director.session.Reveal(cell.Row, cell.Col)
	return true
}

// actDeliberate plays every move that is certain
func (director *Director) actDeliberate(game.Snapshot) bool {
	mines := collections.NewSet[game.Point]()
	safe := collections.NewSet[game.Point]()

	for _, observation := range director.observations {
		switch {
		case observation.numMines == observation.cells.Len():
			for cell := range observation.cells {
				mines.Add(cell)
			}
		case observation.numMines == 0:
			for cell := range observation.cells {
				safe.Add(cell)
			}
		}
	}

	for _, cell := range sortedPoints(mines) {
		director.session.ToggleFlag(cell.Row, cell.Col)
	}
	for _, cell := range sortedPoints(safe) {
		director.session.Reveal(cell.Row, cell.Col)
	}
	return mines.Len() > 0 || safe.Len() > 0
}

// observe rebuilds the observations from the revealed counts, then derives
// new ones from how they overlap
func (director *Director) observe(board *game.Board) {
	director.observations = nil

	for row := 0; row < board.Rows(); row++ {
		for col := 0; col < board.Cols(); col++ {
			cell := board.CellAt(row, col)
			if !cell.IsRevealed || cell.IsMine || cell.NeighborCount == 0 {
				continue
			}
			director.cellRevealed(board, game.Point{Row: row, Col: col})
		}
	}

	// Simplify/split observations
	for i := 0; i < 4; i++ {
		if !director.simplifyObservations() {
			break
		}
	}
}

func (director *Director) cellRevealed(board *game.Board, origin game.Point) {
	observation := Observation{
		origin:   &origin,
		numMines: board.CellAt(origin.Row, origin.Col).NeighborCount,
		cells:    collections.NewSet[game.Point](),
	}

	board.Neighbors(origin, func(neighbor game.Point) {
		cell := board.CellAt(neighbor.Row, neighbor.Col)
		if cell.IsRevealed {
			return
		}
		if cell.IsFlagged {
			observation.numMines--
		} else {
			observation.cells.Add(neighbor)
		}
	})

	director.addObservation(&observation)
}

// simplifyObservations reports whether it derived anything new
func (director *Director) simplifyObservations() bool {
	added := false
	observations := director.observations

	for _, observation := range observations {
		for _, other := range observations {
			if other == observation {
				continue
			}

			sharedCells := collections.NewSet[game.Point]()
			for cell := range observation.cells {
				if other.cells.Contains(cell) {
					sharedCells.Add(cell)
				}
			}
			if sharedCells.Len() == 0 {
				continue
			}

			if observation.cells.IsSubset(other.cells) {
				added = director.addObservation(&Observation{
					numMines: other.numMines - observation.numMines,
					cells:    other.cells.Difference(observation.cells),
				}) || added
				continue
			}

			// The shared cells hold at most this many of other's mines, so
			// the rest must sit in the cells only other covers
			maxSharedMines := min(observation.numMines, sharedCells.Len())
			otherOnlyCells := other.cells.Difference(sharedCells)
			if occludedMines := other.numMines - maxSharedMines; occludedMines > 0 && occludedMines == otherOnlyCells.Len() {
				added = director.addObservation(&Observation{
					numMines: occludedMines,
					cells:    otherOnlyCells,
				}) || added
			}
		}
	}
	return added
}

func (director *Director) addObservation(observation *Observation) bool {
	// Don't add vacuous observations
	if observation.cells.Len() == 0 {
		return false
	}

	// Don't add duplicates
	for _, other := range director.observations {
		if other.cells.Equal(observation.cells) {
			return false
		}
	}

	director.observations = append(director.observations, observation)
	return true
}

func sortedPoints(points collections.Set[game.Point]) []game.Point {
	values := points.Values()
	sort.Slice(values, func(i, j int) bool {
		a, b := values[i], values[j]
		return a.Row < b.Row || (a.Row == b.Row && a.Col < b.Col)
	})
	return values
}
