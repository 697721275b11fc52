package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/they4kman/gosweep/game"
)

type cellRequest struct {
	Row *int `json:"row" binding:"required"`
	Col *int `json:"col" binding:"required"`
}

type configureRequest struct {
	Difficulty string `json:"difficulty" binding:"required"`
	Rows       int    `json:"rows"`
	Cols       int    `json:"cols"`
	Mines      int    `json:"mines"`
}

type presetView struct {
	Difficulty game.Difficulty `json:"difficulty"`
	game.Config
}

func (app *App) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(app.startTime).Round(time.Second).String(),
		"sessions": app.sessionCount(),
	})
}

func (app *App) presetsHandler(c *gin.Context) {
	presets := lo.Map(game.PresetDifficulties, func(difficulty game.Difficulty, _ int) presetView {
		return presetView{Difficulty: difficulty, Config: game.Presets[difficulty]}
	})

	c.JSON(http.StatusOK, gin.H{
		"presets": presets,
		"limits": gin.H{
			"minRows": game.MinRows,
			"maxRows": game.MaxRows,
			"minCols": game.MinCols,
			"maxCols": game.MaxCols,
		},
	})
}

func (app *App) gameHandler(c *gin.Context) {
	_, s := app.gameSession(c)
	c.JSON(http.StatusOK, newGameView(s.Snapshot()))
}

func (app *App) revealHandler(c *gin.Context) {
	app.cellCommand(c, (*game.Session).Reveal)
}

func (app *App) flagHandler(c *gin.Context) {
	app.cellCommand(c, (*game.Session).ToggleFlag)
}

func (app *App) cellCommand(c *gin.Context, command func(s *game.Session, row, col int) game.Snapshot) {
	var req cellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "row and col are required"})
		return
	}

	_, s := app.gameSession(c)
	c.JSON(http.StatusOK, newGameView(command(s, *req.Row, *req.Col)))
}

func (app *App) resetHandler(c *gin.Context) {
	_, s := app.gameSession(c)
	c.JSON(http.StatusOK, newGameView(s.Reset()))
}

func (app *App) configureHandler(c *gin.Context) {
	var req configureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "difficulty is required"})
		return
	}

	difficulty, config, err := req.resolve()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID, s := app.gameSession(c)
	app.log.WithField("session", sessionID).WithField("config", config).Debug("Configuring game")
	c.JSON(http.StatusOK, newGameView(s.Configure(difficulty, config)))
}

// resolve validates the requested shape. Its errors are fit for the player.
func (req configureRequest) resolve() (game.Difficulty, game.Config, error) {
	difficulty, err := game.ParseDifficulty(req.Difficulty)
	if err != nil {
		return "", game.Config{}, errors.New("difficulty must be easy, medium, hard or custom")
	}

	config, err := game.ResolveConfig(difficulty, game.Config{Rows: req.Rows, Cols: req.Cols, Mines: req.Mines})
	if err != nil {
		return "", game.Config{}, err
	}
	return difficulty, config, nil
}
