package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/they4kman/gosweep/game"
)

type sessionEntry struct {
	session    *game.Session
	lastAccess time.Time

	// Connected websocket clients; the janitor spares entries that have any
	clients int
}

// getOrCreateSession retrieves the session ID from the cookie or creates a new one.
func (app *App) getOrCreateSession(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || uuid.Validate(sessionID) != nil {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(SessionCookieName, sessionID, int(app.options.CookieMaxAge.Seconds()), "/", "", app.options.Production, true)
		app.log.WithField("session", sessionID).Debug("Created new session")
	}
	return sessionID
}

// gameSession retrieves the game of the request's session, starting an easy
// game on first use
func (app *App) gameSession(c *gin.Context) (string, *game.Session) {
	sessionID := app.getOrCreateSession(c)
	return sessionID, app.session(sessionID)
}

func (app *App) session(sessionID string) *game.Session {
	now := time.Now()

	app.sessionMutex.RLock()
	entry, exists := app.sessions[sessionID]
	app.sessionMutex.RUnlock()
	if exists {
		app.sessionMutex.Lock()
		entry.lastAccess = now
		app.sessionMutex.Unlock()
		return entry.session
	}

	app.sessionMutex.Lock()
	defer app.sessionMutex.Unlock()
	return app.entry(sessionID, now).session
}

// attachSession returns the session and keeps it from being evicted until
// the returned detach is called
func (app *App) attachSession(sessionID string) (*game.Session, func()) {
	app.sessionMutex.Lock()
	defer app.sessionMutex.Unlock()

	entry := app.entry(sessionID, time.Now())
	entry.clients++

	return entry.session, func() {
		app.sessionMutex.Lock()
		defer app.sessionMutex.Unlock()

		entry.clients--
		entry.lastAccess = time.Now()
	}
}

// entry returns the entry of the session, creating it if needed. The caller
// holds the session mutex.
func (app *App) entry(sessionID string, now time.Time) *sessionEntry {
	// Another request may have created it in the meantime
	if entry, exists := app.sessions[sessionID]; exists {
		entry.lastAccess = now
		return entry
	}

	log := app.log.WithField("session", sessionID)
	s := game.NewSession(game.Easy, game.Presets[game.Easy], game.Options{
		Store:             app.options.Store,
		Clock:             app.options.Clock,
		Logger:            log,
		SavedSnapshotsDir: app.options.SnapshotsDir,
		OnGameEnd:         app.metrics.gameEnded,
	})
	entry := &sessionEntry{session: s, lastAccess: now}
	app.sessions[sessionID] = entry
	app.metrics.sessionsCreated.Inc()
	log.Info("Started new game session")
	return entry
}

// touchSession keeps a session alive without creating it
func (app *App) touchSession(sessionID string) {
	app.sessionMutex.Lock()
	defer app.sessionMutex.Unlock()

	if entry, exists := app.sessions[sessionID]; exists {
		entry.lastAccess = time.Now()
	}
}

func (app *App) sessionCount() int {
	app.sessionMutex.RLock()
	defer app.sessionMutex.RUnlock()
	return len(app.sessions)
}

// cleanupSessions drops the sessions not used since before cutoff and not
// held by a websocket client
func (app *App) cleanupSessions(cutoff time.Time) int {
	app.sessionMutex.Lock()
	defer app.sessionMutex.Unlock()

	removed := 0
	for id, entry := range app.sessions {
		if entry.clients == 0 && entry.lastAccess.Before(cutoff) {
			entry.session.Close()
			delete(app.sessions, id)
			removed++
		}
	}
	return removed
}

func (app *App) janitor(ctx context.Context) {
	interval := app.options.SessionTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := app.cleanupSessions(now.Add(-app.options.SessionTimeout)); removed > 0 {
				app.log.WithFields(logrus.Fields{
					"removed":   removed,
					"remaining": app.sessionCount(),
				}).Info("Session cleanup completed")
			}
		}
	}
}
