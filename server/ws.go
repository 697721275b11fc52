package server

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/they4kman/gosweep/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// wsCommand is a game command sent by the client. Row and Col apply to
// reveal and flag; the shape fields apply to configure.
type wsCommand struct {
	Type       string `json:"type"`
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Difficulty string `json:"difficulty"`
	Rows       int    `json:"rows"`
	Cols       int    `json:"cols"`
	Mines      int    `json:"mines"`
}

type wsMessage struct {
	Type  string    `json:"type"`
	Game  *GameView `json:"game,omitempty"`
	Error string    `json:"error,omitempty"`
}

type wsClient struct {
	app       *App
	sessionID string
	session   *game.Session
	conn      *websocket.Conn
	limiter   *rate.Limiter
	log       logrus.FieldLogger

	// Holds at most one pending change; the writer always sends the latest state
	changed chan struct{}
	replies chan wsMessage
	done    chan struct{}
}

// wsHandler streams the session's state: the current view on connect, then
// a new view after every change. Commands may be sent over the same socket.
func (app *App) wsHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	s, detach := app.attachSession(sessionID)
	defer detach()

	// The upgrade response carries the session cookie, if one was just set
	conn, err := upgrader.Upgrade(c.Writer, c.Request, c.Writer.Header())
	if err != nil {
		app.log.WithError(err).WithField("session", sessionID).Warn("websocket upgrade failed")
		return
	}

	client := &wsClient{
		app:       app,
		sessionID: sessionID,
		session:   s,
		conn:      conn,
		limiter:   app.getLimiter(c.ClientIP()),
		log:       app.log.WithField("session", sessionID),
		changed:   make(chan struct{}, 1),
		replies:   make(chan wsMessage, 8),
		done:      make(chan struct{}),
	}
	client.run()
}

func (client *wsClient) run() {
	cancel := client.session.Subscribe(func(game.Snapshot) {
		client.notify()
	})
	defer cancel()

	client.notify()
	go client.writePump()
	client.readPump()
}

func (client *wsClient) notify() {
	select {
	case client.changed <- struct{}{}:
	default:
	}
}

func (client *wsClient) reply(message wsMessage) {
	select {
	case client.replies <- message:
	default:
		client.log.Warn("dropping websocket reply, client is not reading")
	}
}

func (client *wsClient) readPump() {
	defer func() {
		close(client.done)
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(4096)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				client.log.WithError(err).Warn("websocket read failed")
			}
			return
		}

		var command wsCommand
		if err := json.Unmarshal(data, &command); err != nil {
			client.reply(wsMessage{Type: "error", Error: "invalid command"})
			continue
		}
		if !client.limiter.Allow() {
			client.reply(wsMessage{Type: "error", Error: "Too many requests. Please slow down."})
			continue
		}

		client.app.touchSession(client.sessionID)
		client.apply(command)
	}
}

func (client *wsClient) apply(command wsCommand) {
	s := client.session
	switch command.Type {
	case "reveal":
		s.Reveal(command.Row, command.Col)
	case "flag":
		s.ToggleFlag(command.Row, command.Col)
	case "reset":
		s.Reset()
	case "configure":
		req := configureRequest{
			Difficulty: command.Difficulty,
			Rows:       command.Rows,
			Cols:       command.Cols,
			Mines:      command.Mines,
		}
		difficulty, config, err := req.resolve()
		if err != nil {
			client.reply(wsMessage{Type: "error", Error: err.Error()})
			return
		}
		s.Configure(difficulty, config)
	default:
		client.reply(wsMessage{Type: "error", Error: "unknown command " + command.Type})
	}
}

func (client *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case <-client.done:
			_ = client.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case <-client.changed:
			view := newGameView(client.session.Snapshot())
			if err := client.write(wsMessage{Type: "game", Game: &view}); err != nil {
				return
			}

		case message := <-client.replies:
			if err := client.write(message); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (client *wsClient) write(message wsMessage) error {
	_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.conn.WriteJSON(message); err != nil {
		client.log.WithError(err).Debug("websocket write failed")
		return err
	}
	return nil
}
