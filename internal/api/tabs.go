package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/assessment-engine/internal/models"
	"github.com/terra-clan/assessment-engine/internal/navigation"
	"github.com/terra-clan/assessment-engine/internal/session"
)

const (
	storeTimeout = 3 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client message types
const (
	msgLocation         = "location"
	msgNavigate         = "navigate"
	msgAuth             = "auth"
	msgLogout           = "logout"
	msgDocumentUploaded = "document_uploaded"
	msgStart            = "start"
	msgSubmit           = "submit"
	msgPause            = "pause"
)

// TabMessage is a message from the tab
type TabMessage struct {
	Type            string             `json:"type"`
	Href            string             `json:"href,omitempty"`
	Page            models.Page        `json:"page,omitempty"`
	Params          map[string]string  `json:"params,omitempty"`
	IsAuthenticated bool               `json:"is_authenticated,omitempty"`
	IsResolving     bool               `json:"is_resolving,omitempty"`
	Paused          bool               `json:"paused,omitempty"`
	Reason          models.PauseReason `json:"reason,omitempty"`
}

// ServerMessage is a message to the tab
type ServerMessage struct {
	Type  string           `json:"type"`
	TabID string           `json:"tab_id,omitempty"`
	View  *navigation.View `json:"view,omitempty"`
	Error string           `json:"error,omitempty"`
}

// eventFromMessage maps a tab message to a navigation event
func eventFromMessage(msg TabMessage) (navigation.Event, error) {
	switch msg.Type {
	case msgLocation:
		return navigation.LocationChanged{Href: msg.Href}, nil
	case msgNavigate:
		return navigation.Navigate{Page: msg.Page, Params: msg.Params}, nil
	case msgAuth:
		return navigation.AuthChanged{State: models.AuthState{
			IsAuthenticated: msg.IsAuthenticated,
			IsResolving:     msg.IsResolving,
		}}, nil
	case msgLogout:
		return navigation.LoggedOut{}, nil
	case msgDocumentUploaded:
		return navigation.DocumentUploaded{}, nil
	case msgStart:
		return navigation.StartRequested{}, nil
	case msgSubmit:
		return navigation.Submitted{}, nil
	case msgPause:
		return navigation.PauseChanged{Paused: msg.Paused, Reason: msg.Reason}, nil
	default:
		return nil, fmt.Errorf("unknown message type: %q", msg.Type)
	}
}

// tabConn serializes writes to one websocket
type tabConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *tabConn) send(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal tab message", "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send tab message", "error", err)
		return err
	}
	return nil
}

func (c *tabConn) sendError(message string) {
	c.send(ServerMessage{Type: "error", Error: message})
}

// handleTabWS runs one tab's navigation state for the lifetime of the connection.
// A tab that reconnects with its tab_id resumes from its stored snapshot.
func (s *Server) handleTabWS(w http.ResponseWriter, r *http.Request) {
	tabID := r.URL.Query().Get("tab_id")
	if _, err := uuid.Parse(tabID); err != nil {
		tabID = uuid.NewString()
	}
	credential := CredentialFromContext(r.Context())

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer ws.Close()

	logger := slog.Default().With("tab_id", tabID)
	logger.Info("tab websocket connected")

	conn := &tabConn{conn: ws}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := navigation.NewDispatcher(s.deps.Starter, navigation.Options{
		TickInterval: s.deps.TickInterval,
		Logger:       logger,
		Normalizer:   s.deps.Normalizer,
		Publish: func(v navigation.View) {
			if err := conn.send(ServerMessage{Type: "view", View: &v}); err != nil {
				cancel()
			}
		},
		Persist:      s.persistFunc(tabID, logger),
		OnTransition: s.journalFunc(tabID, logger),
	})

	s.restoreTab(ctx, dispatcher, tabID, logger)

	if err := conn.send(ServerMessage{Type: "hello", TabID: tabID}); err != nil {
		dispatcher.Close()
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("tab dispatcher stopped", "error", err)
		}
	}()

	s.resolveAuth(ctx, dispatcher, credential, logger)

	// Read from WebSocket -> dispatch to the tab's state
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			_, message, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("websocket read error", "error", err)
				}
				return
			}

			var msg TabMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				logger.Debug("invalid message format", "error", err)
				conn.sendError("invalid message format")
				continue
			}

			ev, err := eventFromMessage(msg)
			if err != nil {
				logger.Debug("rejected tab message", "error", err)
				conn.sendError(err.Error())
				continue
			}

			if err := dispatcher.Dispatch(ctx, ev); err != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	ws.Close()
	wg.Wait()
	logger.Info("tab websocket disconnected")
}

// restoreTab loads the tab's snapshot, if any, into a fresh dispatcher
func (s *Server) restoreTab(ctx context.Context, d *navigation.Dispatcher, tabID string, logger *slog.Logger) {
	if s.deps.Snapshots == nil {
		return
	}

	loadCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	snap, err := s.deps.Snapshots.LoadSnapshot(loadCtx, tabID)
	if err != nil {
		logger.Warn("failed to load tab snapshot", "error", err)
		return
	}
	if snap == nil {
		return
	}

	if !d.Restore(*snap) {
		logger.Warn("discarding unusable tab snapshot", "funnel", snap.Funnel.State)
	}
}

// resolveAuth asks the auth collaborator about the tab's credential and feeds
// the answer back as an event. Without a credential the tab is a guest.
func (s *Server) resolveAuth(ctx context.Context, d *navigation.Dispatcher, credential string, logger *slog.Logger) {
	if credential == "" || s.deps.Auth == nil {
		d.Dispatch(ctx, navigation.AuthChanged{State: models.AuthState{}})
		return
	}

	go func() {
		ok, err := s.deps.Auth.CurrentUser(ctx, credential)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("auth check failed, treating tab as guest", "error", err, "key_prefix", maskKey(credential))
		}
		d.Dispatch(ctx, navigation.AuthChanged{State: models.AuthState{IsAuthenticated: ok}})
	}()
}

func (s *Server) persistFunc(tabID string, logger *slog.Logger) func(navigation.Snapshot) {
	if s.deps.Snapshots == nil {
		return nil
	}
	return func(snap navigation.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := s.deps.Snapshots.SaveSnapshot(ctx, tabID, snap); err != nil {
			logger.Error("failed to save tab snapshot", "error", err)
		}
	}
}

// journalFunc records transitions without blocking the tab's event loop
func (s *Server) journalFunc(tabID string, logger *slog.Logger) func(session.Transition) {
	return func(t session.Transition) {
		logger.Info("funnel transition", "from", t.From, "to", t.To, "token", maskKey(t.Token))
		if s.deps.Journal == nil {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			if err := s.deps.Journal.RecordTransition(ctx, tabID, t); err != nil {
				logger.Error("failed to record funnel transition", "error", err)
			}
		}()
	}
}
