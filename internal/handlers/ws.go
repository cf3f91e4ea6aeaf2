package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/Ovtnc/RowCoach/internal/services"
	"github.com/Ovtnc/RowCoach/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Client -> server event types.
const (
	evJoin          = "multi-row:join"
	evUpdateStats   = "multi-row:update-stats"
	evSelectWorkout = "multi-row:select-workout"
	evStartWorkout  = "multi-row:start-workout"
	evFinish        = "multi-row:finish"
	evLeave         = "multi-row:leave"
)

// Server -> client event types.
const (
	evParticipantJoined   = "multi-row:participant-joined"
	evSessionState        = "multi-row:session-state"
	evStatsUpdated        = "multi-row:stats-updated"
	evWorkoutSelected     = "multi-row:workout-selected"
	evWorkoutStarted      = "multi-row:workout-started"
	evParticipantFinished = "multi-row:participant-finished"
	evSessionCompleted    = "multi-row:session-completed"
	evParticipantLeft     = "multi-row:participant-left"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MultiRowWSHandler is the realtime transport: one websocket per client,
// JSON envelopes both ways, fan-out through the hub. Lifecycle failures on
// this path are logged and dropped, never sent back — a missed live sample
// is not worth an error protocol, and clients resync via the session fetch
// on rejoin.
type MultiRowWSHandler struct {
	multiRow *services.MultiRowService
	tokens   *services.TokenService
	hub      *ws.Hub
}

func NewMultiRowWSHandler(multiRow *services.MultiRowService, tokens *services.TokenService, hub *ws.Hub) *MultiRowWSHandler {
	return &MultiRowWSHandler{multiRow: multiRow, tokens: tokens, hub: hub}
}

type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinPayload struct {
	SessionCode string `json:"sessionCode"`
}

type statsPayload struct {
	SessionCode string               `json:"sessionCode"`
	UserID      string               `json:"userId"`
	Stats       services.StatsUpdate `json:"stats"`
}

type workoutPayload struct {
	SessionCode string `json:"sessionCode"`
	UserID      string `json:"userId"`
	WorkoutType string `json:"workoutType"`
}

type codeUserPayload struct {
	SessionCode string `json:"sessionCode"`
	UserID      string `json:"userId"`
}

// HandleMultiRow upgrades the connection and runs its read loop. A session
// token on the upgrade request binds the connection to an identity; bound
// connections cannot act as anyone else.
func (h *MultiRowWSHandler) HandleMultiRow(c *gin.Context) {
	var bound *services.SessionIdentity
	if token := c.Query("token"); token != "" {
		identity, err := h.tokens.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid session token"})
			return
		}
		bound = identity
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(conn)
	joined := make(map[string]bool)

	defer func() {
		for code := range joined {
			h.hub.Leave(code, client)
			h.hub.Broadcast(code, ws.Event{
				Type: evParticipantLeft,
				Data: gin.H{"connectionId": client.ID},
			})
		}
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var ev clientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("ws: bad message from %s: %v", client.ID, err)
			continue
		}

		switch ev.Type {
		case evJoin:
			h.handleJoin(client, joined, ev.Data)
		case evUpdateStats:
			h.handleStats(client, bound, ev.Data)
		case evSelectWorkout:
			h.handleSelectWorkout(client, bound, ev.Data)
		case evStartWorkout:
			h.handleStart(client, bound, ev.Data)
		case evFinish:
			h.handleFinish(client, bound, ev.Data)
		case evLeave:
			h.handleLeave(client, joined, ev.Data)
		default:
			log.Printf("ws: unknown event %q from %s", ev.Type, client.ID)
		}
	}
}

// userFor resolves the acting identity: the token binding wins, and a
// payload that contradicts it is refused.
func userFor(bound *services.SessionIdentity, asserted string) (string, bool) {
	if bound == nil {
		return asserted, true
	}
	if asserted != "" && asserted != bound.UserID {
		return "", false
	}
	return bound.UserID, true
}

func (h *MultiRowWSHandler) handleJoin(client *ws.Client, joined map[string]bool, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.SessionCode == "" {
		log.Printf("ws: bad join payload from %s", client.ID)
		return
	}
	code := services.NormalizeCode(p.SessionCode)

	h.hub.Join(code, client)
	joined[code] = true

	h.hub.BroadcastExcept(code, client, ws.Event{
		Type: evParticipantJoined,
		Data: gin.H{"connectionId": client.ID, "timestamp": time.Now().UnixMilli()},
	})

	// The joiner alone gets a full state sync so it can render the
	// current group before the next broadcast arrives.
	session, err := h.multiRow.GetSession(code)
	if err != nil {
		log.Printf("ws: join %s: %v", code, err)
		return
	}
	h.hub.SendTo(client, code, ws.Event{
		Type: evSessionState,
		Data: gin.H{"session": session},
	})
}

func (h *MultiRowWSHandler) handleStats(client *ws.Client, bound *services.SessionIdentity, data json.RawMessage) {
	var p statsPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("ws: bad stats payload from %s", client.ID)
		return
	}
	userID, ok := userFor(bound, p.UserID)
	if !ok {
		log.Printf("ws: %s asserted user %s but is bound to %s", client.ID, p.UserID, bound.UserID)
		return
	}
	code := services.NormalizeCode(p.SessionCode)

	participant, err := h.multiRow.UpdateStats(code, userID, p.Stats, true)
	if err != nil {
		log.Printf("ws: update stats %s/%s: %v", code, userID, err)
		return
	}

	// Everyone, sender included: the echo saves clients from applying
	// their own updates optimistically.
	h.hub.Broadcast(code, ws.Event{
		Type: evStatsUpdated,
		Data: gin.H{
			"userId": userID,
			"stats": gin.H{
				"distance": participant.Distance,
				"strokes":  participant.Strokes,
				"spm":      participant.SPM,
				"split":    participant.Split,
			},
			"timestamp": time.Now().UnixMilli(),
		},
	})
}

func (h *MultiRowWSHandler) handleSelectWorkout(client *ws.Client, bound *services.SessionIdentity, data json.RawMessage) {
	var p workoutPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("ws: bad workout payload from %s", client.ID)
		return
	}
	userID, ok := userFor(bound, p.UserID)
	if !ok {
		log.Printf("ws: %s asserted user %s but is bound to %s", client.ID, p.UserID, bound.UserID)
		return
	}
	code := services.NormalizeCode(p.SessionCode)

	if _, err := h.multiRow.SetWorkoutType(code, userID, p.WorkoutType); err != nil {
		log.Printf("ws: select workout %s: %v", code, err)
		return
	}

	h.hub.Broadcast(code, ws.Event{
		Type: evWorkoutSelected,
		Data: gin.H{"workoutType": p.WorkoutType},
	})
}

func (h *MultiRowWSHandler) handleStart(client *ws.Client, bound *services.SessionIdentity, data json.RawMessage) {
	var p codeUserPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("ws: bad start payload from %s", client.ID)
		return
	}
	userID, ok := userFor(bound, p.UserID)
	if !ok {
		log.Printf("ws: %s asserted user %s but is bound to %s", client.ID, p.UserID, bound.UserID)
		return
	}
	code := services.NormalizeCode(p.SessionCode)

	if _, err := h.multiRow.StartSession(code, userID); err != nil {
		log.Printf("ws: start workout %s: %v", code, err)
		return
	}

	// One shared epoch for the whole group, so every client's timer
	// counts from the same instant.
	h.hub.Broadcast(code, ws.Event{
		Type: evWorkoutStarted,
		Data: gin.H{"startTime": time.Now().UnixMilli()},
	})
}

func (h *MultiRowWSHandler) handleFinish(client *ws.Client, bound *services.SessionIdentity, data json.RawMessage) {
	var p codeUserPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("ws: bad finish payload from %s", client.ID)
		return
	}
	userID, ok := userFor(bound, p.UserID)
	if !ok {
		log.Printf("ws: %s asserted user %s but is bound to %s", client.ID, p.UserID, bound.UserID)
		return
	}
	code := services.NormalizeCode(p.SessionCode)

	completed, err := h.multiRow.FinishParticipant(code, userID)
	if err != nil {
		log.Printf("ws: finish %s/%s: %v", code, userID, err)
		return
	}

	h.hub.BroadcastExcept(code, client, ws.Event{
		Type: evParticipantFinished,
		Data: gin.H{"userId": userID, "timestamp": time.Now().UnixMilli()},
	})

	if completed {
		h.hub.Broadcast(code, ws.Event{
			Type: evSessionCompleted,
			Data: gin.H{"timestamp": time.Now().UnixMilli()},
		})
	}
}

func (h *MultiRowWSHandler) handleLeave(client *ws.Client, joined map[string]bool, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.SessionCode == "" {
		log.Printf("ws: bad leave payload from %s", client.ID)
		return
	}
	code := services.NormalizeCode(p.SessionCode)

	h.hub.Leave(code, client)
	delete(joined, code)

	h.hub.Broadcast(code, ws.Event{
		Type: evParticipantLeft,
		Data: gin.H{"connectionId": client.ID},
	})
}
