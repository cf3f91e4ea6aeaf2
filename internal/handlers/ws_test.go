package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ovtnc/RowCoach/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testWSEvent struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
	Seq  uint64                 `json:"seq"`
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/multi-row"
	if token != "" {
		u += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, eventType string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": eventType, "data": data}))
}

func readEvent(t *testing.T, conn *websocket.Conn) testWSEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev testWSEvent
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

// assertNoEvent is terminal for the connection: a deadline failure poisons
// the gorilla read state, so only call it once everything else is read.
func assertNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "expected no further events")
}

func TestRealtimeSessionFlow(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	created, err := env.multiRow.CreateSession("h1", "H")
	require.NoError(t, err)
	code := created.Code

	hostConn := dialWS(t, srv, "")
	sendEvent(t, hostConn, "multi-row:join", gin.H{"sessionCode": code})

	state := readEvent(t, hostConn)
	require.Equal(t, "multi-row:session-state", state.Type)
	session := state.Data["session"].(map[string]interface{})
	assert.Equal(t, code, session["code"])
	assert.Len(t, session["participants"], 1)

	// Second rower joins over the facade, case-insensitively, then
	// subscribes.
	_, err = env.multiRow.JoinSession(strings.ToLower(code), "p1", "P")
	require.NoError(t, err)

	pConn := dialWS(t, srv, "")
	sendEvent(t, pConn, "multi-row:join", gin.H{"sessionCode": code})

	joined := readEvent(t, hostConn)
	require.Equal(t, "multi-row:participant-joined", joined.Type)
	assert.NotEmpty(t, joined.Data["connectionId"])

	state = readEvent(t, pConn)
	require.Equal(t, "multi-row:session-state", state.Type)
	assert.Len(t, state.Data["session"].(map[string]interface{})["participants"], 2)

	// Host configures the workout; both connections hear it.
	sendEvent(t, hostConn, "multi-row:select-workout",
		gin.H{"sessionCode": code, "userId": "h1", "workoutType": "interval"})
	for _, conn := range []*websocket.Conn{hostConn, pConn} {
		ev := readEvent(t, conn)
		require.Equal(t, "multi-row:workout-selected", ev.Type)
		assert.Equal(t, "interval", ev.Data["workoutType"])
	}

	_, err = env.multiRow.SetIntervalPlan(code, "h1", models.IntervalPlan{
		{Type: models.SegmentTypeWork, Duration: 120},
		{Type: models.SegmentTypeRest, Duration: 60},
	})
	require.NoError(t, err)

	// Start: the group gets one shared epoch.
	sendEvent(t, hostConn, "multi-row:start-workout", gin.H{"sessionCode": code, "userId": "h1"})
	hostStart := readEvent(t, hostConn)
	pStart := readEvent(t, pConn)
	require.Equal(t, "multi-row:workout-started", hostStart.Type)
	require.Equal(t, "multi-row:workout-started", pStart.Type)
	assert.Equal(t, hostStart.Data["startTime"], pStart.Data["startTime"])
	assert.Greater(t, hostStart.Data["startTime"].(float64), 0.0)

	active, err := env.multiRow.GetSession(code)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, active.Status)
	require.NotNil(t, active.StartedAt)

	// Stats echo to everyone, sender included.
	sendEvent(t, pConn, "multi-row:update-stats", gin.H{
		"sessionCode": code,
		"userId":      "p1",
		"stats":       gin.H{"distance": 500, "strokes": 120, "spm": 24, "split": 105},
	})
	for _, conn := range []*websocket.Conn{hostConn, pConn} {
		ev := readEvent(t, conn)
		require.Equal(t, "multi-row:stats-updated", ev.Type)
		assert.Equal(t, "p1", ev.Data["userId"])
		stats := ev.Data["stats"].(map[string]interface{})
		assert.Equal(t, 500.0, stats["distance"])
		assert.Equal(t, 120.0, stats["strokes"])
		assert.Equal(t, 24.0, stats["spm"])
		assert.Equal(t, 105.0, stats["split"])
	}

	// The realtime path forces the reporting rower to active.
	afterStats, err := env.multiRow.GetSession(code)
	require.NoError(t, err)
	for _, p := range afterStats.Participants {
		if p.UserID == "p1" {
			assert.Equal(t, models.ParticipantStatusActive, p.Status)
		}
	}

	// p1 finishes: only the host is notified.
	sendEvent(t, pConn, "multi-row:finish", gin.H{"sessionCode": code, "userId": "p1"})
	finished := readEvent(t, hostConn)
	require.Equal(t, "multi-row:participant-finished", finished.Type)
	assert.Equal(t, "p1", finished.Data["userId"])

	// Host finishes last: p1 hears the finish notice, then everyone gets
	// exactly one completion event.
	sendEvent(t, hostConn, "multi-row:finish", gin.H{"sessionCode": code, "userId": "h1"})

	ev := readEvent(t, pConn)
	require.Equal(t, "multi-row:participant-finished", ev.Type)
	assert.Equal(t, "h1", ev.Data["userId"])

	require.Equal(t, "multi-row:session-completed", readEvent(t, pConn).Type)
	require.Equal(t, "multi-row:session-completed", readEvent(t, hostConn).Type)

	completed, err := env.multiRow.GetSession(code)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, completed.Status)
	require.NotNil(t, completed.FinishedAt)

	assertNoEvent(t, hostConn)
	assertNoEvent(t, pConn)
}

func TestRealtimeLeaveNotifiesGroup(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	created, err := env.multiRow.CreateSession("h1", "H")
	require.NoError(t, err)
	code := created.Code

	hostConn := dialWS(t, srv, "")
	sendEvent(t, hostConn, "multi-row:join", gin.H{"sessionCode": code})
	readEvent(t, hostConn) // session-state

	pConn := dialWS(t, srv, "")
	sendEvent(t, pConn, "multi-row:join", gin.H{"sessionCode": code})
	readEvent(t, hostConn) // participant-joined
	readEvent(t, pConn)    // session-state

	sendEvent(t, pConn, "multi-row:leave", gin.H{"sessionCode": code})
	left := readEvent(t, hostConn)
	require.Equal(t, "multi-row:participant-left", left.Type)
	assert.NotEmpty(t, left.Data["connectionId"])

	// Leaving the channel never touches the stored participant record.
	session, err := env.multiRow.GetSession(code)
	require.NoError(t, err)
	assert.Len(t, session.Participants, 1)
	assert.Equal(t, models.ParticipantStatusReady, session.Participants[0].Status)
}

func TestRealtimeDisconnectNotifiesGroup(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	created, err := env.multiRow.CreateSession("h1", "H")
	require.NoError(t, err)
	code := created.Code

	hostConn := dialWS(t, srv, "")
	sendEvent(t, hostConn, "multi-row:join", gin.H{"sessionCode": code})
	readEvent(t, hostConn)

	pConn := dialWS(t, srv, "")
	sendEvent(t, pConn, "multi-row:join", gin.H{"sessionCode": code})
	readEvent(t, hostConn)
	readEvent(t, pConn)

	pConn.Close()

	left := readEvent(t, hostConn)
	assert.Equal(t, "multi-row:participant-left", left.Type)
}

func TestRealtimeTokenBindingRejectsSpoofedIdentity(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	created, err := env.multiRow.CreateSession("h1", "H")
	require.NoError(t, err)
	code := created.Code
	_, err = env.multiRow.JoinSession(code, "p1", "P")
	require.NoError(t, err)
	_, err = env.multiRow.StartSession(code, "h1")
	require.NoError(t, err)

	p1Token, err := env.tokens.GenerateToken(code, "p1", "P")
	require.NoError(t, err)

	pConn := dialWS(t, srv, p1Token)
	sendEvent(t, pConn, "multi-row:join", gin.H{"sessionCode": code})
	readEvent(t, pConn) // session-state

	// Bound to p1; the spoofed update is dropped, the honest one echoes.
	sendEvent(t, pConn, "multi-row:update-stats", gin.H{
		"sessionCode": code, "userId": "h1", "stats": gin.H{"distance": 9999},
	})
	sendEvent(t, pConn, "multi-row:update-stats", gin.H{
		"sessionCode": code, "userId": "p1", "stats": gin.H{"distance": 250},
	})

	ev := readEvent(t, pConn)
	require.Equal(t, "multi-row:stats-updated", ev.Type)
	assert.Equal(t, "p1", ev.Data["userId"])
	assert.Equal(t, 250.0, ev.Data["stats"].(map[string]interface{})["distance"])

	session, err := env.multiRow.GetSession(code)
	require.NoError(t, err)
	for _, p := range session.Participants {
		if p.UserID == "h1" {
			assert.Zero(t, p.Distance)
		}
	}
}

func TestWSRejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/multi-row?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}
