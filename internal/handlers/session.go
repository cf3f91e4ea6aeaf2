package handlers

import (
	"log"
	"net/http"

	"github.com/Ovtnc/RowCoach/internal/models"
	"github.com/Ovtnc/RowCoach/internal/services"

	"github.com/gin-gonic/gin"
)

// SessionHandler is the request/response facade over the lifecycle: the
// same operations the websocket layer drives, minus any fan-out. Clients
// on this path poll GetSession to see the others.
type SessionHandler struct {
	multiRow *services.MultiRowService
	tokens   *services.TokenService
}

func NewSessionHandler(multiRow *services.MultiRowService, tokens *services.TokenService) *SessionHandler {
	return &SessionHandler{multiRow: multiRow, tokens: tokens}
}

type CreateSessionRequest struct {
	HostID   string `json:"hostId" binding:"required"`
	HostName string `json:"hostName" binding:"required"`
}

type JoinSessionRequest struct {
	Code     string `json:"code" binding:"required"`
	UserID   string `json:"userId" binding:"required"`
	UserName string `json:"userName" binding:"required"`
}

type WorkoutTypeRequest struct {
	UserID      string `json:"userId" binding:"required"`
	WorkoutType string `json:"workoutType" binding:"required"`
}

type IntervalPlanRequest struct {
	UserID       string              `json:"userId" binding:"required"`
	IntervalPlan models.IntervalPlan `json:"intervalPlan"`
}

type StartSessionRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type UpdateStatsRequest struct {
	UserID string               `json:"userId" binding:"required"`
	Stats  services.StatsUpdate `json:"stats"`
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "host id and name are required"})
		return
	}

	session, err := h.multiRow.CreateSession(req.HostID, req.HostName)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.GenerateToken(session.Code, req.HostID, req.HostName)
	if err != nil {
		log.Printf("session token: %v", err)
	}

	c.JSON(http.StatusCreated, gin.H{"session": session, "token": token})
}

func (h *SessionHandler) JoinSession(c *gin.Context) {
	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "code, user id and name are required"})
		return
	}

	session, err := h.multiRow.JoinSession(req.Code, req.UserID, req.UserName)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.GenerateToken(session.Code, req.UserID, req.UserName)
	if err != nil {
		log.Printf("session token: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"session": session, "token": token})
}

func (h *SessionHandler) UpdateWorkoutType(c *gin.Context) {
	var req WorkoutTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user id and workout type are required"})
		return
	}

	session, err := h.multiRow.SetWorkoutType(c.Param("code"), requestUserID(c, req.UserID), req.WorkoutType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) UpdateIntervalPlan(c *gin.Context) {
	var req IntervalPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user id and interval plan are required"})
		return
	}

	session, err := h.multiRow.SetIntervalPlan(c.Param("code"), requestUserID(c, req.UserID), req.IntervalPlan)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user id is required"})
		return
	}

	session, err := h.multiRow.StartSession(c.Param("code"), requestUserID(c, req.UserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// UpdateStats on this path is a raw field overwrite: unlike the websocket
// path it does not force the participant to active, so a poller pushing
// numbers does not flip status on its own.
func (h *SessionHandler) UpdateStats(c *gin.Context) {
	var req UpdateStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user id is required"})
		return
	}

	participant, err := h.multiRow.UpdateStats(c.Param("code"), requestUserID(c, req.UserID), req.Stats, false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": participant})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.multiRow.GetSession(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// FinishSession is the administrative override: it completes the session
// no matter how many participants are still rowing.
func (h *SessionHandler) FinishSession(c *gin.Context) {
	session, err := h.multiRow.FinishSession(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}
