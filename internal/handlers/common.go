package handlers

import (
	"errors"
	"net/http"

	"github.com/Ovtnc/RowCoach/internal/services"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"operation successful"`
}

// respondError translates lifecycle failures into HTTP statuses. Anything
// that is not one of the known kinds is a store failure and stays generic.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "server error"})
	}
}

// requestUserID prefers the token-bound identity set by the auth
// middleware over whatever the body asserts.
func requestUserID(c *gin.Context, asserted string) string {
	if bound := c.GetString("auth_user_id"); bound != "" {
		return bound
	}
	return asserted
}
