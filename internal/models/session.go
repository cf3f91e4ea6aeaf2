package models

import (
	"encoding/json"
	"time"
)

type Session struct {
	ID           uint          `gorm:"primaryKey" json:"-"`
	Code         string        `gorm:"size:6;not null;uniqueIndex" json:"code"`
	HostID       string        `gorm:"size:64;not null;index" json:"hostId"`
	WorkoutType  string        `gorm:"size:20" json:"workoutType"`
	IntervalPlan IntervalPlan  `gorm:"serializer:json" json:"intervalPlan"`
	Status       string        `gorm:"size:20;not null;default:'waiting'" json:"status"`
	Participants []Participant `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"participants"`
	StartedAt    *time.Time    `json:"startedAt"`
	FinishedAt   *time.Time    `json:"finishedAt"`
	CreatedAt    time.Time     `json:"createdAt"`
	ExpiresAt    time.Time     `gorm:"index" json:"expiresAt"`
}

const (
	SessionStatusWaiting   = "waiting"
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"

	WorkoutTypeNone     = ""
	WorkoutTypeJustRow  = "just-row"
	WorkoutTypeInterval = "interval"
)

// SessionTTL bounds the lifetime of every session record; once ExpiresAt
// passes, the row and its participants are gone regardless of status.
const SessionTTL = 24 * time.Hour

type IntervalSegment struct {
	Type           string  `json:"type"`
	Duration       int     `json:"duration"`
	TargetPace     float64 `json:"targetPace,omitempty"`
	TargetDistance float64 `json:"targetDistance,omitempty"`
}

const (
	SegmentTypeWork = "work"
	SegmentTypeRest = "rest"
)

type IntervalPlan []IntervalSegment

// MarshalJSON keeps the client projection stable: a session that never had
// a plan set still serializes as an empty list, not null.
func (p IntervalPlan) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]IntervalSegment(p))
}
