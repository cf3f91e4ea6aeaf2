package models

import "time"

type Participant struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	SessionID uint      `gorm:"not null;uniqueIndex:idx_session_user" json:"-"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_session_user" json:"userId"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	IsHost    bool      `gorm:"not null;default:false" json:"isHost"`
	Distance  float64   `gorm:"not null;default:0" json:"distance"`
	Strokes   int       `gorm:"not null;default:0" json:"strokes"`
	SPM       int       `gorm:"column:spm;not null;default:0" json:"spm"`
	Split     float64   `gorm:"not null;default:0" json:"split"`
	Status    string    `gorm:"size:20;not null;default:'ready'" json:"status"`
	JoinedAt  time.Time `json:"joinedAt"`
}

const (
	ParticipantStatusReady    = "ready"
	ParticipantStatusActive   = "active"
	ParticipantStatusFinished = "finished"
)
