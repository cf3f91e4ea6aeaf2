package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ovtnc/RowCoach/internal/models"

	"gorm.io/gorm"
)

// MultiRowService is the canonical session lifecycle. Both transports (the
// websocket layer and the plain HTTP facade) call the same operations; the
// places where their behavior differs are explicit parameters here
// (forceActive on UpdateStats, FinishParticipant vs FinishSession) rather
// than duplicated logic.
type MultiRowService struct {
	db      *gorm.DB
	genCode func() string
}

func NewMultiRowService(db *gorm.DB) *MultiRowService {
	return &MultiRowService{db: db, genCode: NewCodeGenerator().Generate}
}

// StatsUpdate carries a partial metric set; nil fields are left untouched,
// supplied fields overwrite wholesale (last write wins).
type StatsUpdate struct {
	Distance *float64 `json:"distance"`
	Strokes  *int     `json:"strokes"`
	SPM      *int     `json:"spm"`
	Split    *float64 `json:"split"`
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *MultiRowService) findByCode(tx *gorm.DB, code string) (*models.Session, error) {
	var session models.Session
	err := tx.Where("code = ? AND expires_at > ?", code, time.Now()).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// uniqueCode regenerates until the code hits no existing row. The check is
// against all rows, not just live ones, so an expired session the sweeper
// has not reached yet cannot trip the unique index.
func (s *MultiRowService) uniqueCode(tx *gorm.DB) (string, error) {
	for {
		code := s.genCode()
		var count int64
		if err := tx.Model(&models.Session{}).
			Where("code = ?", code).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
}

func (s *MultiRowService) CreateSession(hostID, hostName string) (*models.Session, error) {
	if strings.TrimSpace(hostID) == "" || strings.TrimSpace(hostName) == "" {
		return nil, fmt.Errorf("%w: host id and name are required", ErrInvalidInput)
	}

	now := time.Now()
	session := models.Session{
		HostID:    hostID,
		Status:    models.SessionStatusWaiting,
		CreatedAt: now,
		ExpiresAt: now.Add(models.SessionTTL),
		Participants: []models.Participant{{
			UserID:   hostID,
			Name:     hostName,
			IsHost:   true,
			Status:   models.ParticipantStatusReady,
			JoinedAt: now,
		}},
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		code, err := s.uniqueCode(tx)
		if err != nil {
			return err
		}
		session.Code = code
		return tx.Create(&session).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetSession(session.Code)
}

func (s *MultiRowService) JoinSession(code, userID, userName string) (*models.Session, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(userID) == "" || strings.TrimSpace(userName) == "" {
		return nil, fmt.Errorf("%w: code, user id and name are required", ErrInvalidInput)
	}
	code = NormalizeCode(code)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.findByCode(tx, code)
		if err != nil {
			return err
		}
		// A started or completed session is indistinguishable from a
		// missing one to a late joiner.
		if session.Status != models.SessionStatusWaiting {
			return fmt.Errorf("%w: session already started", ErrNotFound)
		}

		var count int64
		if err := tx.Model(&models.Participant{}).
			Where("session_id = ? AND user_id = ?", session.ID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyJoined
		}

		participant := models.Participant{
			SessionID: session.ID,
			UserID:    userID,
			Name:      userName,
			Status:    models.ParticipantStatusReady,
			JoinedAt:  time.Now(),
		}
		return tx.Create(&participant).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetSession(code)
}

func (s *MultiRowService) SetWorkoutType(code, userID, workoutType string) (*models.Session, error) {
	if workoutType != models.WorkoutTypeJustRow && workoutType != models.WorkoutTypeInterval {
		return nil, fmt.Errorf("%w: unknown workout type %q", ErrInvalidInput, workoutType)
	}
	code = NormalizeCode(code)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.findByCode(tx, code)
		if err != nil {
			return err
		}
		if session.HostID != userID {
			return ErrForbidden
		}
		if session.Status != models.SessionStatusWaiting {
			return fmt.Errorf("%w: workout type is locked once the session starts", ErrInvalidState)
		}
		session.WorkoutType = workoutType
		return tx.Save(session).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetSession(code)
}

func (s *MultiRowService) SetIntervalPlan(code, userID string, plan models.IntervalPlan) (*models.Session, error) {
	for i, seg := range plan {
		if seg.Type != models.SegmentTypeWork && seg.Type != models.SegmentTypeRest {
			return nil, fmt.Errorf("%w: segment %d has unknown type %q", ErrInvalidInput, i, seg.Type)
		}
		if seg.Duration <= 0 {
			return nil, fmt.Errorf("%w: segment %d needs a positive duration", ErrInvalidInput, i)
		}
	}
	if plan == nil {
		plan = models.IntervalPlan{}
	}
	code = NormalizeCode(code)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.findByCode(tx, code)
		if err != nil {
			return err
		}
		if session.HostID != userID {
			return ErrForbidden
		}
		if session.WorkoutType != models.WorkoutTypeInterval {
			return fmt.Errorf("%w: workout type must be interval", ErrInvalidState)
		}
		if session.Status != models.SessionStatusWaiting {
			return fmt.Errorf("%w: interval plan is locked once the session starts", ErrInvalidState)
		}
		session.IntervalPlan = plan
		return tx.Save(session).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetSession(code)
}

func (s *MultiRowService) StartSession(code, userID string) (*models.Session, error) {
	code = NormalizeCode(code)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.findByCode(tx, code)
		if err != nil {
			return err
		}
		if session.HostID != userID {
			return ErrForbidden
		}
		if session.Status != models.SessionStatusWaiting {
			return fmt.Errorf("%w: session already started", ErrInvalidState)
		}
		now := time.Now()
		session.Status = models.SessionStatusActive
		session.StartedAt = &now
		return tx.Save(session).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetSession(code)
}

// UpdateStats overwrites the supplied metric fields of one participant.
// The websocket path passes forceActive=true so a rower reporting numbers
// is shown as active; the polling facade passes false and leaves the
// participant status alone.
func (s *MultiRowService) UpdateStats(code, userID string, stats StatsUpdate, forceActive bool) (*models.Participant, error) {
	code = NormalizeCode(code)

	var participant models.Participant
	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.findByCode(tx, code)
		if err != nil {
			return err
		}
		if err := tx.Where("session_id = ? AND user_id = ?", session.ID, userID).
			First(&participant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: participant %s", ErrNotFound, userID)
			}
			return err
		}

		if stats.Distance != nil {
			participant.Distance = *stats.Distance
		}
		if stats.Strokes != nil {
			participant.Strokes = *stats.Strokes
		}
		if stats.SPM != nil {
			participant.SPM = *stats.SPM
		}
		if stats.Split != nil {
			participant.Split = *stats.Split
		}
		if forceActive {
			participant.Status = models.ParticipantStatusActive
		}
		return tx.Save(&participant).Error
	})
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// FinishParticipant marks one rower finished and reports whether that was
// the last one, in which case the whole session is completed in the same
// transaction.
func (s *MultiRowService) FinishParticipant(code, userID string) (bool, error) {
	code = NormalizeCode(code)

	completed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.findByCode(tx, code)
		if err != nil {
			return err
		}
		var participant models.Participant
		if err := tx.Where("session_id = ? AND user_id = ?", session.ID, userID).
			First(&participant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: participant %s", ErrNotFound, userID)
			}
			return err
		}

		if err := tx.Model(&participant).
			Update("status", models.ParticipantStatusFinished).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.Participant{}).
			Where("session_id = ? AND status <> ?", session.ID, models.ParticipantStatusFinished).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 && session.Status != models.SessionStatusCompleted {
			now := time.Now()
			session.Status = models.SessionStatusCompleted
			session.FinishedAt = &now
			if err := tx.Save(session).Error; err != nil {
				return err
			}
			completed = true
		}
		return nil
	})
	return completed, err
}

// FinishSession is the administrative override: it completes the session
// regardless of participant states.
func (s *MultiRowService) FinishSession(code string) (*models.Session, error) {
	code = NormalizeCode(code)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		session, err := s.findByCode(tx, code)
		if err != nil {
			return err
		}
		now := time.Now()
		session.Status = models.SessionStatusCompleted
		session.FinishedAt = &now
		return tx.Save(session).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetSession(code)
}

func (s *MultiRowService) GetSession(code string) (*models.Session, error) {
	code = NormalizeCode(code)

	var session models.Session
	err := s.db.Where("code = ? AND expires_at > ?", code, time.Now()).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}
