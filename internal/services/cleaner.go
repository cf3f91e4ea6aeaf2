package services

import (
	"log"
	"time"

	"github.com/Ovtnc/RowCoach/internal/models"

	"gorm.io/gorm"
)

// ExpirySweeper destroys sessions whose 24h lifetime has passed. Lookups
// already filter on expires_at, so the sweep exists to make idle records
// actually disappear instead of lingering unreachable.
type ExpirySweeper struct {
	db       *gorm.DB
	interval time.Duration
	stop     chan struct{}
}

func NewExpirySweeper(db *gorm.DB, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{db: db, interval: interval, stop: make(chan struct{})}
}

func (s *ExpirySweeper) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if count, err := s.SweepOnce(); err != nil {
					log.Printf("sweeper: %v", err)
				} else if count > 0 {
					log.Printf("sweeper: removed %d expired sessions", count)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *ExpirySweeper) Stop() {
	close(s.stop)
}

// SweepOnce deletes every expired session and its participants, returning
// how many sessions went.
func (s *ExpirySweeper) SweepOnce() (int64, error) {
	var count int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Where("session_id IN (?)",
			tx.Model(&models.Session{}).Select("id").Where("expires_at <= ?", now),
		).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		res := tx.Where("expires_at <= ?", now).Delete(&models.Session{})
		count = res.RowsAffected
		return res.Error
	})
	return count, err
}
