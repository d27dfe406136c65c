// services/scheduler.go
package services

import (
	"log"
	"time"

	"family-reward-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartExpirySweeper flips active challenges whose end date has passed to
// expired, once a minute. Expired challenges stop accepting completions.
func (s *ChallengeService) StartExpirySweeper() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var challenges []models.Challenge
			now := time.Now().UTC()
			err := s.DB.Where("status = ? AND end_date IS NOT NULL AND end_date <= ?",
				models.ChallengeStatusActive, now).
				Find(&challenges).Error
			if err != nil {
				log.Printf("[Sweeper] DB error: %v", err)
				return
			}

			for _, c := range challenges {
				c.Status = models.ChallengeStatusExpired
				if err := s.DB.Save(&c).Error; err != nil {
					log.Printf("[Sweeper] Failed to expire challenge %s: %v", c.ID, err)
				} else {
					log.Printf("[Sweeper] Challenge expired: %s", c.Name)
				}
			}
		}),
	)
}
