package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"family-reward-system/models"
	"family-reward-system/utils"

	"gorm.io/gorm"
)

// ValidationReminder nags challenge creators about completion claims that
// have been sitting unvalidated for longer than Threshold.
type ValidationReminder struct {
	DB        *gorm.DB
	Mailer    utils.EmailSender
	Threshold time.Duration
}

func NewValidationReminder(db *gorm.DB, mailer utils.EmailSender, threshold time.Duration) *ValidationReminder {
	if threshold <= 0 {
		threshold = 24 * time.Hour
	}
	return &ValidationReminder{DB: db, Mailer: mailer, Threshold: threshold}
}

type pendingClaim struct {
	ChallengeName string
	CreatorEmail  string
	UserName      string
	CompletedDate time.Time
}

func (r *ValidationReminder) pendingClaims() ([]pendingClaim, error) {
	cutoff := time.Now().UTC().Add(-r.Threshold)

	var claims []pendingClaim
	err := r.DB.Model(&models.CompletedChallenge{}).
		Select("challenges.name AS challenge_name, creators.email AS creator_email, users.full_name AS user_name, completed_challenges.completed_date").
		Joins("JOIN challenges ON challenges.id = completed_challenges.challenge_id").
		Joins("JOIN users AS creators ON creators.id = challenges.created_by_id").
		Joins("JOIN users ON users.id = completed_challenges.user_id").
		Where("completed_challenges.is_validated = ? AND completed_challenges.completed_date <= ?", false, cutoff).
		Order("creators.email, completed_challenges.completed_date").
		Scan(&claims).Error
	return claims, err
}

func (r *ValidationReminder) sendDigests(claims []pendingClaim) {
	byCreator := make(map[string][]pendingClaim)
	for _, c := range claims {
		byCreator[c.CreatorEmail] = append(byCreator[c.CreatorEmail], c)
	}

	for email, list := range byCreator {
		body := "<p>The following completions are waiting for your validation:</p><ul>"
		for _, c := range list {
			body += fmt.Sprintf("<li>%s, claimed by %s on %s</li>",
				c.ChallengeName, c.UserName, c.CompletedDate.Format("2006-01-02"))
		}
		body += "</ul>"

		if err := r.Mailer.SendEmail(email, "Pending challenge validations", body); err != nil {
			log.Printf("[Reminder] Failed to email %s: %v", email, err)
		}
	}
}

// Run polls until the context is cancelled.
func (r *ValidationReminder) Run(ctx context.Context, interval time.Duration) {
	log.Println("Starting validation reminder worker...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Validation reminder worker stopped.")
			return
		case <-ticker.C:
			claims, err := r.pendingClaims()
			if err != nil {
				log.Printf("[Reminder] Query failed: %v", err)
				continue
			}
			if len(claims) == 0 {
				continue
			}
			log.Printf("[Reminder] %d pending claims found", len(claims))
			r.sendDigests(claims)
		}
	}
}
