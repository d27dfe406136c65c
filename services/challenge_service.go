// services/challenge_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"family-reward-system/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChallengeService tracks challenge definitions, assignments, completion
// claims and validation. Coins are paid out once, at validation time: a
// completion claim alone never moves a balance, which keeps "pending until
// validated" meaning what it says.
type ChallengeService struct {
	DB       *gorm.DB
	Ledger   *CoinLedgerService
	Groups   *GroupService
	validate *validator.Validate
}

func NewChallengeService(db *gorm.DB, ledger *CoinLedgerService, groups *GroupService) *ChallengeService {
	return &ChallengeService{DB: db, Ledger: ledger, Groups: groups, validate: validator.New()}
}

type CreateChallengeInput struct {
	GroupID     string     `json:"group_id" validate:"required,uuid"`
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description" validate:"required"`
	CoinValue   int        `json:"coin_value" validate:"required,gt=0"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsDaily     bool       `json:"is_daily"`
}

// Create validates the input, resolves the group and inserts the challenge
// with the caller as creator.
func (s *ChallengeService) Create(input CreateChallengeInput, creatorID string) (*models.Challenge, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if input.StartDate != nil && input.EndDate != nil && !input.StartDate.Before(*input.EndDate) {
		return nil, fmt.Errorf("%w: start date must be before end date", ErrValidation)
	}
	if _, err := s.Groups.getGroup(input.GroupID); err != nil {
		return nil, err
	}

	challenge := models.Challenge{
		ID:          uuid.NewString(),
		GroupID:     input.GroupID,
		CreatedByID: creatorID,
		Name:        input.Name,
		Description: input.Description,
		CoinValue:   input.CoinValue,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		IsDaily:     input.IsDaily,
		Status:      models.ChallengeStatusActive,
	}
	if err := s.DB.Create(&challenge).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

type UpdateChallengeInput struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	CoinValue   *int       `json:"coin_value" validate:"omitempty,gt=0"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsDaily     *bool      `json:"is_daily"`
}

// Update edits a challenge, creator only.
func (s *ChallengeService) Update(challengeID string, input UpdateChallengeInput, callerID string) (*models.Challenge, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	challenge, err := s.getChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.CreatedByID != callerID {
		return nil, ErrUnauthorized
	}

	if input.Name != nil {
		challenge.Name = *input.Name
	}
	if input.Description != nil {
		challenge.Description = *input.Description
	}
	if input.CoinValue != nil {
		challenge.CoinValue = *input.CoinValue
	}
	if input.StartDate != nil {
		challenge.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		challenge.EndDate = input.EndDate
	}
	if input.IsDaily != nil {
		challenge.IsDaily = *input.IsDaily
	}
	if challenge.StartDate != nil && challenge.EndDate != nil && !challenge.StartDate.Before(*challenge.EndDate) {
		return nil, fmt.Errorf("%w: start date must be before end date", ErrValidation)
	}

	if err := s.DB.Save(challenge).Error; err != nil {
		return nil, err
	}
	return challenge, nil
}

// Delete removes the challenge and its assignment rows, creator only.
// Completion claims stay: the ledger history they justify is immutable.
func (s *ChallengeService) Delete(challengeID, callerID string) error {
	challenge, err := s.getChallenge(challengeID)
	if err != nil {
		return err
	}
	if challenge.CreatedByID != callerID {
		return ErrUnauthorized
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("challenge_id = ?", challengeID).Delete(&models.ChallengeAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Challenge{}, "id = ?", challengeID).Error
	})
}

// AssignUsers adds users to the challenge's assigned set. Already-assigned
// and unknown users are skipped; the call is idempotent.
func (s *ChallengeService) AssignUsers(challengeID string, userIDs []string) error {
	if _, err := s.getChallenge(challengeID); err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		for _, userID := range userIDs {
			var known int64
			if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&known).Error; err != nil {
				return err
			}
			if known == 0 {
				continue
			}

			var assigned int64
			if err := tx.Model(&models.ChallengeAssignment{}).
				Where("challenge_id = ? AND user_id = ?", challengeID, userID).
				Count(&assigned).Error; err != nil {
				return err
			}
			if assigned > 0 {
				continue
			}

			if err := tx.Create(&models.ChallengeAssignment{
				ID:          uuid.NewString(),
				ChallengeID: challengeID,
				UserID:      userID,
				AssignedAt:  time.Now().UTC(),
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkCompleted records a completion claim for (challenge, user). The user
// must be assigned, or be a dependent of the challenge creator. A second
// claim for the same pair is ErrConflict. No coins move here; payout happens
// at validation.
func (s *ChallengeService) MarkCompleted(challengeID, userID string) (*models.CompletedChallenge, error) {
	challenge, err := s.getChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Status == models.ChallengeStatusExpired {
		return nil, fmt.Errorf("%w: challenge has expired", ErrValidation)
	}

	allowed, err := s.Groups.CanComplete(challenge, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrUnauthorized
	}

	claim := models.CompletedChallenge{
		ID:            uuid.NewString(),
		ChallengeID:   challengeID,
		UserID:        userID,
		CompletedDate: time.Now().UTC(),
		IsValidated:   false,
	}

	// The unique index on (challenge_id, user_id) is the dedupe authority;
	// relying on it instead of a pre-insert count keeps concurrent claims
	// from slipping past each other.
	if err := s.DB.Create(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: challenge already completed by user", ErrConflict)
		}
		return nil, err
	}
	return &claim, nil
}

// ValidateCompletion lets the challenge creator confirm or reject a claim.
// Confirming credits the challenge's coin value to the user's balance for
// the challenge's group, exactly once: the payout is tracked in
// CoinsAwarded, so neither re-validating nor toggling the flag through a
// rejection and back pays a second time. Rejecting just leaves the flag
// false.
func (s *ChallengeService) ValidateCompletion(challengeID, userID string, isCompleted bool, callerID string) (*models.CompletedChallenge, error) {
	challenge, err := s.getChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if !s.Groups.CanValidate(challenge, callerID) {
		return nil, ErrUnauthorized
	}

	var claim models.CompletedChallenge
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("challenge_id = ? AND user_id = ?", challengeID, userID).
			First(&claim).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no completion claim for this user", ErrNotFound)
			}
			return err
		}

		claim.IsValidated = isCompleted
		payout := isCompleted && !claim.CoinsAwarded
		if payout {
			claim.CoinsAwarded = true
		}
		if err := tx.Save(&claim).Error; err != nil {
			return err
		}

		if payout {
			description := fmt.Sprintf("Challenge completed: %s", challenge.Name)
			if _, err := s.Ledger.creditTx(tx, userID, challenge.GroupID, challenge.CoinValue, description); err != nil {
				return err
			}
			log.Printf("[Challenge] Validated %s for user %s: +%d coins", challenge.Name, userID, challenge.CoinValue)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// Details returns the challenge with its assigned users.
func (s *ChallengeService) Details(challengeID string) (*models.Challenge, []models.User, error) {
	challenge, err := s.getChallenge(challengeID)
	if err != nil {
		return nil, nil, err
	}

	var assigned []models.User
	if err := s.DB.
		Joins("JOIN challenge_assignments ON challenge_assignments.user_id = users.id").
		Where("challenge_assignments.challenge_id = ?", challengeID).
		Find(&assigned).Error; err != nil {
		return nil, nil, err
	}
	return challenge, assigned, nil
}

// ListCreatedBy returns challenges created by the user.
func (s *ChallengeService) ListCreatedBy(userID string) ([]models.Challenge, error) {
	var challenges []models.Challenge
	if err := s.DB.Where("created_by_id = ?", userID).Find(&challenges).Error; err != nil {
		return nil, err
	}
	return challenges, nil
}

// ListAssignedTo returns challenges the user is assigned to.
func (s *ChallengeService) ListAssignedTo(userID string) ([]models.Challenge, error) {
	var challenges []models.Challenge
	if err := s.DB.
		Joins("JOIN challenge_assignments ON challenge_assignments.challenge_id = challenges.id").
		Where("challenge_assignments.user_id = ?", userID).
		Find(&challenges).Error; err != nil {
		return nil, err
	}
	return challenges, nil
}

// ListPendingValidation returns unvalidated claims for challenges the caller
// created, oldest first.
func (s *ChallengeService) ListPendingValidation(creatorID string) ([]models.CompletedChallenge, error) {
	var claims []models.CompletedChallenge
	if err := s.DB.
		Joins("JOIN challenges ON challenges.id = completed_challenges.challenge_id").
		Where("challenges.created_by_id = ? AND completed_challenges.is_validated = ?", creatorID, false).
		Order("completed_challenges.completed_date ASC").
		Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *ChallengeService) getChallenge(challengeID string) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := s.DB.Where("id = ?", challengeID).First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: challenge not found", ErrNotFound)
		}
		return nil, err
	}
	return &challenge, nil
}
