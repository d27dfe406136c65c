// services/reward_service.go
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

// RewardService manages a group's reward catalog and redemptions. A
// redemption debits the ledger, records a RewardTransaction and appends the
// matching negative CoinTransaction in one unit; on any failure the balance
// is unchanged.
type RewardService struct {
	DB       *gorm.DB
	Ledger   *CoinLedgerService
	Groups   *GroupService
	validate *validator.Validate
}

func NewRewardService(db *gorm.DB, ledger *CoinLedgerService, groups *GroupService) *RewardService {
	return &RewardService{DB: db, Ledger: ledger, Groups: groups, validate: validator.New()}
}

type CreateRewardInput struct {
	GroupID       string `json:"group_id" validate:"required,uuid"`
	Description   string `json:"description" validate:"required"`
	RequiredCoins int    `json:"required_coins" validate:"gte=0"`
}

// Create adds a reward to the group's catalog, group creator only.
func (s *RewardService) Create(input CreateRewardInput, callerID string) (*models.Reward, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	creator, err := s.Groups.IsCreator(input.GroupID, callerID)
	if err != nil {
		return nil, err
	}
	if !creator {
		return nil, ErrUnauthorized
	}

	reward := models.Reward{
		ID:            uuid.NewString(),
		GroupID:       input.GroupID,
		Description:   input.Description,
		RequiredCoins: input.RequiredCoins,
	}
	if err := s.DB.Create(&reward).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

// Delete removes a reward, group creator only.
func (s *RewardService) Delete(rewardID, callerID string) error {
	reward, err := s.getReward(rewardID)
	if err != nil {
		return err
	}

	creator, err := s.Groups.IsCreator(reward.GroupID, callerID)
	if err != nil {
		return err
	}
	if !creator {
		return ErrUnauthorized
	}

	return s.DB.Delete(&models.Reward{}, "id = ?", rewardID).Error
}

// ListByGroup returns the group's reward catalog.
func (s *RewardService) ListByGroup(groupID string) ([]models.Reward, error) {
	var rewards []models.Reward
	if err := s.DB.Where("group_id = ?", groupID).Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

// Redeem exchanges the user's coins for the reward. The user must be a
// member of the reward's group and hold at least RequiredCoins in it.
func (s *RewardService) Redeem(rewardID, userID string) (*models.CoinBalance, error) {
	reward, err := s.getReward(rewardID)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}

	member, err := s.Groups.IsMember(reward.GroupID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: user is not a member of the reward's group", ErrNotFound)
	}

	var updated models.CoinBalance
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var balance models.CoinBalance
		if err := tx.Where("user_id = ? AND group_id = ?", userID, reward.GroupID).
			First(&balance).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no balance for user in the reward's group", ErrNotFound)
			}
			return err
		}

		// Free rewards skip the ledger; there is no zero-amount transaction.
		if reward.RequiredCoins > 0 {
			description := fmt.Sprintf("Reward redeemed: %s", reward.Description)
			debited, err := s.Ledger.debitTx(tx, userID, reward.GroupID, reward.RequiredCoins, description)
			if err != nil {
				return err
			}
			balance = *debited
		}

		if err := tx.Create(&models.RewardTransaction{
			ID:        uuid.NewString(),
			UserID:    userID,
			RewardID:  rewardID,
			Timestamp: time.Now().UTC(),
		}).Error; err != nil {
			return err
		}

		updated = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Reward] %s redeemed by user %s for %d coins", reward.Description, userID, reward.RequiredCoins)
	return &updated, nil
}

// RedeemedReward is one redemption joined with its reward.
type RedeemedReward struct {
	RewardID      string    `json:"reward_id"`
	Description   string    `json:"description"`
	RequiredCoins int       `json:"required_coins"`
	Timestamp     time.Time `json:"timestamp"`
}

// ListRedeemedByUserInGroup joins RewardTransaction rows with their rewards
// for the group. No redemptions is a successful empty list, not an error.
func (s *RewardService) ListRedeemedByUserInGroup(groupID, userID string) ([]RedeemedReward, error) {
	var redeemed []RedeemedReward
	err := s.DB.Model(&models.RewardTransaction{}).
		Select("reward_transactions.reward_id, rewards.description, rewards.required_coins, reward_transactions.timestamp").
		Joins("JOIN rewards ON rewards.id = reward_transactions.reward_id").
		Where("rewards.group_id = ? AND reward_transactions.user_id = ?", groupID, userID).
		Order("reward_transactions.timestamp DESC").
		Scan(&redeemed).Error
	if err != nil {
		return nil, err
	}
	return redeemed, nil
}

func (s *RewardService) getReward(rewardID string) (*models.Reward, error) {
	var reward models.Reward
	if err := s.DB.Where("id = ?", rewardID).First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: reward not found", ErrNotFound)
		}
		return nil, err
	}
	return &reward, nil
}
