// services/user_service.go
package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"strings"
	"time"

	"family-reward-system/models"
	"family-reward-system/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// UserService is the user directory: registration, profiles, photo upload
// and the password-reset flow. Login tokens are the gateway's concern; this
// service only stores credentials and identity data.
type UserService struct {
	DB       *gorm.DB
	Mailer   utils.EmailSender
	validate *validator.Validate
	titler   cases.Caser
}

func NewUserService(db *gorm.DB, mailer utils.EmailSender) *UserService {
	return &UserService{
		DB:       db,
		Mailer:   mailer,
		validate: validator.New(),
		titler:   cases.Title(language.Und),
	}
}

type RegisterInput struct {
	FullName     string  `json:"full_name" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	IsDependent  bool    `json:"is_dependent"`
	MasterUserID *string `json:"master_user_id" validate:"omitempty,uuid"`
}

func validatePasswordPolicy(password string) error {
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return fmt.Errorf("%w: password must contain upper case, lower case and digit characters", ErrValidation)
	}
	return nil
}

// Register creates a user with a bcrypt-hashed password. A dependent must
// carry a master user reference; the email must be unused.
func (s *UserService) Register(input RegisterInput) (*models.User, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validatePasswordPolicy(input.Password); err != nil {
		return nil, err
	}
	if input.IsDependent && input.MasterUserID == nil {
		return nil, fmt.Errorf("%w: dependent registration requires a master user", ErrValidation)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: the provided email is already registered", ErrConflict)
	}

	var masterID *string
	if input.IsDependent {
		var master models.User
		if err := s.DB.Where("id = ?", *input.MasterUserID).First(&master).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: master user not found", ErrNotFound)
			}
			return nil, err
		}
		if master.IsDependent {
			return nil, fmt.Errorf("%w: a dependent cannot be a master user", ErrValidation)
		}
		masterID = input.MasterUserID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:           uuid.NewString(),
		FullName:     s.titler.String(strings.TrimSpace(input.FullName)),
		Email:        email,
		PasswordHash: string(hash),
		IsDependent:  input.IsDependent,
		MasterUserID: masterID,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, err
	}

	log.Printf("[User] Registered %s (dependent=%t)", user.Email, user.IsDependent)
	return &user, nil
}

// UserProfile aggregates a user's activity across groups.
type UserProfile struct {
	User                models.User                 `json:"user"`
	CreatedChallenges   []models.Challenge          `json:"created_challenges"`
	CompletedChallenges []models.CompletedChallenge `json:"completed_challenges"`
	RedeemedRewards     []models.RewardTransaction  `json:"redeemed_rewards"`
}

// Profile returns the aggregate view. Only the user themselves, or the
// master of a dependent, may look.
func (s *UserService) Profile(userID, requestingUserID string) (*UserProfile, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}

	if requestingUserID != userID {
		if !user.IsDependent || user.MasterUserID == nil || *user.MasterUserID != requestingUserID {
			return nil, ErrUnauthorized
		}
	}

	var created []models.Challenge
	if err := s.DB.Where("created_by_id = ?", userID).Find(&created).Error; err != nil {
		return nil, err
	}

	var completed []models.CompletedChallenge
	if err := s.DB.Where("user_id = ? AND is_validated = ?", userID, true).Find(&completed).Error; err != nil {
		return nil, err
	}

	var redeemed []models.RewardTransaction
	if err := s.DB.Where("user_id = ?", userID).Find(&redeemed).Error; err != nil {
		return nil, err
	}

	return &UserProfile{
		User:                *user,
		CreatedChallenges:   created,
		CompletedChallenges: completed,
		RedeemedRewards:     redeemed,
	}, nil
}

// FindByEmail is the lookup the invite and dependent flows use.
func (s *UserService) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// UploadProfilePhoto validates the file, pushes it to R2 and stores the URL.
func (s *UserService) UploadProfilePhoto(userID string, photo *multipart.FileHeader) (string, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return "", err
	}
	if err := utils.ValidatePhoto(photo); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	key := utils.PhotoKey("profile-photos", user.FullName, photo.Filename)
	url, err := utils.UploadFileToR2(photo, key)
	if err != nil {
		return "", err
	}

	if err := s.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("profile_photo_url", url).Error; err != nil {
		return "", err
	}
	return url, nil
}

// ForgotPassword issues a reset token and emails the reset link. The token
// expires after one hour.
func (s *UserService) ForgotPassword(email string) error {
	user, err := s.FindByEmail(email)
	if err != nil {
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	token := base64.URLEncoding.EncodeToString(raw)
	expires := time.Now().UTC().Add(time.Hour)

	if err := s.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"reset_token":            token,
		"reset_token_expires_at": expires,
	}).Error; err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", os.Getenv("CLIENT_APP_URL"), token)
	body := fmt.Sprintf("<p>Click <a href=%q>here</a> to reset your password. The link expires in one hour.</p>", resetURL)
	if err := s.Mailer.SendEmail(user.Email, "Password Reset", body); err != nil {
		log.Printf("[User] Reset email to %s failed: %v", user.Email, err)
		return err
	}
	return nil
}

type ResetPasswordInput struct {
	Email       string `json:"email" validate:"required,email"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ResetPassword consumes a valid token and re-hashes the password.
func (s *UserService) ResetPassword(input ResetPasswordInput) error {
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validatePasswordPolicy(input.NewPassword); err != nil {
		return err
	}

	user, err := s.FindByEmail(input.Email)
	if err != nil {
		return err
	}
	if user.ResetToken == nil || *user.ResetToken != input.Token {
		return fmt.Errorf("%w: invalid reset token", ErrUnauthorized)
	}
	if user.ResetTokenExpiresAt == nil || user.ResetTokenExpiresAt.Before(time.Now().UTC()) {
		return fmt.Errorf("%w: reset token has expired", ErrUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"password_hash":          string(hash),
		"reset_token":            nil,
		"reset_token_expires_at": nil,
	}).Error
}

func (s *UserService) getUser(userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}
