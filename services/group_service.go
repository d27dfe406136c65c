// services/group_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"path/filepath"
	"time"

	"family-reward-system/models"
	"family-reward-system/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// GroupService owns the group roster, dependent relationships and the
// authorization predicates the other services consume.
type GroupService struct {
	DB       *gorm.DB
	Mailer   utils.EmailSender
	validate *validator.Validate
}

func NewGroupService(db *gorm.DB, mailer utils.EmailSender) *GroupService {
	return &GroupService{DB: db, Mailer: mailer, validate: validator.New()}
}

type CreateGroupInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"required"`
	PhotoURL    string `json:"photo_url" validate:"omitempty,max=200"`
}

// GroupDetails is the aggregate view returned by Details.
type GroupDetails struct {
	Group      models.Group       `json:"group"`
	Members    []models.User      `json:"members"`
	Challenges []models.Challenge `json:"challenges"`
	Rewards    []models.Reward    `json:"rewards"`
}

// Create inserts the group and the creator's membership row in one unit,
// so the creator is a member from the first commit.
func (s *GroupService) Create(input CreateGroupInput, creatorID string) (*models.Group, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	group := models.Group{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		CreatedByID: creatorID,
	}
	if input.PhotoURL != "" {
		group.PhotoURL = input.PhotoURL
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMember{
			ID:       uuid.NewString(),
			GroupID:  group.ID,
			UserID:   creatorID,
			JoinedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Details loads the group with its roster, challenges and rewards through
// explicit joins.
func (s *GroupService) Details(groupID string) (*GroupDetails, error) {
	group, err := s.getGroup(groupID)
	if err != nil {
		return nil, err
	}

	var members []models.User
	if err := s.DB.
		Joins("JOIN group_members ON group_members.user_id = users.id").
		Where("group_members.group_id = ?", groupID).
		Find(&members).Error; err != nil {
		return nil, err
	}

	var challenges []models.Challenge
	if err := s.DB.Where("group_id = ?", groupID).Find(&challenges).Error; err != nil {
		return nil, err
	}

	var rewards []models.Reward
	if err := s.DB.Where("group_id = ?", groupID).Find(&rewards).Error; err != nil {
		return nil, err
	}

	return &GroupDetails{Group: *group, Members: members, Challenges: challenges, Rewards: rewards}, nil
}

// ListCreatedBy returns all groups created by the user.
func (s *GroupService) ListCreatedBy(userID string) ([]models.Group, error) {
	var groups []models.Group
	if err := s.DB.Where("created_by_id = ?", userID).Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

type UpdateGroupInput struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	PhotoURL *string `json:"photo_url" validate:"omitempty,max=200"`
}

// Update edits name/photo, creator only. Rejects a name already used by
// another of the creator's groups.
func (s *GroupService) Update(groupID string, input UpdateGroupInput, callerID string) (*models.Group, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	group, err := s.getGroup(groupID)
	if err != nil {
		return nil, err
	}
	if group.CreatedByID != callerID {
		return nil, ErrUnauthorized
	}

	if input.Name != nil && *input.Name != group.Name {
		var count int64
		if err := s.DB.Model(&models.Group{}).
			Where("created_by_id = ? AND name = ? AND id <> ?", callerID, *input.Name, groupID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: a group with the same name already exists", ErrConflict)
		}
		group.Name = *input.Name
	}
	if input.PhotoURL != nil {
		group.PhotoURL = *input.PhotoURL
	}

	if err := s.DB.Save(group).Error; err != nil {
		return nil, err
	}
	return group, nil
}

// UploadPhoto stores the group photo under uploads/group-photos and points
// PhotoURL at the statically served path. Creator only.
func (s *GroupService) UploadPhoto(groupID string, photo *multipart.FileHeader, callerID string) (string, error) {
	group, err := s.getGroup(groupID)
	if err != nil {
		return "", err
	}
	if group.CreatedByID != callerID {
		return "", ErrUnauthorized
	}
	if err := utils.ValidatePhoto(photo); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	ext := filepath.Ext(photo.Filename)
	name := filepath.Join("group-photos", fmt.Sprintf("%s-%s%s", slug.Make(group.Name), uuid.NewString(), ext))
	if err := utils.SaveFile(photo, utils.GetUploadPath(name)); err != nil {
		return "", err
	}

	url := "/uploads/" + filepath.ToSlash(name)
	if err := s.DB.Model(&models.Group{}).Where("id = ?", groupID).
		Update("photo_url", url).Error; err != nil {
		return "", err
	}
	return url, nil
}

// Delete removes the group and its membership rows, creator only.
func (s *GroupService) Delete(groupID, callerID string) error {
	group, err := s.getGroup(groupID)
	if err != nil {
		return err
	}
	if group.CreatedByID != callerID {
		return ErrUnauthorized
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, "id = ?", groupID).Error
	})
}

// AddMember inserts a membership row. Duplicate adds are ErrConflict.
func (s *GroupService) AddMember(groupID, userID string) error {
	if _, err := s.getGroup(groupID); err != nil {
		return err
	}
	if err := s.userExists(userID); err != nil {
		return err
	}

	member, err := s.IsMember(groupID, userID)
	if err != nil {
		return err
	}
	if member {
		return fmt.Errorf("%w: user is already a member of the group", ErrConflict)
	}

	return s.DB.Create(&models.GroupMember{
		ID:       uuid.NewString(),
		GroupID:  groupID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}).Error
}

// RemoveMember deletes the membership row. ErrNotFound when the user is not
// in the group.
func (s *GroupService) RemoveMember(groupID, userID string) error {
	if _, err := s.getGroup(groupID); err != nil {
		return err
	}

	result := s.DB.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: member not found in group", ErrNotFound)
	}
	return nil
}

// InviteMember emails an invitation to an existing user, creator only.
// Membership is granted when the invitee calls AcceptInvite.
func (s *GroupService) InviteMember(groupID, email, callerID string) error {
	group, err := s.getGroup(groupID)
	if err != nil {
		return err
	}
	if group.CreatedByID != callerID {
		return ErrUnauthorized
	}

	var user models.User
	if err := s.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no user with the provided email", ErrNotFound)
		}
		return err
	}

	member, err := s.IsMember(groupID, user.ID)
	if err != nil {
		return err
	}
	if member {
		return fmt.Errorf("%w: user is already a member of the group", ErrConflict)
	}

	body := fmt.Sprintf("<p>You have been invited to join the group <strong>%s</strong>.</p>", group.Name)
	if err := s.Mailer.SendEmail(user.Email, "Group invitation", body); err != nil {
		// The invite can still be accepted; delivery failure is not fatal.
		log.Printf("[Group] Invite email to %s failed: %v", user.Email, err)
	}
	return nil
}

// AcceptInvite adds the user to the group.
func (s *GroupService) AcceptInvite(groupID, userID string) error {
	return s.AddMember(groupID, userID)
}

// MarkDependent flags an existing member as a dependent of the group
// creator. Caller must be the creator and not a dependent themselves.
func (s *GroupService) MarkDependent(groupID, userID, callerID string) error {
	group, err := s.getGroup(groupID)
	if err != nil {
		return err
	}
	if group.CreatedByID != callerID {
		return ErrUnauthorized
	}
	if err := s.ensureCanBeMaster(callerID); err != nil {
		return err
	}

	member, err := s.IsMember(groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("%w: member not found in group", ErrNotFound)
	}

	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"is_dependent": true, "master_user_id": callerID}).Error
}

// AddDependent looks a user up by email, joins them to the group and links
// them to the creator, all in one unit. Creator only.
func (s *GroupService) AddDependent(groupID, dependentEmail, callerID string) error {
	group, err := s.getGroup(groupID)
	if err != nil {
		return err
	}
	if group.CreatedByID != callerID {
		return ErrUnauthorized
	}
	if err := s.ensureCanBeMaster(callerID); err != nil {
		return err
	}

	var dependent models.User
	if err := s.DB.Where("email = ?", dependentEmail).First(&dependent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no user with the provided email", ErrNotFound)
		}
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		member, err := s.isMemberTx(tx, groupID, dependent.ID)
		if err != nil {
			return err
		}
		if !member {
			if err := tx.Create(&models.GroupMember{
				ID:       uuid.NewString(),
				GroupID:  groupID,
				UserID:   dependent.ID,
				JoinedAt: time.Now().UTC(),
			}).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.User{}).
			Where("id = ?", dependent.ID).
			Updates(map[string]any{"is_dependent": true, "master_user_id": callerID}).Error
	})
}

// RemoveDependent drops the dependent from the group and clears the master
// link. Creator only.
func (s *GroupService) RemoveDependent(groupID, userID, callerID string) error {
	group, err := s.getGroup(groupID)
	if err != nil {
		return err
	}
	if group.CreatedByID != callerID {
		return ErrUnauthorized
	}

	var dependent models.User
	if err := s.DB.Where("id = ? AND is_dependent = ?", userID, true).First(&dependent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: dependent not found", ErrNotFound)
		}
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).
			Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{"is_dependent": false, "master_user_id": nil}).Error
	})
}

// ListDependents returns dependent members of the group, creator only.
func (s *GroupService) ListDependents(groupID, callerID string) ([]models.User, error) {
	group, err := s.getGroup(groupID)
	if err != nil {
		return nil, err
	}
	if group.CreatedByID != callerID {
		return nil, ErrUnauthorized
	}

	var dependents []models.User
	if err := s.DB.
		Joins("JOIN group_members ON group_members.user_id = users.id").
		Where("group_members.group_id = ? AND users.is_dependent = ?", groupID, true).
		Find(&dependents).Error; err != nil {
		return nil, err
	}
	return dependents, nil
}

// --- Authorization predicates ---

// IsCreator reports whether the user created the group.
func (s *GroupService) IsCreator(groupID, userID string) (bool, error) {
	group, err := s.getGroup(groupID)
	if err != nil {
		return false, err
	}
	return group.CreatedByID == userID, nil
}

// IsMember reports whether a membership row exists.
func (s *GroupService) IsMember(groupID, userID string) (bool, error) {
	return s.isMemberTx(s.DB, groupID, userID)
}

func (s *GroupService) isMemberTx(tx *gorm.DB, groupID, userID string) (bool, error) {
	var count int64
	err := tx.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// CanValidate reports whether the user may validate completions of the
// challenge (i.e. is its creator).
func (s *GroupService) CanValidate(challenge *models.Challenge, userID string) bool {
	return challenge.CreatedByID == userID
}

// CanComplete reports whether the user may claim completion: assigned to the
// challenge, or a dependent of its creator.
func (s *GroupService) CanComplete(challenge *models.Challenge, userID string) (bool, error) {
	var count int64
	if err := s.DB.Model(&models.ChallengeAssignment{}).
		Where("challenge_id = ? AND user_id = ?", challenge.ID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.MasterUserID != nil && *user.MasterUserID == challenge.CreatedByID, nil
}

func (s *GroupService) getGroup(groupID string) (*models.Group, error) {
	var group models.Group
	if err := s.DB.Where("id = ?", groupID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: group not found", ErrNotFound)
		}
		return nil, err
	}
	return &group, nil
}

// ensureCanBeMaster rejects a dependent being installed as someone's master.
func (s *GroupService) ensureCanBeMaster(userID string) error {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return err
	}
	if user.IsDependent {
		return fmt.Errorf("%w: a dependent cannot be a master user", ErrValidation)
	}
	return nil
}

func (s *GroupService) userExists(userID string) error {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: user not found", ErrNotFound)
	}
	return nil
}
