// services/challenge_service_test.go
package services

import (
	"testing"
	"time"

	"family-reward-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newChallengeFixture(t *testing.T) (*ChallengeService, *CoinLedgerService, *models.User, *models.User, *models.Group) {
	t.Helper()
	db := newTestDB(t)
	ledger := NewCoinLedgerService(db)
	groups := NewGroupService(db, &fakeMailer{})
	challenges := NewChallengeService(db, ledger, groups)

	parent := seedUser(t, db, "Maria Costa", "maria@example.com")
	child := seedUser(t, db, "Pedro Costa", "pedro@example.com")
	group := seedGroup(t, db, parent.ID)
	seedMember(t, db, group.ID, child.ID)

	return challenges, ledger, parent, child, group
}

func TestCreateChallenge(t *testing.T) {
	challenges, _, parent, _, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Wash the dishes",
		Description: "every plate, every day",
		CoinValue:   10,
	}, parent.ID)
	require.NoError(t, err)
	require.Equal(t, models.ChallengeStatusActive, challenge.Status)
	require.Equal(t, parent.ID, challenge.CreatedByID)
}

func TestCreateChallengeRejectsInvertedDates(t *testing.T) {
	challenges, _, parent, _, group := newChallengeFixture(t)

	start := time.Now().UTC().Add(48 * time.Hour)
	end := time.Now().UTC().Add(24 * time.Hour)
	_, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Backwards",
		Description: "bad dates",
		CoinValue:   10,
		StartDate:   &start,
		EndDate:     &end,
	}, parent.ID)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateChallengeRejectsZeroCoinValue(t *testing.T) {
	challenges, _, parent, _, group := newChallengeFixture(t)

	_, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Worthless",
		Description: "no coins",
		CoinValue:   0,
	}, parent.ID)
	require.ErrorIs(t, err, ErrValidation)
}

func TestMarkCompletedDoesNotCredit(t *testing.T) {
	challenges, ledger, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)
	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID}))

	claim, err := challenges.MarkCompleted(challenge.ID, child.ID)
	require.NoError(t, err)
	require.False(t, claim.IsValidated)

	// No payout until the creator validates.
	_, err = ledger.GetBalance(child.ID, group.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkCompletedTwiceIsConflict(t *testing.T) {
	challenges, _, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)
	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID}))

	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.NoError(t, err)

	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.ErrorIs(t, err, ErrConflict)
}

func TestMarkCompletedDuplicateRowIsConflict(t *testing.T) {
	challenges, _, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)
	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID}))

	// A claim committed by a parallel request lands as ErrConflict, not as a
	// raw unique-index failure.
	require.NoError(t, challenges.DB.Create(&models.CompletedChallenge{
		ID:            uuid.NewString(),
		ChallengeID:   challenge.ID,
		UserID:        child.ID,
		CompletedDate: time.Now().UTC(),
	}).Error)

	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.ErrorIs(t, err, ErrConflict)
}

func TestMarkCompletedRequiresAssignmentOrDependent(t *testing.T) {
	challenges, _, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)

	// Not assigned, not a dependent.
	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	// A dependent of the creator may claim without an assignment row.
	require.NoError(t, challenges.DB.Model(&models.User{}).
		Where("id = ?", child.ID).
		Updates(map[string]any{"is_dependent": true, "master_user_id": parent.ID}).Error)

	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.NoError(t, err)
}

func TestMarkCompletedExpiredChallenge(t *testing.T) {
	challenges, _, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Old chore",
		Description: "window closed",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)
	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID}))

	require.NoError(t, challenges.DB.Model(&models.Challenge{}).
		Where("id = ?", challenge.ID).
		Update("status", models.ChallengeStatusExpired).Error)

	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.ErrorIs(t, err, ErrValidation)
}

func TestValidateCompletionCreditsExactlyOnce(t *testing.T) {
	challenges, ledger, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)
	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID}))

	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.NoError(t, err)

	claim, err := challenges.ValidateCompletion(challenge.ID, child.ID, true, parent.ID)
	require.NoError(t, err)
	require.True(t, claim.IsValidated)

	balance, err := ledger.GetBalance(child.ID, group.ID)
	require.NoError(t, err)
	require.Equal(t, 25, balance.Balance)

	// Re-validation must not pay a second time.
	_, err = challenges.ValidateCompletion(challenge.ID, child.ID, true, parent.ID)
	require.NoError(t, err)

	balance, err = ledger.GetBalance(child.ID, group.ID)
	require.NoError(t, err)
	require.Equal(t, 25, balance.Balance)

	transactions, err := ledger.ListTransactions(TransactionFilter{UserID: child.ID, GroupID: group.ID})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
}

func TestValidateCompletionToggleDoesNotPayTwice(t *testing.T) {
	challenges, ledger, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)
	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID}))

	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.NoError(t, err)

	// Confirm, reject, confirm again: only the first confirmation pays.
	_, err = challenges.ValidateCompletion(challenge.ID, child.ID, true, parent.ID)
	require.NoError(t, err)

	claim, err := challenges.ValidateCompletion(challenge.ID, child.ID, false, parent.ID)
	require.NoError(t, err)
	require.False(t, claim.IsValidated)

	claim, err = challenges.ValidateCompletion(challenge.ID, child.ID, true, parent.ID)
	require.NoError(t, err)
	require.True(t, claim.IsValidated)

	balance, err := ledger.GetBalance(child.ID, group.ID)
	require.NoError(t, err)
	require.Equal(t, 25, balance.Balance)

	transactions, err := ledger.ListTransactions(TransactionFilter{UserID: child.ID, GroupID: group.ID})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
}

func TestValidateCompletionRejectionNeverPays(t *testing.T) {
	challenges, ledger, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)
	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID}))

	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.NoError(t, err)

	claim, err := challenges.ValidateCompletion(challenge.ID, child.ID, false, parent.ID)
	require.NoError(t, err)
	require.False(t, claim.IsValidated)

	_, err = ledger.GetBalance(child.ID, group.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidateCompletionCreatorOnly(t *testing.T) {
	challenges, _, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)
	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID}))

	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.NoError(t, err)

	_, err = challenges.ValidateCompletion(challenge.ID, child.ID, true, child.ID)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidateCompletionWithoutClaim(t *testing.T) {
	challenges, _, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)

	_, err = challenges.ValidateCompletion(challenge.ID, child.ID, true, parent.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAssignUsersIsIdempotent(t *testing.T) {
	challenges, _, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)

	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID, "no-such-user"}))
	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID}))

	var count int64
	require.NoError(t, challenges.DB.Model(&models.ChallengeAssignment{}).
		Where("challenge_id = ?", challenge.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestUpdateChallengeCreatorOnly(t *testing.T) {
	challenges, _, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)

	newName := "Homework v2"
	_, err = challenges.Update(challenge.ID, UpdateChallengeInput{Name: &newName}, child.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	updated, err := challenges.Update(challenge.ID, UpdateChallengeInput{Name: &newName}, parent.ID)
	require.NoError(t, err)
	require.Equal(t, "Homework v2", updated.Name)
}

func TestDeleteChallengeKeepsClaims(t *testing.T) {
	challenges, _, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)
	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID}))

	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.NoError(t, err)

	require.NoError(t, challenges.Delete(challenge.ID, parent.ID))

	var assignments int64
	require.NoError(t, challenges.DB.Model(&models.ChallengeAssignment{}).
		Where("challenge_id = ?", challenge.ID).Count(&assignments).Error)
	require.Zero(t, assignments)

	var claims int64
	require.NoError(t, challenges.DB.Model(&models.CompletedChallenge{}).
		Where("challenge_id = ?", challenge.ID).Count(&claims).Error)
	require.EqualValues(t, 1, claims)
}

func TestListPendingValidation(t *testing.T) {
	challenges, _, parent, child, group := newChallengeFixture(t)

	challenge, err := challenges.Create(CreateChallengeInput{
		GroupID:     group.ID,
		Name:        "Homework",
		Description: "finish before dinner",
		CoinValue:   25,
	}, parent.ID)
	require.NoError(t, err)
	require.NoError(t, challenges.AssignUsers(challenge.ID, []string{child.ID}))

	_, err = challenges.MarkCompleted(challenge.ID, child.ID)
	require.NoError(t, err)

	pending, err := challenges.ListPendingValidation(parent.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = challenges.ValidateCompletion(challenge.ID, child.ID, true, parent.ID)
	require.NoError(t, err)

	pending, err = challenges.ListPendingValidation(parent.ID)
	require.NoError(t, err)
	require.Empty(t, pending)
}
