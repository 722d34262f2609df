package services

import (
	"context"
	"testing"

	"relief_backend/internal/models"
	"relief_backend/internal/repositories"
	"relief_backend/internal/services/dto"
	"relief_backend/internal/testutil"
	"relief_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService() UserService {
	return NewUserService(repositories.NewUserRepository(), newTestNotificationService(nil))
}

func TestVet_Decisions(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestUserService()
	ctx := context.Background()
	admin := testutil.CreateUser(t, db, "Admin", "admin@test.com", "password123", models.UserRoleAdmin, true)

	t.Run("approve pending responder", func(t *testing.T) {
		ngo := testutil.CreateUser(t, db, "NGO", "ngo@test.com", "password123", models.UserRoleNGO, false)

		resp, err := svc.Vet(ctx, db, admin, ngo.ID, &dto.VetRequest{Decision: "APPROVE"})
		require.NoError(t, err)
		assert.Equal(t, dto.VetStatusApproved, resp.Status)
		assert.True(t, resp.Verified)

		_, err = svc.Vet(ctx, db, admin, ngo.ID, &dto.VetRequest{Decision: "APPROVE"})
		assert.ErrorIs(t, err, apperrors.ErrAlreadyVetted)
	})

	t.Run("reject keeps user unverified", func(t *testing.T) {
		vol := testutil.CreateUser(t, db, "Vol", "vol@test.com", "password123", models.UserRoleVolunteer, false)

		resp, err := svc.Vet(ctx, db, admin, vol.ID, &dto.VetRequest{Decision: "REJECT"})
		require.NoError(t, err)
		assert.Equal(t, dto.VetStatusDeclined, resp.Status)
		assert.False(t, resp.Verified)
		assert.Equal(t, int64(1), countNotifications(t, db, vol.ID))
	})

	t.Run("revoke verified responder", func(t *testing.T) {
		gov := testutil.CreateUser(t, db, "Gov", "gov@test.com", "password123", models.UserRoleGovernment, true)

		resp, err := svc.Vet(ctx, db, admin, gov.ID, &dto.VetRequest{Decision: "REVOKE"})
		require.NoError(t, err)
		assert.Equal(t, dto.VetStatusRevoked, resp.Status)
		assert.False(t, resp.Verified)

		stored, err := svc.GetProfile(db, gov.ID)
		require.NoError(t, err)
		assert.False(t, stored.Verified)

		_, err = svc.Vet(ctx, db, admin, gov.ID, &dto.VetRequest{Decision: "REVOKE"})
		assert.ErrorIs(t, err, apperrors.ErrNotVetted)
	})

	t.Run("community user cannot be vetted", func(t *testing.T) {
		citizen := testutil.CreateUser(t, db, "Citizen", "citizen@test.com", "password123", models.UserRoleCommunity, false)

		_, err := svc.Vet(ctx, db, admin, citizen.ID, &dto.VetRequest{Decision: "APPROVE"})
		assert.ErrorIs(t, err, apperrors.ErrNotResponder)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Vet(ctx, db, admin, "missing", &dto.VetRequest{Decision: "APPROVE"})
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})
}

func TestResolveVetDecision_LegacyValues(t *testing.T) {
	tests := []struct {
		raw      string
		verified bool
		want     string
	}{
		{"ACCEPT", false, "APPROVE"},
		{"accept", true, "APPROVE"},
		{"DECLINE", false, "REJECT"},
		{"DECLINE", true, "REVOKE"},
		{" revoke ", true, "REVOKE"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveVetDecision(tt.raw, tt.verified), "%q verified=%v", tt.raw, tt.verified)
	}
}

func TestUpdateProfile_RoleScopedFields(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestUserService()
	ctx := context.Background()

	citizen := testutil.CreateUser(t, db, "Citizen", "citizen@test.com", "password123", models.UserRoleCommunity, false)
	vol := testutil.CreateUser(t, db, "Vol", "vol@test.com", "password123", models.UserRoleVolunteer, false)

	req := &dto.UpdateProfileRequest{
		Name:             stringPtr(" New Name "),
		BloodGroup:       stringPtr("O+"),
		OrganizationName: stringPtr("Red Cross"),
	}

	updated, err := svc.UpdateProfile(ctx, db, citizen.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "O+", updated.BloodGroup)
	assert.Empty(t, updated.OrganizationName)

	updated, err = svc.UpdateProfile(ctx, db, vol.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Red Cross", updated.OrganizationName)
	assert.Empty(t, updated.BloodGroup)
	assert.False(t, updated.Verified)
}

func TestGetUser_AdminOrSelf(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestUserService()

	admin := testutil.CreateUser(t, db, "Admin", "admin@test.com", "password123", models.UserRoleAdmin, true)
	alice := testutil.CreateUser(t, db, "Alice", "alice@test.com", "password123", models.UserRoleCommunity, false)
	bob := testutil.CreateUser(t, db, "Bob", "bob@test.com", "password123", models.UserRoleCommunity, false)

	_, err := svc.GetUser(db, alice, alice.ID)
	assert.NoError(t, err)
	_, err = svc.GetUser(db, admin, alice.ID)
	assert.NoError(t, err)
	_, err = svc.GetUser(db, bob, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)
}

func TestListUsers_Filters(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestUserService()

	testutil.CreateUser(t, db, "Vol 1", "vol1@test.com", "password123", models.UserRoleVolunteer, true)
	testutil.CreateUser(t, db, "Vol 2", "vol2@test.com", "password123", models.UserRoleVolunteer, false)
	testutil.CreateUser(t, db, "Citizen", "citizen@test.com", "password123", models.UserRoleCommunity, false)

	unverified := false
	resp, err := svc.ListUsers(db, &dto.UserListQuery{Role: string(models.UserRoleVolunteer), Verified: &unverified}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.Total)
	assert.Equal(t, "vol2@test.com", resp.Users[0].Email)

	all, err := svc.ListUsers(db, nil, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
	assert.Len(t, all.Users, 2)
	assert.Equal(t, 2, all.TotalPages)
}
