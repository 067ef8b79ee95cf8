package auth

import (
	"context"
	"testing"
	"time"

	"storefront-order-service/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() *Service {
	svc := NewService(NewMemoryRepository(), "test-secret", time.Hour, nil)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	sess, err := svc.Signup(ctx, SignupInput{Email: " Owner@Example.com ", Password: "secret1", Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", sess.User.Email)
	assert.Equal(t, RoleBusiness, sess.User.Role)

	claims, err := svc.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)

	_, err = svc.Signup(ctx, SignupInput{Email: "owner@example.com", Password: "another1", Name: "Ana"})
	assert.ErrorIs(t, err, ErrEmailInUse)

	_, err = svc.Login(ctx, "OWNER@example.com", "secret1")
	assert.NoError(t, err)
	_, err = svc.Login(ctx, "owner@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignupValidation(t *testing.T) {
	_, err := newTestService().Signup(context.Background(), SignupInput{Email: "nope", Password: "123"})
	v, ok := validation.As(err)
	require.True(t, ok)
	assert.Contains(t, v.Fields, "email")
	assert.Contains(t, v.Fields, "password")
	assert.Contains(t, v.Fields, "name")
}

func TestAssignRoleReissuesScope(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	sess, err := svc.Signup(ctx, SignupInput{Email: "a@b.c", Password: "secret1", Name: "A"})
	require.NoError(t, err)

	_, err = svc.AssignRole(ctx, sess.User.ID, RoleAdminRegional, "", "")
	_, ok := validation.As(err)
	require.True(t, ok)

	u, err := svc.AssignRole(ctx, sess.User.ID, RoleAdminRegional, "", "Oriente")
	require.NoError(t, err)
	assert.Equal(t, "Oriente", u.Region)

	again, err := svc.Login(ctx, "a@b.c", "secret1")
	require.NoError(t, err)
	claims, err := svc.Verify(again.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdminRegional, claims.Role)
	assert.True(t, claims.Scope().Allows("any", "oriente"))
	assert.False(t, claims.Scope().Allows("any", "Occidente"))
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	u := User{ID: "u1", Role: RoleSuperAdmin}
	token, _, err := IssueAccessToken(u, "s1", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = VerifyAccessToken(token, "s1")
	assert.Error(t, err)

	token, _, err = IssueAccessToken(u, "s1", time.Hour, time.Now())
	require.NoError(t, err)
	_, err = VerifyAccessToken(token, "s2")
	assert.Error(t, err)
}

func TestScope(t *testing.T) {
	cases := []struct {
		name   string
		scope  Scope
		biz    string
		region string
		want   bool
	}{
		{"super admin", Scope{Role: RoleSuperAdmin}, "b1", "", true},
		{"national", Scope{Role: RoleAdminNational}, "b1", "x", true},
		{"regional match", Scope{Role: RoleAdminRegional, Region: "Centro"}, "b1", "centro", true},
		{"regional other", Scope{Role: RoleAdminRegional, Region: "Centro"}, "b1", "Oriente", false},
		{"regional unset", Scope{Role: RoleAdminRegional}, "b1", "", false},
		{"owner", Scope{Role: RoleBusiness, BusinessID: "b1"}, "b1", "", true},
		{"owner other", Scope{Role: RoleBusiness, BusinessID: "b1"}, "b2", "", false},
		{"owner unassigned", Scope{Role: RoleBusiness}, "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.scope.Allows(tc.biz, tc.region))
		})
	}
	assert.Equal(t, "abc", ParseBearerToken("bearer abc"))
	assert.Equal(t, "", ParseBearerToken("Basic abc"))
}
