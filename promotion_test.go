package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armonia-cms/auth"
)

// roleWriter stubs the single directory write the promoter performs.
type roleWriter struct {
	auth.Users
	setRole func(ctx context.Context, id uuid.UUID, role auth.Role) (*auth.User, error)
	calls   int
}

func (w *roleWriter) SetRole(ctx context.Context, id uuid.UUID, role auth.Role) (*auth.User, error) {
	w.calls++
	return w.setRole(ctx, id, role)
}

func viewerUser(email string) *auth.User {
	return &auth.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "Someone",
		Role:        auth.RoleViewer,
	}
}

func TestPromoterAppliesForAdminEmail(t *testing.T) {
	user := viewerUser("admin@example.com")
	writer := &roleWriter{
		setRole: func(ctx context.Context, id uuid.UUID, role auth.Role) (*auth.User, error) {
			require.Equal(t, user.ID, id)
			require.Equal(t, auth.RoleAdmin, role)
			promoted := *user
			promoted.Role = role
			return &promoted, nil
		},
	}

	promoter := auth.NewPromoter(writer, "admin@example.com")
	result := promoter.Apply(context.Background(), user, user.Email)

	assert.Equal(t, auth.PromotionApplied, result.Outcome)
	assert.True(t, result.Promoted())
	require.NotNil(t, result.User)
	assert.Equal(t, auth.RoleAdmin, result.User.Role)
	assert.Equal(t, 1, writer.calls)
}

func TestPromoterComparesCaseInsensitively(t *testing.T) {
	user := viewerUser("Admin@Example.COM")
	writer := &roleWriter{
		setRole: func(ctx context.Context, id uuid.UUID, role auth.Role) (*auth.User, error) {
			promoted := *user
			promoted.Role = role
			return &promoted, nil
		},
	}

	promoter := auth.NewPromoter(writer, "admin@example.com")
	result := promoter.Apply(context.Background(), user, "Admin@Example.COM")

	assert.Equal(t, auth.PromotionApplied, result.Outcome)
}

func TestPromoterNotApplicable(t *testing.T) {
	user := viewerUser("someone@example.com")
	writer := &roleWriter{
		setRole: func(ctx context.Context, id uuid.UUID, role auth.Role) (*auth.User, error) {
			t.Fatal("SetRole must not be called")
			return nil, nil
		},
	}

	promoter := auth.NewPromoter(writer, "admin@example.com")
	result := promoter.Apply(context.Background(), user, user.Email)

	assert.Equal(t, auth.PromotionNotApplicable, result.Outcome)
	assert.False(t, result.Promoted())
	assert.Same(t, user, result.User)
	assert.Equal(t, 0, writer.calls)
}

func TestPromoterAlreadyAdmin(t *testing.T) {
	user := viewerUser("admin@example.com")
	user.Role = auth.RoleAdmin
	writer := &roleWriter{
		setRole: func(ctx context.Context, id uuid.UUID, role auth.Role) (*auth.User, error) {
			t.Fatal("SetRole must not be called")
			return nil, nil
		},
	}

	promoter := auth.NewPromoter(writer, "admin@example.com")
	result := promoter.Apply(context.Background(), user, user.Email)

	assert.Equal(t, auth.PromotionAlreadyAdmin, result.Outcome)
	assert.False(t, result.Promoted())
	assert.Equal(t, 0, writer.calls)
}

func TestPromoterWriteFailed(t *testing.T) {
	user := viewerUser("admin@example.com")
	writer := &roleWriter{
		setRole: func(ctx context.Context, id uuid.UUID, role auth.Role) (*auth.User, error) {
			return nil, assert.AnError
		},
	}

	promoter := auth.NewPromoter(writer, "admin@example.com")
	result := promoter.Apply(context.Background(), user, user.Email)

	assert.Equal(t, auth.PromotionWriteFailed, result.Outcome)
	assert.ErrorIs(t, result.Err, assert.AnError)
	require.NotNil(t, result.User)
	assert.Equal(t, auth.RoleViewer, result.User.Role, "caller keeps the pre-promotion record")
}

func TestPromoterDisabledWithoutAdminEmail(t *testing.T) {
	user := viewerUser("admin@example.com")
	writer := &roleWriter{
		setRole: func(ctx context.Context, id uuid.UUID, role auth.Role) (*auth.User, error) {
			t.Fatal("SetRole must not be called")
			return nil, nil
		},
	}

	promoter := auth.NewPromoter(writer, "")
	result := promoter.Apply(context.Background(), user, user.Email)

	assert.Equal(t, auth.PromotionNotApplicable, result.Outcome)
}

func TestPromoterNilUser(t *testing.T) {
	promoter := auth.NewPromoter(&roleWriter{}, "admin@example.com")
	result := promoter.Apply(context.Background(), nil, "admin@example.com")

	assert.Equal(t, auth.PromotionNotApplicable, result.Outcome)
	assert.Nil(t, result.User)
}
