package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luminexus/internal/credentials"
	"luminexus/internal/logger"
	"luminexus/internal/repository"
	"luminexus/internal/security"
	"luminexus/internal/validation"
)

type wordFilter struct {
	blocked []string
	err     error
}

func (f wordFilter) ContainsBadWord(ctx context.Context, name string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, word := range f.blocked {
		if strings.Contains(strings.ToLower(name), word) {
			return true, nil
		}
	}
	return false, nil
}

func newTestPlayerService(filter NameFilter) *PlayerService {
	return NewPlayerService(
		repository.NewPlayerRepository(repository.NewMemoryKeyValueStore()),
		security.NewTokenIssuer("test-secret", time.Hour),
		filter,
		logger.NewNop(),
	)
}

func TestRegisterGeneratesName(t *testing.T) {
	svc := newTestPlayerService(nil)

	reg, err := svc.Register(context.Background(), RegisterInput{})
	require.NoError(t, err)

	assert.True(t, credentials.IsGeneratedName(reg.Player.DisplayName), "got %q", reg.Player.DisplayName)
	assert.NotEmpty(t, reg.Player.ID)
	assert.False(t, reg.Player.HasParentPIN())

	playerID, err := svc.Authenticate(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.Player.ID, playerID)

	stored, err := svc.Get(context.Background(), reg.Player.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.Player.DisplayName, stored.DisplayName)
}

func TestRegisterWithParentDetails(t *testing.T) {
	svc := newTestPlayerService(nil)

	reg, err := svc.Register(context.Background(), RegisterInput{
		DisplayName: "  Ada Star ",
		ParentEmail: "parent@example.com",
		ParentPIN:   "1234",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada Star", reg.Player.DisplayName)
	assert.Equal(t, "parent@example.com", reg.Player.ParentEmail)
	require.True(t, reg.Player.HasParentPIN())
	assert.NotEqual(t, "1234", reg.Player.ParentPINHash)

	assert.NoError(t, svc.VerifyPIN(reg.Player, "1234"))
	assert.ErrorIs(t, svc.VerifyPIN(reg.Player, "9999"), ErrInvalidPIN)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{name: "name too short", in: RegisterInput{DisplayName: "A"}, field: "name"},
		{name: "name with symbols", in: RegisterInput{DisplayName: "<script>"}, field: "name"},
		{name: "bad email", in: RegisterInput{ParentEmail: "not-an-email"}, field: "email"},
		{name: "pin too short", in: RegisterInput{ParentPIN: "12"}, field: "pin"},
		{name: "pin not digits", in: RegisterInput{ParentPIN: "abcd"}, field: "pin"},
		{name: "blocked word", in: RegisterInput{DisplayName: "Rude Rocket"}, field: "name"},
	}

	svc := newTestPlayerService(wordFilter{blocked: []string{"rude"}})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			var verr validation.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRegisterFilterFailure(t *testing.T) {
	svc := newTestPlayerService(wordFilter{err: errors.New("db down")})

	_, err := svc.Register(context.Background(), RegisterInput{DisplayName: "Ada"})
	assert.ErrorContains(t, err, "db down")
}

func TestVerifyPINWithoutPIN(t *testing.T) {
	svc := newTestPlayerService(nil)
	reg, err := svc.Register(context.Background(), RegisterInput{})
	require.NoError(t, err)

	assert.NoError(t, svc.VerifyPIN(reg.Player, ""))
}

func TestAuthenticateRejectsForgedToken(t *testing.T) {
	svc := newTestPlayerService(nil)
	_, err := svc.Authenticate("eyJhbGciOiJub25lIn0.e30.")
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}
