package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"luminexus/internal/credentials"
	"luminexus/internal/logger"
	"luminexus/internal/models"
	"luminexus/internal/repository"
	"luminexus/internal/security"
	"luminexus/internal/validation"
)

// NameFilter flags display names that contain blocked words
type NameFilter interface {
	ContainsBadWord(ctx context.Context, name string) (bool, error)
}

// RegisterInput holds the optional fields a new player may provide
type RegisterInput struct {
	DisplayName string
	ParentEmail string
	ParentPIN   string
}

// Registration is a newly created player and its access token
type Registration struct {
	Player *models.Player
	Token  string
}

// PlayerService manages player profiles and their tokens
type PlayerService struct {
	players *repository.PlayerRepository
	tokens  *security.TokenIssuer
	filter  NameFilter
	log     *logger.Logger
	now     func() time.Time
}

// NewPlayerService creates a player service; filter may be nil
func NewPlayerService(players *repository.PlayerRepository, tokens *security.TokenIssuer, filter NameFilter, log *logger.Logger) *PlayerService {
	return &PlayerService{
		players: players,
		tokens:  tokens,
		filter:  filter,
		log:     log.With("component", "players"),
		now:     time.Now,
	}
}

// Register creates a player. An empty display name gets a generated one.
func (s *PlayerService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		generated, err := s.generateName(ctx)
		if err != nil {
			return nil, err
		}
		name = generated
	} else if err := s.checkName(ctx, name); err != nil {
		return nil, err
	}

	player := &models.Player{
		ID:          uuid.NewString(),
		DisplayName: name,
		CreatedAt:   s.now().UTC(),
	}

	if email := strings.TrimSpace(in.ParentEmail); email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, err
		}
		player.ParentEmail = email
	}

	if in.ParentPIN != "" {
		if err := validation.ValidatePIN(in.ParentPIN); err != nil {
			return nil, err
		}
		hash, err := security.HashPIN(in.ParentPIN)
		if err != nil {
			return nil, fmt.Errorf("failed to hash pin: %w", err)
		}
		player.ParentPINHash = hash
	}

	if err := s.players.Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	token, err := s.IssueToken(player)
	if err != nil {
		return nil, err
	}

	s.log.Info("Player registered", "player_id", player.ID, "generated_name", in.DisplayName == "")
	return &Registration{Player: player, Token: token}, nil
}

func (s *PlayerService) checkName(ctx context.Context, name string) error {
	if err := validation.ValidateName(name); err != nil {
		return err
	}
	if s.filter == nil {
		return nil
	}
	bad, err := s.filter.ContainsBadWord(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check name: %w", err)
	}
	if bad {
		return validation.ValidationError{Field: "name", Message: "please choose a different name"}
	}
	return nil
}

// generateName picks a space-themed name that passes the filter
func (s *PlayerService) generateName(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		name, err := credentials.GenerateDisplayName()
		if err != nil {
			return "", fmt.Errorf("failed to generate display name: %w", err)
		}
		if err := s.checkName(ctx, name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("failed to generate an acceptable display name")
}

// Get retrieves a player profile
func (s *PlayerService) Get(ctx context.Context, playerID string) (*models.Player, error) {
	return s.players.Get(ctx, playerID)
}

// IssueToken signs a token for player
func (s *PlayerService) IssueToken(player *models.Player) (string, error) {
	return s.tokens.Issue(player.ID, player.DisplayName)
}

// Authenticate verifies a token and returns the player id
func (s *PlayerService) Authenticate(token string) (string, error) {
	return s.tokens.Parse(token)
}

// VerifyPIN checks pin against the player's parent PIN. Players without a
// PIN always pass.
func (s *PlayerService) VerifyPIN(player *models.Player, pin string) error {
	if !player.HasParentPIN() {
		return nil
	}
	ok, err := security.CheckPIN(player.ParentPINHash, pin)
	if err != nil {
		return fmt.Errorf("failed to check pin: %w", err)
	}
	if !ok {
		return ErrInvalidPIN
	}
	return nil
}
