package service

import "errors"

var (
	// ErrInsufficientCoins is returned when a spend or purchase exceeds the balance
	ErrInsufficientCoins = errors.New("not enough coins")
	// ErrAlreadyOwned is returned when buying an item the player owns
	ErrAlreadyOwned = errors.New("item already owned")
	// ErrItemNotOwned is returned when selecting an item the player has not bought
	ErrItemNotOwned = errors.New("item not owned")
	// ErrInvalidAmount is returned for non-positive amounts and for grants
	// that exceed the per-call or balance ceiling
	ErrInvalidAmount = errors.New("amount out of range")
	// ErrInvalidScore is returned for quiz scores outside 0-100
	ErrInvalidScore = errors.New("score must be between 0 and 100")
	// ErrInvalidPIN is returned when a parent PIN does not match
	ErrInvalidPIN = errors.New("invalid parent pin")
	// ErrUnknownItem is returned for ids missing from the catalog
	ErrUnknownItem = errors.New("unknown item")
)

// ErrProgressUnavailable is returned when stored progress could not be read.
// Nothing is written until a later load succeeds.
var ErrProgressUnavailable = errors.New("progress temporarily unavailable")

// ErrUnknownAchievement is returned for achievement ids missing from the catalog
var ErrUnknownAchievement = errors.New("unknown achievement")
