package models

import "time"

// Player is a learner profile. Players are anonymous and identified by a
// server-issued id; the parent fields are optional.
type Player struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"displayName"`
	ParentEmail   string    `json:"parentEmail,omitempty"`
	ParentPINHash string    `json:"parentPinHash,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasParentPIN reports whether resets must be confirmed with a PIN
func (p *Player) HasParentPIN() bool {
	return p.ParentPINHash != ""
}
