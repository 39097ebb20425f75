package models

// Bowser is a mobile fuel tank that dispenses into vehicles.
type Bowser struct {
	ID           string  `db:"id" json:"id,omitempty"`
	Code         string  `db:"code" json:"code"`
	Name         string  `db:"name" json:"name"`
	Registration string  `db:"registration" json:"registration,omitempty"`
	FuelType     string  `db:"fuel_type" json:"fuel_type"` // diesel or petrol
	Capacity     float64 `db:"capacity" json:"capacity"`   // litres
	Location     string  `db:"location" json:"location,omitempty"`
	Notes        string  `db:"notes" json:"notes,omitempty"`
	Active       bool    `db:"active" json:"active"`
	CreatedAt    string  `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt    string  `db:"updated_at" json:"updated_at,omitempty"`
}

// PayloadID implements Payload.
func (b *Bowser) PayloadID() string { return b.ID }
