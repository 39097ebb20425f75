package models

// Vehicle is a farm vehicle tracked for fuel usage.
// Field names mirror the hosted schema.
type Vehicle struct {
	ID           string   `db:"id" json:"id,omitempty"`
	Code         string   `db:"code" json:"code"`
	Name         string   `db:"name" json:"name"`
	Type         string   `db:"type" json:"type"` // tractor, bakkie, truck, loader, harvester, sprayer, other
	Registration string   `db:"registration" json:"registration,omitempty"`
	Make         string   `db:"make" json:"make,omitempty"`
	Model        string   `db:"model" json:"model,omitempty"`
	Year         int      `db:"year" json:"year,omitempty"`
	FuelType     string   `db:"fuel_type" json:"fuel_type,omitempty"`
	TankCapacity *float64 `db:"tank_capacity" json:"tank_capacity,omitempty"`
	OdometerUnit string   `db:"odometer_unit" json:"odometer_unit,omitempty"`
	Notes        string   `db:"notes" json:"notes,omitempty"`
	Active       bool     `db:"active" json:"active"`
	CreatedAt    string   `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt    string   `db:"updated_at" json:"updated_at,omitempty"`
}

// PayloadID implements Payload.
func (v *Vehicle) PayloadID() string { return v.ID }
