package models

// Driver is a farm employee authorized to operate vehicles.
type Driver struct {
	ID               string `db:"id" json:"id,omitempty"`
	EmployeeCode     string `db:"employee_code" json:"employee_code"`
	Name             string `db:"name" json:"name"`
	Phone            string `db:"phone" json:"phone,omitempty"`
	Email            string `db:"email" json:"email,omitempty"`
	LicenseNumber    string `db:"license_number" json:"license_number,omitempty"`
	LicenseClass     string `db:"license_class" json:"license_class,omitempty"`
	LicenseExpiry    string `db:"license_expiry" json:"license_expiry,omitempty"`
	DefaultVehicleID string `db:"default_vehicle_id" json:"default_vehicle_id,omitempty"`
	Notes            string `db:"notes" json:"notes,omitempty"`
	Active           bool   `db:"active" json:"active"`
	CreatedAt        string `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt        string `db:"updated_at" json:"updated_at,omitempty"`
}

// PayloadID implements Payload.
func (d *Driver) PayloadID() string { return d.ID }
