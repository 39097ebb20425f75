package models

// Field is a bounded area of cultivated land.
type Field struct {
	ID        string  `db:"id" json:"id,omitempty"`
	Code      string  `db:"code" json:"code"`
	Name      string  `db:"name" json:"name"`
	Type      string  `db:"type" json:"type"` // arable, pasture, orchard, greenhouse, other
	Area      float64 `db:"area" json:"area"` // hectares
	Location  string  `db:"location" json:"location,omitempty"`
	CropType  string  `db:"crop_type" json:"crop_type,omitempty"`
	Active    bool    `db:"active" json:"active"`
	CreatedAt string  `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt string  `db:"updated_at" json:"updated_at,omitempty"`
}

// PayloadID implements Payload.
func (f *Field) PayloadID() string { return f.ID }

// Zone is a non-field location (infrastructure, transport routes, workshop
// areas) that a fuel entry can reference instead of a field.
type Zone struct {
	ID          string `db:"id" json:"id,omitempty"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
	ZoneType    string `db:"zone_type" json:"zone_type,omitempty"` // farm_section, infrastructure, transport, maintenance, general
	Active      bool   `db:"active" json:"active"`
	CreatedAt   string `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt   string `db:"updated_at" json:"updated_at,omitempty"`
}
