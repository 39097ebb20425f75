package models

// FuelEntry records a single dispensing of fuel from a bowser into a vehicle,
// captured by the 7-step entry wizard.
type FuelEntry struct {
	ID         string `db:"id" json:"id,omitempty"`
	EntryDate  string `db:"entry_date" json:"entry_date"`
	Time       string `db:"time" json:"time"`
	VehicleID  string `db:"vehicle_id" json:"vehicle_id"`
	DriverID   string `db:"driver_id" json:"driver_id"`
	ActivityID string `db:"activity_id" json:"activity_id"`
	FieldID    string `db:"field_id" json:"field_id,omitempty"`
	ZoneID     string `db:"zone_id" json:"zone_id,omitempty"`
	BowserID   string `db:"bowser_id" json:"bowser_id"`

	// Odometer data; readings are nullable when the gauge is broken.
	OdometerStart *float64 `db:"odometer_start" json:"odometer_start"`
	OdometerEnd   *float64 `db:"odometer_end" json:"odometer_end"`
	GaugeWorking  bool     `db:"gauge_working" json:"gauge_working"`

	// Fuel data
	LitresUsed         float64  `db:"litres_used" json:"litres_used"`
	LitresDispensed    float64  `db:"litres_dispensed" json:"litres_dispensed"`
	BowserReadingStart *float64 `db:"bowser_reading_start" json:"bowser_reading_start"`
	BowserReadingEnd   *float64 `db:"bowser_reading_end" json:"bowser_reading_end"`
	CostPerLitre       *float64 `db:"cost_per_litre" json:"cost_per_litre,omitempty"`
	TotalCost          *float64 `db:"total_cost" json:"total_cost,omitempty"`

	Notes     string `db:"notes" json:"notes,omitempty"`
	CreatedAt string `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt string `db:"updated_at" json:"updated_at,omitempty"`
}

// PayloadID implements Payload.
func (f *FuelEntry) PayloadID() string { return f.ID }
