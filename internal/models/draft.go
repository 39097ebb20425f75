package models

import "time"

// FuelEntryDraft is the accumulated input of the 7-step fuel entry wizard:
// vehicle, driver, activity, location, odometer, fuel, review/notes.
// Selections are stored whole so the wizard can re-render them after a reload
// without refetching reference data.
type FuelEntryDraft struct {
	Vehicle  *Vehicle  `json:"vehicle"`
	Driver   *Driver   `json:"driver"`
	Activity *Activity `json:"activity"`

	// Location is optional; either a field or a zone, never both.
	Field *Field `json:"field"`
	Zone  *Zone  `json:"zone"`

	OdometerStart *float64 `json:"odometerStart"`
	OdometerEnd   *float64 `json:"odometerEnd"`
	GaugeWorking  bool     `json:"gaugeWorking"`

	Bowser             *Bowser  `json:"bowser"`
	BowserReadingStart *float64 `json:"bowserReadingStart"`
	BowserReadingEnd   *float64 `json:"bowserReadingEnd"`
	LitresDispensed    *float64 `json:"litresDispensed"`

	Notes string `json:"notes"`
}

// DraftState is the persisted wizard snapshot, one slot per device.
type DraftState struct {
	HasDraft    bool            `json:"hasDraft"`
	CurrentStep int             `json:"currentStep"`
	Data        *FuelEntryDraft `json:"data"`
	Timestamp   time.Time       `json:"timestamp"`
}

// TableName returns the table name for the draft slot.
func (DraftState) TableName() string {
	return "fuel_entry_draft"
}

// EmptyDraft returns the no-draft state.
func EmptyDraft() DraftState {
	return DraftState{HasDraft: false, CurrentStep: 0, Data: nil}
}
