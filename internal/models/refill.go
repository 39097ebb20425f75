package models

// RefillRecord records a bowser being replenished by a supplier delivery.
type RefillRecord struct {
	ID            string   `db:"id" json:"id,omitempty"`
	Date          string   `db:"date" json:"date"`
	BowserID      string   `db:"bowser_id" json:"bowser_id"`
	Supplier      string   `db:"supplier" json:"supplier"`
	Amount        float64  `db:"amount" json:"amount"` // litres
	ReadingBefore float64  `db:"reading_before" json:"reading_before"`
	ReadingAfter  float64  `db:"reading_after" json:"reading_after"`
	Cost          *float64 `db:"cost" json:"cost,omitempty"`
	InvoiceNumber string   `db:"invoice_number" json:"invoice_number,omitempty"`
	Notes         string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     string   `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt     string   `db:"updated_at" json:"updated_at,omitempty"`
}

// PayloadID implements Payload.
func (r *RefillRecord) PayloadID() string { return r.ID }
