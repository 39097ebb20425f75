package models

// Activity is a categorized farm operation fuel gets logged against.
type Activity struct {
	ID          string `db:"id" json:"id,omitempty"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
	NameZulu    string `db:"name_zulu" json:"name_zulu,omitempty"`
	Category    string `db:"category" json:"category"` // planting, harvesting, spraying, fertilizing, maintenance, other
	Description string `db:"description" json:"description,omitempty"`
	Active      bool   `db:"active" json:"active"`
	CreatedAt   string `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt   string `db:"updated_at" json:"updated_at,omitempty"`
}

// PayloadID implements Payload.
func (a *Activity) PayloadID() string { return a.ID }
