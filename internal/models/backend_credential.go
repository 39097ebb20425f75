package models

// BackendCredential holds the hosted data service endpoint and API key.
// The key is encrypted at rest with a machine-derived key.
type BackendCredential struct {
	ID              string `db:"id" json:"id"`
	Endpoint        string `db:"endpoint" json:"endpoint"`
	APIKeyEncrypted string `db:"api_key_encrypted" json:"-"`
	IsEnabled       bool   `db:"is_enabled" json:"is_enabled"`
	CreatedAt       int64  `db:"created_at" json:"created_at"`
	UpdatedAt       int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for BackendCredential.
func (BackendCredential) TableName() string {
	return "backend_credentials"
}
