package models

// SnapshotVersion is the current history snapshot schema version.
const SnapshotVersion = 1

// Snapshot is a full, typed copy of a certificate's state at one point in
// time, stored in history rows as versioned JSON.
type Snapshot struct {
	Version int `json:"version"`
	Certificate
}

// ChangeSnapshot is the post-change snapshot stored in a history row, along
// with the pages the change touched.
type ChangeSnapshot struct {
	Snapshot
	AffectedPages []Page `json:"affected_pages"`
}

// FieldChange records one tracked field that actually changed, carrying the
// raw (non-normalized) before/after values for display.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// HistoryEntry is one immutable audit record of an accepted mutation.
// The table is append only: rows are created once per accepted update or
// delete and never touched again.
type HistoryEntry struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CertificateID uint            `gorm:"index:idx_history_cert_id" json:"certificate_id"`
	OldData       Snapshot        `gorm:"type:text;serializer:json" json:"old_data"`
	NewData       *ChangeSnapshot `gorm:"type:text;serializer:json" json:"new_data,omitempty"`
	ChangedFields []FieldChange   `gorm:"type:text;serializer:json" json:"changed_fields"`
	EditReason    string          `json:"edit_reason"`
	EditedBy      string          `json:"edited_by"`
	EditedAt      int64           `gorm:"index" json:"edited_at"`
}

// TableName keeps the legacy image table name.
func (HistoryEntry) TableName() string {
	return "certificate_history"
}
