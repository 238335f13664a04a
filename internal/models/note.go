package models

// Note is the legacy free-text notes table. The feature itself lives outside
// this layer; the table stays in the data image for compatibility.
type Note struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt int64  `gorm:"autoCreateTime:false" json:"created_at"`
}
