// Package history owns the audit trail: value normalization, field-level
// diffing, and the append-only certificate_history table.
package history

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/msallam/certstore/internal/models"
)

// TrackedFields is the fixed list of fields the diff considers, in the order
// changes are reported.
var TrackedFields = []string{
	"activity", "name", "location", "area",
	"persons_count", "training_fee", "consultant_fee", "evacuation_fee",
	"inspection_fee", "area_fee", "ministry_fee", "grand_total", "ministry_total",
	"protection_fee",
	"user_name",
}

// Normalize renders a value into its comparison form: nil becomes empty
// string, numbers their shortest decimal form, strings are trimmed.
func Normalize(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// FieldValue returns a certificate's raw value for a tracked field name.
func FieldValue(c *models.Certificate, field string) any {
	switch field {
	case "activity":
		return c.Activity
	case "name":
		return c.Name
	case "location":
		return c.Location
	case "area":
		return c.Area
	case "persons_count":
		return c.PersonsCount
	case "training_fee":
		return c.TrainingFee
	case "consultant_fee":
		return c.ConsultantFee
	case "evacuation_fee":
		return c.EvacuationFee
	case "inspection_fee":
		return c.InspectionFee
	case "area_fee":
		return c.AreaFee
	case "ministry_fee":
		return c.MinistryFee
	case "grand_total":
		return c.GrandTotal
	case "ministry_total":
		return c.MinistryTotal
	case "protection_fee":
		return c.ProtectionFee
	case "user_name":
		return c.UserName
	}
	return nil
}

// Diff compares two certificate states over the tracked fields. A field
// counts as changed only if the normalized values differ; the returned
// changes carry the raw values.
func Diff(before, after *models.Certificate, fields []string) []models.FieldChange {
	var changes []models.FieldChange
	for _, field := range fields {
		oldVal := FieldValue(before, field)
		newVal := FieldValue(after, field)
		if Normalize(oldVal) != Normalize(newVal) {
			changes = append(changes, models.FieldChange{
				Field:    field,
				OldValue: oldVal,
				NewValue: newVal,
			})
		}
	}
	return changes
}

// Snapshot captures a certificate into a versioned history snapshot.
func Snapshot(c *models.Certificate) models.Snapshot {
	return models.Snapshot{Version: models.SnapshotVersion, Certificate: *c}
}

// Record appends one immutable history entry. It runs on the caller's
// transaction so the entry commits or rolls back with the mutation it audits.
func Record(tx *gorm.DB, entry *models.HistoryEntry) error {
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("record history for certificate %d: %w", entry.CertificateID, err)
	}
	return nil
}

// ForCertificate returns a certificate's history entries, newest first.
func ForCertificate(db *gorm.DB, certificateID uint) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := db.Where("certificate_id = ?", certificateID).
		Order("edited_at DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load history for certificate %d: %w", certificateID, err)
	}
	return entries, nil
}

// Recent returns the most recent history entries across all certificates.
func Recent(db *gorm.DB, limit int) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := db.Order("edited_at DESC, id DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load recent history: %w", err)
	}
	return entries, nil
}
