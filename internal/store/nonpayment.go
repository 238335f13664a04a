package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/msallam/certstore/internal/models"
)

// NonPaymentInput carries the incoming-letter data for a new non-payment
// record. The establishment fields are not here: they are copied from the
// certificate at creation time.
type NonPaymentInput struct {
	IncomingNumber string
	IncomingDate   int64 // Unix ms; 0 means now
	RecipientTitle string
	RecipientName  string
	CreatedBy      string
}

// CreateNonPaymentRecord opens a non-payment record for a certificate and
// marks the certificate as owing its fees, which removes it from revenue
// statistics until the record is cancelled. One active record per
// certificate is the caller's responsibility.
func (s *Store) CreateNonPaymentRecord(certificateID uint, in NonPaymentInput) (*models.NonPaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, err := s.getByID(certificateID)
	if err != nil {
		return nil, err
	}

	now := s.nowMilli()
	rec := models.NonPaymentRecord{
		CertificateID:  certificateID,
		IncomingNumber: in.IncomingNumber,
		IncomingDate:   in.IncomingDate,
		Activity:       cert.Activity,
		OwnerName:      cert.Name,
		Location:       cert.Location,
		RecipientTitle: in.RecipientTitle,
		RecipientName:  in.RecipientName,
		CreatedAt:      now,
		CreatedBy:      in.CreatedBy,
		Status:         models.NonPaymentActive,
	}
	if rec.IncomingDate == 0 {
		rec.IncomingDate = now
	}
	if rec.RecipientTitle == "" {
		rec.RecipientTitle = models.DefaultRecipientTitle
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("create non-payment record: %w", err)
		}
		res := tx.Model(&models.Certificate{}).Where("id = ?", certificateID).
			Updates(map[string]any{
				"has_non_payment": true,
				"non_payment_id":  rec.ID,
				"updated_at":      now,
			})
		if res.Error != nil {
			return fmt.Errorf("flag certificate %d: %w", certificateID, res.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dataChanged()
	s.logger.Info("non-payment record created", "id", rec.ID, "certificate", certificateID)
	return &rec, nil
}

// NonPaymentRecord returns one record by its own id.
func (s *Store) NonPaymentRecord(id uint) (*models.NonPaymentRecord, error) {
	var rec models.NonPaymentRecord
	if err := s.db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("non-payment record %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load non-payment record %d: %w", id, err)
	}
	return &rec, nil
}

// NonPaymentByCertificate returns a certificate's active non-payment record.
func (s *Store) NonPaymentByCertificate(certificateID uint) (*models.NonPaymentRecord, error) {
	var rec models.NonPaymentRecord
	err := s.db.
		Where("certificate_id = ? AND status = ?", certificateID, models.NonPaymentActive).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("active non-payment record for certificate %d: %w", certificateID, ErrNotFound)
		}
		return nil, fmt.Errorf("load non-payment record for certificate %d: %w", certificateID, err)
	}
	return &rec, nil
}

// CancelNonPayment closes a certificate's active non-payment records (fees
// were paid) and clears the certificate's flag, putting it back into revenue
// statistics.
func (s *Store) CancelNonPayment(certificateID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getByID(certificateID); err != nil {
		return err
	}

	now := s.nowMilli()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.NonPaymentRecord{}).
			Where("certificate_id = ? AND status = ?", certificateID, models.NonPaymentActive).
			Updates(map[string]any{"status": models.NonPaymentCancelled, "cancelled_at": now})
		if res.Error != nil {
			return fmt.Errorf("cancel non-payment records: %w", res.Error)
		}
		res = tx.Model(&models.Certificate{}).Where("id = ?", certificateID).
			Updates(map[string]any{"has_non_payment": false, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("unflag certificate %d: %w", certificateID, res.Error)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.dataChanged()
	s.logger.Info("non-payment cancelled", "certificate", certificateID)
	return nil
}
