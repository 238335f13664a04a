package store

import (
	"errors"
	"testing"
	"time"

	"github.com/msallam/certstore/internal/models"
)

func TestCreateNonPaymentRecord(t *testing.T) {
	s, clock := testStore(t)
	cert := mustCreate(t, s, bakeryInput())
	*clock = clock.Add(time.Hour)
	now := clock.UnixMilli()

	rec, err := s.CreateNonPaymentRecord(cert.ID, NonPaymentInput{
		IncomingNumber: "1234",
		RecipientName:  "owner",
		CreatedBy:      "clerk",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("no id assigned")
	}
	// establishment data copied from the certificate
	if rec.Activity != "bakery" || rec.OwnerName != "Corner Bakery" || rec.Location != "Main St" {
		t.Errorf("snapshot fields: %+v", rec)
	}
	if rec.RecipientTitle != models.DefaultRecipientTitle {
		t.Errorf("recipient title = %q, want default", rec.RecipientTitle)
	}
	if rec.IncomingDate != now || rec.CreatedAt != now {
		t.Errorf("dates: incoming=%d created=%d want %d", rec.IncomingDate, rec.CreatedAt, now)
	}
	if rec.Status != models.NonPaymentActive {
		t.Errorf("status = %q", rec.Status)
	}

	// certificate flagged and linked
	reloaded, err := s.GetByID(cert.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.HasNonPayment {
		t.Error("certificate not flagged")
	}
	if reloaded.NonPaymentID == nil || *reloaded.NonPaymentID != rec.ID {
		t.Errorf("non_payment_id = %v, want %d", reloaded.NonPaymentID, rec.ID)
	}
}

func TestCreateNonPaymentRecordMissingCertificate(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.CreateNonPaymentRecord(77, NonPaymentInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestNonPaymentLookups(t *testing.T) {
	s, clock := testStore(t)
	cert := mustCreate(t, s, bakeryInput())
	*clock = clock.Add(time.Minute)
	rec, err := s.CreateNonPaymentRecord(cert.ID, NonPaymentInput{IncomingNumber: "9"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	byID, err := s.NonPaymentRecord(rec.ID)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if byID.IncomingNumber != "9" {
		t.Errorf("by id: %+v", byID)
	}

	byCert, err := s.NonPaymentByCertificate(cert.ID)
	if err != nil {
		t.Fatalf("by certificate: %v", err)
	}
	if byCert.ID != rec.ID {
		t.Errorf("by certificate returned %d, want %d", byCert.ID, rec.ID)
	}

	if _, err := s.NonPaymentRecord(404); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing record: got %v", err)
	}
	if _, err := s.NonPaymentByCertificate(404); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing certificate record: got %v", err)
	}
}

func TestCancelNonPayment(t *testing.T) {
	s, clock := testStore(t)
	cert := mustCreate(t, s, bakeryInput())
	*clock = clock.Add(time.Minute)
	rec, err := s.CreateNonPaymentRecord(cert.ID, NonPaymentInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	*clock = clock.Add(time.Hour)
	cancelledAt := clock.UnixMilli()
	if err := s.CancelNonPayment(cert.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	reloaded, _ := s.GetByID(cert.ID)
	if reloaded.HasNonPayment {
		t.Error("flag not cleared")
	}

	updated, err := s.NonPaymentRecord(rec.ID)
	if err != nil {
		t.Fatalf("record after cancel: %v", err)
	}
	if updated.Status != models.NonPaymentCancelled {
		t.Errorf("status = %q", updated.Status)
	}
	if updated.CancelledAt == nil || *updated.CancelledAt != cancelledAt {
		t.Errorf("cancelled_at = %v, want %d", updated.CancelledAt, cancelledAt)
	}

	// no active record remains
	if _, err := s.NonPaymentByCertificate(cert.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("active lookup after cancel: got %v", err)
	}
}
