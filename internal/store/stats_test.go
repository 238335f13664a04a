package store

import (
	"testing"
	"time"
)

func TestStatsCountsAndTotals(t *testing.T) {
	s, clock := testStore(t)

	// two current certificates plus one from last month
	a := bakeryInput() // grand 2300, ministry 1150
	mustCreate(t, s, a)

	b := bakeryInput()
	b.Name = ptr("Second")
	b.TrainingFee = ptr(1000.0)
	b.ConsultantFee = ptr(0.0)
	b.AreaFee = ptr(450.0)
	b.MinistryFee = ptr(150.0) // grand 1000, ministry 600
	mustCreate(t, s, b)

	*clock = clock.AddDate(0, -1, 0)
	c := bakeryInput()
	c.Name = ptr("Old One")
	mustCreate(t, s, c)
	*clock = clock.AddDate(0, 1, 0)

	st := s.Stats(StatsOptions{})
	if st.Total != 3 {
		t.Errorf("total = %d, want 3", st.Total)
	}
	if st.Today != 2 || st.ThisWeek != 2 || st.ThisMonth != 2 {
		t.Errorf("period counts = %d/%d/%d, want 2/2/2", st.Today, st.ThisWeek, st.ThisMonth)
	}
	if st.TotalGovernorate != 2300+1000+2300 {
		t.Errorf("total governorate = %d", st.TotalGovernorate)
	}
	if st.TotalMinistry != 1150+600+1150 {
		t.Errorf("total ministry = %d", st.TotalMinistry)
	}
	if st.GrandTotal != st.TotalGovernorate+st.TotalMinistry {
		t.Errorf("grand total = %d", st.GrandTotal)
	}
	if st.TotalPersons != 12 {
		t.Errorf("total persons = %d, want 12", st.TotalPersons)
	}

	// monthly block for the current month excludes the old certificate
	if st.Monthly.Count != 2 {
		t.Errorf("monthly count = %d, want 2", st.Monthly.Count)
	}
	if st.Monthly.TrainingFee != 3000 {
		t.Errorf("monthly training fee = %d, want 3000", st.Monthly.TrainingFee)
	}
	if st.Monthly.AreaFee != 1000 {
		t.Errorf("monthly area fee = %d, want 1000", st.Monthly.AreaFee)
	}
	if !st.Monthly.IsCurrentMonth {
		t.Error("current month not flagged")
	}
}

func TestStatsSelectedMonth(t *testing.T) {
	s, _ := testStore(t)
	mustCreate(t, s, bakeryInput()) // March 2025

	st := s.Stats(StatsOptions{Month: time.February, Year: 2025})
	if st.Monthly.Month != time.February || st.Monthly.Year != 2025 {
		t.Errorf("selected month = %v %d", st.Monthly.Month, st.Monthly.Year)
	}
	if st.Monthly.IsCurrentMonth {
		t.Error("february flagged as current month")
	}
	if st.Monthly.Count != 0 || st.Monthly.GovernorateTotal != 0 {
		t.Errorf("empty month has sums: %+v", st.Monthly)
	}
	// this-month count stays anchored to the current month
	if st.ThisMonth != 1 {
		t.Errorf("this month = %d, want 1", st.ThisMonth)
	}
}

func TestStatsExcludesNonPayment(t *testing.T) {
	s, clock := testStore(t)
	mustCreate(t, s, bakeryInput()) // the paying certificate
	owing := mustCreate(t, s, func() CertificateInput {
		in := bakeryInput()
		in.Name = ptr("Owing Co")
		return in
	}())
	*clock = clock.Add(time.Minute)

	if _, err := s.CreateNonPaymentRecord(owing.ID, NonPaymentInput{RecipientName: "owner"}); err != nil {
		t.Fatalf("create non-payment: %v", err)
	}

	st := s.Stats(StatsOptions{})
	if st.NonPaymentCount != 1 {
		t.Errorf("non-payment count = %d, want 1", st.NonPaymentCount)
	}
	// only the paid certificate's fees count as revenue
	if st.GrandTotal != 2300+1150 {
		t.Errorf("grand total = %d, want %d", st.GrandTotal, 2300+1150)
	}
	if st.Total != 2 {
		t.Errorf("total = %d, want 2 (count includes owing)", st.Total)
	}

	// paying restores the certificate to the sums
	*clock = clock.Add(time.Minute)
	if err := s.CancelNonPayment(owing.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	st = s.Stats(StatsOptions{})
	if st.NonPaymentCount != 0 {
		t.Errorf("non-payment count after cancel = %d", st.NonPaymentCount)
	}
	if st.GrandTotal != 2*(2300+1150) {
		t.Errorf("grand total after cancel = %d", st.GrandTotal)
	}
}

func TestStatsExcludesDeleted(t *testing.T) {
	s, clock := testStore(t)
	cert := mustCreate(t, s, bakeryInput())
	*clock = clock.Add(time.Minute)
	if err := s.SoftDelete(cert.ID, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}

	st := s.Stats(StatsOptions{})
	if st.Total != 0 || st.GrandTotal != 0 {
		t.Errorf("deleted certificate leaked into stats: %+v", st)
	}
}

func TestStatsTopUsersAndRecentEdits(t *testing.T) {
	s, clock := testStore(t)
	var lastID uint
	for i, user := range []string{"alice", "alice", "bob"} {
		in := bakeryInput()
		in.Name = ptr(string(rune('A' + i)))
		in.UserName = ptr(user)
		*clock = clock.Add(time.Minute)
		lastID = mustCreate(t, s, in).ID
	}
	*clock = clock.Add(time.Minute)
	if _, err := s.Update(lastID, CertificateInput{Area: ptr(321.0)}, "check", "bob"); err != nil {
		t.Fatalf("update: %v", err)
	}

	st := s.Stats(StatsOptions{})
	if len(st.TopUsers) != 2 {
		t.Fatalf("top users = %+v", st.TopUsers)
	}
	if st.TopUsers[0].Name != "alice" || st.TopUsers[0].Count != 2 {
		t.Errorf("leader = %+v, want alice x2", st.TopUsers[0])
	}
	if len(st.RecentEdits) != 1 || st.RecentEdits[0].CertificateID != lastID {
		t.Errorf("recent edits = %+v", st.RecentEdits)
	}
}
