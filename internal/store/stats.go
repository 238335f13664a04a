package store

import (
	"math"
	"time"

	"github.com/msallam/certstore/internal/history"
	"github.com/msallam/certstore/internal/models"
)

// StatsOptions selects the month/year for the monthly block; zero values
// mean the current month/year.
type StatsOptions struct {
	Month time.Month
	Year  int
}

// UserCount is one row of the top-users leaderboard.
type UserCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// MonthlyStats is the per-category fee breakdown for one calendar month.
// Certificates flagged has_non_payment are excluded from every sum.
type MonthlyStats struct {
	Month          time.Month `json:"month"`
	Year           int        `json:"year"`
	IsCurrentMonth bool       `json:"is_current_month"`
	Count          int64      `json:"count"`

	// Governorate fees
	TrainingFee      int64 `json:"training_fee"`
	ConsultantFee    int64 `json:"consultant_fee"`
	EvacuationFee    int64 `json:"evacuation_fee"`
	InspectionFee    int64 `json:"inspection_fee"`
	GovernorateTotal int64 `json:"governorate_total"`

	// Ministry fees
	MinistryPersonsFee int64 `json:"ministry_persons_fee"`
	AreaFee            int64 `json:"area_fee"`
	MinistryTotal      int64 `json:"ministry_total"`

	PersonsCount int64 `json:"persons_count"`
}

// Stats is the derived view over active certificates. Financial figures
// exclude has_non_payment certificates (fees owed, not collected); those are
// reported separately as NonPaymentCount.
type Stats struct {
	Total     int64 `json:"total"`
	Modified  int64 `json:"modified"`
	Today     int64 `json:"today"`
	ThisWeek  int64 `json:"this_week"`
	ThisMonth int64 `json:"this_month"`

	TotalGovernorate int64 `json:"total_governorate"`
	TotalMinistry    int64 `json:"total_ministry"`
	GrandTotal       int64 `json:"grand_total"`
	AverageValue     int64 `json:"average_value"`

	TotalPersons int64 `json:"total_persons"`
	TotalArea    int64 `json:"total_area"`
	AvgPersons   int64 `json:"avg_persons"`

	Monthly MonthlyStats `json:"monthly"`

	NonPaymentCount int64 `json:"non_payment_count"`

	TopUsers    []UserCount           `json:"top_users"`
	RecentEdits []models.HistoryEntry `json:"recent_edits"`
}

// Stats computes the aggregate view, reading the live database directly
// (never the cache). Query failures degrade to zero values: statistics are a
// derived view, not a source of truth.
func (s *Store) Stats(opts StatsOptions) Stats {
	now := s.clock()
	month := opts.Month
	year := opts.Year
	if month == 0 {
		month = now.Month()
	}
	if year == 0 {
		year = now.Year()
	}

	loc := now.Location()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).UnixMilli()
	// Weeks start on Sunday.
	weekStart := time.Date(now.Year(), now.Month(), now.Day()-int(now.Weekday()), 0, 0, 0, 0, loc).UnixMilli()
	currentMonthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).UnixMilli()
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, loc).UnixMilli()
	monthEnd := time.Date(year, month+1, 1, 0, 0, 0, 0, loc).Add(-time.Millisecond).UnixMilli()

	st := Stats{
		Total:     s.countWhere("status = ?", models.StatusActive),
		Modified:  s.countWhere("status = ? AND is_modified = ?", models.StatusActive, true),
		Today:     s.countWhere("status = ? AND created_at >= ?", models.StatusActive, todayStart),
		ThisWeek:  s.countWhere("status = ? AND created_at >= ?", models.StatusActive, weekStart),
		ThisMonth: s.countWhere("status = ? AND created_at >= ?", models.StatusActive, currentMonthStart),
		NonPaymentCount: s.countWhere("status = ? AND has_non_payment = ?",
			models.StatusActive, true),
	}

	var financial struct {
		TotalGovernorate float64
		TotalMinistry    float64
		GrandTotal       float64
		AverageValue     float64
	}
	err := s.db.Raw(`
		SELECT
			COALESCE(SUM(grand_total), 0) AS total_governorate,
			COALESCE(SUM(ministry_total), 0) AS total_ministry,
			COALESCE(SUM(grand_total + ministry_total), 0) AS grand_total,
			COALESCE(AVG(grand_total + ministry_total), 0) AS average_value
		FROM certificates
		WHERE status = ? AND has_non_payment = ?`,
		models.StatusActive, false).Scan(&financial).Error
	if err != nil {
		s.logger.Warn("financial stats failed", "error", err)
	}
	st.TotalGovernorate = round(financial.TotalGovernorate)
	st.TotalMinistry = round(financial.TotalMinistry)
	st.GrandTotal = round(financial.GrandTotal)
	st.AverageValue = round(financial.AverageValue)

	var training struct {
		TotalPersons int64
		TotalArea    float64
		AvgPersons   float64
	}
	err = s.db.Raw(`
		SELECT
			COALESCE(SUM(persons_count), 0) AS total_persons,
			COALESCE(SUM(area), 0) AS total_area,
			COALESCE(AVG(persons_count), 0) AS avg_persons
		FROM certificates
		WHERE status = ? AND has_non_payment = ?`,
		models.StatusActive, false).Scan(&training).Error
	if err != nil {
		s.logger.Warn("training stats failed", "error", err)
	}
	st.TotalPersons = training.TotalPersons
	st.TotalArea = round(training.TotalArea)
	st.AvgPersons = round(training.AvgPersons)

	var monthly struct {
		TrainingFee      float64
		ConsultantFee    float64
		EvacuationFee    float64
		InspectionFee    float64
		GovernorateTotal float64
		MinistryFee      float64
		AreaFee          float64
		MinistryTotal    float64
		PersonsCount     int64
		Count            int64
	}
	err = s.db.Raw(`
		SELECT
			COALESCE(SUM(training_fee), 0) AS training_fee,
			COALESCE(SUM(consultant_fee), 0) AS consultant_fee,
			COALESCE(SUM(evacuation_fee), 0) AS evacuation_fee,
			COALESCE(SUM(inspection_fee), 0) AS inspection_fee,
			COALESCE(SUM(grand_total), 0) AS governorate_total,
			COALESCE(SUM(ministry_fee), 0) AS ministry_fee,
			COALESCE(SUM(area_fee), 0) AS area_fee,
			COALESCE(SUM(ministry_total), 0) AS ministry_total,
			COALESCE(SUM(persons_count), 0) AS persons_count,
			COUNT(*) AS count
		FROM certificates
		WHERE status = ? AND has_non_payment = ? AND created_at >= ? AND created_at <= ?`,
		models.StatusActive, false, monthStart, monthEnd).Scan(&monthly).Error
	if err != nil {
		s.logger.Warn("monthly stats failed", "error", err)
	}
	st.Monthly = MonthlyStats{
		Month:              month,
		Year:               year,
		IsCurrentMonth:     month == now.Month() && year == now.Year(),
		Count:              monthly.Count,
		TrainingFee:        round(monthly.TrainingFee),
		ConsultantFee:      round(monthly.ConsultantFee),
		EvacuationFee:      round(monthly.EvacuationFee),
		InspectionFee:      round(monthly.InspectionFee),
		GovernorateTotal:   round(monthly.GovernorateTotal),
		MinistryPersonsFee: round(monthly.MinistryFee),
		AreaFee:            round(monthly.AreaFee),
		MinistryTotal:      round(monthly.MinistryTotal),
		PersonsCount:       monthly.PersonsCount,
	}

	err = s.db.Raw(`
		SELECT user_name AS name, COUNT(*) AS count
		FROM certificates
		WHERE status = ? AND user_name IS NOT NULL AND user_name != ''
		GROUP BY user_name
		ORDER BY count DESC
		LIMIT 5`, models.StatusActive).Scan(&st.TopUsers).Error
	if err != nil {
		s.logger.Warn("top users failed", "error", err)
	}

	recent, err := history.Recent(s.db, 5)
	if err != nil {
		s.logger.Warn("recent edits failed", "error", err)
	} else {
		st.RecentEdits = recent
	}

	return st
}

func (s *Store) countWhere(query string, args ...any) int64 {
	var count int64
	err := s.db.Model(&models.Certificate{}).Where(query, args...).Count(&count).Error
	if err != nil {
		s.logger.Warn("stats count failed", "query", query, "error", err)
		return 0
	}
	return count
}

func round(v float64) int64 {
	return int64(math.Round(v))
}
