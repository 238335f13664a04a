// Package store is the certificate data layer: CRUD with diff-based change
// tracking, soft deletes, a short-TTL query cache, debounced batch
// persistence of the data image, and derived statistics.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/msallam/certstore/internal/cache"
	"github.com/msallam/certstore/internal/db"
	"github.com/msallam/certstore/internal/history"
	"github.com/msallam/certstore/internal/models"
)

// fieldPages maps each tracked field to the document pages a change to it
// touches. Only the dates of affected pages move on an update.
var fieldPages = map[string][]models.Page{
	"persons_count":  {models.PageGovernorate, models.PageTraining, models.PageMinistry},
	"training_fee":   {models.PageGovernorate},
	"consultant_fee": {models.PageGovernorate},
	"evacuation_fee": {models.PageGovernorate},
	"inspection_fee": {models.PageGovernorate},
	"grand_total":    {models.PageGovernorate},
	"area":           {models.PageMinistry, models.PageCertificate},
	"area_fee":       {models.PageMinistry},
	"ministry_fee":   {models.PageMinistry},
	"ministry_total": {models.PageMinistry},
	"protection_fee": {models.PageCertificate},
	"activity":       {models.PageGovernorate, models.PageTraining, models.PageMinistry, models.PageCertificate, models.PageDecision},
	"name":           {models.PageGovernorate, models.PageTraining, models.PageMinistry, models.PageCertificate, models.PageDecision},
	"location":       {models.PageGovernorate, models.PageTraining, models.PageMinistry, models.PageCertificate, models.PageDecision},
}

// allPages is the order affected-page lists are reported in.
var allPages = []models.Page{
	models.PageGovernorate,
	models.PageTraining,
	models.PageMinistry,
	models.PageCertificate,
	models.PageDecision,
}

// Store owns the certificate rows in the data image. It is safe for
// concurrent use: mutations serialize behind a single writer lock.
type Store struct {
	mu        sync.Mutex
	image     *db.Image
	db        *gorm.DB
	saver     *db.BatchSaver
	cache     *cache.Cache
	clock     func() time.Time
	logger    *slog.Logger
	saveDelay time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock; timestamps come from here.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.logger = log }
}

// WithSaveDelay sets the batch-save debounce window.
func WithSaveDelay(delay time.Duration) Option {
	return func(s *Store) { s.saveDelay = delay }
}

// Open loads (or creates) the data image under dataDir and returns a ready
// store.
func Open(dataDir string, opts ...Option) (*Store, error) {
	s := &Store{
		clock:     time.Now,
		logger:    slog.Default(),
		saveDelay: db.DefaultSaveDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	img, err := db.Open(dataDir, s.logger)
	if err != nil {
		return nil, err
	}
	s.image = img
	s.db = img.DB
	s.cache = cache.New(cache.DefaultMaxSize)
	s.saver = db.NewBatchSaver(s.saveDelay, img.Flush, s.logger)
	s.repairTotals()
	return s, nil
}

// nowMilli is the store's single source of write timestamps.
func (s *Store) nowMilli() int64 {
	return s.clock().UnixMilli()
}

// CertificateInput carries caller-supplied certificate fields. Nil fields are
// left alone: defaulted on create, kept at their current value on update.
// Grand and ministry totals are intentionally absent; they are always derived.
type CertificateInput struct {
	Activity      *string
	Name          *string
	Location      *string
	Area          *float64
	PersonsCount  *int
	TrainingFee   *float64
	ConsultantFee *float64
	EvacuationFee *float64
	InspectionFee *float64
	AreaFee       *float64
	MinistryFee   *float64
	ProtectionFee *float64
	UserName      *string
}

// apply copies the non-nil input fields onto c and recomputes the derived
// totals from the resulting component fees.
func (in *CertificateInput) apply(c *models.Certificate) {
	if in.Activity != nil {
		c.Activity = *in.Activity
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Location != nil {
		c.Location = *in.Location
	}
	if in.Area != nil {
		c.Area = *in.Area
	}
	if in.PersonsCount != nil {
		c.PersonsCount = *in.PersonsCount
	}
	if in.TrainingFee != nil {
		c.TrainingFee = *in.TrainingFee
	}
	if in.ConsultantFee != nil {
		c.ConsultantFee = *in.ConsultantFee
	}
	if in.EvacuationFee != nil {
		c.EvacuationFee = *in.EvacuationFee
	}
	if in.InspectionFee != nil {
		c.InspectionFee = *in.InspectionFee
	}
	if in.AreaFee != nil {
		c.AreaFee = *in.AreaFee
	}
	if in.MinistryFee != nil {
		c.MinistryFee = *in.MinistryFee
	}
	if in.ProtectionFee != nil {
		c.ProtectionFee = *in.ProtectionFee
	}
	if in.UserName != nil {
		c.UserName = *in.UserName
	}
	// Totals are never trusted from the caller.
	c.GrandTotal = c.TrainingFee + c.ConsultantFee + c.EvacuationFee + c.InspectionFee
	c.MinistryTotal = c.AreaFee + c.MinistryFee
}

// validate enforces the required-field rules on a candidate record.
func validate(c *models.Certificate) error {
	if strings.TrimSpace(c.Activity) == "" {
		return &ValidationError{Field: "activity", Message: "must not be empty"}
	}
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if c.PersonsCount < 1 {
		return &ValidationError{Field: "persons_count", Message: "must be at least 1"}
	}
	if c.Area < 1 {
		return &ValidationError{Field: "area", Message: "must be at least 1"}
	}
	return nil
}

// Create inserts a new certificate. Missing numeric fields default to 0 and
// text fields to empty; all five page dates start at now.
func (s *Store) Create(in CertificateInput) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert := models.Certificate{Status: models.StatusActive}
	in.apply(&cert)
	if err := validate(&cert); err != nil {
		return nil, err
	}

	now := s.nowMilli()
	cert.CreatedAt = now
	cert.UpdatedAt = now
	for _, p := range allPages {
		cert.SetPageDate(p, now)
	}

	if err := s.db.Create(&cert).Error; err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	s.dataChanged()
	s.logger.Info("certificate created", "id", cert.ID, "name", cert.Name)
	return &cert, nil
}

// UpdateResult reports what an update did.
type UpdateResult struct {
	Certificate   *models.Certificate
	ChangedFields []models.FieldChange
	AffectedPages []models.Page
	NoChanges     bool
}

// Update applies newData to a certificate. If no tracked field actually
// changes (after normalization) the call is a complete no-op: no history
// row, no counters, no persistence, and reason and actor are ignored.
func (s *Store) Update(id uint, in CertificateInput, reason, actor string) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.getByID(id)
	if err != nil {
		return nil, err
	}

	candidate := *old
	in.apply(&candidate)
	if err := validate(&candidate); err != nil {
		return nil, err
	}

	changes := history.Diff(old, &candidate, history.TrackedFields)
	if len(changes) == 0 {
		return &UpdateResult{Certificate: old, NoChanges: true}, nil
	}

	now := s.nowMilli()
	pages := affectedPages(changes)
	for _, p := range pages {
		candidate.SetPageDate(p, now)
	}
	candidate.UpdatedAt = now
	candidate.EditCount = old.EditCount + 1
	candidate.IsModified = true

	if actor == "" {
		actor = candidate.UserName
	}
	entry := models.HistoryEntry{
		CertificateID: id,
		OldData:       history.Snapshot(old),
		NewData: &models.ChangeSnapshot{
			Snapshot:      history.Snapshot(&candidate),
			AffectedPages: pages,
		},
		ChangedFields: changes,
		EditReason:    reason,
		EditedBy:      actor,
		EditedAt:      now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := history.Record(tx, &entry); err != nil {
			return err
		}
		if err := tx.Save(&candidate).Error; err != nil {
			return fmt.Errorf("update certificate %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dataChanged()
	s.logger.Info("certificate updated", "id", id, "changed", len(changes), "pages", pages)
	return &UpdateResult{
		Certificate:   &candidate,
		ChangedFields: changes,
		AffectedPages: pages,
	}, nil
}

// affectedPages resolves the set of pages touched by the changed fields,
// reported in page order.
func affectedPages(changes []models.FieldChange) []models.Page {
	touched := make(map[models.Page]bool)
	for _, ch := range changes {
		for _, p := range fieldPages[ch.Field] {
			touched[p] = true
		}
	}
	var pages []models.Page
	for _, p := range allPages {
		if touched[p] {
			pages = append(pages, p)
		}
	}
	return pages
}

// GetByID returns one certificate, deleted or not.
func (s *Store) GetByID(id uint) (*models.Certificate, error) {
	return s.getByID(id)
}

func (s *Store) getByID(id uint) (*models.Certificate, error) {
	var cert models.Certificate
	if err := s.db.First(&cert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("certificate %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load certificate %d: %w", id, err)
	}
	return &cert, nil
}

// ListOptions filters List and Count.
type ListOptions struct {
	Status       string
	ModifiedOnly bool
	FromDate     int64 // inclusive, Unix ms
	ToDate       int64 // inclusive, Unix ms
	Activity     string
	Name         string
	Location     string
	Limit        int
	Offset       int
}

func (o ListOptions) query(q *gorm.DB) *gorm.DB {
	if o.Status != "" {
		q = q.Where("status = ?", o.Status)
	}
	if o.ModifiedOnly {
		q = q.Where("is_modified = ?", true)
	}
	if o.FromDate > 0 {
		q = q.Where("created_at >= ?", o.FromDate)
	}
	if o.ToDate > 0 {
		q = q.Where("created_at <= ?", o.ToDate)
	}
	if o.Name != "" {
		q = q.Where("name LIKE ?", "%"+o.Name+"%")
	}
	if o.Activity != "" {
		q = q.Where("activity LIKE ?", "%"+o.Activity+"%")
	}
	if o.Location != "" {
		q = q.Where("location LIKE ?", "%"+o.Location+"%")
	}
	return q
}

// List returns certificates matching the filters, newest first.
func (s *Store) List(opts ListOptions) ([]models.Certificate, error) {
	q := opts.query(s.db.Model(&models.Certificate{})).Order("created_at DESC, id DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
		if opts.Offset > 0 {
			q = q.Offset(opts.Offset)
		}
	}
	var certs []models.Certificate
	if err := q.Find(&certs).Error; err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// Count returns the number of certificates matching the filters; used by
// callers to size pagination.
func (s *Store) Count(opts ListOptions) (int64, error) {
	var count int64
	q := opts.query(s.db.Model(&models.Certificate{}))
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
	}
	return count, nil
}

// DefaultSearchLimit caps search results when the caller passes no limit.
const DefaultSearchLimit = 200

// Search matches term as a substring of activity, name or location across
// active certificates, newest first. Results are cached briefly.
func (s *Store) Search(term string, limit, offset int) ([]models.Certificate, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	key := fmt.Sprintf("search:%s:%d:%d", term, limit, offset)
	if cached, ok := s.cache.Get(key).([]models.Certificate); ok {
		return cached, nil
	}

	pattern := "%" + term + "%"
	var certs []models.Certificate
	err := s.db.
		Where("status = ?", models.StatusActive).
		Where("name LIKE ? OR activity LIKE ? OR location LIKE ?", pattern, pattern, pattern).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&certs).Error
	if err != nil {
		return nil, fmt.Errorf("search certificates: %w", err)
	}
	s.cache.Set(key, certs, cache.SearchTTL)
	return certs, nil
}

// DeleteReason is the history reason recorded on soft deletes.
const DeleteReason = "certificate deleted"

// SoftDelete marks a certificate deleted. The row and its history stay in
// the image; default queries skip it. Deleting twice is a no-op.
func (s *Store) SoftDelete(id uint, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, err := s.getByID(id)
	if err != nil {
		return err
	}
	if cert.Status == models.StatusDeleted {
		return nil
	}

	now := s.nowMilli()
	entry := models.HistoryEntry{
		CertificateID: id,
		OldData:       history.Snapshot(cert),
		ChangedFields: []models.FieldChange{
			{Field: "status", OldValue: cert.Status, NewValue: models.StatusDeleted},
		},
		EditReason: DeleteReason,
		EditedBy:   actor,
		EditedAt:   now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := history.Record(tx, &entry); err != nil {
			return err
		}
		res := tx.Model(&models.Certificate{}).Where("id = ?", id).
			Updates(map[string]any{"status": models.StatusDeleted, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("soft delete certificate %d: %w", id, res.Error)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.dataChanged()
	s.logger.Info("certificate deleted", "id", id, "by", actor)
	return nil
}

// History returns the audit trail for a certificate, newest first,
// including the deletion entry for soft-deleted certificates.
func (s *Store) History(certificateID uint) ([]models.HistoryEntry, error) {
	return history.ForCertificate(s.db, certificateID)
}

// uniqueColumns safelists the columns UniqueValues may touch.
var uniqueColumns = map[string]bool{
	"activity": true,
	"name":     true,
	"location": true,
}

// UniqueValues returns the sorted distinct non-empty values of a safelisted
// column, for autocomplete. Values lose a trailing period and surrounding
// whitespace; cleanup casualties that end up empty are skipped.
func (s *Store) UniqueValues(column string, opts ListOptions) ([]string, error) {
	if !uniqueColumns[column] {
		return nil, &ValidationError{Field: column, Message: "is not a searchable column"}
	}

	q := s.db.Model(&models.Certificate{}).Distinct(column).
		Where(fmt.Sprintf("%s IS NOT NULL AND %s != ''", column, column))
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	q = q.Order(column + " ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	var raw []string
	if err := q.Pluck(column, &raw).Error; err != nil {
		return nil, fmt.Errorf("unique values for %s: %w", column, err)
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "."))
		if v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

// dataChanged runs after every accepted mutation: the whole cache is
// dropped and a flush is scheduled.
func (s *Store) dataChanged() {
	s.cache.Invalidate("")
	s.saver.Schedule()
}

// Flush writes the data image to disk now, regardless of pending state,
// bypassing the debounce window. Used before shutdown and other
// durability-critical moments.
func (s *Store) Flush() error {
	s.saver.Cancel()
	if err := s.image.Flush(); err != nil {
		return &StorageError{Op: "flush data image", Err: err}
	}
	return nil
}

// Close flushes and releases the image.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.image.Close()
}

// Cache exposes the query cache (inspection and tests).
func (s *Store) Cache() *cache.Cache {
	return s.cache
}

// Saver exposes the batch saver (inspection and tests).
func (s *Store) Saver() *db.BatchSaver {
	return s.saver
}

// repairTotals recomputes stored totals that drifted from their component
// fees in older images. Runs once at open, before any caller sees the data.
func (s *Store) repairTotals() {
	var certs []models.Certificate
	if err := s.db.Where("status = ?", models.StatusActive).Find(&certs).Error; err != nil {
		s.logger.Warn("total repair scan failed", "error", err)
		return
	}
	fixed := 0
	for _, cert := range certs {
		grand := cert.TrainingFee + cert.ConsultantFee + cert.EvacuationFee + cert.InspectionFee
		ministry := cert.AreaFee + cert.MinistryFee
		if cert.GrandTotal == grand && cert.MinistryTotal == ministry {
			continue
		}
		err := s.db.Model(&models.Certificate{}).Where("id = ?", cert.ID).
			Updates(map[string]any{"grand_total": grand, "ministry_total": ministry}).Error
		if err != nil {
			s.logger.Warn("total repair failed", "id", cert.ID, "error", err)
			continue
		}
		fixed++
	}
	if fixed > 0 {
		s.saver.Schedule()
		s.logger.Info("repaired certificate totals", "count", fixed)
	}
}
