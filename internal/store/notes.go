package store

import (
	"fmt"

	"github.com/msallam/certstore/internal/models"
)

// AddNote appends a legacy free-text note. The notes feature predates
// certificates; the ops stay for image compatibility.
func (s *Store) AddNote(title, body string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := models.Note{Title: title, Body: body, CreatedAt: s.nowMilli()}
	if err := s.db.Create(&note).Error; err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	s.dataChanged()
	return &note, nil
}

// Notes returns all legacy notes, newest first.
func (s *Store) Notes() ([]models.Note, error) {
	var notes []models.Note
	if err := s.db.Order("created_at DESC, id DESC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}
