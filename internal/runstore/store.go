package runstore

import (
	"sync"

	"github.com/epeers/corpactions/internal/models"
)

// Store holds the current session's parsed sheet and the latest enrichment
// run. State lives only for the process lifetime; a new upload replaces
// everything wholesale.
type Store struct {
	mu         sync.RWMutex
	sheet      *models.Sheet
	run        *models.RunResult
	dateColumn int
}

// New creates an empty Store
func New() *Store {
	return &Store{dateColumn: -1}
}

// SetSheet replaces the stored sheet and discards any previous run
func (s *Store) SetSheet(sheet *models.Sheet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheet = sheet
	s.run = nil
	s.dateColumn = -1
}

// Sheet returns the stored sheet, or nil when nothing has been uploaded
func (s *Store) Sheet() *models.Sheet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sheet
}

// SetRun records the latest run and the date column it was produced with
func (s *Store) SetRun(run *models.RunResult, dateColumn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = run
	s.dateColumn = dateColumn
}

// Run returns the latest run, or false when no run has completed
func (s *Store) Run() (*models.RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.run == nil {
		return nil, false
	}
	return s.run, true
}

// Clear removes all stored state
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheet = nil
	s.run = nil
	s.dateColumn = -1
}
