// Package session tracks the tenant (DBMS) the user is looking at.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/tgienger/bugtrack/internal/db"
	"github.com/tgienger/bugtrack/internal/models"
)

// ErrTenantNotFound is returned when selecting an id that is not in the list
var ErrTenantNotFound = errors.New("tenant not found")

// Lister fetches the tenant list
type Lister interface {
	ListDbms(ctx context.Context) ([]models.Dbms, error)
}

// Settings persists the last selected tenant
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Session holds the tenant list and the current selection
type Session struct {
	lister   Lister
	settings Settings
	log      *zap.Logger

	mu      sync.RWMutex
	tenants []models.Dbms
	current *models.Dbms
}

// New creates a session. settings may be nil.
func New(lister Lister, settings Settings, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{lister: lister, settings: settings, log: logger}
}

// Load fetches the tenants and restores the last selected one, falling back
// to the first tenant.
func (s *Session) Load(ctx context.Context) error {
	tenants, err := s.lister.ListDbms(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = tenants
	s.current = nil
	if len(tenants) == 0 {
		return nil
	}
	if id, ok := s.lastSelected(); ok {
		if t := find(tenants, id); t != nil {
			s.current = t
			return nil
		}
	}
	s.current = &tenants[0]
	return nil
}

// Refresh refetches the tenants. The selection is cleared when the list is
// empty and reset to the first tenant when the selected one disappeared.
func (s *Session) Refresh(ctx context.Context) error {
	tenants, err := s.lister.ListDbms(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = tenants
	switch {
	case len(tenants) == 0:
		s.current = nil
	case s.current == nil:
		s.current = &tenants[0]
	default:
		if t := find(tenants, s.current.ID); t != nil {
			s.current = t
		} else {
			s.log.Info("selected tenant disappeared, resetting", zap.Int64("dbms_id", s.current.ID))
			s.current = &tenants[0]
		}
	}
	return nil
}

// SetCurrent selects a tenant by id and remembers it for the next run
func (s *Session) SetCurrent(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := find(s.tenants, id)
	if t == nil {
		return fmt.Errorf("%w: %d", ErrTenantNotFound, id)
	}
	s.current = t
	if s.settings != nil {
		if err := s.settings.SetSetting(db.SettingLastDbmsID, strconv.FormatInt(id, 10)); err != nil {
			s.log.Warn("failed to persist tenant", zap.Error(err))
		}
	}
	return nil
}

// Tenants returns a copy of the tenant list
func (s *Session) Tenants() []models.Dbms {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Dbms(nil), s.tenants...)
}

// Current returns the selected tenant
func (s *Session) Current() (models.Dbms, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Dbms{}, false
	}
	return *s.current, true
}

func (s *Session) lastSelected() (int64, bool) {
	if s.settings == nil {
		return 0, false
	}
	v, err := s.settings.GetSetting(db.SettingLastDbmsID)
	if err != nil || v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func find(tenants []models.Dbms, id int64) *models.Dbms {
	for i := range tenants {
		if tenants[i].ID == id {
			t := tenants[i]
			return &t
		}
	}
	return nil
}
