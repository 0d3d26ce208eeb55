package auth

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/tgienger/bugtrack/internal/db"
)

// Tokens is the access/refresh pair issued by the API
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenStore persists the signed-in user's tokens. Load returns nil when
// nobody is signed in.
type TokenStore interface {
	Load() (*Tokens, error)
	Save(Tokens) error
	Clear() error
}

// Encode compresses the JSON form of t into a printable string
func Encode(t Tokens) (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := w.Write(raw); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode
func Decode(s string) (*Tokens, error) {
	compressed, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	raw, err := io.ReadAll(flate.NewReader(bytes.NewReader(compressed)))
	if err != nil {
		return nil, fmt.Errorf("inflate tokens: %w", err)
	}
	var t Tokens
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse tokens: %w", err)
	}
	return &t, nil
}

// Settings is the key/value store the tokens are kept in
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// SettingsStore keeps encoded tokens under the "token" setting
type SettingsStore struct {
	settings Settings
}

// NewSettingsStore creates a store on top of settings
func NewSettingsStore(settings Settings) *SettingsStore {
	return &SettingsStore{settings: settings}
}

// Load implements TokenStore.
func (s *SettingsStore) Load() (*Tokens, error) {
	v, err := s.settings.GetSetting(db.SettingToken)
	if err != nil {
		return nil, err
	}
	if v == "" {
		return nil, nil
	}
	return Decode(v)
}

// Save implements TokenStore.
func (s *SettingsStore) Save(t Tokens) error {
	v, err := Encode(t)
	if err != nil {
		return err
	}
	return s.settings.SetSetting(db.SettingToken, v)
}

// Clear implements TokenStore.
func (s *SettingsStore) Clear() error {
	return s.settings.DeleteSetting(db.SettingToken)
}

// MemoryStore keeps tokens for the life of the process
type MemoryStore struct {
	mu     sync.Mutex
	tokens *Tokens
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements TokenStore.
func (m *MemoryStore) Load() (*Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return nil, nil
	}
	t := *m.tokens
	return &t, nil
}

// Save implements TokenStore.
func (m *MemoryStore) Save(t Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = &t
	return nil
}

// Clear implements TokenStore.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = nil
	return nil
}
