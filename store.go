package allocation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"
)

// Store persists one Portfolio per user in a directory.
//
// A Store does not lock records: two concurrent updates of the same user
// race, and the last Save wins.
type Store struct {
	dir string
	log logrus.FieldLogger
	now func() time.Time
}

// StoreOption configures optional Store behavior.
type StoreOption func(*Store)

// WithLogger sets the logger used to report recovered failures.
func WithLogger(log logrus.FieldLogger) StoreOption {
	return func(s *Store) { s.log = log }
}

// WithClock sets the clock used to stamp saved records.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore opens the store rooted in dir, creating the directory if needed.
func NewStore(dir string, options ...StoreOption) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create store directory %q: %w", dir, err)
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Store{dir: dir, log: discard, now: time.Now}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

// Dir returns the store root directory.
func (s *Store) Dir() string { return s.dir }

// path returns the record file of userID.
func (s *Store) path(userID string) (string, error) {
	key, err := recordKey(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key+recordSuffix), nil
}

// Load returns the portfolio of userID.
//
// A user without a record gets the empty portfolio. So does a user whose
// record is corrupted: the failure is logged and the record will be
// overwritten by the next Save.
func (s *Store) Load(userID string) (Portfolio, error) {
	path, err := s.path(userID)
	if err != nil {
		return Portfolio{}, err
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewPortfolio(), nil
	}
	if err != nil {
		return Portfolio{}, fmt.Errorf("cannot read portfolio of %q: %w", userID, err)
	}

	var p Portfolio
	if err := json.Unmarshal(content, &p); err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id": userID,
			"path":    path,
			"error":   err.Error(),
		}).Warn("invalid portfolio record, using an empty portfolio")
		return NewPortfolio(), nil
	}
	return p, nil
}

// Save overwrites the record of userID with p, and stamps p.LastUpdated once
// the record is written.
//
// The record is replaced atomically: readers see either the previous or the
// new record, never a partial one.
func (s *Store) Save(userID string, p *Portfolio) error {
	path, err := s.path(userID)
	if err != nil {
		return err
	}
	now := s.now()
	stamped := *p
	stamped.LastUpdated = &now

	content, err := json.MarshalIndent(stamped, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode portfolio of %q: %w", userID, err)
	}
	content = append(content, '\n')
	if err := renameio.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("cannot write portfolio of %q: %w", userID, err)
	}
	p.LastUpdated = &now
	s.log.WithFields(logrus.Fields{"user_id": userID, "path": path}).Debug("portfolio saved")
	return nil
}

// Raw returns the persisted record of userID as indented JSON, the empty
// portfolio if there is none.
func (s *Store) Raw(userID string) ([]byte, error) {
	p, err := s.Load(userID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(p, "", "  ")
}

// Users returns, in lexical order, the users that have a record whose file
// name can be mapped back to the user identifier.
func (s *Store) Users() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list store directory %q: %w", s.dir, err)
	}
	var users []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if user, ok := userFromFile(e.Name()); ok {
			users = append(users, user)
		}
	}
	sort.Strings(users)
	return users, nil
}
