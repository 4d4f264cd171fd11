package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ignite/seatwatch/internal/domain"
)

// LocalRecord is one section in the local subscriptions file.
type LocalRecord struct {
	SectionCode  string   `json:"section_code"`
	CourseTitle  string   `json:"course_title"`
	PhoneNumbers []string `json:"phone_numbers,omitempty"`
	Emails       []string `json:"emails,omitempty"`
}

type localFile struct {
	Subscriptions []LocalRecord `json:"subscriptions"`
}

// LocalStore keeps subscriptions in a JSON file for development. The file
// is re-read on every fetch so it can be edited while the watcher runs.
type LocalStore struct {
	path string
	mu   sync.Mutex
}

// NewLocalStore opens path, creating an empty file if needed.
func NewLocalStore(path string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	s := &LocalStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(localFile{Subscriptions: []LocalRecord{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FetchActive returns the file's subscriptions that have recipients.
func (s *LocalStore) FetchActive(_ context.Context) (map[domain.Code]domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	subs := make(map[domain.Code]domain.Subscription)
	for _, r := range f.Subscriptions {
		addSubscription(subs, r.SectionCode, r.CourseTitle, r.PhoneNumbers, r.Emails)
	}
	return subs, nil
}

// Prune removes recipients from every record matching code.
func (s *LocalStore) Prune(_ context.Context, code domain.Code, recipients []domain.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	phones, emails := domain.SplitRecipients(recipients)
	changed := false
	for i := range f.Subscriptions {
		r := &f.Subscriptions[i]
		c, err := domain.ParseCode(r.SectionCode)
		if err != nil || c != code {
			continue
		}
		var removed int
		r.PhoneNumbers, removed = without(r.PhoneNumbers, phones)
		changed = changed || removed > 0
		r.Emails, removed = without(r.Emails, emails)
		changed = changed || removed > 0
	}
	if !changed {
		return nil
	}
	return s.write(f)
}

// Close is a no-op.
func (s *LocalStore) Close() error { return nil }

func (s *LocalStore) read() (localFile, error) {
	var f localFile
	data, err := os.ReadFile(s.path)
	if err != nil {
		return f, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return f, nil
}

func (s *LocalStore) write(f localFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling subscriptions: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}

func without(list, drop []string) ([]string, int) {
	if len(drop) == 0 || len(list) == 0 {
		return list, 0
	}
	out := list[:0]
	removed := 0
	for _, v := range list {
		if contains(drop, v) {
			removed++
			continue
		}
		out = append(out, v)
	}
	return out, removed
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
