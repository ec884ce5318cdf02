// Package settings persists the portal's durable settings and fans out
// change notifications to interested components. Commands that modify a
// setting only report success after the new value has been written through
// to disk, so a restarted portal always reads back what the client last set.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"pkt.systems/pslog"
)

// Setting keys.
const (
	KeyOverlayOffset  = "overlay_offset"
	KeyOverlayVisible = "overlay_visible"
)

// subscriberBuffer bounds each subscriber channel; a slow subscriber drops
// notifications rather than blocking a setter.
const subscriberBuffer = 16

// Change describes one applied setting change.
type Change struct {
	Key   string
	Value any
}

// Store is a durable key/value settings store backed by a YAML file.
type Store struct {
	mu     sync.Mutex
	v      *viper.Viper
	path   string
	log    pslog.Logger
	subs   map[int]chan Change
	nextID int
}

// Open loads the settings file at path, creating the parent directory if
// needed. A missing file is not an error; defaults apply until the first
// write.
func Open(path string, logger pslog.Logger) (*Store, error) {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault(KeyOverlayOffset, 0)
	v.SetDefault(KeyOverlayVisible, true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	return &Store{
		v:    v,
		path: path,
		log:  logger.With("settings", path),
		subs: make(map[int]chan Change),
	}, nil
}

// OverlayOffset returns the persisted overlay label offset in pixels.
func (s *Store) OverlayOffset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetInt(KeyOverlayOffset)
}

// OverlayVisible returns whether the overlay should be shown.
func (s *Store) OverlayVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetBool(KeyOverlayVisible)
}

// SetOverlayOffset durably stores the overlay offset and notifies
// subscribers.
func (s *Store) SetOverlayOffset(px int) error {
	return s.set(KeyOverlayOffset, px)
}

// SetOverlayVisible durably stores overlay visibility and notifies
// subscribers.
func (s *Store) SetOverlayVisible(on bool) error {
	return s.set(KeyOverlayVisible, on)
}

func (s *Store) set(key string, value any) error {
	s.mu.Lock()
	s.v.Set(key, value)
	err := s.writeLocked()
	if err == nil {
		s.notifyLocked(Change{Key: key, Value: value})
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.log.Debug("setting persisted", "key", key, "value", value)
	return nil
}

// writeLocked replaces the settings file atomically: marshal, write to a
// temp file in the same directory, sync, then rename over the target.
func (s *Store) writeLocked() error {
	data, err := yaml.Marshal(s.v.AllSettings())
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// Subscribe registers for change notifications. The cancel function drops
// the subscription and closes the channel.
func (s *Store) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan Change, subscriberBuffer)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Store) notifyLocked(c Change) {
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
			s.log.Warn("settings subscriber lagging, notification dropped", "key", c.Key)
		}
	}
}
