package client

import (
	"fmt"
	"sync"
)

// SettingsStore is the persisted key/value store for stream settings,
// namespaced by application name. Browser local storage is one
// implementation; tests and headless runs use the in-memory one.
type SettingsStore interface {
	GetInt(name string, def int) int
	SetInt(name string, value int)
	GetBool(name string, def bool) bool
	SetBool(name string, value bool)
}

// Setting names replayed to the remote when a data channel opens.
const (
	SettingVideoBitrate   = "videoBitRate"
	SettingVideoFPS       = "videoFramerate"
	SettingAudioBitrate   = "audioBitRate"
	SettingResizeRemote   = "resizeRemote"
	SettingLocalScaling   = "scaleLocal"
	SettingPointerVisible = "pointerVisible"
)

// MemoryStore is a thread-safe in-memory SettingsStore.
type MemoryStore struct {
	mu      sync.RWMutex
	appName string
	ints    map[string]int
	bools   map[string]bool
}

// NewMemoryStore creates a store namespaced by the application name.
func NewMemoryStore(appName string) *MemoryStore {
	return &MemoryStore{
		appName: appName,
		ints:    make(map[string]int),
		bools:   make(map[string]bool),
	}
}

func (s *MemoryStore) key(name string) string {
	return fmt.Sprintf("%s_%s", s.appName, name)
}

// GetInt returns the stored integer or the default.
func (s *MemoryStore) GetInt(name string, def int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.ints[s.key(name)]; ok {
		return v
	}
	return def
}

// SetInt stores an integer value.
func (s *MemoryStore) SetInt(name string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints[s.key(name)] = value
}

// GetBool returns the stored boolean or the default.
func (s *MemoryStore) GetBool(name string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.bools[s.key(name)]; ok {
		return v
	}
	return def
}

// SetBool stores a boolean value.
func (s *MemoryStore) SetBool(name string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bools[s.key(name)] = value
}
