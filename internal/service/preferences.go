package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"news_reader/internal/domain"
)

// ErrEmptyTopic is returned when a topic is blank.
var ErrEmptyTopic = errors.New("topic is empty")

// PreferencesManager owns the notification flag and the selected topics.
type PreferencesManager struct {
	store      PreferenceStore
	notifier   Notifier
	background BackgroundSync
	logger     *slog.Logger

	mu    sync.RWMutex
	prefs domain.Preferences
}

func NewPreferencesManager(store PreferenceStore, notifier Notifier, background BackgroundSync, logger *slog.Logger) *PreferencesManager {
	return &PreferencesManager{
		store:      store,
		notifier:   notifier,
		background: background,
		logger:     logger.With("component", "preferences"),
		prefs:      domain.DefaultPreferences(),
	}
}

// Load reads the stored preferences; defaults are used but not written when
// nothing is stored.
func (m *PreferencesManager) Load(ctx context.Context) {
	prefs := m.store.GetPreferences(ctx)

	m.mu.Lock()
	m.prefs = prefs.Clone()
	m.mu.Unlock()
}

func (m *PreferencesManager) Preferences() domain.Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs.Clone()
}

func (m *PreferencesManager) TopicCatalog() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs.TopicCatalog()
}

// EnableNotifications asks for permission and, when granted, persists the
// flag and registers the background sync. A denial returns false, nil.
func (m *PreferencesManager) EnableNotifications(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.notifier.RequestPermission(ctx) {
		m.logger.Warn("notification permission denied")
		return false, nil
	}

	next := m.prefs.Clone()
	next.NotificationsEnabled = true
	if err := m.store.SavePreferences(ctx, next); err != nil {
		return false, fmt.Errorf("enable notifications: %w", err)
	}
	m.prefs = next

	if err := m.background.Register(ctx); err != nil {
		m.logger.Error("failed to register background sync", "error", err)
	}

	return true, nil
}

// DisableNotifications stops the background sync, drops pending
// notifications and persists the flag. Only the persistence step can fail.
func (m *PreferencesManager) DisableNotifications(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.background.Unregister(ctx); err != nil {
		m.logger.Error("failed to unregister background sync", "error", err)
	}
	m.notifier.CancelAll(ctx)

	next := m.prefs.Clone()
	next.NotificationsEnabled = false
	if err := m.store.SavePreferences(ctx, next); err != nil {
		return fmt.Errorf("disable notifications: %w", err)
	}
	m.prefs = next

	return nil
}

// EnsureBackgroundSync re-registers the background job at startup when
// notifications are on and permission is still granted.
func (m *PreferencesManager) EnsureBackgroundSync(ctx context.Context) {
	m.mu.RLock()
	enabled := m.prefs.NotificationsEnabled
	m.mu.RUnlock()

	if !enabled || m.background.IsRegistered() {
		return
	}
	if !m.notifier.CheckPermission(ctx) {
		m.logger.Warn("notifications enabled but permission is missing")
		return
	}
	if err := m.background.Register(ctx); err != nil {
		m.logger.Error("failed to register background sync", "error", err)
	}
}

// ToggleTopic removes a selected topic or adds an unselected one. The last
// remaining topic is never removed.
func (m *PreferencesManager) ToggleTopic(ctx context.Context, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ErrEmptyTopic
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.prefs.HasTopic(topic) {
		return m.removeLocked(ctx, topic)
	}
	return m.addLocked(ctx, topic)
}

// AddTopic is a no-op for a topic that is already selected.
func (m *PreferencesManager) AddTopic(ctx context.Context, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ErrEmptyTopic
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(ctx, topic)
}

// RemoveTopic is a no-op when only one topic is selected.
func (m *PreferencesManager) RemoveTopic(ctx context.Context, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(ctx, strings.TrimSpace(topic))
}

func (m *PreferencesManager) addLocked(ctx context.Context, topic string) error {
	if m.prefs.HasTopic(topic) {
		return nil
	}

	next := m.prefs.Clone()
	next.SelectedTopics = append(next.SelectedTopics, topic)
	return m.saveLocked(ctx, next)
}

func (m *PreferencesManager) removeLocked(ctx context.Context, topic string) error {
	if len(m.prefs.SelectedTopics) <= 1 || !m.prefs.HasTopic(topic) {
		return nil
	}

	next := m.prefs.Clone()
	next.SelectedTopics = slices.DeleteFunc(next.SelectedTopics, func(t string) bool { return t == topic })
	return m.saveLocked(ctx, next)
}

func (m *PreferencesManager) saveLocked(ctx context.Context, next domain.Preferences) error {
	if err := m.store.SavePreferences(ctx, next); err != nil {
		return fmt.Errorf("save topics: %w", err)
	}
	m.prefs = next
	return nil
}
