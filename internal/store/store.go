// Package store is the single source of truth for persisted users, actions
// and notifications. Every mutation rewrites the whole backing document, so
// an external reader never observes a partial write.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pulsewatch/pulsewatch/internal/metrics"
	"github.com/pulsewatch/pulsewatch/internal/models"
	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// Store holds the in-memory user table mirrored to one JSON document.
// All operations are serialized through a single mutex; callers may invoke
// it from any goroutine.
type Store struct {
	path   string
	logger *logrus.Logger

	mu    sync.Mutex
	users []*models.User

	metricsManager *metrics.Manager
}

// Open loads the persisted document at path, or writes an empty one if it
// does not exist. A malformed document is a fatal startup error.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		logger: utils.GetLogger(),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// SetMetricsManager attaches the metrics manager. Optional.
func (s *Store) SetMetricsManager(m *metrics.Manager) {
	s.metricsManager = m
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.WithField("path", s.path).Info("Record document not found, creating empty one")
		s.users = []*models.User{}
		return s.persist()
	}
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to read record document", err.Error())
	}

	var users []*models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return utils.NewAppError(utils.ErrCodeValidation, "Malformed record document", err.Error())
	}

	if err := validateDocument(users); err != nil {
		return err
	}

	s.users = users
	s.logger.WithFields(logrus.Fields{
		"path":  s.path,
		"users": len(users),
	}).Info("Record document loaded")

	return nil
}

// validateDocument checks the loaded document against the schema, including
// global uniqueness of notification ids. The scheduler and dispatcher index
// by notification id alone, so per-user uniqueness is not enough.
func validateDocument(users []*models.User) error {
	seenUsers := make(map[string]bool)
	seenNotifications := make(map[string]bool)

	for _, u := range users {
		if u == nil {
			return utils.NewAppError(utils.ErrCodeValidation, "Null user record in document")
		}
		if err := u.Validate(); err != nil {
			return err
		}
		if seenUsers[u.ID] {
			return utils.NewAppError(utils.ErrCodeValidation, "Duplicate user id in document", u.ID)
		}
		seenUsers[u.ID] = true

		for _, n := range u.Notifications {
			if seenNotifications[n.ID] {
				return utils.NewAppError(utils.ErrCodeValidation, "Duplicate notification id in document", n.ID)
			}
			seenNotifications[n.ID] = true
		}
	}

	return nil
}

// persist rewrites the full document. Caller must hold the mutex (or be the
// loader before the store is shared). The write goes through a temp file and
// a rename so a crash never leaves a truncated document behind.
func (s *Store) persist() error {
	start := time.Now()

	data, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to serialize record document", err.Error())
	}

	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create document directory", err.Error())
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to write record document", err.Error())
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to replace record document", err.Error())
	}

	if s.metricsManager != nil {
		s.metricsManager.Prometheus().RecordStoreRewrite(time.Since(start))
	}

	return nil
}

func (s *Store) findUser(userID string) *models.User {
	for _, u := range s.users {
		if u.ID == userID {
			return u
		}
	}
	return nil
}

// mustUser resolves a user or returns a not-found error. Internal lookups
// assume the user exists; this error is not meant to reach end users.
func (s *Store) mustUser(userID string) (*models.User, error) {
	u := s.findUser(userID)
	if u == nil {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Unknown user", userID)
	}
	return u, nil
}

// CreateUserIfNotExists inserts a new user with empty lists. Idempotent:
// calling it for an existing user id is a no-op.
func (s *Store) CreateUserIfNotExists(userID, chatAddress string) (*models.User, error) {
	if userID == "" {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "User id is required")
	}
	if chatAddress == "" {
		return nil, utils.NewAppError(utils.ErrCodeValidation, "User chat address is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if u := s.findUser(userID); u != nil {
		return u.Clone(), nil
	}

	u := &models.User{
		ID:            userID,
		ChatAddress:   chatAddress,
		Actions:       []models.Action{},
		Notifications: []models.Notification{},
	}
	s.users = append(s.users, u)

	if err := s.persist(); err != nil {
		return nil, err
	}

	s.logger.WithField("user", userID).Info("User created")
	return u.Clone(), nil
}

// ListActions returns the user's actions sorted by name.
func (s *Store) ListActions(userID string) ([]models.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.mustUser(userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Action, len(u.Actions))
	copy(out, u.Actions)
	return out, nil
}

// AddAction assigns a fresh id to the input and appends it to the user's
// action list, keeping the list sorted by name.
func (s *Store) AddAction(userID string, in models.ActionInput) (*models.Action, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.mustUser(userID)
	if err != nil {
		return nil, err
	}

	action := models.Action{
		ID:      uuid.NewString(),
		Name:    in.Name,
		Command: in.Command,
	}
	u.Actions = append(u.Actions, action)
	sort.Slice(u.Actions, func(i, j int) bool { return u.Actions[i].Name < u.Actions[j].Name })

	if err := s.persist(); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user": userID, "action": action.ID}).Info("Action added")
	return &action, nil
}

// RemoveAction deletes an action by id. It returns the removed record, or
// nil if the user owns no action with this id.
func (s *Store) RemoveAction(userID, actionID string) (*models.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.mustUser(userID)
	if err != nil {
		return nil, err
	}

	for i, a := range u.Actions {
		if a.ID == actionID {
			u.Actions = append(u.Actions[:i], u.Actions[i+1:]...)
			if err := s.persist(); err != nil {
				return nil, err
			}
			removed := a
			s.logger.WithFields(logrus.Fields{"user": userID, "action": actionID}).Info("Action removed")
			return &removed, nil
		}
	}

	return nil, nil
}

// ListNotifications returns the user's notifications sorted by name.
func (s *Store) ListNotifications(userID string) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.mustUser(userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Notification, len(u.Notifications))
	copy(out, u.Notifications)
	return out, nil
}

// AddNotification validates the input, assigns a fresh globally unique id
// and appends the record to the user's list, kept sorted by name.
func (s *Store) AddNotification(userID string, in models.NotificationInput) (*models.Notification, error) {
	op, err := in.Validate()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.mustUser(userID)
	if err != nil {
		return nil, err
	}

	notification := models.Notification{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Operator:       op,
		Threshold:      in.Threshold,
		IntervalMs:     in.IntervalMs,
		SeriesSelector: in.Selector,
	}
	u.Notifications = append(u.Notifications, notification)
	sort.Slice(u.Notifications, func(i, j int) bool {
		return u.Notifications[i].Name < u.Notifications[j].Name
	})

	if err := s.persist(); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user":         userID,
		"notification": notification.ID,
		"operator":     notification.Operator,
		"threshold":    notification.Threshold,
	}).Info("Notification added")

	return &notification, nil
}

// RemoveNotification deletes a notification by id. It returns the removed
// record, or nil if the user owns no notification with this id.
func (s *Store) RemoveNotification(userID, notificationID string) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.mustUser(userID)
	if err != nil {
		return nil, err
	}

	for i, n := range u.Notifications {
		if n.ID == notificationID {
			u.Notifications = append(u.Notifications[:i], u.Notifications[i+1:]...)
			if err := s.persist(); err != nil {
				return nil, err
			}
			removed := n
			s.logger.WithFields(logrus.Fields{"user": userID, "notification": notificationID}).Info("Notification removed")
			return &removed, nil
		}
	}

	return nil, nil
}

// AllNotifications flattens every user's notifications. The scheduler and
// dispatcher are not user-scoped and work from this view.
func (s *Store) AllNotifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Notification
	for _, u := range s.users {
		out = append(out, u.Notifications...)
	}
	return out
}

// FindNotification returns the notification with the given id, or nil if no
// user owns it.
func (s *Store) FindNotification(notificationID string) *models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		for _, n := range u.Notifications {
			if n.ID == notificationID {
				found := n
				return &found
			}
		}
	}
	return nil
}

// NotificationOwner reverse-looks-up the user owning a notification id, or
// nil when no user owns it.
func (s *Store) NotificationOwner(notificationID string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		for _, n := range u.Notifications {
			if n.ID == notificationID {
				return u.Clone()
			}
		}
	}
	return nil
}

// UserCount returns the number of users in the table.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Stats reports store statistics for the HTTP surface.
func (s *Store) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, notifications := 0, 0
	for _, u := range s.users {
		actions += len(u.Actions)
		notifications += len(u.Notifications)
	}

	return map[string]interface{}{
		"path":          s.path,
		"users":         len(s.users),
		"actions":       actions,
		"notifications": notifications,
	}
}

// Path returns the backing document path.
func (s *Store) Path() string {
	return s.path
}

// Healthy reports whether the backing document is still writable.
func (s *Store) Healthy() bool {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	return true
}
