package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsewatch/pulsewatch/internal/models"
	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

func testInput(name string) models.NotificationInput {
	return models.NotificationInput{
		Name:       name,
		Operator:   ">=",
		Threshold:  100,
		IntervalMs: 1000,
		Selector: models.SeriesSelector{
			Bucket:      "b",
			Measurement: "m",
			Field:       "f",
			Filters:     []models.TagFilter{},
		},
	}
}

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestOpenCreatesEmptyDocument(t *testing.T) {
	s, path := openTestStore(t)

	assert.Equal(t, 0, s.UserCount())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestOpenRejectsMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, utils.IsValidation(err))
}

func TestOpenRejectsDuplicateNotificationIDs(t *testing.T) {
	doc := `[
		{"id":"u1","chatAddress":"1","actions":[],"notifications":[
			{"id":"n1","name":"a","operator":">","threshold":1,"intervalMs":1000,
			 "bucket":"b","measurement":"m","field":"f","filters":[]}]},
		{"id":"u2","chatAddress":"2","actions":[],"notifications":[
			{"id":"n1","name":"b","operator":"<","threshold":2,"intervalMs":1000,
			 "bucket":"b","measurement":"m","field":"f","filters":[]}]}
	]`
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	_, err := Open(path)
	require.Error(t, err)
}

func TestOpenRejectsSubMinimumInterval(t *testing.T) {
	doc := `[{"id":"u1","chatAddress":"1","actions":[],"notifications":[
		{"id":"n1","name":"a","operator":">","threshold":1,"intervalMs":500,
		 "bucket":"b","measurement":"m","field":"f","filters":[]}]}]`
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	_, err := Open(path)
	require.Error(t, err)
}

func TestCreateUserIfNotExistsIsIdempotent(t *testing.T) {
	s, _ := openTestStore(t)

	u1, err := s.CreateUserIfNotExists("u1", "chat-1")
	require.NoError(t, err)

	u2, err := s.CreateUserIfNotExists("u1", "chat-other")
	require.NoError(t, err)

	assert.Equal(t, 1, s.UserCount())
	assert.Equal(t, u1.ID, u2.ID)
	// Existing record wins; the second chat address is not applied.
	assert.Equal(t, "chat-1", u2.ChatAddress)
}

func TestActionsCRUD(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.CreateUserIfNotExists("u1", "chat-1")
	require.NoError(t, err)

	// Append out of order; the list stays sorted by name.
	b, err := s.AddAction("u1", models.ActionInput{Name: "bravo", Command: "/b"})
	require.NoError(t, err)
	a, err := s.AddAction("u1", models.ActionInput{Name: "alpha", Command: "/a"})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	actions, err := s.ListActions("u1")
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "alpha", actions[0].Name)
	assert.Equal(t, "bravo", actions[1].Name)

	removed, err := s.RemoveAction("u1", a.ID)
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, "alpha", removed.Name)

	// Unknown action id returns nil, not an error.
	removed, err = s.RemoveAction("u1", "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func TestUnknownUserFailsWithNotFound(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.ListActions("ghost")
	assert.True(t, utils.IsNotFound(err))

	_, err = s.AddAction("ghost", models.ActionInput{Name: "x", Command: "/x"})
	assert.True(t, utils.IsNotFound(err))

	_, err = s.RemoveNotification("ghost", "n1")
	assert.True(t, utils.IsNotFound(err))
}

func TestNotificationsCRUD(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.CreateUserIfNotExists("u1", "chat-1")
	require.NoError(t, err)

	n, err := s.AddNotification("u1", testInput("cpu"))
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, models.OpGreaterOrEqual, n.Operator)

	all := s.AllNotifications()
	require.Len(t, all, 1)
	assert.Equal(t, n.ID, all[0].ID)

	owner := s.NotificationOwner(n.ID)
	require.NotNil(t, owner)
	assert.Equal(t, "u1", owner.ID)
	assert.Nil(t, s.NotificationOwner("no-such-id"))

	found := s.FindNotification(n.ID)
	require.NotNil(t, found)
	assert.Equal(t, n.Threshold, found.Threshold)

	removed, err := s.RemoveNotification("u1", n.ID)
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Empty(t, s.AllNotifications())
}

func TestAddNotificationRejectsInvalidInput(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.CreateUserIfNotExists("u1", "chat-1")
	require.NoError(t, err)

	in := testInput("fast")
	in.IntervalMs = 500
	_, err = s.AddNotification("u1", in)
	assert.True(t, utils.IsValidation(err))

	in = testInput("weird")
	in.Operator = "≈"
	_, err = s.AddNotification("u1", in)
	assert.True(t, utils.IsValidation(err))
}

func TestDocumentRoundTrip(t *testing.T) {
	s, path := openTestStore(t)

	_, err := s.CreateUserIfNotExists("u1", "chat-1")
	require.NoError(t, err)
	_, err = s.CreateUserIfNotExists("u2", "chat-2")
	require.NoError(t, err)

	_, err = s.AddAction("u1", models.ActionInput{Name: "status", Command: "/status now"})
	require.NoError(t, err)

	in := testInput("mem")
	in.Selector.Filters = []models.TagFilter{{Tag: "host", Value: "db-1"}}
	n, err := s.AddNotification("u2", in)
	require.NoError(t, err)

	// Reload from disk and compare field for field.
	reloaded, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, s.UserCount(), reloaded.UserCount())

	actions, err := reloaded.ListActions("u1")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "status", actions[0].Name)
	assert.Equal(t, "/status now", actions[0].Command)

	notifications, err := reloaded.ListNotifications("u2")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, *n, notifications[0])

	owner := reloaded.NotificationOwner(n.ID)
	require.NotNil(t, owner)
	assert.Equal(t, "chat-2", owner.ChatAddress)
}
