package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSender = "whatsapp:+972501234567"

func testPendingStore(ttl time.Duration, start time.Time) (*PendingStore, *time.Time) {
	now := start

	s := NewPendingStore(ttl)
	s.now = func() time.Time { return now }

	return s, &now
}

func TestPendingStoreAddPop(t *testing.T) {
	s, _ := testPendingStore(10*time.Minute, time.Unix(1000, 0))

	s.Add(testSender, PendingAction{Kind: PendingDeleteTask, TaskID: "42", Label: "Buy milk"})
	assert.True(t, s.Has(testSender))
	assert.Equal(t, 1, s.Count())

	action, ok := s.Pop(testSender)
	require.True(t, ok)
	assert.Equal(t, PendingDeleteTask, action.Kind)
	assert.Equal(t, "42", action.TaskID)

	_, ok = s.Pop(testSender)
	assert.False(t, ok)
}

func TestPendingStoreOverwritesPerSender(t *testing.T) {
	s, _ := testPendingStore(10*time.Minute, time.Unix(1000, 0))

	s.Add(testSender, PendingAction{Kind: PendingDeleteTask, TaskID: "1"})
	s.Add(testSender, PendingAction{Kind: PendingDeleteEvent, UID: "abc"})

	assert.Equal(t, 1, s.Count())

	action, ok := s.Pop(testSender)
	require.True(t, ok)
	assert.Equal(t, PendingDeleteEvent, action.Kind)
}

func TestPendingStoreExpiry(t *testing.T) {
	s, now := testPendingStore(10*time.Minute, time.Unix(1000, 0))

	s.Add(testSender, PendingAction{Kind: PendingDeleteTask, TaskID: "42"})

	*now = now.Add(9 * time.Minute)
	assert.True(t, s.Has(testSender))

	*now = now.Add(2 * time.Minute)
	assert.False(t, s.Has(testSender))
	assert.Zero(t, s.Count())

	_, ok := s.Pop(testSender)
	assert.False(t, ok)
}

func TestConfirmAndCancelTokens(t *testing.T) {
	for _, text := range []string{"yes", " YES ", "ok", "1", "да", "כן", "👍", "sí"} {
		assert.True(t, IsConfirm(text), "%q should confirm", text)
	}

	for _, text := range []string{"no", "Cancel", "0", "нет", "לא", "👎"} {
		assert.True(t, IsCancel(text), "%q should cancel", text)
	}

	for _, text := range []string{"maybe", "yes please do it", ""} {
		assert.False(t, IsConfirm(text), "%q is not a confirmation", text)
		assert.False(t, IsCancel(text), "%q is not a cancellation", text)
	}
}
