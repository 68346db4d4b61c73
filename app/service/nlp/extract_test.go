package nlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planbot/app/service/intent"
	"planbot/app/util/timeparse"
)

var testLoc = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		panic(err)
	}
	return loc
}()

// Wednesday.
var refNow = time.Date(2024, 1, 10, 10, 0, 0, 0, testLoc)

func testExtractor() *Extractor {
	return NewExtractor(timeparse.NewResolver(testLoc, time.Monday))
}

func TestExtractFullTaskRequest(t *testing.T) {
	e := testExtractor()

	fields := e.Extract(
		"Create task: Buy groceries on January 15th at 2pm, location supermarket, note: don't forget milk",
		intent.CreateTask, refNow,
	)

	assert.Equal(t, "Buy groceries", fields.Title)
	assert.Equal(t, "supermarket", fields.Location)
	assert.Equal(t, "don't forget milk", fields.Note)

	require.NotNil(t, fields.When)
	assert.Equal(t, timeparse.KindPoint, fields.When.Kind)
	assert.Equal(t, time.Date(2024, 1, 15, 14, 0, 0, 0, testLoc), fields.When.Point)

	assert.Greater(t, fields.Confidence, 0.8)
}

func TestExtractListPhrase(t *testing.T) {
	e := testExtractor()

	fields := e.Extract("Show me events next week", intent.ListEvents, refNow)

	assert.Equal(t, "Show me events", fields.Title)

	require.NotNil(t, fields.When)
	assert.Equal(t, timeparse.KindRange, fields.When.Kind)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, testLoc), fields.When.Range.Start)
	assert.Equal(t, time.Date(2024, 1, 22, 0, 0, 0, 0, testLoc), fields.When.Range.End)
}

func TestExtractDelimiterBeatsProse(t *testing.T) {
	e := testExtractor()

	fields := e.Extract("Dinner at Luigi's tomorrow at 7pm, location Rooftop", intent.CreateEvent, refNow)

	assert.Equal(t, "Rooftop", fields.Location)
	assert.Equal(t, "Dinner", fields.Title)

	require.NotNil(t, fields.When)
	assert.Equal(t, time.Date(2024, 1, 11, 19, 0, 0, 0, testLoc), fields.When.Point)
}

func TestExtractStatusFilter(t *testing.T) {
	e := testExtractor()

	fields := e.Extract("Show my completed tasks", intent.ListTasks, refNow)
	assert.Equal(t, "completed", fields.StatusFilter)

	fields = e.Extract("list all tasks", intent.ListTasks, refNow)
	assert.Equal(t, "all", fields.StatusFilter)

	// Status words only matter for task listing and updates.
	fields = e.Extract("delete the completed review", intent.DeleteEvent, refNow)
	assert.Empty(t, fields.StatusFilter)
}

func TestExtractPriority(t *testing.T) {
	e := testExtractor()

	fields := e.Extract("Add task: pay rent by March 1, priority high", intent.CreateTask, refNow)

	assert.Equal(t, "pay rent", fields.Title)
	assert.Equal(t, 3, fields.Priority)

	require.NotNil(t, fields.When)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, testLoc), fields.When.Range.Start)

	fields = e.Extract("urgent fix, priority 4", intent.CreateTask, refNow)
	assert.Equal(t, 4, fields.Priority)
}

func TestExtractEmptyInput(t *testing.T) {
	e := testExtractor()

	fields := e.Extract("   ", intent.GeneralChat, refNow)

	assert.Empty(t, fields.Title)
	assert.Nil(t, fields.When)
	assert.Zero(t, fields.Confidence)
}

func TestExtractConfidenceGrowsWithFields(t *testing.T) {
	e := testExtractor()

	bare := e.Extract("something", intent.GeneralChat, refNow)
	rich := e.Extract("Standup tomorrow at 9am, location office, note: bring laptop", intent.CreateEvent, refNow)

	assert.Less(t, bare.Confidence, rich.Confidence)
	assert.LessOrEqual(t, rich.Confidence, 0.95)
}
