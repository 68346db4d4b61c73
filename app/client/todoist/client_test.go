package todoist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planbot/app/config"
	"planbot/app/util/fault"
	"planbot/app/util/ratelimit"
	"planbot/app/util/retry"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Todoist.Token = "test-token"

	return &Client{
		cfg:        cfg,
		baseURL:    server.URL,
		httpClient: server.Client(),
		limiter:    ratelimit.New(),
		retrier: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
			Retryable:   fault.Transient,
		},
	}
}

func TestCreateTask(t *testing.T) {
	var gotAuth string
	var gotBody CreateTaskRequest

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/tasks", r.URL.Path)

		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(Task{ID: "7", Content: gotBody.Content})
	}))

	task, err := c.CreateTask(context.Background(), &CreateTaskRequest{
		Content: "Buy groceries",
		DueDate: "2024-01-15",
	})

	require.NoError(t, err)
	assert.Equal(t, "7", task.ID)
	assert.Equal(t, "Buy groceries", task.Content)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "2024-01-15", gotBody.DueDate)
}

func TestCreateTaskUsesConfiguredProject(t *testing.T) {
	var gotBody CreateTaskRequest

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(Task{ID: "7"})
	}))
	c.cfg.Todoist.ProjectID = "inbox-123"

	_, err := c.CreateTask(context.Background(), &CreateTaskRequest{Content: "x"})

	require.NoError(t, err)
	assert.Equal(t, "inbox-123", gotBody.ProjectID)
}

func TestFindTasksFiltersByTitleAndDue(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Task{
			{ID: "1", Content: "Buy groceries", Due: &Due{Date: "2024-01-15"}},
			{ID: "2", Content: "Buy a present", Due: &Due{Date: "2024-01-20"}},
			{ID: "3", Content: "File taxes"},
		})
	}))

	tasks, err := c.FindTasks(context.Background(), "buy", "")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, err = c.FindTasks(context.Background(), "buy", "2024-01-15")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "1", tasks[0].ID)
}

func TestUnauthorizedBecomesAuthError(t *testing.T) {
	calls := 0

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))

	_, err := c.ListTasks(context.Background())

	var authErr *fault.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "todoist", authErr.Provider)
	assert.Equal(t, 1, calls, "auth failures must not be retried")
}

func TestServerErrorsAreRetried(t *testing.T) {
	calls := 0

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]Task{})
	}))

	_, err := c.ListTasks(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRateLimitedLocally(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should leave the client while rate limited")
	}))

	c.limiter.SetBudget(connectorKey, ratelimit.Budget{Requests: 1, Window: time.Minute})
	require.NoError(t, c.limiter.TryAcquire(connectorKey, 0))

	_, err := c.ListTasks(context.Background())

	var rateErr *ratelimit.Error
	assert.True(t, errors.As(err, &rateErr))
}
