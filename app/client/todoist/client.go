// Package todoist is the task connector, a thin client for the Todoist
// REST v2 API.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"planbot/app/config"
	"planbot/app/util/fault"
	"planbot/app/util/ratelimit"
	"planbot/app/util/retry"

	"github.com/samber/do"
)

const (
	defaultBaseURL = "https://api.todoist.com/rest/v2"
	connectorKey   = "todoist"
)

type Client struct {
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	retrier    retry.Policy
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		cfg:     cfg,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: do.MustInvoke[*ratelimit.Limiter](di),
		retrier: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			Retryable:   fault.Transient,
		},
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	if err := c.limiter.TryAcquire(connectorKey, 0); err != nil {
		return nil, err
	}

	return retry.DoValue(ctx, c.retrier, func(ctx context.Context) ([]byte, error) {
		var reqBody io.Reader
		if body != nil {
			jsonData, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal body: %w", err)
			}
			reqBody = bytes.NewReader(jsonData)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.cfg.Todoist.Token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to do request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return nil, fault.FromStatus(connectorKey, resp.StatusCode,
				fmt.Errorf("%s", strings.TrimSpace(string(respBody))))
		}

		return respBody, nil
	})
}

func (c *Client) CreateTask(ctx context.Context, req *CreateTaskRequest) (*Task, error) {
	if req.ProjectID == "" && c.cfg.Todoist.ProjectID != "" {
		req.ProjectID = c.cfg.Todoist.ProjectID
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/tasks", req)
	if err != nil {
		return nil, err
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return &task, nil
}

// ListTasks returns active tasks of the configured project. statusFilter
// "completed" is not supported by the REST endpoint for arbitrary history,
// so callers pass "open" or "all"; completed filtering happens upstream.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	path := "/tasks"
	if c.cfg.Todoist.ProjectID != "" {
		path += "?project_id=" + c.cfg.Todoist.ProjectID
	}

	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tasks: %w", err)
	}

	return tasks, nil
}

// FindTasks filters active tasks by title substring and optional due date.
func (c *Client) FindTasks(ctx context.Context, titleHint string, dueDate string) ([]Task, error) {
	tasks, err := c.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	titleHint = strings.ToLower(titleHint)

	var matched []Task
	for _, task := range tasks {
		if titleHint != "" && !strings.Contains(strings.ToLower(task.Content), titleHint) {
			continue
		}
		if dueDate != "" && (task.Due == nil || task.Due.Date != dueDate) {
			continue
		}
		matched = append(matched, task)
	}

	return matched, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, req *UpdateTaskRequest) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/tasks/"+id, req)
	return err
}

// CloseTask marks a task as complete.
func (c *Client) CloseTask(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/tasks/"+id+"/close", nil)
	return err
}

func (c *Client) ReopenTask(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/tasks/"+id+"/reopen", nil)
	return err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/tasks/"+id, nil)
	return err
}

// Ping checks API reachability for the health surface.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/projects", nil)
	return err
}
