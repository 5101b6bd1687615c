package kie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	createTaskPath = "/api/v1/jobs/createTask"
	recordInfoPath = "/api/v1/jobs/recordInfo"

	// upstream error bodies can be large html pages
	maxErrorBody = 2048
)

// shared HTTP client for Kie API calls
var kieHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// creates a new Kie client
func NewClient(config Config) *Client {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config:     config,
		httpClient: kieHTTPClient,
		// polls from many concurrent jobs share one upstream quota
		limiter: rate.NewLimiter(20, 10),
	}
}

// overrides the HTTP client (tests, custom transports)
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// creates a generation task and returns its id
func (c *Client) Submit(ctx context.Context, job JobRequest) (string, error) {
	body := createTaskRequest{
		Model: job.Model,
		Input: createTaskInput{
			Prompt:       job.Prompt,
			ImageInput:   job.ImageURLs,
			AspectRatio:  job.AspectRatio,
			Resolution:   job.Resolution,
			OutputFormat: job.OutputFormat,
		},
	}
	if body.Model == "" {
		body.Model = c.config.Model
	}
	if body.Input.ImageInput == nil {
		body.Input.ImageInput = []string{}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	status, raw, err := c.do(ctx, http.MethodPost, c.config.BaseURL+createTaskPath, jsonData)
	if err != nil {
		return "", err
	}

	if status < 200 || status >= 300 {
		return "", &SubmissionError{Status: status, Message: truncate(raw)}
	}

	var resp envelope[createTaskData]
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &SubmissionError{Status: status, Message: "invalid response body"}
	}

	if resp.Code != http.StatusOK || resp.Data == nil || resp.Data.TaskID == "" {
		msg := resp.Msg
		if msg == "" {
			msg = "no task id returned"
		}
		return "", &SubmissionError{Status: resp.Code, Message: msg}
	}

	return resp.Data.TaskID, nil
}

// fetches the current state of a task
func (c *Client) Poll(ctx context.Context, taskID string) (*TaskStatus, error) {
	endpoint := c.config.BaseURL + recordInfoPath + "?taskId=" + url.QueryEscape(taskID)

	status, raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		return nil, &PollError{Status: status, Message: truncate(raw)}
	}

	var resp envelope[recordInfoData]
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &PollError{Status: status, Message: "invalid response body"}
	}

	if resp.Data == nil {
		return nil, &PollError{Status: resp.Code, Message: resp.Msg}
	}

	state := State(resp.Data.State)
	if state == "" {
		state = StatePending
	}

	return &TaskStatus{
		TaskID:     taskID,
		State:      state,
		ResultJSON: resp.Data.ResultJSON,
		FailMsg:    resp.Data.FailMsg,
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, raw, nil
}

// decodes the resultJson string of a finished task into its asset urls
func ParseResultURLs(resultJSON string) ([]string, error) {
	if strings.TrimSpace(resultJSON) == "" {
		return nil, nil
	}

	var payload resultPayload
	if err := json.Unmarshal([]byte(resultJSON), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode result json: %w", err)
	}

	return payload.ResultURLs, nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(b)
}
