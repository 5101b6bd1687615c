package kie

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// task states reported by recordInfo
type State string

const (
	StatePending State = "pending"
	StateSuccess State = "success"
	StateFail    State = "fail"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// talks to the Kie.ai jobs API
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// what a generation job asks the model for
type JobRequest struct {
	Model        string
	Prompt       string
	ImageURLs    []string
	AspectRatio  string
	Resolution   string
	OutputFormat string
}

// snapshot of a task as returned by a poll
type TaskStatus struct {
	TaskID     string
	State      State
	ResultJSON string
	FailMsg    string
}

// upstream refused to create the task
type SubmissionError struct {
	Status  int
	Message string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("kie submission rejected (status %d): %s", e.Status, e.Message)
}

// a single poll could not be read; callers treat it as transient
type PollError struct {
	Status  int
	Message string
}

func (e *PollError) Error() string {
	return fmt.Sprintf("kie poll failed (status %d): %s", e.Status, e.Message)
}

type createTaskRequest struct {
	Model string          `json:"model"`
	Input createTaskInput `json:"input"`
}

type createTaskInput struct {
	Prompt       string   `json:"prompt"`
	ImageInput   []string `json:"image_input"`
	AspectRatio  string   `json:"aspect_ratio"`
	Resolution   string   `json:"resolution"`
	OutputFormat string   `json:"output_format"`
}

type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *T     `json:"data"`
}

type createTaskData struct {
	TaskID string `json:"taskId"`
}

type recordInfoData struct {
	TaskID     string `json:"taskId"`
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailMsg    string `json:"failMsg"`
}

type resultPayload struct {
	ResultURLs []string `json:"resultUrls"`
}
