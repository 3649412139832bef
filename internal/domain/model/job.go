// Package model defines the core data types shared across the genrelay pipeline.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

const (
	// JobStatusPending indicates the job was created but the provider has not reported progress.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the provider acknowledged the task and is generating.
	JobStatusRunning JobStatus = "running"
	// JobStatusDone indicates the provider finished successfully and results are available.
	JobStatusDone JobStatus = "done"
	// JobStatusFailed indicates the job failed, either at submission or at the provider.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is one of the known states.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusRunning || s == JobStatusDone || s == JobStatusFailed
}

// Terminal returns true once a job can no longer change status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Job represents a single generation request and its delivery lifecycle.
//
// Invariants maintained by the pipeline:
//   - Delivered implies Status == done.
//   - Non-empty ResultURLs implies Status == done.
//   - Status transitions are monotonic; done and failed absorb.
type Job struct {
	ID         string          `json:"id"                   db:"id"`
	TaskID     *string         `json:"task_id,omitempty"    db:"task_id"`
	UserID     int64           `json:"user_id"              db:"user_id"`
	ChatID     int64           `json:"chat_id"              db:"chat_id"`
	Status     JobStatus       `json:"status"               db:"status"`
	Params     json.RawMessage `json:"params"               db:"params"`
	ResultURLs []string        `json:"result_urls,omitempty" db:"result_urls"`
	Delivered  bool            `json:"delivered"            db:"delivered"`
	LastError  *string         `json:"last_error,omitempty" db:"last_error"`
	CreatedAt  time.Time       `json:"created_at"           db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"           db:"updated_at"`
}

// Deliverable reports whether the job satisfies the delivery preconditions.
func (j *Job) Deliverable() bool {
	return j != nil && j.Status == JobStatusDone && len(j.ResultURLs) > 0 && !j.Delivered
}

// CreateJobRequest represents a request to create a new generation job.
// Business validation of Params (model names, sizes, prompt rules) is the
// caller's responsibility; this layer only checks structural requirements.
type CreateJobRequest struct {
	UserID int64           `json:"user_id"`
	ChatID int64           `json:"chat_id"`
	Params json.RawMessage `json:"params"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user id is required")
	}
	if r.ChatID == 0 {
		return errors.New("chat id is required")
	}
	if len(r.Params) == 0 {
		return errors.New("params are required")
	}
	if !json.Valid(r.Params) {
		return errors.New("params must be valid JSON")
	}
	return nil
}

// CallbackStatus is the status enum the external provider reports.
type CallbackStatus string

const (
	// CallbackStatusSuccess indicates generation finished and result URLs are attached.
	CallbackStatusSuccess CallbackStatus = "success"
	// CallbackStatusFail indicates the provider gave up on the task.
	CallbackStatusFail CallbackStatus = "fail"
	// CallbackStatusRunning is a progress notification with no results yet.
	CallbackStatusRunning CallbackStatus = "running"
)

// Valid returns true if the CallbackStatus is one the provider contract defines.
func (s CallbackStatus) Valid() bool {
	return s == CallbackStatusSuccess || s == CallbackStatusFail || s == CallbackStatusRunning
}

// UnmarshalText implements encoding.TextUnmarshaler so payload parsing
// normalises provider casing.
func (s *CallbackStatus) UnmarshalText(text []byte) error {
	v := CallbackStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid callback status: %q", v)
	}
	*s = v
	return nil
}

// ProviderCallback is the payload of an inbound provider notification.
type ProviderCallback struct {
	TaskID     string         `json:"task_id"`
	Status     CallbackStatus `json:"status"`
	ResultURLs []string       `json:"result_urls,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Validate validates the ProviderCallback fields.
func (c *ProviderCallback) Validate() error {
	if strings.TrimSpace(c.TaskID) == "" {
		return errors.New("task id is required")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("invalid callback status: %q", c.Status)
	}
	if c.Status == CallbackStatusSuccess && len(c.ResultURLs) == 0 {
		return errors.New("success callback requires result urls")
	}
	return nil
}

// JobStatus maps the provider status onto the job lifecycle.
func (c *ProviderCallback) JobStatus() JobStatus {
	switch c.Status {
	case CallbackStatusSuccess:
		return JobStatusDone
	case CallbackStatusFail:
		return JobStatusFailed
	default:
		return JobStatusRunning
	}
}

// Orphan callback outcomes once processed.
const (
	// OrphanOutcomeMatched means the orphan was reconciled with a late-created job.
	OrphanOutcomeMatched = "matched"
	// OrphanOutcomeExpired means no job appeared before the expiry threshold.
	OrphanOutcomeExpired = "expired"
)

// OrphanCallback is a provider notification that arrived before (or without)
// a matching job. Processed rows are inert and kept for audit only.
type OrphanCallback struct {
	ID          string          `json:"id"                     db:"id"`
	TaskID      string          `json:"task_id"                db:"task_id"`
	Payload     json.RawMessage `json:"payload"                db:"payload"`
	ReceivedAt  time.Time       `json:"received_at"            db:"received_at"`
	Processed   bool            `json:"processed"              db:"processed"`
	Outcome     *string         `json:"outcome,omitempty"      db:"outcome"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty" db:"processed_at"`
}

// Callback decodes the stored raw payload back into a ProviderCallback.
func (o *OrphanCallback) Callback() (*ProviderCallback, error) {
	var cb ProviderCallback
	if err := json.Unmarshal(o.Payload, &cb); err != nil {
		return nil, fmt.Errorf("decode orphan payload: %w", err)
	}
	if cb.TaskID == "" {
		cb.TaskID = o.TaskID
	}
	return &cb, nil
}

// JobStats represents counts of jobs in each state plus delivery backlog gauges.
type JobStats struct {
	Pending        int `json:"pending"`
	Running        int `json:"running"`
	Done           int `json:"done"`
	Failed         int `json:"failed"`
	Undelivered    int `json:"undelivered"`
	OrphansPending int `json:"orphans_pending"`
}

// ReconcileStats summarises a single reconciliation pass.
type ReconcileStats struct {
	Matched     int `json:"matched"`
	Expired     int `json:"expired"`
	Redelivered int `json:"redelivered"`
}
