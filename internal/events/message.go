// Package events carries background job messages between the API and the worker over Pub/Sub.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ecoroute/ecoroute/internal/history"
)

// Job types.
const (
	JobPlanCompleted = "plan_completed"
	JobCacheWarm     = "cache_warm"
	JobHealthCheck   = "health_check"
)

// ErrMissingPlan is returned when a plan_completed message has no plan.
var ErrMissingPlan = errors.New("plan_completed message without plan")

// Message is the envelope of every job message.
type Message struct {
	JobType string          `json:"job_type"`
	Plan    *history.Record `json:"plan,omitempty"`
	// RefreshAll warms every configured destination instead of the first target only.
	RefreshAll bool `json:"refresh_all,omitempty"`
}

// PlanCompleted builds the message published after a successful plan.
func PlanCompleted(rec history.Record) Message {
	return Message{JobType: JobPlanCompleted, Plan: &rec}
}

// Encode serialises a message.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses and validates a message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}
	if m.JobType == JobPlanCompleted && m.Plan == nil {
		return Message{}, ErrMissingPlan
	}
	return m, nil
}
