// Package tasks runs the stages of derived computations as chained, retried, at-least-once tasks.
//
// A chain starts from an ingestion event: a Binding or an Expression is created, or a Binding
// becomes usable by its manual QC. Each stage is a task on a Queue; a stage submits the next
// stage when it succeeds. Stages persist their own outputs, and an output which already exists
// is reused, so a chain can be driven again without duplicating records.
package tasks

import (
	"context"
	"encoding/json"
	"time"
)

type Kind string

const (
	KindPromoterSignificance Kind = "promoter_significance"
	KindRankResponse         Kind = "rank_response"
	KindCombineReplicates    Kind = "combine_replicates"
)

type Status string

const (
	Pending   Status = "pending"
	Running   Status = "running"
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
)

// Task is a submitted stage and its progress.
type Task struct {
	ID        int64           `json:"id"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Status    Status          `json:"status"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error"`
	Result    json.RawMessage `json:"result,omitempty"`

	// RunAfter is the earliest time when the task may be claimed.
	RunAfter time.Time `json:"run_after"`

	// LeaseUntil is set while the task is running. A running task whose lease is over can be claimed again.
	LeaseUntil *time.Time `json:"lease_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Queue keeps tasks.
type Queue interface {
	// Submit adds a pending task which can be claimed now.
	Submit(ctx context.Context, kind Kind, payload []byte) (Task, error)

	// Claim takes the oldest claimable task and marks it running for lease.
	//
	// A task is claimable when it is pending and its RunAfter has come,
	// or when it is running and its lease is over.
	// Attempts of the claimed task is incremented.
	//
	// Concurrent Claims take different tasks.
	//
	// # Returns
	//
	// - Task: claimed task
	//
	// - bool: false if there are no claimable tasks.
	//
	// - error
	Claim(ctx context.Context, lease time.Duration) (Task, bool, error)

	// ClaimByID is Claim of a specific task.
	ClaimByID(ctx context.Context, id int64, lease time.Duration) (Task, bool, error)

	// Succeed marks the task succeeded with result.
	Succeed(ctx context.Context, id int64, result []byte) error

	// Retry puts the task back to pending, to be claimed after runAfter.
	Retry(ctx context.Context, id int64, cause string, runAfter time.Time) error

	// Fail marks the task failed. It will not be claimed anymore.
	Fail(ctx context.Context, id int64, cause string) error

	// Get returns the task of id.
	//
	// If it is missing, returns an error wrapping errors.ErrNotFound.
	Get(ctx context.Context, id int64) (Task, error)
}

// PromoterSignificancePayload is the payload of KindPromoterSignificance.
type PromoterSignificancePayload struct {
	BindingID    int64  `json:"binding"`
	User         string `json:"user"`
	OutputFormat string `json:"output_format,omitempty"`
	PromoterID   int64  `json:"promoterset,omitempty"`
	BackgroundID int64  `json:"background,omitempty"`
	SkipDedup    bool   `json:"skip_dedup,omitempty"`
}

// RankResponsePayload is the payload of KindRankResponse.
type RankResponsePayload struct {
	PromoterSetSigID int64    `json:"promotersetsig"`
	User             string   `json:"user"`
	ExpressionID     int64    `json:"expression,omitempty"`
	EffectThreshold  *float64 `json:"expression_effect_threshold,omitempty"`
	PvalueThreshold  *float64 `json:"expression_pvalue_threshold,omitempty"`
	Normalize        bool     `json:"normalize,omitempty"`
}

// CombineReplicatesPayload is the payload of KindCombineReplicates.
type CombineReplicatesPayload struct {
	RegulatorID int64  `json:"regulator"`
	User        string `json:"user"`
	Assay       string `json:"assay,omitempty"`
	DataUsable  string `json:"data_usable,omitempty"`
}

// IDs is the result of stages creating records.
type IDs struct {
	IDs []int64 `json:"ids"`
}
