// Package tracker correlates the two legs of an asynchronous credential workflow.
//
// The synchronous leg (a browser asking for an issuance or presentation request) calls Create
// and hands the returned id to the credential platform as the callback state.
// The asynchronous leg (the platform's callback) calls Update with that id.
// Browsers poll Get until a terminal status is reached.
//
// The tracker stores requests only; it does not define a transition table.
// Any status may follow any other and the last write wins.
//
// Two implementations are provided:
//   - MemoryStore keeps every request for the lifetime of the process.
//   - ExpiringStore evicts requests a fixed time after they were last written.
package tracker

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the workflow a tracked request belongs to
type Kind string

const (
	KindIssuance     Kind = "issuance"
	KindVerification Kind = "verification"
)

// Status values used by the tracker and the credential platform.
//
// Platform statuses are not validated - any string reported by a callback is stored as is.
const (
	// StatusRequestCreated is the initial status of every tracked request
	StatusRequestCreated = "request_created"

	// StatusRequestFailed is set when the platform rejected the create request
	StatusRequestFailed = "request_failed"

	StatusRequestRetrieved     = "request_retrieved"
	StatusIssuanceSuccessful   = "issuance_successful"
	StatusIssuanceError        = "issuance_error"
	StatusPresentationVerified = "presentation_verified"
	StatusPresentationError    = "presentation_error"
)

var (
	// ErrNotFound is returned when no request exists for the id
	ErrNotFound = errors.New("tracked request not found")

	// ErrInvalidKind is returned by Create when kind is empty
	ErrInvalidKind = errors.New("request kind is required")
)

// TrackedRequest is one outstanding or completed issuance or verification attempt.
type TrackedRequest struct {
	// ID is the correlation id shared with the platform as the callback state
	ID string `json:"id"`

	Kind   Kind   `json:"kind"`
	Status string `json:"status"`

	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is nil until the first status update
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`

	// Metadata is captured at creation and never modified
	Metadata map[string]any `json:"metadata,omitempty"`

	// Result is attached by callbacks, each update that supplies a result replaces it
	Result map[string]any `json:"result,omitempty"`
}

// Store is the request tracking store shared by the create, status and callback handlers.
//
// Implementations must be safe for concurrent use: a request is fully stored before Create returns
// and concurrent updates to the same id are serialized.
type Store interface {
	// Create stores a new request with status request_created and returns its id.
	Create(ctx context.Context, kind Kind, metadata map[string]any) (string, error)

	// Get returns a copy of the request, or ErrNotFound.
	// The id is not validated - any string is looked up as is.
	Get(ctx context.Context, id string) (*TrackedRequest, error)

	// Update overwrites the status and sets UpdatedAt.
	// When result is not nil it replaces the stored result.
	// Returns ErrNotFound, without creating an entry, when the id is unknown.
	Update(ctx context.Context, id string, status string, result map[string]any) error

	// Len returns the number of requests currently held
	Len() int
}

// NewID returns a new random correlation id
func NewID() string {
	return uuid.NewString()
}

// newTrackedRequest builds the initial record for Create.
// The metadata map is copied so the caller cannot change it after creation.
func newTrackedRequest(kind Kind, metadata map[string]any, now time.Time) *TrackedRequest {
	return &TrackedRequest{
		ID:        NewID(),
		Kind:      kind,
		Status:    StatusRequestCreated,
		CreatedAt: now,
		Metadata:  maps.Clone(metadata),
	}
}

// apply writes a status update to the record
func (tr *TrackedRequest) apply(status string, result map[string]any, now time.Time) {
	tr.Status = status
	tr.UpdatedAt = &now
	if result != nil {
		tr.Result = maps.Clone(result)
	}
}

// clone returns a copy safe to hand out of the store.
//
// Metadata and Result maps are never modified in place once stored, so the copy shares them.
func (tr *TrackedRequest) clone() *TrackedRequest {
	c := *tr
	if tr.UpdatedAt != nil {
		t := *tr.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// MarkFailed moves the request to request_failed and records cause as the result error.
// Used when the platform create call fails after the request was tracked.
func MarkFailed(ctx context.Context, store Store, id string, cause error) error {
	return store.Update(ctx, id, StatusRequestFailed, map[string]any{
		"error": map[string]any{
			"code":    "upstream_error",
			"message": cause.Error(),
		},
	})
}

// IsKnownStatus reports whether status is one of the statuses defined above
func IsKnownStatus(status string) bool {
	switch status {
	case StatusRequestCreated, StatusRequestFailed, StatusRequestRetrieved,
		StatusIssuanceSuccessful, StatusIssuanceError,
		StatusPresentationVerified, StatusPresentationError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether status is one after which no further transition is expected
func IsTerminal(status string) bool {
	switch status {
	case StatusIssuanceSuccessful, StatusIssuanceError,
		StatusPresentationVerified, StatusPresentationError,
		StatusRequestFailed:
		return true
	default:
		return false
	}
}

// SuccessStatus returns the platform status that marks a successful outcome for the kind
func SuccessStatus(kind Kind) string {
	switch kind {
	case KindIssuance:
		return StatusIssuanceSuccessful
	case KindVerification:
		return StatusPresentationVerified
	default:
		return ""
	}
}
