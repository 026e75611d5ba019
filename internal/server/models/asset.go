// Package models defines the data types exchanged between the asset
// coordinator, the storage clients and the HTTP layer.
package models

// AssetReference describes one user-submitted file answer. The bytes live in
// the blob store under StorageKey; the row linking owner and question lives
// in the relational backend.
type AssetReference struct {
	// OwnerID is the resolved profile id that owns the answer. It is not the
	// raw auth identity.
	OwnerID string
	// QuestionID identifies the question this file answers.
	QuestionID string
	// StorageKey is the generated object key (UUID plus original extension).
	// It is assigned once, at upload time, by the coordinator, never by the
	// caller and never derived from user input.
	StorageKey string
	// OriginalName is the user-supplied display name. Metadata only; it is
	// never used as a storage path.
	OriginalName string
	// ClassID is the enrollment cohort context. Required on upload paths,
	// empty otherwise.
	ClassID string
}

// OperationOutcome is the result of one side (blob or metadata) of a
// coordinated operation. Exactly one of {Succeeded=true, Error=""} or
// {Succeeded=false, Error!=""} holds.
type OperationOutcome struct {
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// Outcome builds an OperationOutcome from an error, preserving the
// invariant above.
func Outcome(err error) OperationOutcome {
	if err != nil {
		return OperationOutcome{Succeeded: false, Error: err.Error()}
	}
	return OperationOutcome{Succeeded: true}
}

// AggregatedResult is the coordinator's return value: both sub-outcomes plus
// the combined verdict per the operation's aggregation rule. It is a response
// value, never persisted.
type AggregatedResult struct {
	OverallSucceeded bool             `json:"overall_succeeded"`
	Blob             OperationOutcome `json:"blob"`
	Metadata         OperationOutcome `json:"metadata"`
}
