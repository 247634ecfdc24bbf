package dispatch

import "github.com/google/uuid"

var successorNamespace = uuid.MustParse("6f1c2a9e-3b8d-4c57-9a41-2e7d5b0c8f13")

// NewRequestID returns a random id for the first request of a chain
func NewRequestID() string {
	return uuid.NewString()
}

// SuccessorID returns the id the reassignment of predecessorID is stored
// under. It is a name based uuid so every attempt to reassign the same request
// collides on the store's unique id.
func SuccessorID(predecessorID string) string {
	return uuid.NewSHA1(successorNamespace, []byte(predecessorID)).String()
}
