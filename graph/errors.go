package graph

import "errors"

var (
	// ErrPolicyRequired is returned when a nil association policy is configured.
	ErrPolicyRequired = errors.New("association policy required")

	// ErrUnknownNode is returned when a policy proposes an edge to a missing artifact.
	ErrUnknownNode = errors.New("edge references unknown artifact")
)
