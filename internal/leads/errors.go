package leads

import "errors"

var (
	// ErrMissingContact is returned when both email and phone are missing
	ErrMissingContact = errors.New("either email or phone is required")

	// ErrMissingSource is returned when a lead has no capture channel tag
	ErrMissingSource = errors.New("lead source is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrLeadExists is returned when a lead with the same ID was already written
	ErrLeadExists = errors.New("lead already exists")
)
