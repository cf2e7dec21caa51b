package types

import "errors"

// Error kinds from spec.md §7. Core packages wrap these with fmt.Errorf's
// %w so callers can errors.Is against them while still getting a
// descriptive message.
var (
	// ErrInvalidRecord covers a non-mapping, empty mapping, or a mapping
	// with a nested-mapping value.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrMissingKeys is returned when a bulk update/ack references keys
	// that are not present in the table.
	ErrMissingKeys = errors.New("missing keys")

	// ErrSchemaConflict is returned when a new value for a field conflicts
	// with that field's already-inferred column type (flowq's chosen
	// policy from spec.md §7 — see DESIGN.md Open Question 6).
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrStoreError wraps a pass-through failure from the backing store.
	ErrStoreError = errors.New("store error")
)
