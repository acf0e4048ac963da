// Package docerr collects the sentinel error kinds surfaced to callers across
// docdb's packages (value algebra, matcher, modifier engine, index, persistence).
// Call sites wrap these with fmt.Errorf("...: %w", ErrX) the way the teacher wraps
// store.ErrNotFound, so errors.Is still matches across package boundaries.
package docerr

import "errors"

var (
	// ErrInvalidKey: field name starts with '$' or contains '.'.
	ErrInvalidKey = errors.New("docdb: invalid field name")
	// ErrImmutableID: attempted change to _id.
	ErrImmutableID = errors.New("docdb: _id is immutable")
	// ErrUnknownModifier: update document uses a $-key docdb does not recognize.
	ErrUnknownModifier = errors.New("docdb: unknown modifier")
	// ErrModifierArgType: a modifier's operand has the wrong shape for its field.
	ErrModifierArgType = errors.New("docdb: modifier argument type mismatch")
	// ErrMixedOperators: $-keys and plain keys mixed at a level that forbids it.
	ErrMixedOperators = errors.New("docdb: cannot mix operators and plain keys")
	// ErrTypeMismatch: e.g. $inc on a non-number field, $push on a non-array field.
	ErrTypeMismatch = errors.New("docdb: type mismatch")
	// ErrUniqueViolation: a unique index rejected a duplicate key.
	ErrUniqueViolation = errors.New("docdb: unique constraint violation")
	// ErrNullKey: a null key was presented to a unique index.
	ErrNullKey = errors.New("docdb: null key in unique index")
	// ErrArrayKey: an array value was extracted at an indexed field.
	ErrArrayKey = errors.New("docdb: array value cannot be an index key")
	// ErrCorruption: replay exceeded the configured corruption threshold.
	ErrCorruption = errors.New("docdb: corrupted journal exceeds alert threshold")
	// ErrHooksMissing: only one of AfterSerialization/BeforeDeserialization was set.
	ErrHooksMissing = errors.New("docdb: serialization hooks must be configured in pairs")
	// ErrHooksNotInverse: the configured hooks are not inverses of one another.
	ErrHooksNotInverse = errors.New("docdb: serialization hooks are not mutual inverses")
	// ErrNotFound: no live document matches the given _id.
	ErrNotFound = errors.New("docdb: document not found")
	// ErrBadFilename: the configured journal filename ends in '~'.
	ErrBadFilename = errors.New("docdb: filename must not end in '~'")
	// ErrUnknownOperator: a query used a $-key that is not a recognized comparison operator.
	ErrUnknownOperator = errors.New("docdb: unknown query operator")
)
