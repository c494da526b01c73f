package vm

import "github.com/pkg/errors"

// Sentinel errors, one per error kind in spec.md §7. Call sites wrap
// these with errors.Wrap/Wrapf for context and compare with
// errors.Cause(err) == vm.ErrX, matching the teacher's own
// sentinel-error convention.
var (
	ErrStackUnderflow      = errors.New("stack underflow")
	ErrStackOverflow       = errors.New("stack overflow")
	ErrSegmentOverflow     = errors.New("segment overflow")
	ErrInvalidTag          = errors.New("invalid tag")
	ErrTypeError           = errors.New("type error")
	ErrShapeMismatch       = errors.New("shape mismatch")
	ErrOutOfRange          = errors.New("out of range")
	ErrUninitializedResume = errors.New("resume token has no suspended continuation")
	ErrSelfReentry         = errors.New("function invoked re-entrantly against its own active frame")
	ErrCorruptFrame        = errors.New("corrupt call frame")
)
