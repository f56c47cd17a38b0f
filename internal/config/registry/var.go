package registry

import (
	"fmt"

	"github.com/dshills/graphsnap/internal/config/document"
)

// Binding is a live association between Go storage and a document entry.
// All methods are type-erased views over a Var.
type Binding interface {
	Annotation() Annotation
	// TypeName is the codec name of the bound type.
	TypeName() string
	// Validate reports an unusable annotation or a missing codec.
	Validate() error
	// Eligible reports whether the binding points at real storage.
	Eligible() bool
	// TypeMatches reports whether the default, if any, has the bound type.
	TypeMatches() bool
	// Defaultable reports whether a default may replace the current value:
	// a default is set, or the current value is zero.
	Defaultable() bool
	// Load decodes v into the storage. On error the storage is unchanged.
	Load(v document.Value) error
	// Resolve picks the first-run value (default, else current non-zero
	// value, else a fresh zero value), stores it and returns its encoding.
	Resolve() (document.Value, error)
	// Current encodes the value held by the storage.
	Current() (document.Value, error)
}

// Var binds a *T to a document entry.
type Var[T any] struct {
	ptr   *T
	codec Codec[T]
	ann   Annotation
}

// NewVar creates a binding for ptr. Nothing is checked until discovery.
func NewVar[T any](ptr *T, codec Codec[T], ann Annotation) *Var[T] {
	return &Var[T]{ptr: ptr, codec: codec, ann: ann}
}

func (v *Var[T]) Annotation() Annotation { return v.ann }

func (v *Var[T]) TypeName() string {
	if v.codec == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return v.codec.Name()
}

func (v *Var[T]) Validate() error {
	if v.codec == nil {
		return fmt.Errorf("%w: no codec for %s", ErrInvalidAnnotation, v.ann.Target())
	}
	return v.ann.Validate()
}

func (v *Var[T]) Eligible() bool { return v.ptr != nil }

func (v *Var[T]) TypeMatches() bool {
	if !v.ann.HasDefault() {
		return true
	}
	_, ok := v.ann.Default.(T)
	return ok
}

func (v *Var[T]) Defaultable() bool {
	return v.ann.HasDefault() || v.codec.IsZero(*v.ptr)
}

func (v *Var[T]) Load(dv document.Value) error {
	val, err := v.codec.Decode(dv)
	if err != nil {
		return err
	}
	*v.ptr = val
	return nil
}

func (v *Var[T]) Resolve() (document.Value, error) {
	var val T
	switch {
	case v.ann.HasDefault():
		d, ok := v.ann.Default.(T)
		if !ok {
			return document.Value{}, &TypeError{
				Expected: v.TypeName(),
				Actual:   fmt.Sprintf("%T", v.ann.Default),
			}
		}
		val = d
	case !v.codec.IsZero(*v.ptr):
		val = *v.ptr
	default:
		val = v.codec.Zero()
	}

	dv, err := v.codec.Encode(val)
	if err != nil {
		return document.Value{}, err
	}
	*v.ptr = val
	return dv, nil
}

func (v *Var[T]) Current() (document.Value, error) {
	return v.codec.Encode(*v.ptr)
}

// Get returns the bound value.
func (v *Var[T]) Get() T {
	return *v.ptr
}
