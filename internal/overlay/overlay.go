// Package overlay coordinates reads and writes of fields that share memory
// across two or more layouts of the same storage value.
//
// Every field belongs to exactly one layout (its owner Tag). A field may only
// be read or written while the storage's active tag selects that owner.
// Writes never touch the live value directly: they are applied to a copy,
// the copy is checked, and only then is it assigned back in one statement,
// so no caller ever observes a half-updated value.
package overlay

import "fmt"

// Tag identifies one layout of a storage value.
type Tag uint8

// Storage is a value whose active layout can be derived from its bytes.
type Storage interface {
	ActiveTag() Tag
}

// Field is a typed capability to one logical field of layout owner.
type Field[S Storage, T any] struct {
	name  string
	owner Tag
	load  func(*S) T
	store func(*S, T)
}

// NewField describes a field of layout owner accessed through load and store.
func NewField[S Storage, T any](name string, owner Tag, load func(*S) T, store func(*S, T)) Field[S, T] {
	return Field[S, T]{name: name, owner: owner, load: load, store: store}
}

func (f Field[S, T]) Name() string { return f.name }
func (f Field[S, T]) Owner() Tag   { return f.owner }

// MismatchError is the panic value raised when a field is accessed while
// another layout is active, or when a commit leaves the wrong layout active.
type MismatchError struct {
	Field  string
	Want   Tag
	Active Tag
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("overlay: %s requires layout %d but layout %d is active", e.Field, e.Want, e.Active)
}

func check(name string, want, active Tag) {
	if want != active {
		panic(&MismatchError{Field: name, Want: want, Active: active})
	}
}

// Read returns the current value of f.
func Read[S Storage, T any](s *S, f Field[S, T]) T {
	check(f.name, f.owner, (*s).ActiveTag())
	return f.load(s)
}

// Write replaces a single field. The write must leave the owner layout
// active; otherwise it panics and *s is unchanged.
func Write[S Storage, T any](s *S, f Field[S, T], v T) {
	check(f.name, f.owner, (*s).ActiveTag())
	next := *s
	f.store(&next, v)
	check(f.name, f.owner, next.ActiveTag())
	*s = next
}

// Batch collects staged writes to be committed together.
type Batch[S Storage] struct {
	writes []staged[S]
	expect Tag
	fixed  bool
}

type staged[S Storage] struct {
	name  string
	apply func(*S)
}

// Stage records a write of v to f without applying it.
func Stage[S Storage, T any](b *Batch[S], f Field[S, T], v T) {
	store := f.store
	b.writes = append(b.writes, staged[S]{
		name:  f.name,
		apply: func(s *S) { store(s, v) },
	})
	if !b.fixed {
		b.expect = f.owner
	}
}

// Expect sets the layout that must be active once the batch is committed.
// Without it the owner of the last staged field is expected.
func (b *Batch[S]) Expect(t Tag) *Batch[S] {
	b.expect = t
	b.fixed = true
	return b
}

// Len is the number of staged writes.
func (b *Batch[S]) Len() int { return len(b.writes) }

// Commit applies every staged write to a copy of *s, verifies the expected
// layout is active on the copy and then installs it. On a failed check it
// panics before *s changes. The batch is emptied either way.
func (b *Batch[S]) Commit(s *S) {
	writes := b.writes
	b.writes = nil
	if len(writes) == 0 {
		return
	}
	next := *s
	for _, w := range writes {
		w.apply(&next)
	}
	check(writes[len(writes)-1].name, b.expect, next.ActiveTag())
	*s = next
}

// With builds a value from initial, lets transform finish it off to the
// side, then swaps it into *s and returns it.
func With[S Storage](s *S, initial S, transform func(*S)) S {
	next := initial
	if transform != nil {
		transform(&next)
	}
	*s = next
	return next
}
