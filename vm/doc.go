// Package vm implements the runtime that executes procedure bodies.
//
// This package contains:
//   - a Value sum type (see Kind) with immediate and heap values
//   - classes, source methods and Go primitives
//   - an AST interpreter with non-local return
//   - exceptions with on:do:, ensure: and retry
//   - an Arena that releases transient objects at a Checkpoint
//   - JSON and Time support for marshaling host values
package vm
