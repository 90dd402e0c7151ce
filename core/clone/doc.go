// Package clone makes structurally independent copies of arbitrary Go
// value graphs.
//
// # Usage
//
//	cp := clone.Clone(v)                                       // defaults
//	cp := clone.Clone(v, clone.WithDepth(1))                   // functional options
//	cp := clone.Copy(v, true, clone.Infinite, nil, false)      // positional
//	cp := clone.CopyWith(v, clone.Options{Depth: clone.Levels(2)}) // record
//	user := clone.Of(user)                                     // typed
//
// # Semantics
//
// Copying dispatches on [Kind]: maps, [SetLike] containers, [Promise],
// byte slices, slices and arrays, [Pattern] and *regexp.Regexp,
// time.Time, errors, and finally structs and pointers.
//
// With cycle tracking on, every reference-typed source (pointer, map,
// slice) is recorded with its copy before its children are visited, so
// self-referencing graphs terminate and shared references remain shared
// inside one copy.
//
// The depth limit trades independence for speed: below the limit the
// copy points at the original values.
//
// Errors are copied shallowly: the copy delegates Error and Unwrap to the
// original, so errors.Is(copy, original) holds.
//
// Promises are copied asynchronously. The returned promise settles with a
// copy of the source's result (or error) once the source settles.
//
// Exported struct fields are deep-copied. A copy of the source's own type
// starts from the source, so unexported fields are carried over shallowly;
// [WithNonEnumerable] deep-copies them too. Values that cannot be stored in
// the destination field are skipped.
package clone
