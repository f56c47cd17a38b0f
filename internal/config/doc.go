// Package config keeps Go variables and on-disk configuration documents in
// sync for graphsnap.
//
// Variables are registered explicitly, usually fields of one settings struct,
// each with an annotation naming its document, optional section and key:
//
//	var s Settings
//	eng := config.New(dir)
//	config.Bind(eng, &s.Retries, registry.Int(), registry.Annotation{
//	    Key:      "Retries",
//	    Document: "settings.toml",
//	    Comment:  "attempts per API call",
//	    Default:  3,
//	})
//	report, err := eng.Initialize()
//
// # Lifecycle
//
// The engine moves from StateUninitialized to StateLoaded when the document
// directory has been read, and to StateDiscovered once registered bindings
// have been resolved. Discovery reads keys that exist, writes defaults for
// keys that do not, and saves every document. Refresh writes the current
// variable values back without touching comments; Reload pulls a single
// document that changed on disk back into its variables.
//
// # Documents
//
// A document is one file in the root directory, identified by its name.
// The extension picks the format:
//
//	settings.toml   TOML
//	tracked.yaml    YAML (.yml also accepted)
//	state.jsonc     JSON with comments (.json also accepted)
//
// Each entry may carry a single-line comment which is preserved across
// rewrites.
//
// # Errors
//
// Nothing in the engine aborts the whole pass for one bad binding or file:
//
//   - *loader.DirectoryError: the root directory cannot be created or read
//   - *loader.ParseError: a document cannot be parsed; it is quarantined
//   - *BindError: a binding was skipped (ErrIneligible, ErrTypeMismatch,
//     ErrConversion, ErrDuplicateBinding, ErrInvalidAnnotation)
//   - *loader.WriteError: a document could not be saved
//
// The engine performs no locking. Callers serialize Initialize, Refresh and
// Reload, typically by running them on one goroutine.
package config
