// Package toolbridge exposes team operations as named tools with JSON
// schema input contracts, for discovery and invocation by a language-model
// router.
//
// Business-rule failures come back as error results whose text describes
// what went wrong, so the model can correct its arguments and retry.
// Infrastructure failures come back as an opaque internal error.
package toolbridge
