// Package ident generates identifiers for team entities and maps team names
// to filesystem-safe tokens.
//
// Identifiers combine an entity-kind prefix, a UTC timestamp and a random
// suffix, e.g. "task_20260208T150405_a1b2c3d4e5f6". They are practically
// unique and human-legible; collisions are not detected.
package ident
