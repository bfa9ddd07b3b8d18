// Package source locates the source files referenced by compile units and
// keeps their text in memory.
//
// A Resolver turns the (directory, file name) pair recorded by the
// compiler into a host path, a Cache loads that path once, normalizes its
// line endings and splits it into lines. Files that are missing, unreadable
// or newer than the executable are reported through a Status instead of
// an error: the compile unit stays usable without its source text.
package source
