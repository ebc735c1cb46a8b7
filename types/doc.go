// Package types defines the data model and collaborator contracts shared by the
// lastvalue packages.
//
// The root package re-exports these definitions, so most callers never import this
// package directly. Internal packages depend on types instead of the root package to
// avoid import cycles.
package types
