// Package store provides thread-safe aggregation of scan results.
//
// The store keeps the latest result per site while preserving the order in
// which sites first reported, so a scan summary can be rendered in a stable
// order even though results arrive in completion order.
//
// This package is internal infrastructure for the usertrace CLI and is not
// part of the public API.
package store
