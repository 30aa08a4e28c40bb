// Package preflight provides readiness checks for the filesystem paths and
// recipe tools the data-prep stages depend on.
//
// "kiritan check" renders the results as a table and exits non-zero when a
// required check fails. Stage health checks reuse the tool requirements from
// the deps package.
package preflight
