// Package preflight provides readiness checks for the external tools,
// services and filesystem paths that cutline depends on.
//
// The CLI "cutline doctor" command runs RunAll and renders the results.
// Checks for optional features, such as the remote generation endpoint,
// run only when the feature is configured.
package preflight
