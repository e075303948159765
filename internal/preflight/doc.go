// Package preflight provides readiness checks for the directories, binaries
// and remote services autocap depends on.
//
// The CLI "autocap preflight" command runs RunAll and renders the results.
// Checks are gated by the selected transcription service and the archive
// toggle, so an unused backend never fails the run.
package preflight
