// Package notifications publishes run summaries to ntfy.
//
// The service degrades to a no-op when no topic is configured, so callers
// never branch on whether notifications are enabled. Delivery failures are
// returned to the caller, which logs them; a failed notification never fails
// a captioning run.
package notifications
