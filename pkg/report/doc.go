// Package report turns finalized session records into human-readable
// summaries. Building a report never mutates the record.
package report
