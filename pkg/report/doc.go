// Package report records pipeline runs.
//
// Store is a SQLite ledger of runs and the file transforms each one
// committed, so a crashed or aborted run can be audited afterwards: every
// row is a file whose original content is gone. Summary is an in-memory
// observer rendered as a table at the end of a run.
package report
