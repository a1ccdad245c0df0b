// Package clerk wraps the compaction core in a single-flight actor: a
// worker task with a bounded inbox that accepts compact and
// hashtable_calc requests and processes them serially, owning all
// mutable state for the duration of a job.
package clerk
