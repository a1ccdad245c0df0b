// Package journalowner is a demo implementation of
// compaction.JournalController: a JSON-persisted manifest of journal
// files, atomically swapped in memory and resaved on every update.
package journalowner
