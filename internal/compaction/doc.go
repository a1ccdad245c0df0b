// Package compaction implements the journal compaction job orchestrator:
// scoring candidate journal files, planning a contiguous run to rewrite,
// filtering records by retention strategy, and streaming survivors into
// new destination files with a manifest delta for the journal owner.
//
// The journal file store, journal controller, and ledger oracle are
// external collaborators, consumed here only through the
// JournalFileStore, JournalController, and LedgerSnapshot interfaces.
package compaction
