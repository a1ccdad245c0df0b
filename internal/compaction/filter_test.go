package compaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCorruptRecordAlwaysWins(t *testing.T) {
	rec := Record{Key: JournalKey{SQN: 1, LedgerKey: LedgerKey{Tag: "t", Key: "k"}}, CRCOk: false}
	got := Classify(rec, ReloadStrategy{"t": Retain}, memLedger{}, directFilter, 100)
	assert.Equal(t, Corrupt, got)
}

func TestClassifyLiveRecordKeptOriginal(t *testing.T) {
	lk := LedgerKey{Tag: "t", Key: "k"}
	ledger := memLedger{lk: 5}
	rec := Record{Key: JournalKey{SQN: 5, LedgerKey: lk}, CRCOk: true}
	got := Classify(rec, ReloadStrategy{"t": Recovr}, ledger, directFilter, 100)
	assert.Equal(t, KeepOriginal, got)
}

func TestClassifyBeyondHorizonKeptOriginalRegardlessOfStrategy(t *testing.T) {
	lk := LedgerKey{Tag: "t", Key: "k"}
	ledger := memLedger{lk: 999} // record's sqn is not the live one
	rec := Record{Key: JournalKey{SQN: 50, LedgerKey: lk}, CRCOk: true}
	got := Classify(rec, ReloadStrategy{"t": Recovr}, ledger, directFilter, 10)
	assert.Equal(t, KeepOriginal, got)
}

func TestClassifyStaleRetainKeptCompacted(t *testing.T) {
	lk := LedgerKey{Tag: "t", Key: "k"}
	ledger := memLedger{lk: 999}
	rec := Record{Key: JournalKey{SQN: 1, LedgerKey: lk}, CRCOk: true}
	got := Classify(rec, ReloadStrategy{"t": Retain}, ledger, directFilter, 100)
	assert.Equal(t, KeepCompacted, got)
}

func TestClassifyStaleRecalcDropped(t *testing.T) {
	lk := LedgerKey{Tag: "t", Key: "k"}
	ledger := memLedger{lk: 999}
	rec := Record{Key: JournalKey{SQN: 1, LedgerKey: lk}, CRCOk: true}
	got := Classify(rec, ReloadStrategy{"t": Recalc}, ledger, directFilter, 100)
	assert.Equal(t, Drop, got)
}

func TestClassifyStaleRecovrDropped(t *testing.T) {
	lk := LedgerKey{Tag: "t", Key: "k"}
	ledger := memLedger{lk: 999}
	rec := Record{Key: JournalKey{SQN: 1, LedgerKey: lk}, CRCOk: true}
	got := Classify(rec, ReloadStrategy{"t": Recovr}, ledger, directFilter, 100)
	assert.Equal(t, Drop, got)
}

func TestClassifySupersededTombstoneSurvivesUnderRecovr(t *testing.T) {
	lk := LedgerKey{Tag: "t", Key: "k"}
	ledger := memLedger{lk: 999} // record is not the live sqn
	rec := Record{Key: JournalKey{SQN: 1, Kind: Tombstone, LedgerKey: lk}, CRCOk: true}
	got := Classify(rec, ReloadStrategy{"t": Recovr}, ledger, directFilter, 0) // also beyond horizon
	assert.Equal(t, KeepOriginal, got)
}

func TestClassifyUnknownTagDefaultsToDrop(t *testing.T) {
	lk := LedgerKey{Tag: "unmapped", Key: "k"}
	ledger := memLedger{lk: 999}
	rec := Record{Key: JournalKey{SQN: 1, LedgerKey: lk}, CRCOk: true}
	got := Classify(rec, ReloadStrategy{}, ledger, directFilter, 100)
	assert.Equal(t, Drop, got)
}
