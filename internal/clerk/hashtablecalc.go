package clerk

import (
	"fmt"

	"journalclerk/internal/compaction"
	"journalclerk/pkg/dberrors"
)

// HashtableCalcRequest computes a fresh position index for a hash tree
// backing one journal file. The hash tree and its computation are
// external to this package and unrelated to compaction — a Clerk only
// sequences the call through its mailbox and forwards the result.
type HashtableCalcRequest struct {
	HashTree any
	StartPos compaction.Position
	CDB      compaction.JournalHandle
	Compute  func(hashTree any, startPos compaction.Position, cdb compaction.JournalHandle) (any, error)
	Report   chan<- HashtableCalcResult
}

// HashtableCalcResult is delivered on HashtableCalcRequest.Report, if set.
type HashtableCalcResult struct {
	Index any
	Err   error
}

var errNoComputeFunc = fmt.Errorf("clerk: hashtable_calc request has no Compute function: %w", dberrors.ErrNotSupported)

func (c *Clerk) runHashtableCalc(req HashtableCalcRequest) {
	var result HashtableCalcResult
	if req.Compute == nil {
		result.Err = errNoComputeFunc
	} else {
		result.Index, result.Err = req.Compute(req.HashTree, req.StartPos, req.CDB)
	}
	if req.Report != nil {
		req.Report <- result
	}
}
