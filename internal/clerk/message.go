package clerk

// MessageKind is the clerk's small closed set of mailbox request shapes:
// a tagged variant matched in handle, not virtual dispatch.
type MessageKind int8

const (
	MsgCompact MessageKind = iota
	MsgHashtableCalc
	MsgCheckIdempotent
	MsgExplain
)

// message is the single concrete type carried over the clerk's inbox
// channel; exactly one payload field is populated per Kind.
type message struct {
	kind          MessageKind
	compact       CompactRequest
	hashtableCalc HashtableCalcRequest
	idempotent    IdempotentRequest
	explain       ExplainRequest
}
