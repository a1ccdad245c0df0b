package compaction

import "fmt"

// defaultCodec is the built-in Codec implementation. It has no state and
// no lifecycle, unlike the file store, controller, and ledger stand-ins,
// so it lives here rather than in its own package.
type defaultCodec struct{}

// NewCodec returns the default Codec.
func NewCodec() Codec {
	return defaultCodec{}
}

// CompactInkerKVC applies a strategy decision to a fetched record,
// producing either a skip signal (record dropped) or the possibly
// rewritten record to hand to the writer.
func (defaultCodec) CompactInkerKVC(kvc KeyValueCheck, strategy StrategyKind) (bool, KeyValueCheck, error) {
	if kvc.Key.Kind == Tombstone {
		return false, kvc, nil
	}

	switch strategy {
	case Retain:
		compacted := kvc
		compacted.Key.Kind = KeyDeltas
		compacted.Value = JournalValue{KeyDeltas: kvc.Value.KeyDeltas}
		return false, compacted, nil
	case Recalc, Recovr:
		return true, KeyValueCheck{}, nil
	}
	return true, KeyValueCheck{}, nil
}

// FromJournalKey extracts the (sqn, ledger_key) pair a filter decision
// needs.
func (defaultCodec) FromJournalKey(key JournalKey) (uint64, LedgerKey) {
	return key.SQN, key.LedgerKey
}

// CreateValueForJournal serializes a JournalValue for the on-disk record.
// The wire layout is a length-prefixed pair of the two payload fields;
// standard records may fill both, key-deltas records only KeyDeltas, and
// tombstones neither.
func (defaultCodec) CreateValueForJournal(value JournalValue) ([]byte, error) {
	if len(value.Object) > 0xFFFFFFFF || len(value.KeyDeltas) > 0xFFFFFFFF {
		return nil, fmt.Errorf("journal value too large to encode")
	}

	out := make([]byte, 0, 8+len(value.Object)+len(value.KeyDeltas))
	out = appendUint32(out, uint32(len(value.Object)))
	out = append(out, value.Object...)
	out = appendUint32(out, uint32(len(value.KeyDeltas)))
	out = append(out, value.KeyDeltas...)
	return out, nil
}

func appendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
