package journalstore

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"journalclerk/internal/compaction"
)

// Wire layout for one record, matching compaction.defaultCodec's
// length-prefixed value encoding:
//
//	sqn        uint64 LE
//	kind       byte
//	tag_len    uint16 LE
//	tag        []byte
//	key_len    uint32 LE
//	key        []byte
//	value_len  uint32 LE
//	value      []byte (codec-encoded)
//	crc32      uint32 LE, over everything above

const recordHeadLen = 8 + 1 + 2 // sqn + kind + tag_len

func appendUint16(dst []byte, v uint16) []byte {
	return append(dst, byte(v), byte(v>>8))
}

func appendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendUint64(dst []byte, v uint64) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

func encodeRecord(codec compaction.Codec, key compaction.JournalKey, value compaction.JournalValue) ([]byte, error) {
	encodedValue, err := codec.CreateValueForJournal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode journal value: %w", err)
	}

	tag := []byte(key.LedgerKey.Tag)
	lk := []byte(key.LedgerKey.Key)
	if len(tag) > 0xFFFF {
		return nil, fmt.Errorf("ledger tag too large to encode")
	}

	buf := make([]byte, 0, recordHeadLen+len(tag)+4+len(lk)+4+len(encodedValue)+compaction.CRCSize)
	buf = appendUint64(buf, key.SQN)
	buf = append(buf, byte(key.Kind))
	buf = appendUint16(buf, uint16(len(tag)))
	buf = append(buf, tag...)
	buf = appendUint32(buf, uint32(len(lk)))
	buf = append(buf, lk...)
	buf = appendUint32(buf, uint32(len(encodedValue)))
	buf = append(buf, encodedValue...)

	crc := crc32.ChecksumIEEE(buf)
	buf = appendUint32(buf, crc)
	return buf, nil
}

func decodeValue(raw []byte) (compaction.JournalValue, error) {
	if len(raw) < 4 {
		return compaction.JournalValue{}, fmt.Errorf("truncated journal value: missing object length")
	}
	objLen := binary.LittleEndian.Uint32(raw[0:4])
	raw = raw[4:]
	if uint32(len(raw)) < objLen+4 {
		return compaction.JournalValue{}, fmt.Errorf("truncated journal value: object/deltas length mismatch")
	}
	obj := append([]byte(nil), raw[:objLen]...)
	raw = raw[objLen:]

	deltaLen := binary.LittleEndian.Uint32(raw[0:4])
	raw = raw[4:]
	if uint32(len(raw)) < deltaLen {
		return compaction.JournalValue{}, fmt.Errorf("truncated journal value: deltas shorter than declared")
	}
	deltas := append([]byte(nil), raw[:deltaLen]...)

	return compaction.JournalValue{Object: obj, KeyDeltas: deltas}, nil
}

func readExact(r io.ReaderAt, offset int64, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

// decodeRecordAt reads one record starting at offset, returning its
// decoded key/value, whether its stored checksum matches, and its total
// on-disk size. A CRC mismatch is reported via crcOk=false, not an
// error — only truncation or I/O failure is an error here.
func decodeRecordAt(r io.ReaderAt, offset int64) (key compaction.JournalKey, value compaction.JournalValue, crcOk bool, size int, err error) {
	head, err := readExact(r, offset, recordHeadLen)
	if err != nil {
		return key, value, false, 0, fmt.Errorf("failed to read record header at %d: %w", offset, err)
	}
	sqn := binary.LittleEndian.Uint64(head[0:8])
	kind := compaction.RecordKind(head[8])
	tagLen := binary.LittleEndian.Uint16(head[9:11])
	cursor := offset + recordHeadLen

	tagBytes, err := readExact(r, cursor, int(tagLen))
	if err != nil {
		return key, value, false, 0, fmt.Errorf("failed to read record tag at %d: %w", cursor, err)
	}
	cursor += int64(tagLen)

	keyLenBytes, err := readExact(r, cursor, 4)
	if err != nil {
		return key, value, false, 0, fmt.Errorf("failed to read key length at %d: %w", cursor, err)
	}
	keyLen := binary.LittleEndian.Uint32(keyLenBytes)
	cursor += 4

	keyBytes, err := readExact(r, cursor, int(keyLen))
	if err != nil {
		return key, value, false, 0, fmt.Errorf("failed to read ledger key at %d: %w", cursor, err)
	}
	cursor += int64(keyLen)

	valLenBytes, err := readExact(r, cursor, 4)
	if err != nil {
		return key, value, false, 0, fmt.Errorf("failed to read value length at %d: %w", cursor, err)
	}
	valLen := binary.LittleEndian.Uint32(valLenBytes)
	cursor += 4

	valBytes, err := readExact(r, cursor, int(valLen))
	if err != nil {
		return key, value, false, 0, fmt.Errorf("failed to read value at %d: %w", cursor, err)
	}
	cursor += int64(valLen)

	crcBytes, err := readExact(r, cursor, compaction.CRCSize)
	if err != nil {
		return key, value, false, 0, fmt.Errorf("failed to read crc at %d: %w", cursor, err)
	}
	storedCRC := binary.LittleEndian.Uint32(crcBytes)
	cursor += int64(compaction.CRCSize)

	payload := make([]byte, 0, cursor-offset-int64(compaction.CRCSize))
	payload = appendUint64(payload, sqn)
	payload = append(payload, byte(kind))
	payload = appendUint16(payload, tagLen)
	payload = append(payload, tagBytes...)
	payload = appendUint32(payload, keyLen)
	payload = append(payload, keyBytes...)
	payload = appendUint32(payload, valLen)
	payload = append(payload, valBytes...)

	key = compaction.JournalKey{
		SQN:  sqn,
		Kind: kind,
		LedgerKey: compaction.LedgerKey{
			Tag: compaction.Tag(tagBytes),
			Key: string(keyBytes),
		},
	}

	crcOk = storedCRC == crc32.ChecksumIEEE(payload)

	if crcOk {
		value, err = decodeValue(valBytes)
		if err != nil {
			// A record can pass its CRC and still fail to decode as a
			// journal value if the wire format itself is inconsistent
			// with the codec's — treat that as a corrupt record too.
			return key, compaction.JournalValue{}, false, int(cursor - offset), nil
		}
	}

	return key, value, crcOk, int(cursor - offset), nil
}
