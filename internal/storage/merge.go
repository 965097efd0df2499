package storage

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/pebble"
)

// freqSuffixLen is the fixed width of the trailing signed-frequency field
// appended to every stored value. spec §4.4 describes this as a
// signed_varint; IncreSQL fixes it at 8 bytes so the merge operator (which
// must split "payload ∥ freq" from the tail without a length prefix) can
// do so without ambiguity — see DESIGN.md for the grounding of this
// simplification.
const freqSuffixLen = 8

// splitFreq separates a stored value into its tuple payload and trailing
// frequency.
func splitFreq(value []byte) (payload []byte, freq int64) {
	if len(value) < freqSuffixLen {
		return value, 0
	}
	n := len(value) - freqSuffixLen
	return value[:n], int64(binary.BigEndian.Uint64(value[n:]))
}

// appendFreq appends freq's fixed-width encoding to payload.
func appendFreq(payload []byte, freq int64) []byte {
	var b [freqSuffixLen]byte
	binary.BigEndian.PutUint64(b[:], uint64(freq))
	return append(payload, b[:]...)
}

// freqMerger implements pebble's per-key Merger (§4.4): values for the same
// key combine by summing their frequencies, keeping the most recently
// written payload bytes. A merge result with zero frequency becomes a
// tombstone, which the read path (point_lookup/scan) treats as absent —
// the Go analogue of RocksDB's compaction-filter-dropped zero-freq row,
// applied eagerly at merge time rather than deferred to compaction.
type freqMerger struct {
	payload []byte
	freq    int64
}

func newFreqMerge(_, value []byte) (pebble.ValueMerger, error) {
	payload, freq := splitFreq(value)
	return &freqMerger{payload: append([]byte(nil), payload...), freq: freq}, nil
}

func (m *freqMerger) MergeNewer(value []byte) error {
	payload, freq := splitFreq(value)
	m.payload = append([]byte(nil), payload...)
	m.freq += freq
	return nil
}

func (m *freqMerger) MergeOlder(value []byte) error {
	_, freq := splitFreq(value)
	m.freq += freq
	return nil
}

func (m *freqMerger) Finish(includesBase bool) ([]byte, io.Closer, error) {
	return appendFreq(m.payload, m.freq), nil, nil
}

// Merger is the pebble.Merger IncreSQL opens every table's store with.
var Merger = &pebble.Merger{
	Name:  "incresql.freq-merge",
	Merge: newFreqMerge,
}

// IsTombstone reports whether a (possibly merge-produced) value represents
// a deleted row (net frequency of zero).
func IsTombstone(value []byte) bool {
	_, freq := splitFreq(value)
	return freq == 0
}
