package codec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"incresql/internal/types"
)

// WriteDatum appends d's fully self-describing sortable encoding (leading
// type tag plus payload) to buf. This is what storage keys are built from:
// concatenating one WriteDatum call per key column.
func WriteDatum(buf []byte, d types.Datum, order SortOrder) []byte {
	tag := func(b byte) byte {
		if order.IsDesc() {
			return ^b
		}
		return b
	}
	switch d.Kind {
	case types.KindNull:
		return append(buf, tag(tagNull))
	case types.KindBoolean:
		if d.AsBoolean() {
			return append(buf, tag(tagTrue))
		}
		return append(buf, tag(tagFalse))
	case types.KindInteger:
		buf = append(buf, tag(tagInt32))
		return WriteSigned(buf, int64(d.AsInteger()), order)
	case types.KindBigInt:
		buf = append(buf, tag(tagInt64))
		return WriteSigned(buf, d.AsBigInt(), order)
	case types.KindDecimal:
		buf = append(buf, tag(tagDecimal))
		return WriteDecimal(buf, d.AsDecimal(), order)
	case types.KindText, types.KindByteA, types.KindJSON:
		buf = append(buf, tag(tagTextBytes))
		return WriteBytes(buf, d.AsBytes(), order)
	case types.KindDate:
		buf = append(buf, tag(tagInt32))
		return WriteSigned(buf, int64(d.AsDateDays()), order)
	case types.KindTimestamp:
		buf = append(buf, tag(tagInt64))
		return WriteSigned(buf, d.AsTimestampMicros(), order)
	default:
		return append(buf, tag(tagNull))
	}
}

// ReadDatum decodes a value written by WriteDatum into a Datum of the given
// DataType (needed to disambiguate Date/Timestamp from plain ints and to
// distinguish Text/Bytes/JSON, none of which round-trip their own kind tag).
// sortOrder need not be supplied by the caller: it is recovered by
// inspecting the framing tag byte (tag < 127 is ascending, >= 127 is
// descending), matching §4.1's "decoding accepts both orderings" rule.
func ReadDatum(buf []byte, dt types.DataType) (types.Datum, []byte, error) {
	if len(buf) == 0 {
		return types.Datum{}, nil, errors.New("codec: empty buffer reading datum")
	}
	rawTag := buf[0]
	order := Asc
	tag := rawTag
	if rawTag >= 127 {
		order = Desc
		tag = ^rawTag
	}
	rem := buf[1:]

	switch tag {
	case tagNull:
		return types.NullDatum, rem, nil
	case tagFalse:
		return types.FalseDatum, rem, nil
	case tagTrue:
		return types.TrueDatum, rem, nil
	case tagInt32:
		i, rest, err := ReadSigned(rem, order)
		if err != nil {
			return types.Datum{}, nil, err
		}
		if dt.Kind == types.KindDate {
			return types.NewDate(int32(i)), rest, nil
		}
		return types.NewInteger(int32(i)), rest, nil
	case tagInt64:
		i, rest, err := ReadSigned(rem, order)
		if err != nil {
			return types.Datum{}, nil, err
		}
		if dt.Kind == types.KindTimestamp {
			return types.NewTimestamp(i), rest, nil
		}
		return types.NewBigInt(i), rest, nil
	case tagDecimal:
		d, rest, err := ReadDecimal(rem, order)
		if err != nil {
			return types.Datum{}, nil, err
		}
		return types.NewDecimal(d), rest, nil
	case tagTextBytes:
		b, rest, err := ReadBytes(rem, order)
		if err != nil {
			return types.Datum{}, nil, err
		}
		switch dt.Kind {
		case types.KindByteA:
			return types.NewBytes(b, true), rest, nil
		case types.KindJSON:
			return types.NewJSON(b, true), rest, nil
		default:
			return types.NewText(b, true), rest, nil
		}
	default:
		return types.Datum{}, nil, errors.Newf("codec: unknown datum tag %d", tag)
	}
}

// EncodeKey concatenates the sortable encoding of each value in key against
// the matching per-column sort order, building a storage index key prefix
// (§4.4). desc[i] selects descending order for column i.
func EncodeKey(values []types.Datum, desc []bool) []byte {
	buf := make([]byte, 0, 32*len(values))
	for i, v := range values {
		order := Asc
		if i < len(desc) && desc[i] {
			order = Desc
		}
		buf = WriteDatum(buf, v, order)
	}
	return buf
}

// AppendUint64BE appends v big-endian to buf; used for raw (non-sortable)
// timestamp suffixes in storage keys.
func AppendUint64BE(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}
