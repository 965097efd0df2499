package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TextForm discriminates how a byteString's payload is backed. A Datum
// carrying Borrowed points into a buffer it does not own (e.g. a storage
// iterator's current key/value); that view is only valid until the owner
// advances. Owned is a heap allocation the Datum itself owns. Inline avoids
// the allocation entirely for short payloads, mirroring the teacher
// corpus's preference for small-value optimizations in hot value types.
type TextForm uint8

const (
	TextBorrowed TextForm = iota
	TextOwned
	TextInline
)

// inlineCapacity is the largest payload stored without a heap allocation.
const inlineCapacity = 22

// byteString is the shared representation backing both the Text and ByteA
// Datum kinds; see §3's "three forms" for the Datum text/bytes variants.
type byteString struct {
	form      TextForm
	inline    [inlineCapacity]byte
	inlineLen uint8
	data      []byte
}

func newByteString(b []byte, owned bool) byteString {
	if len(b) <= inlineCapacity {
		var bs byteString
		bs.form = TextInline
		bs.inlineLen = uint8(len(b))
		copy(bs.inline[:], b)
		return bs
	}
	if owned {
		cp := make([]byte, len(b))
		copy(cp, b)
		return byteString{form: TextOwned, data: cp}
	}
	return byteString{form: TextBorrowed, data: b}
}

func (b byteString) bytes() []byte {
	if b.form == TextInline {
		return b.inline[:b.inlineLen]
	}
	return b.data
}

// promote copies a Borrowed payload into owned storage; Owned and Inline
// payloads are returned unchanged since they already outlive their source.
func (b byteString) promote() byteString {
	if b.form != TextBorrowed {
		return b
	}
	return newByteString(b.data, true)
}

// Datum is a tagged SQL value. It is a closed sum type modelled as tagged
// fields rather than an interface, per the teacher corpus's "narrow
// execute(...) polymorphism, not virtual dispatch" idiom applied to values.
type Datum struct {
	Kind Kind

	boolean bool
	i32     int32
	i64     int64
	dec     decimal.Decimal
	str     byteString
	path    *CompiledJSONPath
}

// CompiledJSONPath is satisfied by internal/jsontape.Path; declared here to
// avoid an import cycle between types and jsontape (jsontape.Path values are
// stored inside a Datum but types itself never evaluates them).
type CompiledJSONPath interface {
	String() string
}

// NullDatum, TrueDatum, FalseDatum are canonical zero-allocation constants.
var (
	NullDatum  = Datum{Kind: KindNull}
	TrueDatum  = Datum{Kind: KindBoolean, boolean: true}
	FalseDatum = Datum{Kind: KindBoolean, boolean: false}
)

func NewBoolean(b bool) Datum {
	if b {
		return TrueDatum
	}
	return FalseDatum
}

func NewInteger(i int32) Datum { return Datum{Kind: KindInteger, i32: i} }

func NewBigInt(i int64) Datum { return Datum{Kind: KindBigInt, i64: i} }

func NewDecimal(d decimal.Decimal) Datum { return Datum{Kind: KindDecimal, dec: d} }

// NewText wraps b as a Text datum. owned controls whether a non-inline
// payload is copied (true) or borrowed in place (false, the scan fast path).
func NewText(b []byte, owned bool) Datum {
	return Datum{Kind: KindText, str: newByteString(b, owned)}
}

func NewTextString(s string) Datum { return NewText([]byte(s), true) }

func NewBytes(b []byte, owned bool) Datum {
	return Datum{Kind: KindByteA, str: newByteString(b, owned)}
}

// NewDate wraps a day count (days since the Unix epoch).
func NewDate(days int32) Datum { return Datum{Kind: KindDate, i32: days} }

// NewTimestamp wraps a microsecond count since the Unix epoch.
func NewTimestamp(micros int64) Datum { return Datum{Kind: KindTimestamp, i64: micros} }

func NewJSON(tape []byte, owned bool) Datum {
	return Datum{Kind: KindJSON, str: newByteString(tape, owned)}
}

func NewJSONPath(p CompiledJSONPath) Datum { return Datum{Kind: KindJSONPath, path: p} }

func (d Datum) IsNull() bool { return d.Kind == KindNull }

func (d Datum) AsBoolean() bool { return d.boolean }

func (d Datum) AsInteger() int32 { return d.i32 }

func (d Datum) AsBigInt() int64 { return d.i64 }

func (d Datum) AsDecimal() decimal.Decimal { return d.dec }

func (d Datum) AsBytes() []byte { return d.str.bytes() }

func (d Datum) AsText() string { return string(d.str.bytes()) }

func (d Datum) AsDateDays() int32 { return d.i32 }

func (d Datum) AsTimestampMicros() int64 { return d.i64 }

func (d Datum) AsJSONTape() []byte { return d.str.bytes() }

func (d Datum) AsJSONPath() CompiledJSONPath { return d.path }

// TextFormOf reports how the underlying text/bytes/json payload is backed;
// used by tests asserting the inline-string optimization boundary.
func (d Datum) TextFormOf() TextForm { return d.str.form }

// RefClone returns a shallow copy that shares any owned backing array by
// reference rather than duplicating it — the Go analogue of the teacher's
// ref_clone, since Go slices and strings are already reference types; the
// operation exists to mirror the source's API shape for borrowed data.
func (d Datum) RefClone() Datum { return d }

// Promote returns a Datum guaranteed to survive past the lifetime of
// whatever buffer it may currently borrow from, copying borrowed text/bytes
// payloads into owned storage.
func (d Datum) Promote() Datum {
	if d.Kind == KindText || d.Kind == KindByteA || d.Kind == KindJSON {
		d.str = d.str.promote()
	}
	return d
}

// DataType returns an uninstantiated representative DataType for this
// Datum's Kind; Decimal precision/scale are not recoverable from the value
// alone and are populated by the caller when known.
func (d Datum) DataType() DataType {
	switch d.Kind {
	case KindNull:
		return Null
	case KindBoolean:
		return Boolean
	case KindInteger:
		return Integer
	case KindBigInt:
		return BigInt
	case KindDecimal:
		return Decimal(DecimalMaxPrecision, int32(d.dec.Exponent())*-1)
	case KindText:
		return Text
	case KindByteA:
		return ByteA
	case KindDate:
		return Date
	case KindTimestamp:
		return Timestamp
	case KindJSON:
		return JSON
	case KindJSONPath:
		return JSONPath
	default:
		return Null
	}
}

func (d Datum) String() string {
	switch d.Kind {
	case KindNull:
		return "NULL"
	case KindBoolean:
		if d.boolean {
			return "TRUE"
		}
		return "FALSE"
	case KindInteger:
		return fmt.Sprintf("%d", d.i32)
	case KindBigInt:
		return fmt.Sprintf("%d", d.i64)
	case KindDecimal:
		return d.dec.String()
	case KindText:
		return d.AsText()
	case KindByteA:
		return fmt.Sprintf("%x", d.AsBytes())
	case KindDate:
		return time.Unix(int64(d.i32)*86400, 0).UTC().Format("2006-01-02")
	case KindTimestamp:
		return time.UnixMicro(d.i64).UTC().Format("2006-01-02 15:04:05.999999")
	case KindJSON:
		return fmt.Sprintf("<json %d bytes>", len(d.AsJSONTape()))
	case KindJSONPath:
		if d.path != nil {
			return d.path.String()
		}
		return "<jsonpath>"
	default:
		return "?"
	}
}

// Equal reports deep value equality, used by hash-group/hash-join key
// comparisons that fall back off the sortable-codec byte comparison.
func (d Datum) Equal(o Datum) bool {
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case KindNull:
		return true
	case KindBoolean:
		return d.boolean == o.boolean
	case KindInteger:
		return d.i32 == o.i32
	case KindBigInt:
		return d.i64 == o.i64
	case KindDecimal:
		return d.dec.Equal(o.dec)
	case KindText, KindByteA, KindJSON:
		return string(d.AsBytes()) == string(o.AsBytes())
	case KindDate:
		return d.i32 == o.i32
	case KindTimestamp:
		return d.i64 == o.i64
	default:
		return false
	}
}
