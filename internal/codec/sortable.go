// Package codec implements the order-preserving binary encoding described
// in spec §4.1: encoding a Datum (or one of the primitive types composing
// it) into a byte string whose lexicographic order matches SQL ordering,
// parameterised per-column by ascending/descending sort order. Storage keys
// are built by concatenating these encodings.
package codec

import (
	"encoding/binary"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"incresql/internal/types"
)

// SortOrder is Asc or Desc; Desc encodings are the bitwise-NOT of the
// equivalent Asc encoding, except that the signed-integer and decimal
// encoders encode the negated logical value instead, so that distinct byte
// widths still sort correctly.
type SortOrder uint8

const (
	Asc SortOrder = iota
	Desc
)

func (s SortOrder) IsDesc() bool { return s == Desc }
func (s SortOrder) IsAsc() bool  { return s == Asc }

// The tag constants are the leading byte of a Datum's sortable framing (§4.1): the
// type discriminator emitted ahead of each column's encoding so a decoder
// can recover heterogeneous tuples. Descending framing flips every emitted
// byte including this tag, which is how decoders distinguish orderings
// (tag < 127 is ascending, tag >= 127 is descending).
const (
	tagNull Kind = iota
	tagFalse
	tagTrue
	tagInt32
	tagInt64
	tagDecimal
	tagTextBytes
)

// Kind is a small alias keeping the tag constants self-documenting without
// colliding with types.Kind (a Datum's sortable tag space is narrower: Date
// is framed with tagInt32, Timestamp with tagInt64, and Text/Bytes/JSON all
// use tagTextBytes).
type Kind = uint8

// VarintSignedZeroEnc is the single-byte encoding of a zero-magnitude signed
// varint (displacement 103), exposed for tests pinning the exact byte.
const VarintSignedZeroEnc = 103

// --- unsigned varint ---

// WriteUnsigned appends i's sortable encoding to buf.
func WriteUnsigned(buf []byte, i uint64, order SortOrder) []byte {
	if order.IsDesc() {
		switch {
		case i < 253:
			return append(buf, ^uint8(i))
		case i <= uint64(^uint16(0)):
			buf = append(buf, ^uint8(253))
			return appendBE16(buf, ^uint16(i))
		case i <= uint64(^uint32(0)):
			buf = append(buf, ^uint8(254))
			return appendBE32(buf, ^uint32(i))
		default:
			buf = append(buf, ^uint8(255))
			return appendBE64(buf, ^i)
		}
	}
	switch {
	case i < 253:
		return append(buf, uint8(i))
	case i <= uint64(^uint16(0)):
		buf = append(buf, 253)
		return appendBE16(buf, uint16(i))
	case i <= uint64(^uint32(0)):
		buf = append(buf, 254)
		return appendBE32(buf, uint32(i))
	default:
		buf = append(buf, 255)
		return appendBE64(buf, i)
	}
}

// ReadUnsigned decodes a value written by WriteUnsigned, returning the
// unconsumed remainder of buf.
func ReadUnsigned(buf []byte, order SortOrder) (uint64, []byte, error) {
	if len(buf) == 0 {
		return 0, nil, errors.New("codec: empty buffer reading unsigned varint")
	}
	b0, rem := buf[0], buf[1:]
	if order.IsDesc() {
		switch b0 {
		case 2: // ^253
			if len(rem) < 2 {
				return 0, nil, errors.New("codec: truncated uint16")
			}
			return uint64(^binary.BigEndian.Uint16(rem)), rem[2:], nil
		case 1: // ^254
			if len(rem) < 4 {
				return 0, nil, errors.New("codec: truncated uint32")
			}
			return uint64(^binary.BigEndian.Uint32(rem)), rem[4:], nil
		case 0: // ^255
			if len(rem) < 8 {
				return 0, nil, errors.New("codec: truncated uint64")
			}
			return ^binary.BigEndian.Uint64(rem), rem[8:], nil
		default:
			return uint64(^b0), rem, nil
		}
	}
	switch b0 {
	case 253:
		if len(rem) < 2 {
			return 0, nil, errors.New("codec: truncated uint16")
		}
		return uint64(binary.BigEndian.Uint16(rem)), rem[2:], nil
	case 254:
		if len(rem) < 4 {
			return 0, nil, errors.New("codec: truncated uint32")
		}
		return uint64(binary.BigEndian.Uint32(rem)), rem[4:], nil
	case 255:
		if len(rem) < 8 {
			return 0, nil, errors.New("codec: truncated uint64")
		}
		return binary.BigEndian.Uint64(rem), rem[8:], nil
	default:
		return uint64(b0), rem, nil
	}
}

// --- signed varint ---

// WriteSigned appends i's sortable encoding to buf. Small values in
// [-99, 148] are packed directly into the discriminator byte (displaced by
// 103); larger magnitudes use byte-count discriminators, ascending for
// positives and descending for negatives. i64::MIN is special-cased for
// descending order since it cannot be negated.
func WriteSigned(buf []byte, i int64, order SortOrder) []byte {
	if order.IsDesc() && i == minInt64 {
		buf = append(buf, 255)
		return appendBE64(buf, ^uint64(0))
	}
	if order.IsDesc() {
		i = -i
	}
	if i >= 0 {
		switch {
		case i <= 148:
			return append(buf, uint8(i)+103)
		case i <= 0xFF:
			return append(buf, 252, uint8(i))
		case i <= 0xFFFF:
			buf = append(buf, 253)
			return appendBE16(buf, uint16(i))
		case i <= 0xFFFFFFFF:
			buf = append(buf, 254)
			return appendBE32(buf, uint32(i))
		default:
			buf = append(buf, 255)
			return appendBE64(buf, uint64(i))
		}
	}
	switch {
	case i >= -99:
		return append(buf, uint8(i+103))
	case i >= -0xFF:
		return append(buf, 3, ^uint8(-i))
	case i >= -0xFFFF:
		buf = append(buf, 2)
		return appendBE16(buf, ^uint16(-i))
	case i >= -0xFFFFFFFF:
		buf = append(buf, 1)
		return appendBE32(buf, ^uint32(-i))
	default:
		buf = append(buf, 0)
		return appendBE64(buf, uint64(i))
	}
}

const minInt64 = -1 << 63

// ReadSigned decodes a value written by WriteSigned.
func ReadSigned(buf []byte, order SortOrder) (int64, []byte, error) {
	if len(buf) == 0 {
		return 0, nil, errors.New("codec: empty buffer reading signed varint")
	}
	b0, rem := buf[0], buf[1:]
	var i int64
	var err error
	switch b0 {
	case 0:
		if len(rem) < 8 {
			return 0, nil, errors.New("codec: truncated int64")
		}
		i = int64(binary.BigEndian.Uint64(rem))
		rem = rem[8:]
	case 1:
		if len(rem) < 4 {
			return 0, nil, errors.New("codec: truncated int32")
		}
		i = -int64(^binary.BigEndian.Uint32(rem))
		rem = rem[4:]
	case 2:
		if len(rem) < 2 {
			return 0, nil, errors.New("codec: truncated int16")
		}
		i = -int64(^binary.BigEndian.Uint16(rem))
		rem = rem[2:]
	case 3:
		if len(rem) < 1 {
			return 0, nil, errors.New("codec: truncated int8")
		}
		i = -int64(^rem[0])
		rem = rem[1:]
	case 252:
		if len(rem) < 1 {
			return 0, nil, errors.New("codec: truncated uint8")
		}
		i = int64(rem[0])
		rem = rem[1:]
	case 253:
		if len(rem) < 2 {
			return 0, nil, errors.New("codec: truncated uint16")
		}
		i = int64(binary.BigEndian.Uint16(rem))
		rem = rem[2:]
	case 254:
		if len(rem) < 4 {
			return 0, nil, errors.New("codec: truncated uint32")
		}
		i = int64(binary.BigEndian.Uint32(rem))
		rem = rem[4:]
	case 255:
		if len(rem) < 8 {
			return 0, nil, errors.New("codec: truncated uint64")
		}
		u := binary.BigEndian.Uint64(rem)
		rem = rem[8:]
		if order.IsDesc() && u == ^uint64(0) {
			return minInt64, rem, nil
		}
		i = int64(u)
	default:
		i = int64(b0) - 103
	}
	if order.IsDesc() {
		i = -i
	}
	return i, rem, err
}

func appendBE16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}
func appendBE32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
func appendBE64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// --- byte-string chunks ---

// WriteBytes appends the sortable chunked encoding of b to buf: 8-byte
// chunks each followed by a marker byte (9 = more chunks follow, 0..=8 =
// final chunk length, 0 only for empty input). Descending order flips every
// emitted byte.
func WriteBytes(buf []byte, b []byte, order SortOrder) []byte {
	if order.IsAsc() {
		for len(b) > 8 {
			buf = append(buf, b[:8]...)
			buf = append(buf, 9)
			b = b[8:]
		}
		buf = append(buf, b...)
		for i := 0; i < 8-len(b); i++ {
			buf = append(buf, 0)
		}
		return append(buf, uint8(len(b)))
	}
	for len(b) > 8 {
		for _, c := range b[:8] {
			buf = append(buf, ^c)
		}
		buf = append(buf, ^uint8(9))
		b = b[8:]
	}
	for _, c := range b {
		buf = append(buf, ^c)
	}
	for i := 0; i < 8-len(b); i++ {
		buf = append(buf, ^uint8(0))
	}
	return append(buf, ^uint8(len(b)))
}

// ReadBytes decodes a value written by WriteBytes.
func ReadBytes(buf []byte, order SortOrder) ([]byte, []byte, error) {
	var out []byte
	rem := buf
	for {
		if len(rem) < 9 {
			return nil, nil, errors.New("codec: truncated byte chunk")
		}
		var marker uint8
		if order.IsAsc() {
			marker = rem[8]
		} else {
			marker = ^rem[8]
		}
		chunkLen := marker
		if chunkLen > 8 {
			chunkLen = 8
		}
		if order.IsAsc() {
			out = append(out, rem[:chunkLen]...)
		} else {
			for _, c := range rem[:chunkLen] {
				out = append(out, ^c)
			}
		}
		rem = rem[9:]
		if marker != 9 {
			break
		}
	}
	return out, rem, nil
}

// --- decimal ---

var (
	thresh1 = pow10(27)
	thresh2 = pow10(24)
	thresh3 = pow10(21)
	thresh4 = pow10(15)
	mul12   = pow10(12)
	mul6    = pow10(6)
	mul3    = pow10(3)
	mul1    = big.NewInt(10)
	mask32  = big.NewInt(0xFFFFFFFF)
)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// WriteDecimal appends d's sortable encoding to buf, per §4.1: zero is a
// one-byte sentinel (127); non-zero values are normalised to a 96-bit
// mantissa plus an effective scale in [0,100], tagged 128+(100-scale) for
// positives / 0-126 (NOT'd) for negatives, followed by up to three 4-byte
// big-endian chunks each preceded by a more-follows marker so trailing
// zero chunks can be omitted.
func WriteDecimal(buf []byte, d decimal.Decimal, order SortOrder) []byte {
	if d.IsZero() {
		return append(buf, 127)
	}
	isPositive := d.Sign() > 0
	if order.IsDesc() {
		isPositive = !isPositive
	}

	coeff := new(big.Int).Abs(d.Coefficient())
	scale := int32(-d.Exponent())
	if scale < 0 {
		coeff.Mul(coeff, pow10(int(-scale)))
		scale = 0
	}

	for coeff.Cmp(thresh4) < 0 {
		coeff.Mul(coeff, mul12)
		scale += 12
	}
	for coeff.Cmp(thresh3) < 0 {
		coeff.Mul(coeff, mul6)
		scale += 6
	}
	for coeff.Cmp(thresh2) < 0 {
		coeff.Mul(coeff, mul3)
		scale += 3
	}
	for coeff.Cmp(thresh1) < 0 {
		coeff.Mul(coeff, mul1)
		scale++
	}
	scale = 100 - scale

	hi := new(big.Int).Rsh(coeff, 64)
	hi.And(hi, mask32)
	mid := new(big.Int).Rsh(coeff, 32)
	mid.And(mid, mask32)
	lo := new(big.Int).And(coeff, mask32)

	if isPositive {
		buf = append(buf, uint8(128+scale))
		buf = appendBE32(buf, uint32(hi.Uint64()))
		if mid.Sign() != 0 || lo.Sign() != 0 {
			buf = append(buf, 1)
			buf = appendBE32(buf, uint32(mid.Uint64()))
			if lo.Sign() != 0 {
				buf = append(buf, 1)
				buf = appendBE32(buf, uint32(lo.Uint64()))
			} else {
				buf = append(buf, 0)
			}
		} else {
			buf = append(buf, 0)
		}
		return buf
	}
	buf = append(buf, uint8(126-scale))
	buf = appendBE32(buf, ^uint32(hi.Uint64()))
	if mid.Sign() != 0 || lo.Sign() != 0 {
		buf = append(buf, ^uint8(1))
		buf = appendBE32(buf, ^uint32(mid.Uint64()))
		if lo.Sign() != 0 {
			buf = append(buf, ^uint8(1))
			buf = appendBE32(buf, ^uint32(lo.Uint64()))
		} else {
			buf = append(buf, ^uint8(0))
		}
	} else {
		buf = append(buf, ^uint8(0))
	}
	return buf
}

// ReadDecimal decodes a value written by WriteDecimal.
func ReadDecimal(buf []byte, order SortOrder) (decimal.Decimal, []byte, error) {
	if len(buf) == 0 {
		return decimal.Zero, nil, errors.New("codec: empty buffer reading decimal")
	}
	tag, rem := buf[0], buf[1:]
	if tag == 127 {
		return decimal.Zero, rem, nil
	}
	if len(rem) < 5 {
		return decimal.Zero, nil, errors.New("codec: truncated decimal")
	}

	readChunks := func(positive bool) (coeff *big.Int, consumed []byte, err error) {
		hi := binary.BigEndian.Uint32(rem[:4])
		if !positive {
			hi = ^hi
		}
		coeff = new(big.Int).SetUint64(uint64(hi))
		coeff.Lsh(coeff, 64)
		more := rem[4]
		if !positive {
			more = ^more
		}
		rest := rem[5:]
		if more == 0 {
			return coeff, rest, nil
		}
		if len(rest) < 5 {
			return nil, nil, errors.New("codec: truncated decimal mid chunk")
		}
		mid := binary.BigEndian.Uint32(rest[:4])
		if !positive {
			mid = ^mid
		}
		midBig := new(big.Int).SetUint64(uint64(mid))
		midBig.Lsh(midBig, 32)
		coeff.Or(coeff, midBig)
		more2 := rest[4]
		if !positive {
			more2 = ^more2
		}
		rest = rest[5:]
		if more2 == 0 {
			return coeff, rest, nil
		}
		if len(rest) < 4 {
			return nil, nil, errors.New("codec: truncated decimal lo chunk")
		}
		lo := binary.BigEndian.Uint32(rest[:4])
		if !positive {
			lo = ^lo
		}
		coeff.Or(coeff, new(big.Int).SetUint64(uint64(lo)))
		return coeff, rest[4:], nil
	}

	var scale int32
	var sign int
	var coeff *big.Int
	var err error
	switch {
	case tag >= 128:
		scale = 100 - int32(tag-128)
		sign = 1
		coeff, rem, err = readChunks(true)
	default: // 0..=126
		scale = 100 - int32(126-tag)
		sign = -1
		coeff, rem, err = readChunks(false)
	}
	if order.IsDesc() {
		sign = -sign
	}
	if err != nil {
		return decimal.Zero, nil, err
	}

	if scale > DecimalEncodingMaxScale {
		// Strip trailing decimal zeros accumulated purely by normalisation
		// headroom so the reconstructed scale settles back at or below the
		// value's true precision, mirroring the source's renormalise step.
		ten := big.NewInt(10)
		zero := big.NewInt(0)
		mod := new(big.Int)
		for scale > DecimalEncodingMaxScale {
			mod.Mod(coeff, ten)
			if mod.Cmp(zero) != 0 {
				break
			}
			coeff.Div(coeff, ten)
			scale--
		}
	}

	if sign < 0 {
		coeff.Neg(coeff)
	}
	return decimal.NewFromBigInt(coeff, -scale), rem, nil
}

// DecimalEncodingMaxScale is the normalisation ceiling beyond which the
// decoder re-strips trailing zeros (types.DecimalMaxScale governs the
// logical SQL type lattice; this is the codec's internal renormalisation
// bound, kept generous since normalisation headroom for very small
// magnitudes can temporarily exceed 28).
const DecimalEncodingMaxScale = types.DecimalMaxScale + 14
