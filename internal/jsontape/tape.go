// Package jsontape implements IncreSQL's binary JSON representation (§4.2):
// JSON text is parsed once into a compact "tape" so that key lookup and
// array indexing are O(child-count) without further allocation, and a
// compiled JSONPath can walk that tape directly.
package jsontape

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Tag is the leading byte of a tape node.
type Tag byte

const (
	TagNull Tag = iota
	TagFalse
	TagTrue
	TagInt
	TagDecimal
	TagStringEmpty
	TagString1
	TagString2
	TagString4
	TagArrayEmpty
	TagArray1
	TagArray2
	TagArray4
	TagObjectEmpty
	TagObject1
	TagObject2
	TagObject4
)

// Parse converts JSON text into a tape. Invalid JSON yields an error; the
// caller (e.g. a JsonPath cast) is responsible for turning that into NULL
// per §3's "construction from unparsable text yields Null" invariant.
func Parse(text []byte) ([]byte, error) {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(text)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "jsontape: parse")
	}
	var buf []byte
	buf = encodeValue(buf, v)
	return buf, nil
}

func encodeValue(buf []byte, v any) []byte {
	switch t := v.(type) {
	case nil:
		return append(buf, byte(TagNull))
	case bool:
		if t {
			return append(buf, byte(TagTrue))
		}
		return append(buf, byte(TagFalse))
	case json.Number:
		if i, err := t.Int64(); err == nil {
			buf = append(buf, byte(TagInt))
			return appendVarintI64(buf, i)
		}
		f, _ := t.Float64()
		buf = append(buf, byte(TagDecimal))
		return append(buf, []byte(strconv.FormatFloat(f, 'g', -1, 64))...)
	case string:
		return encodeString(buf, t)
	case []any:
		return encodeArray(buf, t)
	case map[string]any:
		return encodeObject(buf, t)
	default:
		return append(buf, byte(TagNull))
	}
}

func appendVarintI64(buf []byte, i int64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(i))
	return append(buf, b[:]...)
}

func encodeString(buf []byte, s string) []byte {
	if len(s) == 0 {
		return append(buf, byte(TagStringEmpty))
	}
	b := []byte(s)
	switch {
	case len(b) <= 0xFF:
		buf = append(buf, byte(TagString1), byte(len(b)))
	case len(b) <= 0xFFFF:
		buf = append(buf, byte(TagString2))
		buf = appendLE16(buf, uint16(len(b)))
	default:
		buf = append(buf, byte(TagString4))
		buf = appendLE32(buf, uint32(len(b)))
	}
	return append(buf, b...)
}

func encodeArray(buf []byte, arr []any) []byte {
	if len(arr) == 0 {
		return append(buf, byte(TagArrayEmpty))
	}
	var body []byte
	for _, e := range arr {
		body = encodeValue(body, e)
	}
	return writeContainer(buf, TagArray1, TagArray2, TagArray4, len(arr), body)
}

func encodeObject(buf []byte, obj map[string]any) []byte {
	if len(obj) == 0 {
		return append(buf, byte(TagObjectEmpty))
	}
	var body []byte
	count := 0
	for k, v := range obj {
		body = encodeString(body, k)
		body = encodeValue(body, v)
		count++
	}
	return writeContainer(buf, TagObject1, TagObject2, TagObject4, count, body)
}

func writeContainer(buf []byte, t1, t2, t4 Tag, count int, body []byte) []byte {
	switch {
	case count <= 0xFF:
		buf = append(buf, byte(t1), byte(count))
	case count <= 0xFFFF:
		buf = append(buf, byte(t2))
		buf = appendLE16(buf, uint16(count))
	default:
		buf = append(buf, byte(t4))
		buf = appendLE32(buf, uint32(count))
	}
	return append(buf, body...)
}

// BuildArray wraps a sequence of already-encoded tape nodes into a single
// array tape node, used by operators (e.g. json_extract under a wildcard
// path) that must assemble a result from several matched nodes without
// re-parsing them (§4.2: "could_return_many() ... wrap results in a JSON
// array").
func BuildArray(nodes [][]byte) []byte {
	if len(nodes) == 0 {
		return []byte{byte(TagArrayEmpty)}
	}
	var body []byte
	for _, n := range nodes {
		body = append(body, n...)
	}
	return writeContainer(nil, TagArray1, TagArray2, TagArray4, len(nodes), body)
}

func appendLE16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}
func appendLE32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// Node is a read-only cursor into a tape.
type Node struct {
	bytes []byte
}

func NewNode(tape []byte) Node { return Node{bytes: tape} }

// Raw returns the exact byte range occupied by this node (header and
// payload only, no trailing sibling bytes) — the form BuildArray expects.
func (n Node) Raw() []byte { return n.bytes[:n.size()] }

func (n Node) IsNull() bool { return len(n.bytes) == 0 || Tag(n.bytes[0]) == TagNull }

func (n Node) Tag() Tag { return Tag(n.bytes[0]) }

func (n Node) Boolean() (bool, bool) {
	switch Tag(n.bytes[0]) {
	case TagFalse:
		return false, true
	case TagTrue:
		return true, true
	default:
		return false, false
	}
}

func (n Node) Int() (int64, bool) {
	if Tag(n.bytes[0]) != TagInt {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(n.bytes[1:9])), true
}

// size returns the number of bytes this node (header + payload) occupies,
// so a caller can skip past it without decoding the payload.
func (n Node) size() int {
	switch Tag(n.bytes[0]) {
	case TagNull, TagFalse, TagTrue, TagStringEmpty, TagArrayEmpty, TagObjectEmpty:
		return 1
	case TagInt:
		return 9
	case TagDecimal:
		rest := n.bytes[1:]
		i := 0
		for i < len(rest) && !isTagByte(rest[i]) {
			i++
		}
		return 1 + i
	case TagString1:
		l := int(n.bytes[1])
		return 2 + l
	case TagString2:
		l := int(binary.LittleEndian.Uint16(n.bytes[1:3]))
		return 3 + l
	case TagString4:
		l := int(binary.LittleEndian.Uint32(n.bytes[1:5]))
		return 5 + l
	case TagArray1, TagObject1:
		return 2 + n.childrenSize(1, int(n.bytes[1]), Tag(n.bytes[0]) == TagObject1)
	case TagArray2, TagObject2:
		c := int(binary.LittleEndian.Uint16(n.bytes[1:3]))
		return 3 + n.childrenSize(3, c, Tag(n.bytes[0]) == TagObject2)
	case TagArray4, TagObject4:
		c := int(binary.LittleEndian.Uint32(n.bytes[1:5]))
		return 5 + n.childrenSize(5, c, Tag(n.bytes[0]) == TagObject4)
	default:
		return 1
	}
}

// isTagByte is a placeholder for Decimal's (unused in this simplified
// scheme — Decimal nodes are not emitted by encodeValue, reserved for a
// future literal-preserving numeric path) variable-length termination;
// Decimal currently never appears on the tape (encodeValue downgrades all
// JSON numbers to Int or stores them as a decimal text run consumed
// wholesale), so this always returns false and size() falls through.
func isTagByte(byte) bool { return false }

func (n Node) childrenSize(offset, count int, isObject bool) int {
	total := offset
	for i := 0; i < count; i++ {
		if isObject {
			key := Node{bytes: n.bytes[total:]}
			total += key.size()
		}
		val := Node{bytes: n.bytes[total:]}
		total += val.size()
	}
	return total - offset
}

func (n Node) String() (string, bool) {
	switch Tag(n.bytes[0]) {
	case TagStringEmpty:
		return "", true
	case TagString1:
		l := int(n.bytes[1])
		return string(n.bytes[2 : 2+l]), true
	case TagString2:
		l := int(binary.LittleEndian.Uint16(n.bytes[1:3]))
		return string(n.bytes[3 : 3+l]), true
	case TagString4:
		l := int(binary.LittleEndian.Uint32(n.bytes[1:5]))
		return string(n.bytes[5 : 5+l]), true
	default:
		return "", false
	}
}

// ArrayLen returns the element count for an array node, or (0, false) if n
// is not an array.
func (n Node) ArrayLen() (int, bool) {
	switch Tag(n.bytes[0]) {
	case TagArrayEmpty:
		return 0, true
	case TagArray1:
		return int(n.bytes[1]), true
	case TagArray2:
		return int(binary.LittleEndian.Uint16(n.bytes[1:3])), true
	case TagArray4:
		return int(binary.LittleEndian.Uint32(n.bytes[1:5])), true
	default:
		return 0, false
	}
}

// Index returns the i-th array element.
func (n Node) Index(i int) (Node, bool) {
	count, offset := n.arrayHeader()
	if offset < 0 || i < 0 || i >= count {
		return Node{}, false
	}
	pos := offset
	for e := 0; e < i; e++ {
		child := Node{bytes: n.bytes[pos:]}
		pos += child.size()
	}
	return Node{bytes: n.bytes[pos:]}, true
}

func (n Node) arrayHeader() (count, offset int) {
	switch Tag(n.bytes[0]) {
	case TagArrayEmpty:
		return 0, 1
	case TagArray1:
		return int(n.bytes[1]), 2
	case TagArray2:
		return int(binary.LittleEndian.Uint16(n.bytes[1:3])), 3
	case TagArray4:
		return int(binary.LittleEndian.Uint32(n.bytes[1:5])), 5
	default:
		return 0, -1
	}
}

// Field looks up a key in an object node, matching case-insensitively
// (§4.2's JSONPath StringIdentifier selector is case-insensitive).
func (n Node) Field(key string) (Node, bool) {
	count, offset := n.objectHeader()
	if offset < 0 {
		return Node{}, false
	}
	pos := offset
	for e := 0; e < count; e++ {
		keyNode := Node{bytes: n.bytes[pos:]}
		pos += keyNode.size()
		valNode := Node{bytes: n.bytes[pos:]}
		pos += valNode.size()
		if ks, ok := keyNode.String(); ok && strings.EqualFold(ks, key) {
			return valNode, true
		}
	}
	return Node{}, false
}

func (n Node) objectHeader() (count, offset int) {
	switch Tag(n.bytes[0]) {
	case TagObjectEmpty:
		return 0, 1
	case TagObject1:
		return int(n.bytes[1]), 2
	case TagObject2:
		return int(binary.LittleEndian.Uint16(n.bytes[1:3])), 3
	case TagObject4:
		return int(binary.LittleEndian.Uint32(n.bytes[1:5])), 5
	default:
		return 0, -1
	}
}

func (n Node) IsObject() bool {
	t := Tag(n.bytes[0])
	return t == TagObjectEmpty || t == TagObject1 || t == TagObject2 || t == TagObject4
}

func (n Node) IsArray() bool {
	t := Tag(n.bytes[0])
	return t == TagArrayEmpty || t == TagArray1 || t == TagArray2 || t == TagArray4
}

// ToJSONText serializes the tape rooted at n back to standard JSON text.
func (n Node) ToJSONText() string {
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n Node) writeText(sb *strings.Builder) {
	switch Tag(n.bytes[0]) {
	case TagNull:
		sb.WriteString("null")
	case TagFalse:
		sb.WriteString("false")
	case TagTrue:
		sb.WriteString("true")
	case TagInt:
		i, _ := n.Int()
		sb.WriteString(strconv.FormatInt(i, 10))
	case TagStringEmpty, TagString1, TagString2, TagString4:
		s, _ := n.String()
		b, _ := json.Marshal(s)
		sb.Write(b)
	case TagArrayEmpty, TagArray1, TagArray2, TagArray4:
		count, offset := n.arrayHeader()
		sb.WriteByte('[')
		pos := offset
		for i := 0; i < count; i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			child := Node{bytes: n.bytes[pos:]}
			child.writeText(sb)
			pos += child.size()
		}
		sb.WriteByte(']')
	case TagObjectEmpty, TagObject1, TagObject2, TagObject4:
		count, offset := n.objectHeader()
		sb.WriteByte('{')
		pos := offset
		for i := 0; i < count; i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			keyNode := Node{bytes: n.bytes[pos:]}
			pos += keyNode.size()
			ks, _ := keyNode.String()
			kb, _ := json.Marshal(ks)
			sb.Write(kb)
			sb.WriteByte(':')
			valNode := Node{bytes: n.bytes[pos:]}
			valNode.writeText(sb)
			pos += valNode.size()
		}
		sb.WriteByte('}')
	default:
		sb.WriteString("null")
	}
}

func (t Tag) String() string {
	return fmt.Sprintf("tag(%d)", byte(t))
}
