// Package types defines IncreSQL's tagged value model: the SQL type lattice
// (DataType) and the in-memory tagged value (Datum) that flows through every
// executor, expression, and storage key in the system.
package types

import "fmt"

// DataType is a member of the SQL type lattice. Null unifies with every
// other type during overload resolution (see internal/functions) and
// upcasts trivially; Decimal carries precision/scale but overload
// resolution ignores them (any decimal matches any decimal slot).
type DataType struct {
	Kind      Kind
	Precision int32
	Scale     int32
}

// Kind is the tag discriminating a DataType's shape.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindBigInt
	KindDecimal
	KindText
	KindByteA
	KindDate
	KindTimestamp
	KindJSON
	KindJSONPath
)

// DecimalMaxPrecision and DecimalMaxScale bound the decimal type per §3.
const (
	DecimalMaxPrecision = 28
	DecimalMaxScale     = 14
)

var (
	Null      = DataType{Kind: KindNull}
	Boolean   = DataType{Kind: KindBoolean}
	Integer   = DataType{Kind: KindInteger}
	BigInt    = DataType{Kind: KindBigInt}
	Text      = DataType{Kind: KindText}
	ByteA     = DataType{Kind: KindByteA}
	Date      = DataType{Kind: KindDate}
	Timestamp = DataType{Kind: KindTimestamp}
	JSON      = DataType{Kind: KindJSON}
	JSONPath  = DataType{Kind: KindJSONPath}
)

// Decimal builds a Decimal(p,s) DataType.
func Decimal(precision, scale int32) DataType {
	return DataType{Kind: KindDecimal, Precision: precision, Scale: scale}
}

func (d DataType) String() string {
	switch d.Kind {
	case KindNull:
		return "NULL"
	case KindBoolean:
		return "BOOLEAN"
	case KindInteger:
		return "INTEGER"
	case KindBigInt:
		return "BIGINT"
	case KindDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", d.Precision, d.Scale)
	case KindText:
		return "TEXT"
	case KindByteA:
		return "BYTEA"
	case KindDate:
		return "DATE"
	case KindTimestamp:
		return "TIMESTAMP"
	case KindJSON:
		return "JSON"
	case KindJSONPath:
		return "JSONPATH"
	default:
		return "UNKNOWN"
	}
}

// IsNull reports whether this DataType is the Null wildcard.
func (d DataType) IsNull() bool { return d.Kind == KindNull }

// CanUnify reports whether values of type other could be upcast/compared
// against this type during resolution; Null unifies with anything.
func (d DataType) CanUnify(other DataType) bool {
	if d.Kind == KindNull || other.Kind == KindNull {
		return true
	}
	return d.Kind == other.Kind
}
