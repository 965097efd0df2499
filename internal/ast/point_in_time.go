package ast

import (
	"incresql/internal/catalog"
	"incresql/internal/expr"
	"incresql/internal/storage"
	"incresql/internal/types"
)

// PhysicalKind discriminates a PointInTimeOperator's variant (§4.8,
// grounded on ast/src/rel/point_in_time.rs's PointInTimeOperator enum,
// supplemented with HashJoin per executor/src/point_in_time/hash_join.rs,
// which the distilled spec's operator list requires but the trimmed
// point_in_time.rs enum omits).
type PhysicalKind uint8

const (
	PhysicalSingle PhysicalKind = iota
	PhysicalProject
	PhysicalValues
	PhysicalFilter
	PhysicalLimit
	PhysicalSort
	PhysicalUnionAll
	PhysicalTableScan
	PhysicalTableInsert
	PhysicalNegateFreq
	PhysicalSortedGroup
	PhysicalHashGroup
	PhysicalFileScan
	PhysicalHashJoin
)

// SerdeOptions names the row format used by FileScan's `FROM DIRECTORY`
// (§6's out-of-band external file source).
type SerdeOptions struct {
	Format string
}

// PointInTimeOperator is the executable physical plan the planner lowers
// LogicalOperator to, one PointInTimeOperator variant per TupleIter
// implementation in internal/executor.
type PointInTimeOperator struct {
	Kind PhysicalKind

	// Project
	Expressions []expr.Expression

	// Values
	Data        [][]types.Datum
	ColumnCount int

	// Filter
	Predicate expr.Expression

	// Limit
	Offset int64
	Limit  int64

	// Sort
	SortExpressions []expr.Expression

	// UnionAll
	Sources []PointInTimeOperator

	// TableScan / TableInsert
	Table     *catalog.TableMeta
	Timestamp storage.Timestamp

	// SortedGroup / HashGroup: the first KeyLen entries of Expressions
	// are the grouping key, the rest are CompiledAggregate expressions.
	KeyLen int

	// FileScan
	Directory    string
	SerdeOptions SerdeOptions

	// HashJoin: the first KeyLen columns of both sides are the equi-join
	// key (hash_join.rs: "key_len columns being the equi join condition").
	Left  *PointInTimeOperator
	Right *PointInTimeOperator

	// Single-child operators: Project, Filter, Limit, Sort, TableInsert,
	// NegateFreq, SortedGroup, HashGroup.
	Source *PointInTimeOperator
}

func NewSinglePhysical() PointInTimeOperator { return PointInTimeOperator{Kind: PhysicalSingle} }

func NewProjectPhysical(exprs []expr.Expression, source PointInTimeOperator) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalProject, Expressions: exprs, Source: &source}
}

func NewValuesPhysical(data [][]types.Datum, columnCount int) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalValues, Data: data, ColumnCount: columnCount}
}

func NewFilterPhysical(predicate expr.Expression, source PointInTimeOperator) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalFilter, Predicate: predicate, Source: &source}
}

func NewLimitPhysical(offset, limit int64, source PointInTimeOperator) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalLimit, Offset: offset, Limit: limit, Source: &source}
}

func NewSortPhysical(sortExprs []expr.Expression, source PointInTimeOperator) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalSort, SortExpressions: sortExprs, Source: &source}
}

func NewUnionAllPhysical(sources []PointInTimeOperator) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalUnionAll, Sources: sources}
}

func NewTableScan(table *catalog.TableMeta, ts storage.Timestamp) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalTableScan, Table: table, Timestamp: ts}
}

func NewTableInsertPhysical(table *catalog.TableMeta, source PointInTimeOperator) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalTableInsert, Table: table, Source: &source}
}

func NewNegateFreq(source PointInTimeOperator) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalNegateFreq, Source: &source}
}

func NewSortedGroup(exprs []expr.Expression, keyLen int, source PointInTimeOperator) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalSortedGroup, Expressions: exprs, KeyLen: keyLen, Source: &source}
}

func NewHashGroup(exprs []expr.Expression, keyLen int, source PointInTimeOperator) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalHashGroup, Expressions: exprs, KeyLen: keyLen, Source: &source}
}

func NewFileScan(directory string, opts SerdeOptions) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalFileScan, Directory: directory, SerdeOptions: opts}
}

func NewHashJoin(keyLen int, left, right PointInTimeOperator) PointInTimeOperator {
	return PointInTimeOperator{Kind: PhysicalHashJoin, KeyLen: keyLen, Left: &left, Right: &right}
}

// ColumnCountOf returns how many columns a row produced by op has, used by
// the executor to size tuple buffers ahead of time (hash_join.rs's
// right_size_new_to pattern).
func (o *PointInTimeOperator) ColumnCountOf() int {
	switch o.Kind {
	case PhysicalSingle:
		return 0
	case PhysicalValues:
		return o.ColumnCount
	case PhysicalProject:
		return len(o.Expressions)
	case PhysicalFilter, PhysicalLimit, PhysicalSort, PhysicalNegateFreq:
		return o.Source.ColumnCountOf()
	case PhysicalUnionAll:
		if len(o.Sources) == 0 {
			return 0
		}
		return o.Sources[0].ColumnCountOf()
	case PhysicalTableScan:
		return len(o.Table.Columns)
	case PhysicalTableInsert:
		return 1
	case PhysicalSortedGroup, PhysicalHashGroup:
		return len(o.Expressions)
	case PhysicalFileScan:
		return 3
	case PhysicalHashJoin:
		return o.Left.ColumnCountOf() + o.Right.ColumnCountOf()
	default:
		return 0
	}
}

// Children returns this operator's immediate child operators.
func (o *PointInTimeOperator) Children() []*PointInTimeOperator {
	switch o.Kind {
	case PhysicalProject, PhysicalFilter, PhysicalLimit, PhysicalSort, PhysicalTableInsert, PhysicalNegateFreq, PhysicalSortedGroup, PhysicalHashGroup:
		return []*PointInTimeOperator{o.Source}
	case PhysicalHashJoin:
		return []*PointInTimeOperator{o.Left, o.Right}
	case PhysicalUnionAll:
		children := make([]*PointInTimeOperator, len(o.Sources))
		for i := range o.Sources {
			children[i] = &o.Sources[i]
		}
		return children
	default:
		return nil
	}
}
