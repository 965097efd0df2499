// Package ast implements the logical and point-in-time (physical) plan
// trees the planner builds and lowers (§4.7, grounded on
// ast/src/rel/logical.rs and ast/src/rel/point_in_time.rs). Both trees are
// modelled as single tagged structs rather than boxed-enum-of-structs, per
// the corpus's "tagged variant, not virtual dispatch" idiom already used by
// internal/expr.Expression.
package ast

import (
	"incresql/internal/catalog"
	"incresql/internal/expr"
	"incresql/internal/types"
)

// LogicalKind discriminates a LogicalOperator's variant. The distilled
// enum in logical.rs only carries Single/Project/Values; the rest are
// supplemented from the planner's actual needs (validation, GroupBy
// detection, join normalization) so phases 1-3 have somewhere to land
// before lowering to a PointInTimeOperator.
type LogicalKind uint8

const (
	LogicalSingle LogicalKind = iota
	LogicalProject
	LogicalValues
	LogicalFilter
	LogicalLimit
	LogicalSort
	LogicalUnionAll
	LogicalTableInsert
	LogicalTableAlias
	LogicalResolvedTable
	LogicalGroupBy
	LogicalJoin
	LogicalNegateFreq
	LogicalUse
)

// JoinKind names the supported join variants.
type JoinKind uint8

const (
	JoinInner JoinKind = iota
	JoinLeftOuter
)

// NamedExpression pairs an expression with its output alias (empty if the
// planner hasn't assigned one yet), mirroring logical.rs's NamedExpression.
type NamedExpression struct {
	Alias      string
	Expression expr.Expression
}

// FieldDef names one output column's declared type, used by Values rows
// that arrive with no source table to infer types from.
type FieldDef struct {
	Name string
	Type types.DataType
}

// LogicalOperator is the pre-lowering plan tree the planner's validation
// and optimization phases operate over (§4.7 phases 1-3).
type LogicalOperator struct {
	Kind LogicalKind

	// Project
	Distinct         bool
	NamedExpressions []NamedExpression

	// Values
	Fields []FieldDef
	Data   [][]expr.Expression

	// Filter
	Predicate expr.Expression

	// Limit
	Offset int64
	Limit  int64

	// Sort
	SortExpressions []expr.Expression

	// UnionAll
	Sources []LogicalOperator

	// TableInsert / ResolvedTable
	Table *catalog.TableMeta

	// TableAlias
	Alias string

	// GroupBy
	GroupExpressions []expr.Expression
	KeyLen           int

	// Join
	JoinType    JoinKind
	OnPredicate expr.Expression

	// Single-child operators share one field: Project, Filter, Limit,
	// Sort, TableInsert, TableAlias, GroupBy, and the left/right of Join.
	Source *LogicalOperator
	Left   *LogicalOperator
	Right  *LogicalOperator
}

func NewSingle() LogicalOperator { return LogicalOperator{Kind: LogicalSingle} }

func NewProject(distinct bool, exprs []NamedExpression, source LogicalOperator) LogicalOperator {
	return LogicalOperator{Kind: LogicalProject, Distinct: distinct, NamedExpressions: exprs, Source: &source}
}

func NewValues(fields []FieldDef, data [][]expr.Expression) LogicalOperator {
	return LogicalOperator{Kind: LogicalValues, Fields: fields, Data: data}
}

func NewFilter(predicate expr.Expression, source LogicalOperator) LogicalOperator {
	return LogicalOperator{Kind: LogicalFilter, Predicate: predicate, Source: &source}
}

func NewLimit(offset, limit int64, source LogicalOperator) LogicalOperator {
	return LogicalOperator{Kind: LogicalLimit, Offset: offset, Limit: limit, Source: &source}
}

func NewSort(sortExprs []expr.Expression, source LogicalOperator) LogicalOperator {
	return LogicalOperator{Kind: LogicalSort, SortExpressions: sortExprs, Source: &source}
}

func NewUnionAll(sources []LogicalOperator) LogicalOperator {
	return LogicalOperator{Kind: LogicalUnionAll, Sources: sources}
}

func NewTableInsert(table *catalog.TableMeta, source LogicalOperator) LogicalOperator {
	return LogicalOperator{Kind: LogicalTableInsert, Table: table, Source: &source}
}

func NewTableAlias(alias string, source LogicalOperator) LogicalOperator {
	return LogicalOperator{Kind: LogicalTableAlias, Alias: alias, Source: &source}
}

func NewResolvedTable(table *catalog.TableMeta) LogicalOperator {
	return LogicalOperator{Kind: LogicalResolvedTable, Table: table}
}

func NewGroupBy(groupExprs []expr.Expression, keyLen int, source LogicalOperator) LogicalOperator {
	return LogicalOperator{Kind: LogicalGroupBy, GroupExpressions: groupExprs, KeyLen: keyLen, Source: &source}
}

func NewJoin(joinType JoinKind, onPredicate expr.Expression, left, right LogicalOperator) LogicalOperator {
	return LogicalOperator{Kind: LogicalJoin, JoinType: joinType, OnPredicate: onPredicate, Left: &left, Right: &right}
}

// NewNegateFreq flips the sign of every row's frequency column (§6's
// `DELETE` lowering: a delete is an insert of the matching rows with their
// frequency negated). The logical-layer counterpart of PhysicalNegateFreq,
// which already existed.
func NewNegateFreq(source LogicalOperator) LogicalOperator {
	return LogicalOperator{Kind: LogicalNegateFreq, Source: &source}
}

// NewUse carries a `USE <database>` statement's target database name
// through to Connection.Execute, which applies it as a session side
// effect (§6) without planning it and returns no rows; the planner itself
// lowers a Use node to Single.
func NewUse(database string) LogicalOperator {
	return LogicalOperator{Kind: LogicalUse, Alias: database}
}

// Children returns this operator's immediate child operators, used by the
// planner's tree-walking passes (constant folding, predicate pushdown).
func (o *LogicalOperator) Children() []*LogicalOperator {
	switch o.Kind {
	case LogicalProject, LogicalFilter, LogicalLimit, LogicalSort, LogicalTableInsert, LogicalTableAlias, LogicalGroupBy, LogicalNegateFreq:
		return []*LogicalOperator{o.Source}
	case LogicalJoin:
		return []*LogicalOperator{o.Left, o.Right}
	case LogicalUnionAll:
		children := make([]*LogicalOperator, len(o.Sources))
		for i := range o.Sources {
			children[i] = &o.Sources[i]
		}
		return children
	default:
		return nil
	}
}

// OutputExpressionCount returns how many named output columns this
// operator contributes directly (before descending into children), used
// by star-expansion and field-count validation (§4.7 phase 1).
func (o *LogicalOperator) OutputExpressionCount() int {
	switch o.Kind {
	case LogicalProject:
		return len(o.NamedExpressions)
	case LogicalValues:
		if len(o.Data) == 0 {
			return len(o.Fields)
		}
		return len(o.Data[0])
	default:
		return 0
	}
}
