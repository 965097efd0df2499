// Package planner implements §4.7's four-phase pipeline: validation
// (name/type resolution, star expansion, implicit group-by detection),
// optimization (constant folding), common transforms (join key
// normalization), and lowering to the point-in-time physical plan
// (internal/ast.PointInTimeOperator) the executor runs.
package planner

import (
	"github.com/cockroachdb/errors"

	"incresql/internal/ast"
	"incresql/internal/catalog"
	"incresql/internal/functions"
	"incresql/internal/types"
)

// Field names one column of an operator's output schema: the qualifier
// (table name or alias) it's addressed under, its column name, and type.
type Field struct {
	Qualifier string
	Name      string
	Type      types.DataType
}

// Planner resolves and lowers one LogicalOperator tree per statement,
// against the catalog's current table definitions and the process-wide
// function registry (§5: both are shared, read-mostly references).
type Planner struct {
	Catalog  *catalog.Catalog
	Registry *functions.Registry
}

func New(cat *catalog.Catalog, registry *functions.Registry) *Planner {
	return &Planner{Catalog: cat, Registry: registry}
}

var ErrUnresolvedColumn = errors.New("planner: unresolved column reference")
var ErrAmbiguousColumn = errors.New("planner: ambiguous column reference")
var ErrAggregateOutsideGroup = errors.New("planner: aggregate function used outside a group-by context")
var ErrNonBooleanPredicate = errors.New("planner: predicate must be boolean")
var ErrUnionAllMismatch = errors.New("planner: union-all branches have mismatched arity or types")
var ErrInsertMismatch = errors.New("planner: insert source row type does not match target table")

// Plan runs every phase and returns the executable physical plan: resolve
// (phase 1), fold and push predicates down (phase 2, re-folding afterwards
// since pushdown exposes new constant-foldable expressions), normalize
// joins and collapse adjacent projects (phase 3), then lower (phase 4).
func (p *Planner) Plan(logical ast.LogicalOperator, folding *FoldingSession) (ast.PointInTimeOperator, error) {
	resolved, _, err := p.resolve(logical)
	if err != nil {
		return ast.PointInTimeOperator{}, err
	}
	if folding != nil {
		folding.FoldOperator(&resolved)
	}
	resolved = p.pushdown(resolved)
	if folding != nil {
		folding.FoldOperator(&resolved)
	}
	resolved = collapseProjects(resolved)
	resolved = p.normalizeJoins(resolved)
	resolved = collapseProjects(resolved)
	return p.lower(resolved), nil
}

// resolve dispatches per LogicalKind, returning the operator with every
// expression slot rewritten to its compiled form and the output Field
// list a parent operator resolves its own column references against.
func (p *Planner) resolve(op ast.LogicalOperator) (ast.LogicalOperator, []Field, error) {
	switch op.Kind {
	case ast.LogicalSingle:
		return op, nil, nil

	case ast.LogicalResolvedTable:
		fields := make([]Field, len(op.Table.Columns))
		for i, c := range op.Table.Columns {
			fields[i] = Field{Qualifier: op.Table.Name, Name: c.Name, Type: c.Type}
		}
		return op, fields, nil

	case ast.LogicalTableAlias:
		child, fields, err := p.resolve(*op.Source)
		if err != nil {
			return op, nil, err
		}
		for i := range fields {
			fields[i].Qualifier = op.Alias
		}
		op.Source = &child
		return op, fields, nil

	case ast.LogicalValues:
		for i, row := range op.Data {
			for j, cell := range row {
				resolved, _, err := p.resolveExpr(cell, nil, nil)
				if err != nil {
					return op, nil, err
				}
				op.Data[i][j] = resolved
			}
		}
		fields := make([]Field, len(op.Fields))
		for i, f := range op.Fields {
			fields[i] = Field{Name: f.Name, Type: f.Type}
		}
		return op, fields, nil

	case ast.LogicalFilter:
		child, fields, err := p.resolve(*op.Source)
		if err != nil {
			return op, nil, err
		}
		predicate, dt, err := p.resolveExpr(op.Predicate, fields, nil)
		if err != nil {
			return op, nil, err
		}
		if dt.Kind != types.KindBoolean && !dt.IsNull() {
			return op, nil, errors.Wrapf(ErrNonBooleanPredicate, "got %s", dt)
		}
		op.Predicate = predicate
		op.Source = &child
		return op, fields, nil

	case ast.LogicalLimit:
		child, fields, err := p.resolve(*op.Source)
		if err != nil {
			return op, nil, err
		}
		op.Source = &child
		return op, fields, nil

	case ast.LogicalSort:
		child, fields, err := p.resolve(*op.Source)
		if err != nil {
			return op, nil, err
		}
		for i, se := range op.SortExpressions {
			r, _, err := p.resolveExpr(se, fields, nil)
			if err != nil {
				return op, nil, err
			}
			op.SortExpressions[i] = r
		}
		op.Source = &child
		return op, fields, nil

	case ast.LogicalUnionAll:
		var fields []Field
		for i := range op.Sources {
			child, f, err := p.resolve(op.Sources[i])
			if err != nil {
				return op, nil, err
			}
			op.Sources[i] = child
			if i == 0 {
				fields = f
				continue
			}
			// §4.7 phase 1 step 8: every branch must agree on arity and,
			// per column, a compatible datatype (§7's UnionAllMismatch).
			if len(f) != len(fields) {
				return op, nil, errors.Wrapf(ErrUnionAllMismatch, "branch %d has %d columns, first branch has %d", i, len(f), len(fields))
			}
			for j := range f {
				if !functions.TypesCompatible(f[j].Type, fields[j].Type) {
					return op, nil, errors.Wrapf(ErrUnionAllMismatch, "branch %d column %d: %s is not compatible with %s", i, j, f[j].Type, fields[j].Type)
				}
			}
		}
		return op, fields, nil

	case ast.LogicalTableInsert:
		child, fields, err := p.resolve(*op.Source)
		if err != nil {
			return op, nil, err
		}
		if len(fields) != 0 {
			if len(fields) != len(op.Table.Columns) {
				return op, nil, errors.Newf("planner: insert column count %d does not match table %q's %d columns", len(fields), op.Table.Name, len(op.Table.Columns))
			}
			// §4.7 phase 1 step 8: the source row's per-column types must
			// be compatible with the target table's declared column types
			// (§7's InsertMismatch).
			for i, f := range fields {
				col := op.Table.Columns[i]
				if !functions.TypesCompatible(f.Type, col.Type) {
					return op, nil, errors.Wrapf(ErrInsertMismatch, "column %d: table %q declares %s, source row has %s", i, op.Table.Name, col.Type, f.Type)
				}
			}
		}
		op.Source = &child
		return op, nil, nil

	case ast.LogicalNegateFreq:
		child, fields, err := p.resolve(*op.Source)
		if err != nil {
			return op, nil, err
		}
		op.Source = &child
		return op, fields, nil

	case ast.LogicalUse:
		return op, nil, nil

	case ast.LogicalGroupBy:
		child, childFields, err := p.resolve(*op.Source)
		if err != nil {
			return op, nil, err
		}
		for i, ge := range op.GroupExpressions {
			r, _, err := p.resolveExpr(ge, childFields, nil)
			if err != nil {
				return op, nil, err
			}
			op.GroupExpressions[i] = r
		}
		op.Source = &child
		op.KeyLen = len(op.GroupExpressions)
		// childFields is intentionally returned unchanged: the parent
		// Project resolves aggregate arguments and bare key references
		// against the pre-group row, not a grouped schema.
		return op, childFields, nil

	case ast.LogicalProject:
		return p.resolveProject(op)

	case ast.LogicalJoin:
		left, leftFields, err := p.resolve(*op.Left)
		if err != nil {
			return op, nil, err
		}
		right, rightFields, err := p.resolve(*op.Right)
		if err != nil {
			return op, nil, err
		}
		combined := append(append([]Field{}, leftFields...), rightFields...)
		predicate, dt, err := p.resolveExpr(op.OnPredicate, combined, nil)
		if err != nil {
			return op, nil, err
		}
		if dt.Kind != types.KindBoolean && !dt.IsNull() {
			return op, nil, errors.Wrapf(ErrNonBooleanPredicate, "join condition: got %s", dt)
		}
		op.OnPredicate = predicate
		op.Left = &left
		op.Right = &right
		return op, combined, nil

	default:
		return op, nil, errors.Newf("planner: unhandled logical operator kind %d", op.Kind)
	}
}
