package executor

import (
	"github.com/cockroachdb/errors"

	"incresql/internal/ast"
	"incresql/internal/storage"
)

// ErrUnsupportedPhysicalOperator is returned by Build for a PhysicalKind
// no TupleIter implementation exists for (e.g. a future addition to
// ast.PhysicalKind outpacing the executor package).
var ErrUnsupportedPhysicalOperator = errors.New("executor: unsupported physical operator")

// Build converts a physical plan into a wired, pull-based TupleIter chain,
// recursing depth-first so every TupleIter's source is already live by the
// time its constructor runs (mirrors how ast/src/rel/point_in_time.rs's
// tree is consumed one BoxedExecutor constructor call at a time in the
// original's planner::build module).
func Build(op *ast.PointInTimeOperator, store *storage.Store) (TupleIter, error) {
	switch op.Kind {
	case ast.PhysicalSingle:
		return NewSingle(), nil

	case ast.PhysicalValues:
		return NewValues(op.Data, op.ColumnCount), nil

	case ast.PhysicalProject:
		source, err := Build(op.Source, store)
		if err != nil {
			return nil, err
		}
		return NewProject(op.Expressions, source), nil

	case ast.PhysicalFilter:
		source, err := Build(op.Source, store)
		if err != nil {
			return nil, err
		}
		return NewFilter(op.Predicate, source), nil

	case ast.PhysicalLimit:
		source, err := Build(op.Source, store)
		if err != nil {
			return nil, err
		}
		return NewLimit(op.Offset, op.Limit, source), nil

	case ast.PhysicalSort:
		source, err := Build(op.Source, store)
		if err != nil {
			return nil, err
		}
		return NewSort(op.SortExpressions, source), nil

	case ast.PhysicalUnionAll:
		sources := make([]TupleIter, len(op.Sources))
		for i := range op.Sources {
			child, err := Build(&op.Sources[i], store)
			if err != nil {
				return nil, err
			}
			sources[i] = child
		}
		return NewUnionAll(sources), nil

	case ast.PhysicalTableScan:
		handle := store.Table(op.Table.TableID)
		return NewTableScan(handle, op.Table, op.Timestamp), nil

	case ast.PhysicalTableInsert:
		source, err := Build(op.Source, store)
		if err != nil {
			return nil, err
		}
		handle := store.Table(op.Table.TableID)
		return NewTableInsert(handle, op.Table, op.Timestamp, source), nil

	case ast.PhysicalNegateFreq:
		source, err := Build(op.Source, store)
		if err != nil {
			return nil, err
		}
		return NewNegateFreq(source), nil

	case ast.PhysicalSortedGroup:
		source, err := Build(op.Source, store)
		if err != nil {
			return nil, err
		}
		return NewSortedGroup(op.Expressions, op.KeyLen, source), nil

	case ast.PhysicalHashGroup:
		source, err := Build(op.Source, store)
		if err != nil {
			return nil, err
		}
		return NewHashGroup(op.Expressions, op.KeyLen, source), nil

	case ast.PhysicalFileScan:
		return NewFileScan(op.Directory), nil

	case ast.PhysicalHashJoin:
		left, err := Build(op.Left, store)
		if err != nil {
			return nil, err
		}
		right, err := Build(op.Right, store)
		if err != nil {
			return nil, err
		}
		return NewHashJoin(left, right), nil

	default:
		return nil, errors.Wrapf(ErrUnsupportedPhysicalOperator, "kind %v", op.Kind)
	}
}
