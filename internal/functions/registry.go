// Package functions implements the function registry (§4.5): signatures,
// overload resolution by closeness-rank cost, and the scalar, aggregate,
// and compound function kinds.
package functions

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"incresql/internal/types"
)

// Kind discriminates how a FunctionDefinition executes.
type Kind uint8

const (
	KindScalar Kind = iota
	KindAggregate
	KindCompound
)

// Signature names a function overload: its name, argument types, and
// return type (§4.5).
type Signature struct {
	Name string
	Args []types.DataType
	Ret  types.DataType
}

// ErrFunctionNotFound is returned when no definition is registered under a
// given name at all.
var ErrFunctionNotFound = errors.New("functions: function not found")

// ErrNoMatchingSignature is returned when definitions exist for the name
// but none accept the given argument types.
var ErrNoMatchingSignature = errors.New("functions: no matching signature")

// ReturnTypeResolver computes a concrete return DataType from the actual
// argument types supplied at a call site (§4.5: "a custom resolver applied
// to the concrete args").
type ReturnTypeResolver func(args []types.DataType) types.DataType

// Definition is one registered overload of a named function.
type Definition struct {
	Signature    Signature
	Kind         Kind
	Scalar       ScalarFunction
	Aggregate    AggregateFunction
	Compound     CompoundRewriter
	TypeResolver ReturnTypeResolver
}

// ScalarFunction evaluates a single row's worth of already-resolved
// arguments to a result Datum.
type ScalarFunction interface {
	Execute(args []types.Datum) types.Datum
}

// ScalarFunc adapts a plain function value to ScalarFunction.
type ScalarFunc func(args []types.Datum) types.Datum

func (f ScalarFunc) Execute(args []types.Datum) types.Datum { return f(args) }

// AggregateFunction is the aggregate state-machine interface (§4.5): state
// lives in a caller-owned Datum slice sized by StateSize, so the executor
// can pack many aggregates' state into one flat shared buffer (§4.6).
type AggregateFunction interface {
	StateSize() int
	Initialize(state []types.Datum)
	Apply(sig Signature, args []types.Datum, freq int64, state []types.Datum)
	Merge(sig Signature, inputState []types.Datum, state []types.Datum)
	Finalize(sig Signature, state []types.Datum) types.Datum
	SupportsRetract() bool
}

// CompoundRewriter rewrites a compound function call into a tree of other
// function calls (§4.5, e.g. `->>` = json_unquote(json_extract(_, _))).
// Args are opaque expression handles threaded through by the planner; the
// functions package only records that the rewrite exists.
type CompoundRewriter func(args []any) any

// Registry is the process-wide, immutable-after-registration function
// table (§5: "the function registry is built once at startup and
// thereafter read-only").
type Registry struct {
	mu        sync.RWMutex
	functions map[string][]Definition
}

// NewRegistry builds a Registry with every built-in function registered.
func NewRegistry() *Registry {
	r := &Registry{functions: map[string][]Definition{}}
	registerBuiltins(r)
	return r
}

func (r *Registry) register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[def.Signature.Name] = append(r.functions[def.Signature.Name], def)
}

// Resolved is the outcome of overload resolution: the concrete signature
// (with a computed return type) and the definition to execute.
type Resolved struct {
	Signature Signature
	Def       Definition
}

// Resolve implements §4.5's overload resolution: filter by name and arity,
// rank each candidate by summed per-argument closeness, reject any
// candidate with an incompatible argument, and pick the minimum-cost
// survivor (ties keep the first declared).
func (r *Registry) Resolve(name string, argTypes []types.DataType, requestedRet types.DataType) (Resolved, error) {
	r.mu.RLock()
	candidates, ok := r.functions[name]
	r.mu.RUnlock()
	if !ok {
		return Resolved{}, errors.Wrapf(ErrFunctionNotFound, "function %q", name)
	}

	type ranked struct {
		cost int
		def  Definition
	}
	var best []ranked
	for _, def := range candidates {
		if len(def.Signature.Args) != len(argTypes) {
			continue
		}
		total := 0
		ok := true
		for i, declared := range def.Signature.Args {
			rank := datatypeRank(argTypes[i], declared)
			if rank < 0 {
				ok = false
				break
			}
			total += rank
		}
		if ok {
			best = append(best, ranked{cost: total, def: def})
		}
	}
	if len(best) == 0 {
		return Resolved{}, errors.Wrapf(ErrNoMatchingSignature, "function %q with args %v", name, argTypes)
	}
	sort.SliceStable(best, func(i, j int) bool { return best[i].cost < best[j].cost })
	chosen := best[0].def

	ret := requestedRet
	switch {
	case !requestedRet.IsNull():
		// Caller-requested type wins, e.g. an explicit CAST.
	case chosen.TypeResolver != nil:
		ret = chosen.TypeResolver(argTypes)
	default:
		ret = chosen.Signature.Ret
	}

	return Resolved{
		Signature: Signature{Name: name, Args: argTypes, Ret: ret},
		Def:       chosen,
	}, nil
}

// ListFunctions returns every registered function name, used to populate
// the `incresql.functions` system table.
func (r *Registry) ListFunctions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns every overload registered under name.
func (r *Registry) Definitions(name string) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Definition(nil), r.functions[name]...)
}

// datatypeRank is §4.5's per-argument closeness rank: 0 for identity, Null
// on either side, or decimal-to-decimal; 1 for int→bigint or
// bigint→decimal; 2 for int→decimal; -1 (None) for incompatible.
func datatypeRank(from, to types.DataType) int {
	if from.Kind == to.Kind || from.IsNull() || to.IsNull() {
		return 0
	}
	if from.Kind == types.KindDecimal && to.Kind == types.KindDecimal {
		return 0
	}
	switch {
	case from.Kind == types.KindInteger && to.Kind == types.KindBigInt:
		return 1
	case from.Kind == types.KindBigInt && to.Kind == types.KindDecimal:
		return 1
	case from.Kind == types.KindInteger && to.Kind == types.KindDecimal:
		return 2
	default:
		return -1
	}
}

// TypesCompatible reports whether a value of type a can stand in for a
// value of type b (or vice versa) without an explicit cast: either
// direction's datatypeRank must be a real rank, not None. Exported for
// callers outside this package that need §4.5's closeness semantics without
// going through Resolve — planner's union-all and insert type checks (§7's
// UnionAllMismatch/InsertMismatch).
func TypesCompatible(a, b types.DataType) bool {
	return datatypeRank(a, b) >= 0 || datatypeRank(b, a) >= 0
}
