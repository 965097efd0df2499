package expr

import "incresql/internal/types"

// AggregateState is the flat buffer backing every CompiledAggregate
// expression in a group: each aggregate's state lives at its StateOffset,
// sized by its AggregateFn.StateSize() (§4.6: "per-call state buffers").
type AggregateState struct {
	slots []types.Datum
}

// NewAggregateState allocates a state buffer sized to fit every aggregate
// expression's StateSize and initializes each aggregate's slots.
func NewAggregateState(aggregates []Expression) *AggregateState {
	width := 0
	for _, agg := range aggregates {
		width += agg.AggregateFn.StateSize()
	}
	s := &AggregateState{slots: make([]types.Datum, width)}
	for _, agg := range aggregates {
		agg.AggregateFn.Initialize(s.slots[agg.StateOffset : agg.StateOffset+agg.AggregateFn.StateSize()])
	}
	return s
}

// Apply folds one input row (and its signed frequency) into every
// aggregate's running state (§3: "aggregates fold freq into their state").
func (s *AggregateState) Apply(aggregates []Expression, row []types.Datum, freq int64) {
	var argBuf []types.Datum
	for _, agg := range aggregates {
		if cap(argBuf) < len(agg.Args) {
			argBuf = make([]types.Datum, len(agg.Args))
		}
		args := argBuf[:len(agg.Args)]
		for i := range agg.Args {
			args[i] = agg.Args[i].Eval(row)
		}
		slot := s.slots[agg.StateOffset : agg.StateOffset+agg.AggregateFn.StateSize()]
		agg.AggregateFn.Apply(agg.Signature, args, freq, slot)
	}
}

// Merge combines another partial state for the same aggregates into s.
func (s *AggregateState) Merge(aggregates []Expression, other *AggregateState) {
	for _, agg := range aggregates {
		width := agg.AggregateFn.StateSize()
		slot := s.slots[agg.StateOffset : agg.StateOffset+width]
		otherSlot := other.slots[agg.StateOffset : agg.StateOffset+width]
		agg.AggregateFn.Merge(agg.Signature, otherSlot, slot)
	}
}

// Finalize reads out aggregates' finished values in order.
func (s *AggregateState) Finalize(aggregates []Expression) []types.Datum {
	out := make([]types.Datum, len(aggregates))
	for i, agg := range aggregates {
		slot := s.slots[agg.StateOffset : agg.StateOffset+agg.AggregateFn.StateSize()]
		out[i] = agg.AggregateFn.Finalize(agg.Signature, slot)
	}
	return out
}

// AssignStateOffsets mutates each aggregate expression's StateOffset to
// lay them out contiguously, returning the total buffer width. Run once by
// the planner when it resolves a Project's aggregate list.
func AssignStateOffsets(aggregates []Expression) int {
	offset := 0
	for i := range aggregates {
		aggregates[i].StateOffset = offset
		offset += aggregates[i].AggregateFn.StateSize()
	}
	return offset
}
