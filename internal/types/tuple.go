package types

// Tuple is a Datum array plus a signed frequency — the unit every executor
// streams. Frequency is the multiplicity: negative values are retractions.
// All relational operators other than aggregates/limit must conserve the
// sum of frequencies across an equivalence class of output tuples (§8,
// invariant 3).
type Tuple struct {
	Values []Datum
	Freq   int64
}

// Clone returns a Tuple whose Values are promoted to owned storage, safe to
// retain past the next advance() of whatever produced it.
func (t Tuple) Clone() Tuple {
	out := make([]Datum, len(t.Values))
	for i, d := range t.Values {
		out[i] = d.Promote()
	}
	return Tuple{Values: out, Freq: t.Freq}
}

// Negate returns a copy of t with its frequency sign flipped, the
// NegateFreq operator's per-tuple transform (delete = insert-with-negative-
// frequency, §3 and §4.8).
func (t Tuple) Negate() Tuple {
	return Tuple{Values: t.Values, Freq: -t.Freq}
}
