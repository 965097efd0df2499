package functions

// registerBuiltins wires every built-in scalar, aggregate, and compound
// function into r at construction time (§4.5).
func registerBuiltins(r *Registry) {
	registerMathBuiltins(r)
	registerBoolBuiltins(r)
	registerStringBuiltins(r)
	registerJSONBuiltins(r)
	registerCastBuiltins(r)
	registerMiscBuiltins(r)
	registerAggregateBuiltins(r)
	registerCompoundBuiltins(r)
}
