package job

// Classify is exported for tests of the error taxonomy.
var Classify = classify

// Normalize exposes parameter normalization for tests.
func (p Params) Normalize() (Params, error) { return p.normalize() }

// CanAdvance exposes the transition rule for tests.
func (s State) CanAdvance(next State) bool { return s.canAdvance(next) }
