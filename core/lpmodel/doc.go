package lpmodel

// Package lpmodel holds the small linear model the coupling constraints are
// written into. Variables live in an arena and are referenced through typed
// VarID handles resolved once at assembly time; constraints are plain
// values so emitted sets can be compared and replayed. Solving is done by
// infra/solver.
