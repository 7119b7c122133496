package engine

import "errors"

// ErrModuleFetch wraps any failure raised from within a module's candidate
// fetch. It marks the whole module iteration as failed without affecting
// sibling modules.
var ErrModuleFetch = errors.New("module fetch failed")

// ErrUndeclaredGoal indicates a module emitted a candidate for a goal it
// did not declare, so no dedup index exists for it.
var ErrUndeclaredGoal = errors.New("candidate targets undeclared goal")
