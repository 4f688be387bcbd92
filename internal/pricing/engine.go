// Package pricing computes deterministic wrap estimates from a static
// model-to-square-footage table. The engine never guesses: a model absent
// from the table yields a blocked result, not an interpolated number.
package pricing

import (
	"math"
	"strings"
)

// Result is the outcome of one pricing lookup. Blocked means the vehicle
// model is not in the table and no price may be quoted.
type Result struct {
	Blocked  bool
	ModelKey string
	Sqft     float64
	Cost     int64 // whole dollars, rounded
}

// Engine performs table lookups against an injected table and unit rate.
// Both are configuration, swappable without touching the decision rule.
type Engine struct {
	table    map[string]float64
	unitRate float64
}

// NewEngine creates an Engine over the given square-footage table and
// per-square-foot rate.
func NewEngine(table map[string]float64, unitRate float64) *Engine {
	return &Engine{table: table, unitRate: unitRate}
}

// NormalizeKey builds the table lookup key: lower-cased make+model with
// hyphens and spaces stripped. "Ford" + "F-150" -> "fordf150".
func NormalizeKey(make, model string) string {
	joined := make + model
	replacer := strings.NewReplacer("-", "", " ", "", "_", "")
	return strings.ToLower(replacer.Replace(joined))
}

// Lookup returns the estimate for a make/model pair, or a blocked result if
// the normalized key is absent. Absent keys are a policy outcome, not an
// error: the caller must ask for vehicle confirmation rather than invent a
// number.
func (e *Engine) Lookup(make, model string) Result {
	key := NormalizeKey(make, model)
	if key == "" {
		return Result{Blocked: true, ModelKey: key}
	}

	sqft, ok := e.table[key]
	if !ok {
		return Result{Blocked: true, ModelKey: key}
	}

	return Result{
		ModelKey: key,
		Sqft:     sqft,
		Cost:     int64(math.Round(sqft * e.unitRate)),
	}
}
