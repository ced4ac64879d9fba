// Package schedule builds and solves the daily induction/assignment model:
// decision variables, hard constraints C1-C7', the weighted objective, and
// the post-solve extraction and classification.
package schedule

import (
	"fmt"

	mk "github.com/gitrdm/railyard/pkg/minikanren"
)

// Every FD domain in pkg/minikanren is 1-indexed (values >= 1 only), so every
// boolean decision variable here follows the library's own convention:
// domain {1,2} with 1=false, 2=true. Every derived non-negative integer
// quantity (distances, mileages, counts) that could legitimately be zero is
// stored "encoded": the domain holds value+1, exactly the trick BoolSum uses
// internally for its count+1 total. encode/decode keep that single
// convention consistent across every constraint in this package.

const (
	boolFalse = 1
	boolTrue  = 2
)

func boolDomain() mk.Domain {
	return mk.NewBitSetDomain(2)
}

func newBoolVar(m *mk.Model, name string) *mk.FDVariable {
	return m.NewVariableWithName(boolDomain(), name)
}

// fixedBoolVar returns a variable whose domain contains only value (a
// constraint-free way of pinning a boolean without posting an extra
// constraint against it).
func fixedBoolVar(m *mk.Model, name string, value int) *mk.FDVariable {
	return m.NewVariableWithName(mk.NewBitSetDomainFromValues(2, []int{value}), name)
}

func constVar(m *mk.Model, name string, value int) *mk.FDVariable {
	return m.NewVariableWithName(mk.NewBitSetDomainFromValues(value, []int{value}), name)
}

// encode converts an actual non-negative value to its stored domain value.
func encode(v int) int { return v + 1 }

// decode converts a stored domain value back to the actual value.
func decode(v int) int { return v - 1 }

// nonNegVar creates a variable over the encoded range [encode(lo), encode(hi)].
func nonNegVar(m *mk.Model, name string, lo, hi int) *mk.FDVariable {
	if hi < lo {
		hi = lo
	}
	d := mk.NewBitSetDomain(encode(hi)).RemoveBelow(encode(lo))
	return m.NewVariableWithName(d, name)
}

// atMostOneTrue posts a BoolSum capping the number of true variables in vars
// at one, and returns the BoolSum total variable. Because the total encodes
// count+1, and {1,2} is exactly the boolean domain, the returned variable can
// double as an "is any true" indicator boolean when len(vars) >= 1: 1 means
// all false, 2 means exactly one true.
func atMostOneTrue(m *mk.Model, vars []*mk.FDVariable, name string) (*mk.FDVariable, error) {
	total := newBoolVar(m, name)
	bs, err := mk.NewBoolSum(vars, total)
	if err != nil {
		return nil, fmt.Errorf("atMostOneTrue %s: %w", name, err)
	}
	m.AddConstraint(bs)
	return total, nil
}

// boolCount posts a BoolSum over vars with no cap beyond len(vars), and
// returns the raw count+1 total variable (domain [1, len(vars)+1]).
func boolCount(m *mk.Model, vars []*mk.FDVariable, name string) (*mk.FDVariable, error) {
	total := m.NewVariableWithName(mk.NewBitSetDomain(len(vars)+1), name)
	bs, err := mk.NewBoolSum(vars, total)
	if err != nil {
		return nil, fmt.Errorf("boolCount %s: %w", name, err)
	}
	m.AddConstraint(bs)
	return total, nil
}

// isAtLeastOne reifies "the raw count+1 total is >= 2" (i.e. count >= 1) into
// a fresh boolean.
func isAtLeastOne(m *mk.Model, rawTotal *mk.FDVariable, name string) (*mk.FDVariable, error) {
	two := constVar(m, name+"_two", boolTrue)
	ineq, err := mk.NewInequality(rawTotal, two, mk.GreaterEqual)
	if err != nil {
		return nil, fmt.Errorf("isAtLeastOne %s: %w", name, err)
	}
	b := newBoolVar(m, name)
	rc, err := mk.NewReifiedConstraint(ineq, b)
	if err != nil {
		return nil, fmt.Errorf("isAtLeastOne %s: %w", name, err)
	}
	m.AddConstraint(rc)
	return b, nil
}

// weightedBoolSum posts Σ weights[i]*bool01(vars[i]) = result (encoded), by
// running a LinearSum over the raw {1,2}-valued booleans and correcting for
// the constant offset Σweights[i] with an Arithmetic relation. lo/hi bound
// the actual (decoded) result. Preconditions: every weight is non-negative
// (the only shapes this package needs: distance, duration and
// terminal-index sums).
func weightedBoolSum(m *mk.Model, vars []*mk.FDVariable, weights []int, name string, lo, hi int) (*mk.FDVariable, error) {
	sumWeights := 0
	for _, w := range weights {
		sumWeights += w
	}
	if sumWeights == 0 {
		// Every weight is zero, so the sum is identically zero.
		return constVar(m, name, encode(0)), nil
	}
	minRaw := sumWeights     // all false: raw = Σweights[i]*1
	maxRaw := 2 * sumWeights // all true: raw = Σweights[i]*2

	rawLo := sumWeights + lo
	rawHi := sumWeights + hi
	if rawLo < minRaw {
		rawLo = minRaw
	}
	if rawHi > maxRaw {
		rawHi = maxRaw
	}
	if rawLo < 1 {
		rawLo = 1
	}
	raw := m.NewVariableWithName(mk.NewBitSetDomain(rawHi).RemoveBelow(rawLo), name+"_raw")
	ls, err := mk.NewLinearSum(vars, weights, raw)
	if err != nil {
		return nil, fmt.Errorf("weightedBoolSum %s: %w", name, err)
	}
	m.AddConstraint(ls)

	result := nonNegVar(m, name, lo, hi)
	// result = raw - sumWeights, expressed as dst = src + offset with
	// dst/src both encoded (+1): encode(result) = raw - sumWeights + 1.
	arith, err := mk.NewArithmetic(raw, result, encode(0)-sumWeights)
	if err != nil {
		return nil, fmt.Errorf("weightedBoolSum %s arithmetic: %w", name, err)
	}
	m.AddConstraint(arith)
	return result, nil
}

// boolCountDecoded posts a BoolSum over vars and returns a variable holding
// the count in this package's encoded (count+1) form, the same form as
// every other term, for use as a plain non-negative term in a larger
// LinearSum.
func boolCountDecoded(m *mk.Model, vars []*mk.FDVariable, name string) (*mk.FDVariable, error) {
	raw, err := boolCount(m, vars, name+"_raw")
	if err != nil {
		return nil, err
	}
	result := nonNegVar(m, name, 0, len(vars))
	arith, err := mk.NewArithmetic(raw, result, 0)
	if err != nil {
		return nil, fmt.Errorf("boolCountDecoded %s: %w", name, err)
	}
	m.AddConstraint(arith)
	return result, nil
}

// sumEncoded posts the sum of already-encoded (value+1) non-negative
// quantities and returns a variable holding the encoded total.
func sumEncoded(m *mk.Model, vars []*mk.FDVariable, name string, hiActual int) (*mk.FDVariable, error) {
	n := len(vars)
	coeffs := make([]int, n)
	for i := range coeffs {
		coeffs[i] = 1
	}
	raw := m.NewVariableWithName(mk.NewBitSetDomain(hiActual+n).RemoveBelow(n), name+"_raw")
	ls, err := mk.NewLinearSum(vars, coeffs, raw)
	if err != nil {
		return nil, fmt.Errorf("sumEncoded %s: %w", name, err)
	}
	m.AddConstraint(ls)

	result := nonNegVar(m, name, 0, hiActual)
	arith, err := mk.NewArithmetic(raw, result, -(n - 1))
	if err != nil {
		return nil, fmt.Errorf("sumEncoded %s arithmetic: %w", name, err)
	}
	m.AddConstraint(arith)
	return result, nil
}

// diffPlusOne posts encode(a_actual - b_actual) = a - b + 1 via a LinearSum
// over a, b, and a fixed constant of 1, assuming a_actual >= b_actual always
// holds (true for max/min pairs over the same array) so the result never
// needs to represent a value below the encoded domain floor of 1.
func diffPlusOne(m *mk.Model, a, b *mk.FDVariable, name string, hiActual int) (*mk.FDVariable, error) {
	one := constVar(m, name+"_one", 1)
	result := nonNegVar(m, name, 0, hiActual)
	ls, err := mk.NewLinearSum([]*mk.FDVariable{a, b, one}, []int{1, -1, 1}, result)
	if err != nil {
		return nil, fmt.Errorf("diffPlusOne %s: %w", name, err)
	}
	m.AddConstraint(ls)
	return result, nil
}
