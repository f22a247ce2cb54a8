// Package probcore implements the deterministic integer combinatorics and
// hypergeometric primitives that every probability-bearing layer builds on:
// exact binomial coefficients and the two hypergeometric tail sums. Every
// intermediate value is an arbitrary-precision integer or exact rational —
// N=99 binomials run up to 29 decimal digits, far past float64 precision,
// and any native-float rounding here would break build_hash_v1 equality
// across runs.
package probcore

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/jordenrsantos-sys/MTG-Deck/internal/roundutil"
)

// ErrInvalidInput is returned (wrapped with a code) when a caller violates
// a domain constraint on comb/hypergeom inputs.
var ErrInvalidInput = errors.New("PROBABILITY_MATH_CORE_V1_INVALID_INPUT")

// ErrInternal is returned (wrapped with a code) when an internal
// impossibility is reached — should be unreachable given validated inputs,
// but surfaced rather than panicking, per the closed error taxonomy.
var ErrInternal = errors.New("PROBABILITY_MATH_CORE_V1_INTERNAL_ERROR")

// Comb returns the exact integer binomial coefficient C(n, k). Zero when
// k < 0 or k > n; one when k = 0 or k = n.
func Comb(n, k int) (*big.Int, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: n must be non-negative, got %d", ErrInvalidInput, n)
	}
	if k < 0 || k > n {
		return big.NewInt(0), nil
	}
	if k == 0 || k == n {
		return big.NewInt(1), nil
	}

	// C(n,k) == C(n, n-k); compute over the smaller side.
	if k > n-k {
		k = n - k
	}

	result := big.NewInt(1)
	num := new(big.Int)
	den := new(big.Int)
	for i := 0; i < k; i++ {
		num.SetInt64(int64(n - i))
		result.Mul(result, num)
		den.SetInt64(int64(i + 1))
		result.Quo(result, den)
	}
	return result, nil
}

// validateDomain enforces the shared domain constraints: 0 <= K <= N,
// 0 <= n <= N. Booleans are rejected by virtue of Go's static typing — the
// caller cannot pass a bool where an int is expected.
func validateDomain(deckSize, k, n int) error {
	if deckSize < 0 {
		return fmt.Errorf("%w: N must be non-negative, got %d", ErrInvalidInput, deckSize)
	}
	if k < 0 || k > deckSize {
		return fmt.Errorf("%w: K must be in [0, %d], got %d", ErrInvalidInput, deckSize, k)
	}
	if n < 0 || n > deckSize {
		return fmt.Errorf("%w: n must be in [0, %d], got %d", ErrInvalidInput, deckSize, n)
	}
	return nil
}

// HypergeomPGe1 computes P(at least one success) = 1 - C(N-K,n)/C(N,n) for a
// without-replacement draw of size n from a population of N with K
// successes, rounded to 6 decimals and clamped to [0, 1].
func HypergeomPGe1(deckSize, k, n int) (float64, error) {
	if err := validateDomain(deckSize, k, n); err != nil {
		return 0, err
	}

	total, err := Comb(deckSize, n)
	if err != nil {
		return 0, err
	}
	if total.Sign() == 0 {
		return 0, fmt.Errorf("%w: C(N,n) is zero for N=%d n=%d", ErrInternal, deckSize, n)
	}

	failures, err := Comb(deckSize-k, n)
	if err != nil {
		return 0, err
	}

	ratio := new(big.Rat).SetFrac(failures, total)
	one := big.NewRat(1, 1)
	pGe1 := new(big.Rat).Sub(one, ratio)

	result := roundutil.Half6Rat(pGe1)
	return roundutil.ClampProbability(result), nil
}

// HypergeomPGeX computes P(at least x successes) =
// sum_{i=x}^{min(K,n)} C(K,i)*C(N-K,n-i) / C(N,n). Special cases: x=0 -> 1.0;
// x > min(K,n) -> 0.0.
func HypergeomPGeX(deckSize, k, n, x int) (float64, error) {
	if err := validateDomain(deckSize, k, n); err != nil {
		return 0, err
	}
	if x < 0 || x > n {
		return 0, fmt.Errorf("%w: x must be in [0, n=%d], got %d", ErrInvalidInput, n, x)
	}

	if x == 0 {
		return 1.0, nil
	}

	upper := k
	if n < upper {
		upper = n
	}
	if x > upper {
		return 0.0, nil
	}

	total, err := Comb(deckSize, n)
	if err != nil {
		return 0, err
	}
	if total.Sign() == 0 {
		return 0, fmt.Errorf("%w: C(N,n) is zero for N=%d n=%d", ErrInternal, deckSize, n)
	}

	sumNum := big.NewInt(0)
	for i := x; i <= upper; i++ {
		term1, err := Comb(k, i)
		if err != nil {
			return 0, err
		}
		term2, err := Comb(deckSize-k, n-i)
		if err != nil {
			return 0, err
		}
		product := new(big.Int).Mul(term1, term2)
		sumNum.Add(sumNum, product)
	}

	ratio := new(big.Rat).SetFrac(sumNum, total)
	result := roundutil.Half6Rat(ratio)
	return roundutil.ClampProbability(result), nil
}
