package valuation

import (
	"errors"
	"math"
	"sort"
	"time"
)

// ErrNoSolution is returned when the XIRR solver cannot produce a rate:
// the flows are all one sign, or the iteration fails to converge.
// Callers record an undefined rate and continue; a failed XIRR is never
// fatal and must stay distinguishable from a 0% return.
var ErrNoSolution = errors.New("xirr: no solution")

// CashFlow is a single dated signed amount for XIRR calculation.
// Negative values = money out (buys, deposits), positive = money in.
type CashFlow struct {
	Date   time.Time
	Amount float64
}

// SolveXIRR computes the annualized rate r such that the net present
// value of all flows, discounted at r from the earliest flow date, is
// zero. Newton-Raphson with a clamped rate, falling back to bisection.
// Returns the rate as a decimal (0.12 = 12% per year).
func SolveXIRR(flows []CashFlow) (float64, error) {
	if len(flows) < 2 {
		return 0, ErrNoSolution
	}

	sorted := make([]CashFlow, len(flows))
	copy(sorted, flows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	hasNeg, hasPos := false, false
	for _, f := range sorted {
		if f.Amount < 0 {
			hasNeg = true
		}
		if f.Amount > 0 {
			hasPos = true
		}
	}
	if !hasNeg || !hasPos {
		return 0, ErrNoSolution
	}

	rate := solve(sorted)
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, ErrNoSolution
	}

	return rate, nil
}

// solve runs Newton-Raphson on NPV(r) = sum(amount_i / (1+r)^years_i)
// where years_i counts from the earliest flow date.
func solve(flows []CashFlow) float64 {
	const (
		maxIter = 100
		tol     = 1e-7
		minRate = -0.999 // rate can't go below -99.9%
	)

	baseDate := flows[0].Date

	years := make([]float64, len(flows))
	for i, f := range flows {
		days := f.Date.Sub(baseDate).Hours() / 24
		years[i] = days / 365.25
	}

	// Initial guess: the simple return, clamped to something sane.
	totalInvested := 0.0
	totalReceived := 0.0
	for _, f := range flows {
		if f.Amount < 0 {
			totalInvested -= f.Amount
		} else {
			totalReceived += f.Amount
		}
	}

	guess := 0.1
	if totalInvested > 0 {
		simpleReturn := totalReceived/totalInvested - 1
		if simpleReturn > -0.9 && simpleReturn < 10 {
			guess = simpleReturn
		}
	}

	rate := guess

	for iter := 0; iter < maxIter; iter++ {
		npv := 0.0
		dnpv := 0.0

		for i, f := range flows {
			y := years[i]
			base := 1 + rate
			if base <= 0 {
				// Avoid negative base with fractional exponent
				rate = minRate
				base = 1 + rate
			}
			discount := math.Pow(base, y)
			if discount == 0 {
				continue
			}
			npv += f.Amount / discount
			if y != 0 {
				dnpv -= y * f.Amount / (discount * base)
			}
		}

		if math.Abs(npv) < tol {
			return rate
		}

		if dnpv == 0 {
			// Derivative is zero — Newton-Raphson can't continue
			break
		}

		newRate := rate - npv/dnpv

		// Clamp to prevent wild oscillation
		if newRate < minRate {
			newRate = minRate
		}
		if newRate > 100 { // 10000% annual return cap
			newRate = 100
		}

		rate = newRate
	}

	return bisect(flows, years)
}

// bisect is the fallback solver when Newton-Raphson fails to converge.
func bisect(flows []CashFlow, years []float64) float64 {
	const (
		maxIter = 200
		tol     = 1e-6
	)

	npvAt := func(rate float64) float64 {
		sum := 0.0
		for i, f := range flows {
			base := 1 + rate
			if base <= 0 {
				return math.NaN()
			}
			sum += f.Amount / math.Pow(base, years[i])
		}
		return sum
	}

	lo, hi := -0.99, 10.0
	npvLo := npvAt(lo)
	npvHi := npvAt(hi)

	if math.IsNaN(npvLo) || math.IsNaN(npvHi) {
		return math.NaN()
	}
	if npvLo*npvHi > 0 {
		// Same sign — no root in this bracket
		return math.NaN()
	}

	for iter := 0; iter < maxIter; iter++ {
		mid := (lo + hi) / 2
		npvMid := npvAt(mid)
		if math.IsNaN(npvMid) {
			return math.NaN()
		}
		if math.Abs(npvMid) < tol {
			return mid
		}
		if npvMid*npvLo < 0 {
			hi = mid
		} else {
			lo = mid
			npvLo = npvMid
		}
	}

	return (lo + hi) / 2
}
