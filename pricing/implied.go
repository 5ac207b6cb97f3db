package pricing

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/optcal/option"
)

const (
	impliedTolerance = 1e-10
	impliedMaxIter   = 100
	impliedFloor     = 1e-6
	impliedCeiling   = 5.0
	vegaThreshold    = 1e-12
)

// ErrNoImpliedVolatility is returned when the price lies outside the
// no-arbitrage range of Black-Scholes prices.
var ErrNoImpliedVolatility = errors.New("pricing: price outside Black-Scholes range")

// ImpliedVolatility solves BlackScholes(typ, spot, strike, t, r, vol) ==
// price for vol by Newton-Raphson on vega, falling back to bisection when
// vega is too small or the step leaves the bracket. It returns the
// volatility and the number of iterations taken.
func ImpliedVolatility(typ option.Type, spot, strike, t, r, price float64) (float64, int, error) {
	if err := validateInputs(typ, spot, strike, t, r, 0); err != nil {
		return 0, 0, err
	}
	if !(t > 0) {
		return 0, 0, errors.Errorf("pricing: implied volatility needs t > 0, got %v", t)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, 0, errors.Errorf("pricing: invalid price %v", price)
	}

	lo, hi := impliedFloor, impliedCeiling
	pLo, err := BlackScholes(typ, spot, strike, t, r, lo)
	if err != nil {
		return 0, 0, err
	}
	pHi, err := BlackScholes(typ, spot, strike, t, r, hi)
	if err != nil {
		return 0, 0, err
	}
	if price < pLo-impliedTolerance || price > pHi+impliedTolerance {
		return 0, 0, errors.Wrapf(ErrNoImpliedVolatility, "price %v not in [%v, %v]", price, pLo, pHi)
	}

	// Brenner-Subrahmanyam start, clamped into the bracket.
	vol := clamp(math.Sqrt(2*math.Pi/t)*price/spot, lo, hi)

	for iter := 0; iter < impliedMaxIter; iter++ {
		p, err := BlackScholes(typ, spot, strike, t, r, vol)
		if err != nil {
			return 0, iter + 1, err
		}
		f := p - price
		if math.Abs(f) < impliedTolerance {
			return vol, iter + 1, nil
		}
		if f > 0 {
			hi = vol
		} else {
			lo = vol
		}
		if hi-lo < impliedTolerance*vol {
			return vol, iter + 1, nil
		}

		next := 0.5 * (lo + hi)
		if v := vega(spot, strike, t, r, vol); v > vegaThreshold {
			if n := vol - f/v; n > lo && n < hi {
				next = n
			}
		}
		vol = next
	}
	return vol, impliedMaxIter, errors.Errorf("pricing: implied volatility did not converge after %d iterations", impliedMaxIter)
}

// vega is ∂price/∂vol, identical for calls and puts.
func vega(spot, strike, t, r, vol float64) float64 {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(spot/strike) + (r+0.5*vol*vol)*t) / (vol * sqrtT)
	return spot * distuv.UnitNormal.Prob(d1) * sqrtT
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
