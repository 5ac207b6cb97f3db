package pricing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/optcal/option"
)

// BlackScholes prices a European option on a non-dividend-paying underlying.
//
//	d1 = (ln(S/K) + (r + σ²/2)·T) / (σ·√T)
//	d2 = d1 − σ·√T
//	call = S·N(d1) − K·e^{−rT}·N(d2)
//	put  = K·e^{−rT}·N(−d2) − S·N(−d1)
//
// T = 0 returns the intrinsic value and σ = 0 the discounted forward
// intrinsic value.
func BlackScholes(typ option.Type, spot, strike, t, r, vol float64) (float64, error) {
	if err := validateInputs(typ, spot, strike, t, r, vol); err != nil {
		return 0, err
	}

	if t == 0 {
		return intrinsic(typ, spot, strike), nil
	}
	df := math.Exp(-r * t)
	if vol == 0 {
		return intrinsic(typ, spot, strike*df), nil
	}

	sd := vol * math.Sqrt(t)
	d1 := (math.Log(spot/strike) + (r+0.5*vol*vol)*t) / sd
	d2 := d1 - sd

	if typ == option.Call {
		return spot*normCDF(d1) - strike*df*normCDF(d2), nil
	}
	return strike*df*normCDF(-d2) - spot*normCDF(-d1), nil
}

func intrinsic(typ option.Type, spot, strike float64) float64 {
	if typ == option.Call {
		return math.Max(spot-strike, 0)
	}
	return math.Max(strike-spot, 0)
}

func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

func validateInputs(typ option.Type, spot, strike, t, r, vol float64) error {
	if typ != option.Call && typ != option.Put {
		return fmt.Errorf("BlackScholes: unknown option type %q", typ)
	}
	if !(spot > 0) || math.IsInf(spot, 0) {
		return fmt.Errorf("BlackScholes: spot must be positive, got %v", spot)
	}
	if !(strike > 0) || math.IsInf(strike, 0) {
		return fmt.Errorf("BlackScholes: strike must be positive, got %v", strike)
	}
	if !(t >= 0) || math.IsInf(t, 0) {
		return fmt.Errorf("BlackScholes: time to maturity must be non-negative, got %v", t)
	}
	if !(vol >= 0) || math.IsInf(vol, 0) {
		return fmt.Errorf("BlackScholes: volatility must be non-negative, got %v", vol)
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("BlackScholes: rate must be finite, got %v", r)
	}
	return nil
}
