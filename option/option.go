package option

import (
	"math"
	"time"

	"github.com/meenmo/optcal/utils"
)

// DayCount is the convention used for time to maturity.
const DayCount = "ACT/365F"

// Option is one market-observed quote of a European vanilla option.
//
// Values are only obtainable from New, so every Option in circulation has
// passed validation. Fields are read through accessors.
type Option struct {
	date     time.Time
	maturity time.Time
	strike   float64
	spot     float64
	price    float64
	typ      Type
}

// New validates the quote fields and builds an Option.
//
// date is the valuation (quote) date; price is the observed market premium.
func New(typ Type, date, maturity time.Time, strike, spot, price float64) (Option, error) {
	if typ != Call && typ != Put {
		return Option{}, &FieldError{Field: "option_type", Value: typ, Reason: "must be call or put"}
	}
	if date.IsZero() {
		return Option{}, &FieldError{Field: "date", Value: date, Reason: "is required"}
	}
	if maturity.Before(date) {
		return Option{}, &FieldError{Field: "maturity", Value: maturity.Format("2006-01-02"), Reason: "is before the valuation date " + date.Format("2006-01-02")}
	}
	if !(strike > 0) || math.IsInf(strike, 0) {
		return Option{}, &FieldError{Field: "strike", Value: strike, Reason: "must be positive"}
	}
	if !(spot > 0) || math.IsInf(spot, 0) {
		return Option{}, &FieldError{Field: "spot", Value: spot, Reason: "must be positive"}
	}
	if !(price >= 0) || math.IsInf(price, 0) {
		return Option{}, &FieldError{Field: "price", Value: price, Reason: "must be non-negative"}
	}
	return Option{
		date:     date,
		maturity: maturity,
		strike:   strike,
		spot:     spot,
		price:    price,
		typ:      typ,
	}, nil
}

func (o Option) Type() Type              { return o.typ }
func (o Option) Date() time.Time         { return o.date }
func (o Option) Maturity() time.Time     { return o.maturity }
func (o Option) Strike() float64         { return o.strike }
func (o Option) Spot() float64           { return o.spot }
func (o Option) Price() float64          { return o.price }
func (o Option) IsCall() bool            { return o.typ == Call }
func (o Option) DaysToMaturity() float64 { return utils.Days(o.date, o.maturity) }

// YearsToMaturity is the ACT/365F time from valuation date to maturity.
func (o Option) YearsToMaturity() float64 {
	return utils.YearFraction(o.date, o.maturity, DayCount)
}
