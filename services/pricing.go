package services

import (
	"propsignal/config"
	"propsignal/identity"
)

// PriceRange is the slider band offered for a listing
type PriceRange struct {
	Min      int64 `json:"min"`
	Max      int64 `json:"max"`
	Midpoint int64 `json:"midpoint"`
	Step     int64 `json:"step"`
}

// Pricing computes price bands around a listing's asking price
type Pricing struct {
	Band         float64
	Step         int64
	DefaultPrice float64
}

func PricingFromConfig(cfg config.PricingConfig) Pricing {
	return Pricing{Band: cfg.Band, Step: cfg.Step, DefaultPrice: cfg.DefaultPrice}
}

// DefaultPricing is a ±25% band in steps of 1000 around a 1,000,000 default
func DefaultPricing() Pricing {
	return PricingFromConfig(config.DefaultTuning().Pricing)
}

// Basis picks the price the band is built around: the listing price, else the
// estimate, else the default
func (p Pricing) Basis(price string, estimate *float64) float64 {
	if v, ok := identity.ParsePrice(price); ok && v > 0 {
		return v
	}
	if estimate != nil && *estimate > 0 {
		return *estimate
	}
	return p.DefaultPrice
}

// Range computes the band for a listing
func (p Pricing) Range(price string, estimate *float64) PriceRange {
	basis := p.Basis(price, estimate)
	lo := identity.RoundTo(basis*(1-p.Band), p.Step)
	hi := identity.RoundTo(basis*(1+p.Band), p.Step)
	return PriceRange{
		Min:      lo,
		Max:      hi,
		Midpoint: identity.RoundTo(float64(lo+hi)/2, p.Step),
		Step:     p.Step,
	}
}

// Clamp snaps v to the step and bounds it to the range
func (r PriceRange) Clamp(v int64) int64 {
	v = identity.RoundTo(float64(v), r.Step)
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}
