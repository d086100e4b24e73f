// Package prices converts between American, decimal, and fractional odds
// formats and implied probability. All functions are pure.
package prices

import (
	"math"

	"github.com/fortuna-sports/arbiter/pkg/oddserr"
)

// AmericanToDecimal converts American odds to decimal odds.
// p >= +100 -> 1 + p/100; p <= -100 -> 1 + 100/|p|. |p| < 100 is invalid in
// American format.
func AmericanToDecimal(p float64) (float64, error) {
	switch {
	case p >= 100:
		return 1 + p/100, nil
	case p <= -100:
		return 1 + 100/math.Abs(p), nil
	default:
		return 0, oddserr.InvalidPrice("american price magnitude must be >= 100")
	}
}

// DecimalToImpliedProb converts decimal odds to implied probability.
func DecimalToImpliedProb(d float64) (float64, error) {
	if d <= 1 {
		return 0, oddserr.InvalidPrice("decimal price must be > 1")
	}
	return 1 / d, nil
}

// AmericanToImpliedProb is DecimalToImpliedProb(AmericanToDecimal(p)).
func AmericanToImpliedProb(p float64) (float64, error) {
	d, err := AmericanToDecimal(p)
	if err != nil {
		return 0, err
	}
	return DecimalToImpliedProb(d)
}

// DecimalToAmerican is the inverse of AmericanToDecimal, rounded to the
// nearest integer with ties away from zero.
func DecimalToAmerican(d float64) (float64, error) {
	if d <= 1 {
		return 0, oddserr.InvalidPrice("decimal price must be > 1")
	}
	var raw float64
	if d >= 2 {
		raw = (d - 1) * 100
	} else {
		raw = -100 / (d - 1)
	}
	return roundHalfAwayFromZero(raw, 0), nil
}

// FractionalToDecimal converts a fractional price num/den to decimal odds.
func FractionalToDecimal(num, den float64) (float64, error) {
	if den <= 0 || num < 0 {
		return 0, oddserr.InvalidPrice("fractional price must have positive denominator and non-negative numerator")
	}
	return 1 + num/den, nil
}

// maxFractionalDenominator bounds the continued-fraction search below so
// DecimalToFractional always returns a displayable "num/den" pair (e.g.
// sportsbook fractional odds are never quoted as something like 8193/8192).
const maxFractionalDenominator = 10000

// DecimalToFractional reduces decimal odds to a fractional numerator/
// denominator pair, e.g. 2.5 -> 3/2. It expands the profit ratio (d-1) as a
// continued fraction and keeps the last convergent whose denominator does
// not exceed maxFractionalDenominator; continued-fraction convergents are
// always already in lowest terms, so the result needs no further
// reduction. Round-trips exactly through FractionalToDecimal for any
// fraction whose reduced denominator is within the bound.
func DecimalToFractional(d float64) (num, den int64, err error) {
	if d <= 1 {
		return 0, 0, oddserr.InvalidPrice("decimal price must be > 1")
	}
	n, de := bestRational(d-1, maxFractionalDenominator)
	return n, de, nil
}

// bestRational finds the continued-fraction convergent of x with the
// largest denominator not exceeding maxDenominator.
func bestRational(x float64, maxDenominator int64) (num, den int64) {
	p0, q0 := int64(0), int64(1)
	p1, q1 := int64(1), int64(0)
	val := x

	for i := 0; i < 64; i++ {
		a := int64(math.Floor(val))
		p2 := a*p1 + p0
		q2 := a*q1 + q0
		if q2 > maxDenominator {
			break
		}
		p0, q0 = p1, q1
		p1, q1 = p2, q2

		frac := val - float64(a)
		if frac < 1e-12 {
			break
		}
		val = 1 / frac
	}

	if q1 == 0 {
		return p1, 1
	}
	return p1, q1
}

// RoundMoney rounds a monetary value half-to-even at 2 decimal places.
func RoundMoney(v float64) float64 {
	return roundHalfToEven(v, 2)
}

// RoundProbability rounds a probability value at 6 decimal places.
func RoundProbability(v float64) float64 {
	return roundHalfToEven(v, 6)
}

func roundHalfToEven(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(snapToTie(v*scale)) / scale
}

func roundHalfAwayFromZero(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	scaled := snapToTie(v * scale)
	if v >= 0 {
		return math.Floor(scaled+0.5) / scale
	}
	return math.Ceil(scaled-0.5) / scale
}

// snapToTie moves a scaled value lying within floating-point noise of a .5
// boundary exactly onto it, so a decimal tie such as 2.135 (stored as
// 2.13499999...) is rounded as the tie it is written as.
func snapToTie(scaled float64) float64 {
	if floor := math.Floor(scaled); math.Abs(scaled-floor-0.5) < 1e-9 {
		return floor + 0.5
	}
	return scaled
}
