package models

import "time"

// Leg is a single wager in a proposed arbitrage.
type Leg struct {
	OutcomeName        string
	Point              *float64
	BookmakerKey       string
	Price              float64 // configured display format
	DecimalPrice        float64
	ImpliedProbability float64
	StakeShare          float64 // fractional share of unit bankroll
}

// Opportunity is an emitted arbitrage: one leg per outcome key, immutable
// once emitted and retained historically.
type Opportunity struct {
	ID                      string // uuid, assigned at emission
	SportKey                string
	CommenceTime            time.Time
	HomeTeam                string
	AwayTeam                string
	MarketKey               string
	Legs                    []Leg
	TotalImpliedProbability float64 // strictly < 1.0
	ProfitPct               float64 // (1/total - 1) * 100
	DetectedAt              time.Time
}

// EventFingerprint reconstructs the Event identity this opportunity was
// detected against, for joins against latest_events.
func (o Opportunity) EventFingerprint() string {
	return Event{
		SportKey:     o.SportKey,
		CommenceTime: o.CommenceTime,
		HomeTeam:     o.HomeTeam,
		AwayTeam:     o.AwayTeam,
	}.Fingerprint()
}

// MinuteBucketKey is the idempotency fingerprint append_opportunities uses
// to skip duplicate rows within the same minute.
func (o Opportunity) MinuteBucketKey() string {
	return o.EventFingerprint() + "|" + o.MarketKey + "|" + o.DetectedAt.UTC().Format("200601021504")
}
