// Package fees computes the tiered certificate fees. All functions are pure;
// invalid inputs (zero, negative) yield 0.
package fees

import "math"

// Per-person rates. The small rate applies up to PersonsThreshold.
const (
	PersonsThreshold  = 10
	TrainingRateSmall = 500
	TrainingRateLarge = 600
	MinistryRateSmall = 150
	MinistryRateLarge = 200
)

type areaTier struct {
	max float64
	fee float64
}

// areaFeeTable maps an establishment's area to its fee; the first tier whose
// upper bound covers the area wins. Areas beyond the last tier pay 7500 plus
// 500 per started extra 1000 m².
var areaFeeTable = []areaTier{
	{max: 50, fee: 360},
	{max: 100, fee: 450},
	{max: 200, fee: 550},
	{max: 400, fee: 750},
	{max: 1000, fee: 950},
	{max: 2000, fee: 1500},
	{max: 3000, fee: 2500},
	{max: 4000, fee: 3500},
	{max: 5000, fee: 4000},
	{max: 6000, fee: 4500},
	{max: 7000, fee: 5500},
	{max: 8000, fee: 6000},
	{max: 9000, fee: 6500},
	{max: 10000, fee: 7500},
}

// TrainingFee returns the training fee for the given persons count.
func TrainingFee(persons int) float64 {
	if persons < 1 {
		return 0
	}
	rate := TrainingRateSmall
	if persons > PersonsThreshold {
		rate = TrainingRateLarge
	}
	return float64(persons * rate)
}

// MinistryFee returns the per-person ministry fee.
func MinistryFee(persons int) float64 {
	if persons < 1 {
		return 0
	}
	rate := MinistryRateSmall
	if persons > PersonsThreshold {
		rate = MinistryRateLarge
	}
	return float64(persons * rate)
}

// AreaFee returns the stepped area fee.
func AreaFee(area float64) float64 {
	if area <= 0 {
		return 0
	}
	for _, tier := range areaFeeTable {
		if area <= tier.max {
			return tier.fee
		}
	}
	extraThousands := math.Ceil((area - 10000) / 1000)
	return 7500 + extraThousands*500
}

// GrandTotal is the governorate total: training fee plus the pass-through
// consultant, evacuation and inspection fees.
func GrandTotal(persons int, consultant, evacuation, inspection float64) float64 {
	return TrainingFee(persons) + consultant + evacuation + inspection
}

// MinistryTotal is the ministry total: per-person ministry fee plus area fee.
func MinistryTotal(persons int, area float64) float64 {
	return MinistryFee(persons) + AreaFee(area)
}

// Input carries everything the engine needs for a full breakdown.
type Input struct {
	Persons    int
	Area       float64
	Consultant float64
	Evacuation float64
	Inspection float64
}

// Breakdown is every derived fee plus the per-person rates that applied.
type Breakdown struct {
	TrainingFee   float64
	MinistryFee   float64
	AreaFee       float64
	GrandTotal    float64
	MinistryTotal float64
	TrainingRate  int
	MinistryRate  int
}

// Calculate runs the full fee computation for one certificate.
func Calculate(in Input) Breakdown {
	b := Breakdown{
		TrainingFee:  TrainingFee(in.Persons),
		MinistryFee:  MinistryFee(in.Persons),
		AreaFee:      AreaFee(in.Area),
		TrainingRate: TrainingRateSmall,
		MinistryRate: MinistryRateSmall,
	}
	if in.Persons > PersonsThreshold {
		b.TrainingRate = TrainingRateLarge
		b.MinistryRate = MinistryRateLarge
	}
	b.GrandTotal = b.TrainingFee + in.Consultant + in.Evacuation + in.Inspection
	b.MinistryTotal = b.MinistryFee + b.AreaFee
	return b
}
