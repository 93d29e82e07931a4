package analyze

// Banding buckets an effectiveness ratio into one of three ordinal bands.
// The boundaries are scenario-specific constants rather than universal: a
// conversation probe and a quota probe have different notions of "good
// enough".
type Banding struct {
	// Lower bounds (inclusive) for the top and middle bands. Ratios below
	// Mid fall into the bottom band.
	Top float64
	Mid float64

	TopName string
	MidName string
	LowName string
}

// DefaultBanding returns the standard excellent/moderate/poor split used by
// the guardrail scenarios.
func DefaultBanding() Banding {
	return Banding{
		Top:     0.8,
		Mid:     0.5,
		TopName: "excellent",
		MidName: "moderate",
		LowName: "poor",
	}
}

// Band returns the band name for a ratio.
func (b Banding) Band(ratio float64) string {
	switch {
	case ratio >= b.Top:
		return b.TopName
	case ratio >= b.Mid:
		return b.MidName
	default:
		return b.LowName
	}
}
