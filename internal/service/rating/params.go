package rating

// Search window policy. Candidate search widens its rating window one
// compromise level at a time; the radius must never shrink as the level
// grows, and must stay finite at MaxCompromise.
type Params struct {
	// MinSearchRating and MaxSearchRating bound the clamped rating used
	// for window computation. Raw ratings outside this range produce
	// degenerate windows at the catalog extremes.
	MinSearchRating float64
	MaxSearchRating float64

	// BaseRadius is the half-width of the rating window at compromise
	// level zero.
	BaseRadius float64

	// RadiusStep is the additional half-width gained per compromise level.
	RadiusStep float64
}

// DefaultParams returns the search window policy used in production.
func DefaultParams() Params {
	return Params{
		MinSearchRating: 600,
		MaxSearchRating: 2800,
		BaseRadius:      100,
		RadiusStep:      50,
	}
}

// ClampRating clamps a raw rating into the valid search range.
func (p Params) ClampRating(rating float64) float64 {
	if rating < p.MinSearchRating {
		return p.MinSearchRating
	}
	if rating > p.MaxSearchRating {
		return p.MaxSearchRating
	}
	return rating
}

// RadiusForRating returns the half-width of the acceptable rating
// window at the given compromise level. Non-decreasing in compromise
// for any fixed rating.
func (p Params) RadiusForRating(rating float64, compromise int) float64 {
	if compromise < 0 {
		compromise = 0
	}
	return p.BaseRadius + p.RadiusStep*float64(compromise)
}
