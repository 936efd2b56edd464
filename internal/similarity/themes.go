package similarity

// irrelevantThemes are catalog labels that describe puzzle length or
// bookkeeping rather than chess content. Per-theme ratings for these
// say nothing about a user's skill, so theme queries can filter them.
var irrelevantThemes = map[string]bool{
	"oneMove":        true,
	"short":          true,
	"long":           true,
	"veryLong":       true,
	"equality":       true,
	"mix":            true,
	"master":         true,
	"masterVsMaster": true,
	"superGM":        true,
}

// IsIrrelevantTheme reports whether the theme carries no topical signal
// and should be excluded from filtered theme-rating listings.
func IsIrrelevantTheme(theme string) bool {
	return irrelevantThemes[theme]
}
