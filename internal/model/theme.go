package model

// Theme is the presentation configuration of a survey. The survey core
// stores and forwards it without interpreting its fields.
type Theme struct {
	Name         string `json:"name" bson:"name"`
	Primary      string `json:"primary" bson:"primary"`
	Background   string `json:"background" bson:"background"`
	Accent       string `json:"accent" bson:"accent"`
	Text         string `json:"text" bson:"text"`
	Font         string `json:"font" bson:"font"`
	Rounded      string `json:"rounded" bson:"rounded"`
	ButtonStyle  string `json:"buttonStyle" bson:"buttonStyle"` // filled, outline, soft
	Gradient     bool   `json:"gradient" bson:"gradient"`
	GradientFrom string `json:"gradientFrom,omitempty" bson:"gradientFrom,omitempty"`
	GradientTo   string `json:"gradientTo,omitempty" bson:"gradientTo,omitempty"`
	Pattern      string `json:"pattern,omitempty" bson:"pattern,omitempty"` // dots, waves, none
}

const (
	PresetMinimal  = "minimal"
	PresetOcean    = "ocean"
	PresetSunset   = "sunset"
	PresetForest   = "forest"
	PresetMidnight = "midnight"
)

var presetThemes = map[string]Theme{
	PresetMinimal: {
		Name: PresetMinimal, Primary: "#4285F4", Background: "#F8F9FA", Accent: "#34A853",
		Text: "#202124", Font: "Inter", Rounded: "rounded-xl", ButtonStyle: "filled", Pattern: "none",
	},
	PresetOcean: {
		Name: PresetOcean, Primary: "#0EA5E9", Background: "#F0F9FF", Accent: "#06B6D4",
		Text: "#0C4A6E", Font: "Poppins", Rounded: "rounded-2xl", ButtonStyle: "filled",
		Gradient: true, GradientFrom: "#E0F2FE", GradientTo: "#BAE6FD", Pattern: "waves",
	},
	PresetSunset: {
		Name: PresetSunset, Primary: "#F97316", Background: "#FFF7ED", Accent: "#EF4444",
		Text: "#431407", Font: "Nunito", Rounded: "rounded-3xl", ButtonStyle: "soft",
		Gradient: true, GradientFrom: "#FFEDD5", GradientTo: "#FECACA", Pattern: "none",
	},
	PresetForest: {
		Name: PresetForest, Primary: "#16A34A", Background: "#F0FDF4", Accent: "#65A30D",
		Text: "#14532D", Font: "Merriweather", Rounded: "rounded-lg", ButtonStyle: "outline", Pattern: "dots",
	},
	PresetMidnight: {
		Name: PresetMidnight, Primary: "#8B5CF6", Background: "#0F172A", Accent: "#EC4899",
		Text: "#F8FAFC", Font: "Space Grotesk", Rounded: "rounded-xl", ButtonStyle: "filled",
		Gradient: true, GradientFrom: "#1E1B4B", GradientTo: "#0F172A", Pattern: "dots",
	},
}

// Preset returns a built-in theme by name.
func Preset(name string) (Theme, bool) {
	t, ok := presetThemes[name]
	return t, ok
}

// PresetNames lists the built-in themes.
func PresetNames() []string {
	return []string{PresetMinimal, PresetOcean, PresetSunset, PresetForest, PresetMidnight}
}

// DefaultTheme is used whenever a survey has no theme.
func DefaultTheme() Theme {
	return presetThemes[PresetMinimal]
}
