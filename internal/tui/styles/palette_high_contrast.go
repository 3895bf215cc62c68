package styles

// HighContrast keeps every role on pure or near-pure hues for dim terminals.
var HighContrast = Palette{
	Name: "high-contrast",

	Text:      "#FFFFFF",
	TextMuted: "#BDBDBD",
	Accent:    "#FFFF00",
	Rule:      "#FFFFFF",
	Usage:     "#00BFFF",

	Efficient:  "#00FF00",
	Borderline: "#FFD700",
	Wasteful:   "#FF3030",

	Demand: [6]string{
		"#00FF00",
		"#ADFF2F",
		"#FFD700",
		"#FFA500",
		"#FF3030",
		"#FF00FF",
	},

	Fault: "#FF3030",
}
