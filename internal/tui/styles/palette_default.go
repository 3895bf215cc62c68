package styles

// Standard is the default palette: blue usage bars, green to red demand.
var Standard = Palette{
	Name: "default",

	Text:      "#D8DEE9",
	TextMuted: "#7B8794",
	Accent:    "#F2B84B",
	Rule:      "#2E3A46",
	Usage:     "#4C9BD9",

	Efficient:  "#43A047",
	Borderline: "#E0A526",
	Wasteful:   "#E5534B",

	Demand: [6]string{
		"#43A047", // low
		"#8BC34A", // moderate
		"#E0A526", // above_average
		"#F08A24", // high
		"#E5534B", // very_high
		"#C2185B", // alarming
	},

	Fault: "#E5534B",
}
