package styles

// HighContrastTheme favors legibility on low-quality terminals.
var HighContrastTheme = Theme{
	Name: "high-contrast",
	Base: BaseColors{
		Foreground: "231",
		Muted:      "250",
		Accent:     "51",
		Border:     "231",
	},
	Message: MessageColors{
		Own:    "87",
		Other:  "225",
		System: "229",
	},
	Priority: PriorityColors{
		Urgent: "196",
		High:   "208",
	},
	Status: StatusColors{
		Unread: "226",
		Typing: "46",
		Call:   "201",
	},
	Chrome: ChromeColors{
		Header:       "117",
		Footer:       "159",
		SelectedItem: "51",
		Pinned:       "229",
	},
}
