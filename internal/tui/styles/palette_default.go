package styles

// DefaultTheme is the baseline dark palette for the console.
var DefaultTheme = Theme{
	Name: "default",
	Base: BaseColors{
		Foreground: "252",
		Muted:      "245",
		Accent:     "75",
		Border:     "240",
	},
	Message: MessageColors{
		Own:    "81",
		Other:  "147",
		System: "214",
	},
	Priority: PriorityColors{
		Urgent: "203",
		High:   "215",
	},
	Status: StatusColors{
		Unread: "220",
		Typing: "41",
		Call:   "135",
	},
	Chrome: ChromeColors{
		Header:       "111",
		Footer:       "110",
		SelectedItem: "75",
		Pinned:       "179",
	},
}
