package chains

// Known returns the chain codes the upstream currently publishes.
// Archives may contain codes not in this list; those are passed through
// unchanged. The list is only used for display ordering and CLI hints.
func Known() []string {
	return []string{
		"konzum",
		"spar",
		"lidl",
		"kaufland",
		"plodine",
		"tommy",
		"studenac",
		"eurospin",
		"dm",
		"ktc",
		"metro",
		"trgocentar",
		"vrutak",
		"ribola",
		"ntl",
		"roto",
		"boso",
		"brodokomerc",
		"jadranka_trgovina",
		"trgovina-krk",
	}
}

// IsKnown checks whether a chain code is one of the published chains.
func IsKnown(code string) bool {
	for _, c := range Known() {
		if c == code {
			return true
		}
	}
	return false
}
