// Package sender maps raw "From" headers to canonical newsletter names.
package sender

import "strings"

// Table holds the static sender metadata: display-name aliases, the batch
// allow-list, and publisher ids. Constructed once at startup and passed to
// whoever needs it instead of living as package globals.
type Table struct {
	aliases      map[string]string
	allowed      map[string]struct{}
	publisherIDs map[string]int
}

// NewTable returns the default table.
func NewTable() *Table {
	return &Table{
		aliases: map[string]string{
			"Mike Allen":                 "Axios AM PM",
			"Kia Kokalitcheva":           "Axios Pro Rata",
			"Dan Primack":                "Axios Pro Rata",
			"Neal from Demand Curve":     "Demand Curve",
			"The Daily Skimm":            "theDailySkimm",
			"Ari Murray":                 "Go_To_Millions",
			"Kpaxs":                      "threetimeswiser",
			"Liz Dye from Public Notice": "Public Notice",
			"Daniel Murray":              "THE MARKETING MILLENNIALS",
		},
		allowed: toSet([]string{
			"THE MARKETING MILLENNIALS",
			"Public Notice",
			"threetimeswiser",
			"Go_To_Millions",
			"theDailySkimm",
			"Demand Curve",
			"TLDR",
			"TLDR AI",
			"TLDR Marketing",
			"Techpresso",
			"The Neuron",
			"The Average Joe",
			"Morning Brew",
			"Axios Pro Rata",
			"CFO Brew",
			"10almonds",
			"Game Rant",
			"Axios AM PM",
			"Axios Vitals",
			"DTC Daily",
		}),
		publisherIDs: map[string]int{
			"TLDR AI":                   10,
			"Techpresso":                11,
			"TLDR":                      12,
			"The Neuron":                13,
			"CFO Brew":                  20,
			"The Average Joe":           21,
			"Axios Pro Rata":            22,
			"Game Rant":                 30,
			"10almonds":                 40,
			"Axios Vitals":              41,
			"THE MARKETING MILLENNIALS": 50,
			"DTC Daily":                 51,
			"TLDR Marketing":            52,
			"Go_To_Millions":            53,
			"Morning Brew":              60,
			"Axios AM PM":               61,
			"theDailySkimm":             62,
			"Public Notice":             63,
			"Demand Curve":              70,
			"threetimeswiser":           71,
		},
	}
}

// Normalize extracts the display name preceding the first '<' and applies
// the alias table. A header without an angle bracket is returned trimmed,
// with no alias lookup.
func (t *Table) Normalize(raw string) string {
	idx := strings.Index(raw, "<")
	if idx < 0 {
		return strings.TrimSpace(raw)
	}
	name := strings.TrimSpace(raw[:idx])
	if canonical, ok := t.aliases[name]; ok {
		return canonical
	}
	return name
}

// Allowed reports whether the canonical name is an approved batch source.
func (t *Table) Allowed(name string) bool {
	_, ok := t.allowed[name]
	return ok
}

// PublisherID returns the static publisher id for a canonical name, or nil
// when the sender has none.
func (t *Table) PublisherID(name string) *int {
	if id, ok := t.publisherIDs[name]; ok {
		return &id
	}
	return nil
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
