package game

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"pefund/internal/config"
	"pefund/internal/stochastic"
)

type Archetype struct {
	Key             string       `json:"key"`
	Title           string       `json:"title"`
	Pitch           string       `json:"pitch"`
	Competence      config.Range `json:"competence"`
	RiskProfile     config.Range `json:"risk_profile"`
	Cooperativeness config.Range `json:"cooperativeness"`
}

// Tables holds the static text used by procedural generation.
type Tables struct {
	CompanyPrefixes   []string            `json:"company_prefixes"`
	CompanyRoots      []string            `json:"company_roots"`
	CompanySuffixes   []string            `json:"company_suffixes"`
	ManagerFirstNames []string            `json:"manager_first_names"`
	ManagerLastNames  []string            `json:"manager_last_names"`
	Archetypes        []Archetype         `json:"archetypes"`
	Headlines         map[string][]string `json:"headlines"`
}

func DefaultTables() *Tables {
	return &Tables{
		CompanyPrefixes: []string{
			"Advanced", "Global", "Premier", "United", "National", "Metro",
			"Apex", "Prime", "Elite", "Summit", "Vertex", "Optimal",
		},
		CompanyRoots: []string{
			"Tech", "Systems", "Solutions", "Industries", "Services", "Group",
			"Dynamics", "Innovations", "Ventures", "Partners", "Holdings", "Corp",
		},
		CompanySuffixes: []string{"Inc", "LLC", "Co", "Ltd", "International", "Enterprises"},
		ManagerFirstNames: []string{
			"Jaxon", "Hunter", "Landon", "Vignesh", "David", "Noah", "Moshe", "Jacob",
			"Winston", "Arjun", "Santiago", "Yosef", "Rohan", "Isaac", "Haruto", "Ezra",
			"Rebecca", "Aubree", "Hannah", "Neha", "Rivka", "Priya", "Chaya", "Mei",
			"Sophia", "Adalyn", "Yvette", "Shanti", "Hui", "Ivy", "Trang", "Kavya",
		},
		ManagerLastNames: []string{
			"Smith", "Johnson", "Brown", "Williams", "Rabinowitz", "Stein", "Goldberg",
			"Chen", "Wang", "Lee", "Kim", "Patel", "Venkataraman", "Kumar", "Martinez",
			"Garcia", "Davis", "Yang", "Wong", "Gupta", "Avraham", "Kimball", "Tapia",
		},
		Archetypes: []Archetype{
			archetype("turnaround", "Turnaround Specialist",
				"Has rescued three distressed businesses and is not afraid of hard calls.",
				0.70, 0.95, 0.50, 0.90, 0.40, 0.70),
			archetype("growth", "Growth Operator",
				"Scaled a regional player into a national brand.",
				0.60, 0.90, 0.60, 1.00, 0.50, 0.80),
			archetype("steady", "Steady Hand",
				"Predictable, board-friendly and allergic to surprises.",
				0.55, 0.80, 0.05, 0.30, 0.75, 1.00),
			archetype("cost_hawk", "Cost Hawk",
				"Known for finding margin where others see none.",
				0.65, 0.85, 0.30, 0.60, 0.50, 0.75),
			archetype("veteran", "Industry Veteran",
				"Twenty years in the sector and a phone full of customers.",
				0.65, 0.90, 0.20, 0.50, 0.60, 0.90),
		},
		Headlines: map[string][]string{
			string(EventMarketShift):  {"Market conditions shift as investors reprice risk."},
			string(EventMarketCrash):  {"Markets tumble as credit dries up.", "Panic selling grips the exchanges."},
			string(EventMarketBoom):   {"Animal spirits return to the deal market.", "Buyers flood back as credit loosens."},
			string(EventSectorShock):  {"A structural shift rattles {sectors}."},
			string(EventOperational):  {"{company} reports a swing in operating performance."},
			string(EventCrisis):       {"{company}: product recall forces major changes.", "{company}: cyber attack disrupts operations.", "{company}: key customer bankruptcy hits revenue."},
			string(EventBreakthrough): {"{company} wins a major contract.", "{company} launches a breakout product."},
			string(EventManagement):   {"{company}: management demands more autonomy.", "{company}: CEO threatens to leave."},
			string(EventRegulatory):   {"{company}: new regulation reshapes the playing field."},
		},
	}
}

func archetype(key, title, pitch string, compLo, compHi, riskLo, riskHi, coopLo, coopHi float64) Archetype {
	return Archetype{
		Key:             key,
		Title:           title,
		Pitch:           pitch,
		Competence:      config.Range{Min: compLo, Max: compHi},
		RiskProfile:     config.Range{Min: riskLo, Max: riskHi},
		Cooperativeness: config.Range{Min: coopLo, Max: coopHi},
	}
}

// LoadTables overlays a JSON file on the built-in tables. Any failure is
// logged and the defaults are returned.
func LoadTables(path string, logger *slog.Logger) *Tables {
	if logger == nil {
		logger = slog.Default()
	}
	tables := DefaultTables()
	if strings.TrimSpace(path) == "" {
		return tables
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("narrative tables unavailable, using defaults", "path", path, "err", err)
		return tables
	}
	var override Tables
	if err := json.Unmarshal(raw, &override); err != nil {
		logger.Warn("narrative tables unreadable, using defaults", "path", path, "err", err)
		return tables
	}
	tables.merge(override)
	return tables
}

func (t *Tables) merge(o Tables) {
	overlay := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	overlay(&t.CompanyPrefixes, o.CompanyPrefixes)
	overlay(&t.CompanyRoots, o.CompanyRoots)
	overlay(&t.CompanySuffixes, o.CompanySuffixes)
	overlay(&t.ManagerFirstNames, o.ManagerFirstNames)
	overlay(&t.ManagerLastNames, o.ManagerLastNames)
	if len(o.Archetypes) > 0 {
		t.Archetypes = o.Archetypes
	}
	for k, v := range o.Headlines {
		if len(v) > 0 {
			t.Headlines[k] = v
		}
	}
}

func (t *Tables) CompanyName(src stochastic.Source) string {
	name := stochastic.Pick(src, t.CompanyPrefixes) + " " + stochastic.Pick(src, t.CompanyRoots)
	if len(t.CompanySuffixes) > 0 && stochastic.Chance(src, 0.5) {
		name += " " + stochastic.Pick(src, t.CompanySuffixes)
	}
	return strings.TrimSpace(name)
}

func (t *Tables) ManagerName(src stochastic.Source) string {
	return strings.TrimSpace(stochastic.Pick(src, t.ManagerFirstNames) + " " + stochastic.Pick(src, t.ManagerLastNames))
}

// Headline renders a headline for kind, substituting {company} and {sectors}.
func (t *Tables) Headline(kind EventKind, company string, sectors []string, src stochastic.Source) string {
	lines := t.Headlines[string(kind)]
	if len(lines) == 0 {
		return fmt.Sprintf("%s event", kind)
	}
	r := strings.NewReplacer("{company}", company, "{sectors}", strings.Join(sectors, ", "))
	return r.Replace(stochastic.Pick(src, lines))
}
