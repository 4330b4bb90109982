package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pefund/internal/stochastic"
)

func TestLoadTablesFallsBack(t *testing.T) {
	defaults := DefaultTables()

	assert.Equal(t, defaults, LoadTables("", nil))
	assert.Equal(t, defaults, LoadTables(filepath.Join(t.TempDir(), "missing.json"), nil))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	assert.Equal(t, defaults, LoadTables(bad, nil))
}

func TestLoadTablesOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.json")
	raw := `{
  "company_prefixes": ["Northwind"],
  "company_roots": ["Traders"],
  "company_suffixes": [],
  "headlines": {"crisis": ["{company} is on fire."]}
}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	tables := LoadTables(path, nil)

	assert.Equal(t, []string{"Northwind"}, tables.CompanyPrefixes)
	assert.Equal(t, DefaultTables().CompanySuffixes, tables.CompanySuffixes)
	assert.Equal(t, DefaultTables().ManagerLastNames, tables.ManagerLastNames)

	src := &stochastic.Scripted{Float: 0.9}
	assert.Equal(t, "Northwind Traders", tables.CompanyName(src))
	assert.Equal(t, "Acme is on fire.", tables.Headline(EventCrisis, "Acme", nil, src))
	assert.NotEmpty(t, tables.Headline(EventMarketBoom, "", nil, src))
}

func TestHeadlineSubstitution(t *testing.T) {
	tables := DefaultTables()
	src := stochastic.Midpoint()

	h := tables.Headline(EventSectorShock, "", []string{"Energy", "Retail"}, src)
	assert.Equal(t, "A structural shift rattles Energy, Retail.", h)

	assert.Equal(t, "unknown event", tables.Headline(EventKind("unknown"), "", nil, src))
}

func TestCompanyNameSuffix(t *testing.T) {
	tables := DefaultTables()

	plain := tables.CompanyName(&stochastic.Scripted{Float: 0.9})
	assert.Len(t, strings.Fields(plain), 2)

	suffixed := tables.CompanyName(&stochastic.Scripted{Float: 0.1})
	assert.Len(t, strings.Fields(suffixed), 3)
}
