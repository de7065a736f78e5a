package lookup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultVesselTypes(t *testing.T) {
	types := DefaultVesselTypes()

	assert.Equal(t, "Cargo, all ships of this type", types.Describe(70))
	assert.Equal(t, "Tanker, hazardous category A", types.Describe(81))
	assert.Equal(t, "Tug", types.Describe(52))
	assert.Equal(t, "Tank Ship", types.Describe(1018))
	assert.Equal(t, "Unknown", types.Describe(4242))

	desc, ok := types.Lookup(37)
	assert.True(t, ok)
	assert.Equal(t, "Pleasure Craft", desc)
}

func TestDefaultCargo(t *testing.T) {
	cargo := DefaultCargo()
	assert.Equal(t, "Carrying DG, HS, or MP, hazardous category B", cargo.Describe(72))
	assert.Equal(t, "Fishing", cargo.Describe(30))
	assert.Equal(t, "Not Available", cargo.Describe(0))
}

func TestTable_Match(t *testing.T) {
	types := DefaultVesselTypes()

	tanker := types.Match("tanker")
	require.NotEmpty(t, tanker)
	for _, code := range tanker {
		assert.True(t, code >= 80 && code <= 89, "unexpected code %d", code)
	}

	tug := types.Match("TUG")
	assert.Equal(t, []int{52, 1022}, tug)

	assert.Nil(t, types.Match("   "))
	assert.Empty(t, types.Match("submarine"))
}

func TestReadCSV(t *testing.T) {
	input := "Code,Description,Notes\n70,Cargo,x\n 80 , Tanker ,\n"
	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "Tanker", table.Describe(80))
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Id,Name\n1,x\n"))
	assert.ErrorContains(t, err, "Code and Description")

	_, err = ReadCSV(strings.NewReader("Code,Description\nabc,x\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestLoadFile_Overlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vessel-type-lookup.csv")
	require.NoError(t, os.WriteFile(path, []byte("Code,Description\n70,Cargo Ship\n"), 0o644))

	base := DefaultVesselTypes()
	merged, err := LoadFile(path, base)
	require.NoError(t, err)

	assert.Equal(t, "Cargo Ship", merged.Describe(70))
	assert.Equal(t, "Tug", merged.Describe(52), "base entries survive the overlay")
	assert.Equal(t, "Cargo, all ships of this type", base.Describe(70), "base is not modified")

	same, err := LoadFile("", base)
	require.NoError(t, err)
	assert.Same(t, base, same)

	_, err = LoadFile(filepath.Join(dir, "missing.csv"), base)
	assert.Error(t, err)
}
