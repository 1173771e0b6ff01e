package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gdpCSV = "\ufeffyear,Country,gdp\n" +
	"2000,South Korea,1\n" +
	"2001, S. Korea ,2\n" +
	"2002,,3\n" +
	"2003,South Korea,4\n" +
	"2004,\"Korea, Rep.\",5\n" +
	"2005\n"

func TestReadColumn(t *testing.T) {
	got, err := ReadColumn(strings.NewReader(gdpCSV), "country")
	require.NoError(t, err)

	assert.Equal(t, []string{"South Korea", "S. Korea", "Korea, Rep."}, got)
}

func TestReadColumn_FirstColumnByDefault(t *testing.T) {
	got, err := ReadColumn(strings.NewReader("name\nFrance\nfrance\nFrance\n"), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"France", "france"}, got)
}

func TestReadColumn_Errors(t *testing.T) {
	_, err := ReadColumn(strings.NewReader(gdpCSV), "entity")
	require.ErrorIs(t, err, ErrColumnNotFound)
	assert.Contains(t, err.Error(), "Country")

	_, err = ReadColumn(strings.NewReader(""), "country")
	require.Error(t, err)

	_, err = ReadColumn(strings.NewReader("country\n\"unterminated\n"), "country")
	require.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"names.txt": "Czech\n\n  USSR\nCzech\n",
		"gdp.tsv":   "country\tgdp\nCzech\t1\nUSSR\t2\n",
		"gdp.csv":   "country,gdp\nCzech,1\nUSSR,2\n",
	}

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	for name := range files {
		t.Run(name, func(t *testing.T) {
			got, err := ReadFile(filepath.Join(dir, name), "country")
			require.NoError(t, err)
			assert.Equal(t, []string{"Czech", "USSR"}, got)
		})
	}

	_, err := ReadFile(filepath.Join(dir, "missing.csv"), "country")
	require.ErrorIs(t, err, os.ErrNotExist)
}
