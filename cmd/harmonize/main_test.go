package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entity-harmonizer/internal/registry"
	"entity-harmonizer/internal/store"
)

const testRegistryYAML = `version: "1"
entities:
  - name: South Korea
    code: KOR
    aliases:
      - Republic of Korea
  - name: North Korea
    code: PRK
  - name: Czechia
    code: CZE
    aliases: Czech Republic # official long form
  - name: France
    code: FRA
`

type fixture struct {
	dir      string
	registry string
	dataset  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		registry: filepath.Join(dir, "entities.yaml"),
		dataset:  filepath.Join(dir, "gdp.csv"),
	}

	require.NoError(t, os.WriteFile(f.registry, []byte(testRegistryYAML), 0o644))
	require.NoError(t, os.WriteFile(f.dataset,
		[]byte("year,country\n2000,republic of korea\n2000,Czech\n2001,Atlantis\n2001,Czech\n"), 0o644))

	return f
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	return executeContext(t, context.Background(), stdin, args...)
}

func executeContext(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.ExecuteContext(ctx)

	return out.String(), err
}

func TestRunAuto(t *testing.T) {
	f := newFixture(t)
	db := filepath.Join(f.dir, "history.db")

	out, err := execute(t, "", "run", f.dataset, "--column", "country", "--auto",
		"--registry", f.registry, "--output-dir", f.dir, "--database", db,
		"--review", filepath.Join(f.dir, "review.yaml"))
	require.NoError(t, err, out)

	assert.Contains(t, out, "auto-matched: 1")
	assert.Contains(t, out, "resolved:     1")
	assert.Contains(t, out, "unresolved:   1")

	mapping, err := store.ReadJSON(filepath.Join(f.dir, "gdp.countries.json"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"republic of korea": "South Korea",
		"Czech":             "Czechia",
	}, mapping)

	review, err := os.ReadFile(filepath.Join(f.dir, "review.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(review), "name: Atlantis")

	out, err = execute(t, "", "history", "gdp", "--registry", f.registry, "--database", db)
	require.NoError(t, err)
	assert.Contains(t, out, "2/3 mapped")
}

func TestRunInteractive(t *testing.T) {
	f := newFixture(t)

	// Czech: "abc" is refused, then blank accepts the top candidate.
	// Atlantis: skipped.
	out, err := execute(t, "abc\n\ni\n", "run", f.dataset, "-c", "country",
		"--registry", f.registry, "--output-dir", f.dir)
	require.NoError(t, err, out)

	assert.Contains(t, out, `"abc" is not a number`)
	assert.Contains(t, out, "skipped:      1")

	mapping, err := store.ReadJSON(filepath.Join(f.dir, "gdp.countries.json"))
	require.NoError(t, err)
	assert.Equal(t, "Czechia", mapping["Czech"])
	assert.NotContains(t, mapping, "Atlantis")
}

func TestRunInterruptedWritesPartialMapping(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "\n", "run", f.dataset, "-c", "country",
		"--registry", f.registry, "--output-dir", f.dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "interrupted")

	mapping, err := store.ReadJSON(filepath.Join(f.dir, "gdp.countries.json"))
	require.NoError(t, err)
	assert.Len(t, mapping, 2)
}

func TestRunCancelledRecordsPartialSession(t *testing.T) {
	f := newFixture(t)
	db := filepath.Join(f.dir, "history.db")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := executeContext(t, ctx, "", "run", f.dataset, "-c", "country", "--auto",
		"--registry", f.registry, "--output-dir", f.dir, "--database", db)
	require.NoError(t, err, out)
	assert.Contains(t, out, "session interrupted")

	mapping, err := store.ReadJSON(filepath.Join(f.dir, "gdp.countries.json"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"republic of korea": "South Korea"}, mapping)

	out, err = execute(t, "", "history", "gdp", "--registry", f.registry, "--database", db)
	require.NoError(t, err)
	assert.Contains(t, out, "1/3 mapped (interrupted)")
}

func TestRunLearnsAliases(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "", "run", f.dataset, "-c", "country", "--auto", "--learn-aliases",
		"--registry", f.registry, "--output-dir", f.dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "learned 1 aliases")

	reg, err := registry.LoadFile(f.registry)
	require.NoError(t, err)
	assert.Equal(t, registry.StringOrArray{"Czech Republic", "Czech"}, reg.Find("Czechia").Aliases)

	data, err := os.ReadFile(f.registry)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# official long form")

	// Second pass: Czech is now an alias hit.
	out, err = execute(t, "", "run", f.dataset, "-c", "country", "--auto",
		"--registry", f.registry, "--output-dir", f.dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "auto-matched: 2")
}

func TestRunReuse(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, store.WriteJSON(filepath.Join(f.dir, "gdp.countries.json"),
		map[string]string{"Atlantis": "France"}))

	out, err := execute(t, "", "run", f.dataset, "-c", "country", "--auto", "--reuse",
		"--registry", f.registry, "--output-dir", f.dir)
	require.NoError(t, err, out)

	mapping, err := store.ReadJSON(filepath.Join(f.dir, "gdp.countries.json"))
	require.NoError(t, err)
	assert.Equal(t, "France", mapping["Atlantis"])
	assert.Contains(t, out, "unresolved:   0")
}

func TestRunRejectsConflictingModes(t *testing.T) {
	f := newFixture(t)

	_, err := execute(t, "", "run", f.dataset, "--auto", "--auto-then-ask", "--registry", f.registry)
	require.Error(t, err)
}

func TestRunInvalidConfig(t *testing.T) {
	f := newFixture(t)

	_, err := execute(t, "", "run", f.dataset, "--similarity", "soundex", "--registry", f.registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "soundex")
}

func TestSuggest(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "", "suggest", "S. Korea", "kor", "--registry", f.registry, "-n", "2")
	require.NoError(t, err)

	assert.Contains(t, out, " 1) South Korea")
	assert.Contains(t, out, " 2) North Korea")
	assert.NotContains(t, out, " 3)")
	assert.Contains(t, out, "alias of South Korea")
}

func TestCheck(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "", "check", "--registry", f.registry)
	require.NoError(t, err, out)
	assert.Contains(t, out, "4 entities, 10 names and aliases")

	bad := filepath.Join(f.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`entities:
  - name: Congo
    aliases: [Congo-Brazzaville]
  - name: Congo
`), 0o644))

	out, err = execute(t, "", "check", "--registry", bad)
	require.Error(t, err)
	assert.Contains(t, out, "duplicate_entity")
}

func TestAddAlias(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "", "add-alias", "France", "French Republic", "france", "--registry", f.registry)
	require.NoError(t, err)
	assert.Contains(t, out, "added 1 aliases to France")

	_, err = execute(t, "", "add-alias", "Atlantis", "Lost City", "--registry", f.registry)
	require.ErrorIs(t, err, registry.ErrEntityNotFound)
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "harmonize.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`similarity_function: token_set_ratio
auto_threshold: 90
institution: OECD
`), 0o644))

	t.Setenv("HARMONIZE_MAX_SUGGESTIONS", "7")
	t.Setenv("HARMONIZE_INSTITUTION", "IMF")

	root := newRootCmd()
	require.NoError(t, root.PersistentFlags().Parse([]string{"--threshold", "95"}))

	v, err := newViper(root.PersistentFlags())
	require.NoError(t, err)

	s, err := loadSettings(v, configFile)
	require.NoError(t, err)

	assert.Equal(t, "token_set_ratio", s.SimilarityFunction)
	assert.InDelta(t, 95.0, s.AutoThreshold, 1e-9, "flags win over the file")
	assert.Equal(t, 7, s.MaxSuggestions)
	assert.Equal(t, "IMF", s.Institution, "environment wins over the file")
	assert.True(t, s.MatchIdentical)
	assert.Equal(t, "entities.yaml", s.Registry)
}
