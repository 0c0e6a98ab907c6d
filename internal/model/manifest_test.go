package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) Path {
	t.Helper()

	path := filepath.Join(t.TempDir(), "repair.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return Path(path)
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
files:
  - cmd/buggy.go
positive_tests:
  - TestAdd
  - TestSub
negative_tests:
  - TestOverflow
fault:
  - id: 4
    weight: 1.0
  - id: 2
    weight: 0.1
`)

	man, err := LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, []Path{"cmd/buggy.go"}, man.Files)
	require.Equal(t, []string{"TestAdd", "TestSub"}, man.PositiveTests)
	require.Equal(t, []string{"TestOverflow"}, man.NegativeTests)

	fault := man.FaultLocalization()
	require.Equal(t, Localization{
		{ID: 4, Weight: 1.0},
		{ID: 2, Weight: 0.1},
	}, fault)

	require.Nil(t, man.FixLocalization())
}

func TestLoadManifestRequiresFiles(t *testing.T) {
	path := writeManifest(t, "positive_tests:\n  - TestAdd\n")

	_, err := LoadManifest(path)
	require.Error(t, err)
}

func TestLoadManifestRejectsBadYAML(t *testing.T) {
	path := writeManifest(t, "files: [unclosed\n")

	_, err := LoadManifest(path)
	require.Error(t, err)
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(Path(filepath.Join(t.TempDir(), "absent.yaml")))
	require.Error(t, err)
}
