package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"compile", "ops", "inspect", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	for _, flag := range []string{"config", "strict", "output-dir", "workers", "verbose", "checksum", "v"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestRootCompileWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile("bornc.yaml", []byte("output_dir: build\nworkers: 1\n"), 0o600))
	require.NoError(t, os.WriteFile("ranges.yaml", []byte(`
name: ranges
nodes:
  - {name: r, op: call_function, target: aten.arange.start_step, args: [0, 5]}
  - {name: output, op: output, args: [[{node: r}]]}
`), 0o600))

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"compile", "ranges.yaml", "--checksum=false"})
	require.NoError(t, root.Execute())

	assert.FileExists(t, filepath.Join(dir, "build", "ranges.bctx"))

	root = NewRootCmd()
	buf.Reset()
	root.SetOut(buf)
	root.SetArgs([]string{"inspect", filepath.Join("build", "ranges.bctx")})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "none", "checksum disabled by flag")
}

func TestRootInvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"ops", "--workers=-1"})
	require.ErrorContains(t, root.Execute(), "workers")
}
