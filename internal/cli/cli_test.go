package cli

import (
	"bytes"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// fixture creates a SQLite source database and a configuration exporting
// from it. Extra work items are appended verbatim.
func fixture(t *testing.T, extraWork string) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	dbPath := filepath.Join(dir, "source.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE emp (id INTEGER, name TEXT);
		INSERT INTO emp VALUES (1, 'ann'), (2, 'bob'), (3, NULL);`)
	require.NoError(t, err)

	cfg := `outfile: load_all
output_dir: ` + filepath.Join(dir, "out") + `
driver: sqlite3
oradb: ` + dbPath + `
pghost: pg.local
pgdb: warehouse
truncate: true
job_stagger: 1ms
progress_interval: 0s
work:
  - id: emp
    query: SELECT id, name FROM emp ORDER BY id
    target: public.emp
    outfile: emp
` + extraWork
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return dir, cfgPath
}

func readGzip(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "pgcopy-export", cmd.Use)

	for _, name := range []string{"run", "validate", "script", "history", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
}

func TestRunExportsAndWritesScript(t *testing.T) {
	dir, cfgPath := fixture(t, "")
	ledger := filepath.Join(dir, "ledger.db")

	stdout, _, err := execute(t, "run", "--ledger", ledger, cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 succeeded, 0 failed, 3 rows")

	out := filepath.Join(dir, "out")
	data := readGzip(t, filepath.Join(out, "emp.sql.gz"))
	assert.Contains(t, data, "TRUNCATE TABLE public.emp;\n")
	assert.Contains(t, data, "COPY public.emp (id, name) FROM stdin;\n")
	for _, row := range []string{"1\tann\n", "2\tbob\n", "3\t\\N\n"} {
		assert.Contains(t, data, row)
	}
	assert.True(t, strings.HasSuffix(data, "\\.\ncommit;\n\\echo . done\n"))
	assert.NoFileExists(t, filepath.Join(out, "emp.sql.gz.work"))

	sh, err := os.ReadFile(filepath.Join(out, "load_all.sh"))
	require.NoError(t, err)
	assert.Contains(t, string(sh), "gunzip -c '"+filepath.Join(out, "emp.sql.gz")+"' | psql --quiet --host='pg.local' --dbname='warehouse'")

	stdout, _, err = execute(t, "history", "--ledger", ledger)
	require.NoError(t, err)
	assert.Contains(t, stdout, "public.emp")
	assert.Contains(t, stdout, "done")
}

func TestRunReportsFailedJobs(t *testing.T) {
	dir, cfgPath := fixture(t, `  - id: broken
    query: SELECT * FROM no_such_table
    target: public.broken
    outfile: broken
`)

	stdout, _, err := execute(t, "run", "--no-script", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitJobsFailed, GetExitCode(err))
	assert.Contains(t, stdout, "1 succeeded, 1 failed")

	out := filepath.Join(dir, "out")
	assert.FileExists(t, filepath.Join(out, "emp.sql.gz"))
	assert.NoFileExists(t, filepath.Join(out, "broken.sql.gz"))
	assert.NoFileExists(t, filepath.Join(out, "load_all.sh"))
}

func TestValidate(t *testing.T) {
	_, cfgPath := fixture(t, "")

	stdout, _, err := execute(t, "validate", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "configuration ok: 1 job(s), 7 session(s)\n", stdout)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("work: []\n"), 0o644))
	_, _, err = execute(t, "validate", bad)
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	assert.Contains(t, err.Error(), "at least one work item")
}

func TestScriptToStdout(t *testing.T) {
	_, cfgPath := fixture(t, "")

	stdout, _, err := execute(t, "script", "--stdout", cfgPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "#!/usr/bin/env sh\n"))
	assert.Contains(t, stdout, "emp.sql.gz' | psql --quiet")
}

func TestInvalidLogFormat(t *testing.T) {
	_, cfgPath := fixture(t, "")
	_, _, err := execute(t, "--log-format", "xml", "validate", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pgcopy-export dev\n", stdout)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitConfigError, GetExitCode(WrapExitError(ExitConfigError, "bad", assert.AnError)))
}
