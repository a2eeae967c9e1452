package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/config"
	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
	"github.com/abdul-hamid-achik/scriptsuite/packages/output"
)

const passingSuite = `id: smoke
name: Smoke
variables:
  who: world
scripts:
  - id: hello
    code: echo "[PASS] hello ${who}"
  - id: bye
    code: echo "[PASS] bye"
testCases:
  - id: hello
    name: Says hello
    script: hello
    tags: [fast]
  - id: bye
    name: Says bye
    script: bye
    dependencies: [hello]
`

const failingSuite = `id: broken
name: Broken
scripts:
  - id: boom
    code: echo "[FAIL] exploded"
testCases:
  - id: boom
    name: Explodes
    script: boom
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"a=1", "b=x=y", " c =", "d="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y", "c": "", "d": ""}, vars)

	_, err = parseVars([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseVars([]string{"=1"})
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"smoke", "auth"}, splitList(" smoke, ,auth "))
	assert.Nil(t, splitList(""))
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", passingSuite)
	c := writeFile(t, dir, "nested/c.yml", passingSuite)
	writeFile(t, dir, "notes.txt", "x")
	writeFile(t, dir, ".scriptsuite.yaml", "timeout: 1000\n")

	files, err := collectFiles([]string{dir})
	require.NoError(t, err)
	sort.Strings(files)
	assert.Equal(t, []string{a, c}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestFilterByTags(t *testing.T) {
	s, err := suite.Parse([]byte(passingSuite))
	require.NoError(t, err)

	filterByTags(s, []string{"fast"})
	enabled := s.EnabledTestCases()
	require.Len(t, enabled, 1)
	assert.Equal(t, "hello", enabled[0].ID)
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitParseError, exitCode(exitf(ExitParseError, "bad")))
	assert.Equal(t, ExitTestFailure, exitCode(assert.AnError))

	assert.Equal(t, ExitSuccess, statusExitCode(suite.StatusPassed))
	assert.Equal(t, ExitSuccess, statusExitCode(suite.StatusCompleted))
	assert.Equal(t, ExitTestFailure, statusExitCode(suite.StatusFailed))
	assert.Equal(t, ExitTestFailure, statusExitCode(suite.StatusCancelled))
	assert.Equal(t, ExitRunnerError, statusExitCode(suite.StatusError))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", passingSuite)
	bad := writeFile(t, dir, "bad.yaml", `name: ""
configuration:
  retryCount: -1
testCases:
  - id: a
    name: A
    script: s
    dependencies: [ghost]
`)

	stdout, _, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Valid: "+good)

	_, stderr, err := execute(t, "validate", bad)
	require.Error(t, err)
	assert.Equal(t, ExitParseError, exitCode(err))
	assert.Contains(t, stderr, "Invalid: "+bad)
	assert.Contains(t, stderr, "suite name is required")
	assert.Contains(t, stderr, `depends on unknown test case "ghost"`)
}

func TestListCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "smoke.yaml", passingSuite)

	stdout, _, err := execute(t, "list", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Smoke")
	assert.Contains(t, stdout, "Says hello")
	assert.Contains(t, stdout, "Says bye")
	assert.Contains(t, stdout, "fast")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, "init", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "scriptsuite project initialized!")

	example := filepath.Join(dir, "example.yaml")
	s, err := suite.LoadFile(example)
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	assert.FileExists(t, filepath.Join(dir, ".scriptsuite.yaml"))

	_, _, err = execute(t, "init", "--dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "init", "--dir", dir, "--force")
	require.NoError(t, err)
}

func TestRunAndHistory(t *testing.T) {
	dir := t.TempDir()
	smoke := writeFile(t, dir, "smoke.yaml", passingSuite)
	broken := writeFile(t, dir, "broken.yaml", failingSuite)
	report := filepath.Join(dir, "report.json")
	metricsFile := filepath.Join(dir, "scriptsuite.prom")
	dbPath := "sqlite://" + filepath.Join(dir, "results.db")

	_, _, err := execute(t, "run", smoke,
		"--output", "json", "--output-file", report,
		"--db", dbPath, "--metrics-file", metricsFile,
		"--var", "who=tester", "--retry-delay", "0s")
	require.NoError(t, err)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var out output.JSONOutput
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 2, out.Summary.Passed)
	require.Len(t, out.Executions, 1)
	assert.Equal(t, "passed", out.Executions[0].Status)
	assert.Contains(t, out.Executions[0].Tests[0].Output, "hello tester")
	assert.FileExists(t, metricsFile)

	_, _, err = execute(t, "run", broken,
		"--output", "json", "--output-file", report,
		"--db", dbPath, "--metrics-file", metricsFile,
		"--retry-delay", "0s")
	require.Error(t, err)
	assert.Equal(t, ExitTestFailure, exitCode(err))

	stdout, _, err := execute(t, "history", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Recent executions")
	assert.Contains(t, stdout, "Smoke")
	assert.Contains(t, stdout, "Broken")
	assert.Contains(t, stdout, "Pass rate: 50.0% of 2 executions")
}

func TestRunDryRun(t *testing.T) {
	path := writeFile(t, t.TempDir(), "smoke.yaml", passingSuite)

	stdout, _, err := execute(t, "run", path, "--dry-run", "--tags", "fast")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Would run: "+path+" (Smoke, 1 test cases)")
	assert.Contains(t, stdout, "Says hello [hello]")

	// reset for later tests sharing the command flags
	dryRunFlag = false
	tagsFlag = ""
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "scriptsuite version")
}

func TestVersionCommand_Short(t *testing.T) {
	t.Cleanup(func() { versionShort = false })
	stdout, _, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", stdout)
}

func TestCompletion_SuiteFiles(t *testing.T) {
	stdout, _, err := execute(t, "__complete", "validate", "")
	require.NoError(t, err)
	assert.Contains(t, stdout, "yaml\nyml\njson\n:8\n")
}

func TestCompletion_OutputFormats(t *testing.T) {
	stdout, _, err := execute(t, "__complete", "run", "--output", "")
	require.NoError(t, err)
	assert.Contains(t, stdout, "junit\n")
	assert.Contains(t, stdout, ":4\n")
}

func TestResolveVariables_CrossReferences(t *testing.T) {
	t.Cleanup(func() { varFlags, envFlag = nil, "" })
	varFlags = []string{"host=example.com", "url=https://${host}/api", "run=${uuid()}", "later=${suiteOnly}"}
	envFlag = "dev"

	cfg := config.DefaultConfig()
	cfg.Environments = map[string]map[string]string{"dev": {"host": "localhost", "health": "${url}/health"}}

	vars, name, err := resolveVariables(cfg)
	require.NoError(t, err)
	assert.Equal(t, "dev", name)
	assert.Equal(t, "https://example.com/api", vars["url"])
	assert.Equal(t, "https://example.com/api/health", vars["health"])
	assert.Len(t, vars["run"], 36)
	assert.Equal(t, "${suiteOnly}", vars["later"], "unknown names are left for suite variables")
}
