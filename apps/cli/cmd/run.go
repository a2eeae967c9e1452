package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/scriptsuite/packages/core/config"
	"github.com/abdul-hamid-achik/scriptsuite/packages/core/env"
	"github.com/abdul-hamid-achik/scriptsuite/packages/core/runner"
	"github.com/abdul-hamid-achik/scriptsuite/packages/core/suite"
	"github.com/abdul-hamid-achik/scriptsuite/packages/db"
	"github.com/abdul-hamid-achik/scriptsuite/packages/export/metrics"
	"github.com/abdul-hamid-achik/scriptsuite/packages/notify"
	"github.com/abdul-hamid-achik/scriptsuite/packages/output"
	"github.com/abdul-hamid-achik/scriptsuite/packages/scriptrunner"
)

var runCmd = &cobra.Command{
	Use:   "run <suite|directory>...",
	Short: "Run test suites",
	Long: `Run the test suites defined in YAML or JSON suite files.

Examples:
  scriptsuite run login.yaml
  scriptsuite run login.yaml --env staging --var user=bob
  scriptsuite run ./suites/ --tags smoke --output junit --output-file report.xml
  scriptsuite run login.yaml --remote http://localhost:9229/run
  scriptsuite run ./suites/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond

	notifyTimeout = 15 * time.Second
)

var (
	envFlag        string
	envFileFlag    string
	configFlag     string
	varFlags       []string
	tagsFlag       string
	scriptsDirFlag string
	verboseFlag    int
	noColorFlag    bool
	outputFlag     string
	outputFileFlag string
	dryRunFlag     bool
	watchFlag      bool

	// Execution flags
	shellFlag         string
	remoteFlag        string
	remoteTokenFlag   string
	timeoutFlag       time.Duration
	retriesFlag       int
	retryDelayFlag    time.Duration
	stopOnFailureFlag bool
	rateLimitFlag     float64

	// History flags
	dbFlag string

	// Metrics flags
	metricsPortFlag int
	metricsFileFlag string

	// Notification flags
	notifyFlag       string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
	teamsWebhookFlag string
)

func init() {
	// Core flags
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("SCRIPTSUITE_ENV", ""), "Environment from the config file (env: SCRIPTSUITE_ENV)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("SCRIPTSUITE_ENV_FILE", ""), "Path to .env file with variables (env: SCRIPTSUITE_ENV_FILE)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("SCRIPTSUITE_CONFIG", ""), "Path to config file (env: SCRIPTSUITE_CONFIG)")
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Set a variable (key=value), may be repeated")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("SCRIPTSUITE_TAGS", ""), "Run only test cases with specified tags (comma-separated) (env: SCRIPTSUITE_TAGS)")
	runCmd.Flags().StringVar(&scriptsDirFlag, "scripts-dir", getEnvString("SCRIPTSUITE_SCRIPTS_DIR", ""), "Directory of script files available to every suite (env: SCRIPTSUITE_SCRIPTS_DIR)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v shows assertions and progress, -vv also logs diagnostics)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("SCRIPTSUITE_NO_COLOR", false), "Disable colored output (env: SCRIPTSUITE_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("SCRIPTSUITE_OUTPUT", ""), "Output format: console, json, junit, tap, html (env: SCRIPTSUITE_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("SCRIPTSUITE_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: SCRIPTSUITE_OUTPUT_FILE)")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Load and validate suites and show what would run without executing")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suite and script files for changes and re-run")

	// Execution flags
	runCmd.Flags().StringVar(&shellFlag, "shell", getEnvString("SCRIPTSUITE_SHELL", ""), "Shell used by the local script runner (env: SCRIPTSUITE_SHELL)")
	runCmd.Flags().StringVar(&remoteFlag, "remote", getEnvString("SCRIPTSUITE_REMOTE", ""), "Remote script runner URL, replaces the local shell (env: SCRIPTSUITE_REMOTE)")
	runCmd.Flags().StringVar(&remoteTokenFlag, "remote-token", getEnvString("SCRIPTSUITE_REMOTE_TOKEN", ""), "Bearer token sent to the remote script runner (env: SCRIPTSUITE_REMOTE_TOKEN)")
	runCmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "Override the suite timeout per attempt (e.g. 30s, 1m)")
	runCmd.Flags().IntVar(&retriesFlag, "retries", 0, "Override the suite retry count")
	runCmd.Flags().DurationVar(&retryDelayFlag, "retry-delay", runner.DefaultRetryDelay, "Pause between attempts of a test case")
	runCmd.Flags().BoolVar(&stopOnFailureFlag, "stop-on-failure", false, "Skip remaining test cases after the first failure")
	runCmd.Flags().Float64Var(&rateLimitFlag, "rate-limit", getEnvFloat("SCRIPTSUITE_RATE_LIMIT", 0), "Maximum script invocations per second, 0 for unlimited (env: SCRIPTSUITE_RATE_LIMIT)")

	// History flags
	runCmd.Flags().StringVar(&dbFlag, "db", getEnvString("SCRIPTSUITE_DB", ""), "Store execution results in this database, e.g. sqlite://results.db (env: SCRIPTSUITE_DB)")

	// Metrics flags
	runCmd.Flags().IntVar(&metricsPortFlag, "metrics-port", getEnvInt("SCRIPTSUITE_METRICS_PORT", 0), "Serve Prometheus metrics on this port, 0 to disable (env: SCRIPTSUITE_METRICS_PORT)")
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("SCRIPTSUITE_METRICS_FILE", ""), "Write Prometheus metrics to this textfile after each run (env: SCRIPTSUITE_METRICS_FILE)")

	// Notification flags
	runCmd.Flags().StringVar(&notifyFlag, "notify", getEnvString("SCRIPTSUITE_NOTIFY", ""), "Notification services: slack, teams (env: SCRIPTSUITE_NOTIFY)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("SCRIPTSUITE_NOTIFY_ON", ""), "When to notify: always, failure, success, recovery (env: SCRIPTSUITE_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
	runCmd.Flags().StringVar(&teamsWebhookFlag, "teams-webhook", getEnvString("TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: TEAMS_WEBHOOK)")

	registerRunCompletions()
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// session holds everything one invocation of run shares across suites and
// watch iterations.
type session struct {
	cmd        *cobra.Command
	cfg        *config.Config
	log        *slog.Logger
	engine     *runner.Engine
	vars       map[string]string
	envName    string
	files      []string
	scriptsDir string
	tags       []string

	format     string
	outputFile string
	verbose    bool
	noColor    bool

	store    *db.Store
	metrics  *metrics.PrometheusObserver
	notifier *notify.Manager
}

func runCommand(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)
	if verboseFlag > 1 {
		log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return exitf(ExitUsageError, "no suite files found")
	}

	s := &session{
		cmd:        cmd,
		cfg:        cfg,
		log:        log,
		files:      files,
		scriptsDir: firstNonEmpty(scriptsDirFlag, cfg.ScriptsDir),
		tags:       splitList(tagsFlag),
		verbose:    verboseFlag > 0 || cfg.GetVerbose(),
		noColor:    noColorFlag || cfg.GetNoColor(),
	}

	s.vars, s.envName, err = resolveVariables(cfg)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	s.format = outputFlag
	if s.format == "" && len(cfg.Reporters) > 0 {
		s.format = cfg.Reporters[0]
	}
	if s.format == "" {
		s.format = "console"
	}
	s.outputFile = outputFileFlag
	if s.outputFile == "" && cfg.OutputDir != "" && s.format != "console" {
		s.outputFile = filepath.Join(cfg.OutputDir, "scriptsuite-report."+reportExtension(s.format))
	}
	if _, err := output.New(s.format, io.Discard, false, true); err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if dryRunFlag {
		return s.dryRun()
	}

	scriptRunner, err := buildScriptRunner(cmd, cfg)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	if conn := firstNonEmpty(dbFlag, cfg.Database); conn != "" {
		store, err := db.Open(conn)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		defer store.Close()
		s.store = store
	}

	s.notifier, err = buildNotifier(cfg)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	ctx, cancel := context.WithCancel(baseContext(cmd))
	defer cancel()

	opts := []runner.Option{runner.WithLogger(log), runner.WithRetryDelay(retryDelay(cmd, cfg))}
	if metricsPortFlag > 0 || metricsFileFlag != "" {
		s.metrics = metrics.NewPrometheusObserver()
		opts = append(opts, runner.WithObserver(s.metrics))
		if metricsPortFlag > 0 {
			go func() {
				if err := s.metrics.Serve(ctx, fmt.Sprintf(":%d", metricsPortFlag), log); err != nil {
					log.Error("metrics server failed", "error", err)
				}
			}()
		}
	}
	if s.verbose && s.format != "console" {
		opts = append(opts, runner.WithObserver(output.NewProgressObserver(cmd.ErrOrStderr())))
	}
	s.engine = runner.NewEngine(scriptRunner, opts...)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nReceived interrupt, stopping...")
			s.engine.Stop()
			cancel()
		case <-ctx.Done():
		}
	}()

	code := s.runAll(ctx)

	if !watchFlag {
		if code != ExitSuccess {
			return exitf(code, "one or more suites did not pass")
		}
		return nil
	}

	return s.watch(ctx)
}

// runAll executes every suite file once and returns the worst exit code.
func (s *session) runAll(ctx context.Context) int {
	w := s.cmd.OutOrStdout()
	if s.outputFile != "" {
		if dir := filepath.Dir(s.outputFile); dir != "." {
			_ = os.MkdirAll(dir, 0755)
		}
		f, err := os.Create(s.outputFile)
		if err != nil {
			fmt.Fprintf(s.cmd.ErrOrStderr(), "Error: cannot create output file: %v\n", err)
			return ExitConfigError
		}
		defer f.Close()
		w = f
	}

	formatter, err := output.New(s.format, w, s.verbose, s.noColor)
	if err != nil {
		fmt.Fprintf(s.cmd.ErrOrStderr(), "Error: %v\n", err)
		return ExitUsageError
	}
	formatter.FormatHeader(version)

	code := ExitSuccess
	start := time.Now()
	for _, file := range s.files {
		if ctx.Err() != nil {
			break
		}
		code = max(code, s.runFile(ctx, file, formatter))
	}

	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(time.Since(start)); err != nil {
			fmt.Fprintf(s.cmd.ErrOrStderr(), "Error: writing output: %v\n", err)
		}
	}

	if s.metrics != nil && metricsFileFlag != "" {
		if err := s.metrics.WriteTextfile(metricsFileFlag); err != nil {
			s.log.Warn("failed to write metrics file", "path", metricsFileFlag, "error", err)
		}
	}

	return code
}

func (s *session) runFile(ctx context.Context, file string, formatter output.Formatter) int {
	st, library, err := loadSuite(file, s.scriptsDir)
	if err != nil {
		formatter.FormatError(err)
		return exitCode(err)
	}
	s.applyOverrides(st)
	filterByTags(st, s.tags)

	result, err := s.engine.Execute(ctx, st, library, s.vars)
	if result == nil {
		formatter.FormatError(err)
		return ExitRunnerError
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("suite aborted", "suite", st.Name, "error", err)
	}
	formatter.FormatResult(result)

	s.persist(result)
	s.sendNotification(result)

	return statusExitCode(result.Status)
}

func (s *session) persist(result *suite.ExecutionResult) {
	if s.store == nil {
		return
	}
	ctx := context.Background()
	if err := s.store.Save(ctx, result); err != nil {
		s.log.Warn("failed to store execution", "execution", result.ID, "error", err)
		return
	}
	if s.cfg.HistoryLimit > 0 {
		if _, err := s.store.Prune(ctx, result.SuiteID, s.cfg.HistoryLimit); err != nil {
			s.log.Warn("failed to prune history", "suite", result.SuiteID, "error", err)
		}
	}
}

func (s *session) sendNotification(result *suite.ExecutionResult) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, notify.SummaryFromResult(result, s.envName)); err != nil {
		fmt.Fprintf(s.cmd.ErrOrStderr(), "warning: failed to send notification: %v\n", err)
	}
}

// applyOverrides applies CLI flags, then config file values, on top of the
// suite configuration. Config file values only apply when they differ from
// the built-in defaults.
func (s *session) applyOverrides(st *suite.Suite) {
	flags := s.cmd.Flags()
	defaults := config.DefaultConfig()

	switch {
	case flags.Changed("timeout") && timeoutFlag > 0:
		st.Configuration.Timeout = timeoutFlag
	case s.cfg.Timeout > 0 && s.cfg.Timeout != defaults.Timeout:
		st.Configuration.Timeout = s.cfg.TimeoutDuration()
	}

	switch {
	case flags.Changed("retries") && retriesFlag >= 0:
		st.Configuration.RetryCount = retriesFlag
	case s.cfg.Retries > 0:
		st.Configuration.RetryCount = s.cfg.Retries
	}

	switch {
	case flags.Changed("stop-on-failure"):
		st.Configuration.StopOnFailure = stopOnFailureFlag
	case s.cfg.StopOnFailure != nil:
		st.Configuration.StopOnFailure = s.cfg.GetStopOnFailure()
	}
}

func (s *session) dryRun() error {
	out := s.cmd.OutOrStdout()
	code := ExitSuccess
	for _, file := range s.files {
		st, _, err := loadSuite(file, s.scriptsDir)
		if err != nil {
			fmt.Fprintf(s.cmd.ErrOrStderr(), "Error: %v\n", err)
			code = max(code, exitCode(err))
			continue
		}
		s.applyOverrides(st)
		filterByTags(st, s.tags)
		cases := st.EnabledTestCases()
		fmt.Fprintf(out, "Would run: %s (%s, %d test cases)\n", file, st.Name, len(cases))
		for _, tc := range cases {
			fmt.Fprintf(out, "  %d. %s [%s]\n", tc.Order, tc.DisplayName(), tc.Script)
		}
	}
	if code != ExitSuccess {
		return exitf(code, "one or more suites are invalid")
	}
	return nil
}

// resolveVariables merges, from lowest to highest precedence, prefixed
// process environment variables, the selected config environment, the
// .env file and --var flags.
func resolveVariables(cfg *config.Config) (map[string]string, string, error) {
	name := firstNonEmpty(envFlag, cfg.DefaultEnvironment)
	configVars, err := env.LoadEnvironment(cfg.Environments, name)
	if err != nil {
		return nil, "", err
	}

	var dotenv map[string]string
	if envFileFlag != "" {
		dotenv, err = env.LoadDotEnv(envFileFlag)
		if err != nil {
			return nil, "", err
		}
	}

	cliVars, err := parseVars(varFlags)
	if err != nil {
		return nil, "", err
	}

	merged := env.MergeVariables(env.LoadSystemEnv(env.SystemPrefix), configVars, dotenv, cliVars)

	// values may reference each other; builtins such as ${uuid()} are pinned
	// to one value for the whole run
	return env.NewResolver().ResolveAll(merged), name, nil
}

func buildScriptRunner(cmd *cobra.Command, cfg *config.Config) (scriptrunner.Runner, error) {
	var r scriptrunner.Runner
	if remote := firstNonEmpty(remoteFlag, cfg.Remote); remote != "" {
		var opts []scriptrunner.RemoteOption
		if remoteTokenFlag != "" {
			opts = append(opts, scriptrunner.WithHeader("Authorization", "Bearer "+remoteTokenFlag))
		}
		r = scriptrunner.NewRemoteRunner(remote, opts...)
	} else {
		r = scriptrunner.NewShellRunner(scriptrunner.WithShell(firstNonEmpty(shellFlag, cfg.Shell)))
	}

	rate := cfg.RateLimit
	if cmd.Flags().Changed("rate-limit") || rateLimitFlag > 0 {
		rate = rateLimitFlag
	}
	if rate < 0 {
		return nil, fmt.Errorf("rate limit must not be negative, got %v", rate)
	}
	if rate > 0 {
		r = scriptrunner.NewRateLimited(r, rate, 1)
	}
	return r, nil
}

func buildNotifier(cfg *config.Config) (*notify.Manager, error) {
	nc := cfg.Notify
	if nc == nil {
		nc = &config.NotifyConfig{}
	}

	services := splitList(notifyFlag)
	if len(services) == 0 {
		if nc.SlackWebhook != "" {
			services = append(services, "slack")
		}
		if nc.TeamsWebhook != "" {
			services = append(services, "teams")
		}
	}
	if len(services) == 0 {
		return nil, nil
	}

	var notifiers []notify.Notifier
	for _, service := range services {
		switch strings.ToLower(service) {
		case "slack":
			webhook := firstNonEmpty(slackWebhookFlag, nc.SlackWebhook)
			if webhook == "" {
				return nil, fmt.Errorf("--slack-webhook is required when using --notify slack")
			}
			var opts []notify.SlackOption
			if channel := firstNonEmpty(slackChannelFlag, nc.SlackChannel); channel != "" {
				opts = append(opts, notify.WithSlackChannel(channel))
			}
			notifiers = append(notifiers, notify.NewSlackNotifier(webhook, opts...))

		case "teams":
			webhook := firstNonEmpty(teamsWebhookFlag, nc.TeamsWebhook)
			if webhook == "" {
				return nil, fmt.Errorf("--teams-webhook is required when using --notify teams")
			}
			notifiers = append(notifiers, notify.NewTeamsNotifier(webhook))

		default:
			return nil, fmt.Errorf("unknown notification service %q (available: slack, teams)", service)
		}
	}

	return notify.NewManager(notify.ParseNotifyOn(firstNonEmpty(notifyOnFlag, nc.On)), notifiers...), nil
}

func retryDelay(cmd *cobra.Command, cfg *config.Config) time.Duration {
	if cmd.Flags().Changed("retry-delay") {
		return retryDelayFlag
	}
	if cfg.RetryDelay > 0 {
		return cfg.RetryDelayDuration()
	}
	return runner.DefaultRetryDelay
}

func statusExitCode(status suite.Status) int {
	switch status {
	case suite.StatusPassed, suite.StatusCompleted:
		return ExitSuccess
	case suite.StatusError:
		return ExitRunnerError
	}
	return ExitTestFailure
}

func reportExtension(format string) string {
	switch strings.ToLower(format) {
	case "junit":
		return "xml"
	case "tap":
		return "tap"
	case "html":
		return "html"
	}
	return "json"
}

func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
