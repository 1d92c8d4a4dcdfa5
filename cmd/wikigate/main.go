package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/wikigate/internal/auth"
	"github.com/mattjoyce/wikigate/internal/bus"
	"github.com/mattjoyce/wikigate/internal/config"
	"github.com/mattjoyce/wikigate/internal/docstore"
	"github.com/mattjoyce/wikigate/internal/doctor"
	"github.com/mattjoyce/wikigate/internal/history"
	"github.com/mattjoyce/wikigate/internal/lock"
	"github.com/mattjoyce/wikigate/internal/log"
	"github.com/mattjoyce/wikigate/internal/monitor"
	"github.com/mattjoyce/wikigate/internal/page"
	"github.com/mattjoyce/wikigate/internal/policy"
	"github.com/mattjoyce/wikigate/internal/results"
	"github.com/mattjoyce/wikigate/internal/runner"
	"github.com/mattjoyce/wikigate/internal/search"
	"github.com/mattjoyce/wikigate/internal/testsystem"
	"github.com/mattjoyce/wikigate/internal/tui/watch"
	"github.com/mattjoyce/wikigate/internal/web"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	if cmd == "--version" {
		return runVersion(args)
	}

	switch cmd {
	case "start":
		return runStart(args)
	case "doctor":
		return runDoctor(args)
	case "monitor":
		return runMonitor(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("wikigate starting", "version", version, "port", cfg.Port, "root", cfg.RootDir())

	pidLock, err := lock.Acquire(cfg.LockFile)
	if err != nil {
		logger.Error("failed to acquire instance lock", "path", cfg.LockFile, "error", err)
		return 1
	}
	defer pidLock.Release()

	if err := os.MkdirAll(cfg.RootDir(), 0o755); err != nil {
		logger.Error("failed to create wiki root", "path", cfg.RootDir(), "error", err)
		return 1
	}

	commitCfg := docstore.CommitConfig{
		CommitterName:  cfg.CommitterName,
		CommitterEmail: cfg.CommitterEmail,
	}
	store, err := docstore.NewGitStore(cfg.RootDir(), docstore.ParseMergeStrategy(cfg.MergeStrategy), commitCfg)
	if err != nil {
		logger.Error("failed to open page store", "path", cfg.RootDir(), "error", err)
		return 1
	}
	logger.Info("page store opened", "strategy", cfg.MergeStrategy)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	index, err := results.Open(ctx, cfg.ResultsDB)
	if err != nil {
		logger.Error("failed to open results index", "path", cfg.ResultsDB, "error", err)
		return 1
	}
	defer index.Close()

	mon := monitor.New(monitor.DefaultCapacity)

	generalPool := bus.NewPool(max(4, runtime.NumCPU()), 1024)
	defer generalPool.Close()
	testPool := bus.NewPool(cfg.TestPoolSize, cfg.TestMaxQueue+cfg.TestPoolSize)
	defer testPool.Close()

	b := bus.New(generalPool)
	page.NewHandlers(store, index).Register(b)

	command := cfg.TestSystemCommand
	if len(command) == 0 && cfg.TestSystemsDir != "" && cfg.TestSystem != "" {
		reg, err := testsystem.Discover(cfg.TestSystemsDir, func(level, msg string, args ...any) {
			switch level {
			case "warn":
				logger.Warn(msg, args...)
			default:
				logger.Info(msg, args...)
			}
		})
		if err != nil {
			logger.Error("test system discovery failed", "dir", cfg.TestSystemsDir, "error", err)
			return 1
		}
		ts, ok := reg.Get(cfg.TestSystem)
		if !ok {
			logger.Error("configured test system not found", "name", cfg.TestSystem, "dir", cfg.TestSystemsDir)
			return 1
		}
		command = ts.Command
	}

	run := runner.New(command, cfg.TestHistoryDir, mon)
	runner.NewService(run, store, index).Register(b, testPool, mon, cfg.TestMaxQueue)

	var authn auth.Authenticator = auth.AllowAll{}
	if len(cfg.Users) > 0 {
		users := make([]auth.User, 0, len(cfg.Users))
		for _, u := range cfg.Users {
			users = append(users, auth.User{Name: u.Name, Email: u.Email, Password: u.Password})
		}
		authn = auth.NewBasic(users)
	}

	srv := web.New(web.Options{
		Listen:         fmt.Sprintf(":%d", cfg.Port),
		Bus:            b,
		Monitor:        mon,
		Policy:         policy.NewResolver(cfg.RootDir()),
		Auth:           authn,
		History:        history.New(store, commitCfg, cfg.HistoryCacheTTL),
		Search:         search.New(store, cfg.SearchCacheTTL),
		RequestTimeout: cfg.RequestTimeout,
		IdleTimeout:    cfg.IdleTimeout,
	})

	if err := srv.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("server stopped", "error", err)
		return 1
	}
	logger.Info("wikigate stopped")
	return 0
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML configuration file")
	jsonOut := fs.Bool("json", false, "Output the report as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	report := doctor.New(cfg).Validate()

	if *jsonOut {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	} else {
		for _, issue := range report.Errors {
			fmt.Printf("ERROR [%s] %s", issue.Category, issue.Message)
			if issue.Field != "" {
				fmt.Printf(" (%s)", issue.Field)
			}
			fmt.Println()
		}
		for _, issue := range report.Warnings {
			fmt.Printf("WARN  [%s] %s\n", issue.Category, issue.Message)
		}
		if report.Valid {
			fmt.Println("OK: installation looks healthy")
		}
	}

	if !report.Valid {
		return 1
	}
	return 0
}

func runMonitor(args []string) int {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Server base URL")
	interval := fs.Duration("interval", 2*time.Second, "Poll interval")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	m := watch.New(strings.TrimRight(*url, "/"), *interval)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("wikigate %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: strings.TrimSpace(buildDate),
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = readBuildSetting("vcs.revision")
	}
	if commit != "" && commit != "unknown" {
		if len(commit) > 12 {
			commit = commit[:12]
		}
		info.Commit = commit
	}
	if info.BuildTime == "" || info.BuildTime == "unknown" {
		if t := readBuildSetting("vcs.time"); t != "" {
			info.BuildTime = t
		} else {
			info.BuildTime = "unknown"
		}
	}
	return info
}

func readBuildSetting(key string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

func printUsage() {
	fmt.Print(`wikigate - git-backed acceptance-test wiki server

Usage:
  wikigate <command> [flags]

Commands:
  start      Start the wiki server in foreground
  doctor     Validate the installation and configuration
  monitor    Real-time run-monitor TUI
  version    Show version information
  help       Show this help

Start flags:
  --config PATH    YAML configuration file (FITNESSE_* env vars apply first)

Doctor flags:
  --config PATH    YAML configuration file
  --json           Output the report as JSON

Monitor flags:
  --url URL        Server base URL (default: http://localhost:8080)
  --interval DUR   Poll interval (default: 2s)
`)
}
