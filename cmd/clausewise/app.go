package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clausewise/internal/agent"
	"clausewise/internal/config"
	"clausewise/internal/kb"
	"clausewise/internal/llm"
	"clausewise/internal/logging"
	"clausewise/internal/review"
	"clausewise/internal/skills"
	"clausewise/internal/tools"
)

// app wires one review session together: configuration, model client,
// ledger, tool registry, skills and the reviewer.
type app struct {
	cfg      config.Config
	ws       string
	led      *review.Ledger
	registry *tools.Registry
	reviewer *agent.Reviewer
	loader   *skills.Loader
	watcher  *skills.Watcher
}

// newApp builds the session. The skill watcher is started; the caller must
// call close on shutdown.
func newApp(ctx context.Context) (*app, error) {
	ws := workspace
	if ws == "" {
		var err error
		ws, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(ws)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Logging.DebugMode = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cats := make(map[string]bool, len(cfg.Logging.Categories))
	for _, c := range cfg.Logging.Categories {
		cats[c] = true
	}
	if err := logging.Initialize(ws, cfg.Logging.DebugMode, cats); err != nil {
		return nil, err
	}

	client, err := llm.New(cfg.LLM.Provider, llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout(),
	})
	if err != nil {
		return nil, err
	}

	led := review.NewLedger()

	registry := tools.NewRegistry()
	registry.MustRegister(review.NewManageIssuesTool(led))
	registry.MustRegister(kb.NewRagQueryTool(kb.NewClient(cfg.KB.APIKey, cfg.KB.IndexID, cfg.KB.BaseURL)))

	skillsDir := cfg.Skills.Dir
	if !filepath.IsAbs(skillsDir) {
		skillsDir = filepath.Join(ws, skillsDir)
	}
	loader := skills.NewLoader(skillsDir)
	loader.LoadAll()

	var semantic skills.SemanticMatcher
	if cfg.Skills.EmbeddingAPIKey != "" {
		if em, err := skills.NewEmbeddingMatcher(cfg.Skills.EmbeddingAPIKey, cfg.Skills.EmbeddingModel); err == nil {
			semantic = em
		} else {
			logging.Debugf(logging.CategorySkills, "embedding matcher disabled: %v", err)
		}
	}
	matcher := skills.NewMatcher(loader, semantic)

	var watcher *skills.Watcher
	if cfg.Skills.Watch {
		watcher, err = skills.NewWatcher(loader, nil)
		if err == nil {
			_ = watcher.Start(ctx)
		}
	}

	reviewer := agent.NewReviewer(client, registry, led, cfg.Agent.MaxSteps, agent.ReviewerOptions{
		EnablePlanner:   cfg.Agent.ShowPlan,
		EnableReflector: cfg.Agent.ShowReflection,
		Matcher:         matcher,
	})

	return &app{
		cfg:      cfg,
		ws:       ws,
		led:      led,
		registry: registry,
		reviewer: reviewer,
		loader:   loader,
		watcher:  watcher,
	}, nil
}

// reportsDir resolves the report output directory.
func (a *app) reportsDir() string {
	dir := a.cfg.Paths.ReportsDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(a.ws, dir)
	}
	return dir
}

// logsDir resolves the session-log output directory.
func (a *app) logsDir() string {
	dir := a.cfg.Paths.LogsDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(a.ws, dir)
	}
	return dir
}

// saveSessionLog writes the transcript if there is anything in it.
func (a *app) saveSessionLog() (string, error) {
	if a.reviewer.Recorder().Len() == 0 {
		return "", nil
	}
	return a.reviewer.Recorder().Save(a.logsDir(), a.led.ContractName())
}

// close releases background resources.
func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	logging.Close()
}

// runReview implements the non-interactive review subcommand: load,
// auto-review every section with streaming output, export the report.
func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := review.LoadContract(a.led, args[0])
	if err != nil {
		return err
	}
	fmt.Println(summary)
	logger.Info("contract loaded",
		zap.String("file", args[0]),
		zap.Int("sections", a.led.TotalSections()))

	err = a.reviewer.AutoReview(ctx,
		func(index, total int, title string) {
			fmt.Printf("\n%s\n正在审核: [%d/%d] %s\n%s\n", divider, index+1, total, title, divider)
		},
		func(text string) error {
			fmt.Print(text)
			return nil
		},
		func(name string, res *tools.Result) {
			if a.cfg.Agent.ShowToolLog {
				fmt.Fprintf(os.Stderr, "\n[tool] %s (%dms, ok=%v)\n", name, res.DurationMs, res.IsSuccess())
			}
		},
	)
	if err != nil {
		return err
	}

	fmt.Printf("\n\n%s\n自动审核完成！共审核 %d 个章节，发现 %d 个问题点\n%s\n",
		divider, a.led.TotalSections(), a.led.TotalIssues(), divider)

	path, err := review.WriteReport(a.led, a.reportsDir())
	if err != nil {
		return err
	}
	fmt.Printf("审核报告已导出到：%s\n", path)
	logger.Info("report exported", zap.String("path", path))

	if logPath, err := a.saveSessionLog(); err == nil && logPath != "" {
		fmt.Printf("会话日志已保存到：%s\n", logPath)
	}
	return nil
}

const divider = "============================================================"
