package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/classify"
	"github.com/jonp69/DL-Homework-Garden/internal/download"
	"github.com/jonp69/DL-Homework-Garden/internal/gallerydl"
	"github.com/jonp69/DL-Homework-Garden/internal/ingest"
	"github.com/jonp69/DL-Homework-Garden/internal/models"
	"github.com/jonp69/DL-Homework-Garden/internal/repository"
	"github.com/jonp69/DL-Homework-Garden/internal/service"
	"github.com/jonp69/DL-Homework-Garden/internal/store"
	"github.com/jonp69/DL-Homework-Garden/pkg/config"
	"github.com/jonp69/DL-Homework-Garden/pkg/storage"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitDataError    = 3
)

func main() {
	app := &cli.App{
		Name:    "gardenctl",
		Usage:   "Classify and download gallery links against the file-backed store, no daemon required",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Data directory holding the store snapshots",
				EnvVars: []string{"DATA_DIR"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest link files (unmatched urls halt the batch)",
				ArgsUsage: "<file>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Re-ingest files already recorded as processed",
					},
				},
				Action: ingestFiles,
			},
			{
				Name:   "clipboard",
				Usage:  "Capture stdin as a clipboard batch and classify it",
				Action: ingestClipboard,
			},
			{
				Name:      "scan",
				Usage:     "Ingest every link file under a directory",
				ArgsUsage: "[dir]",
				Action:    scanDirectory,
			},
			{
				Name:   "resume",
				Usage:  "Re-run every halted batch",
				Action: resumeBatches,
			},
			{
				Name:  "links",
				Usage: "List links",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "status",
						Aliases: []string{"s"},
						Usage:   "Filter by lifecycle status",
					},
					&cli.StringFlag{
						Name:  "search",
						Usage: "Url substring",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   50,
						Usage:   "Maximum number of links to return",
					},
					&cli.IntFlag{
						Name:    "page",
						Aliases: []string{"p"},
						Value:   1,
						Usage:   "Page number",
					},
				},
				Action: listLinks,
			},
			{
				Name:   "filters",
				Usage:  "List the filter set in priority order",
				Action: listFilters,
			},
			{
				Name:   "stats",
				Usage:  "Show collection counts per status",
				Action: showStats,
			},
			{
				Name:   "review",
				Usage:  "List links parked by a limit decision",
				Action: listReview,
			},
			{
				Name:  "run",
				Usage: "Drain the download tiers once, answering limit prompts on the terminal",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "slots",
						Usage: "Concurrent download slots (defaults to QUEUE_SLOTS)",
					},
				},
				Action: runDownloads,
			},
			{
				Name:  "export",
				Usage: "Render a report of the collection",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Value: string(models.ExportLinks),
						Usage: "Report view: links, filters, review or summary",
					},
					&cli.StringFlag{
						Name:  "format",
						Value: string(models.ExportFormatCSV),
						Usage: "Output format: csv or pdf",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Value:   "./exports",
						Usage:   "Output directory",
					},
				},
				Action: exportReport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitGeneralError)
	}
}

// cancelAuthor halts batches at the first unmatched url. Filters are authored
// through the daemon API; a later resume picks the batch back up.
type cancelAuthor struct{}

func (cancelAuthor) RequestNewFilter(ctx context.Context, req classify.AuthorRequest) (classify.AuthorResponse, error) {
	fmt.Fprintf(os.Stderr, "no filter matches %s, batch halted\n", req.URL)
	return classify.AuthorResponse{Cancel: true}, nil
}

// terminalDecider answers limit prompts with a y/n question on stderr.
type terminalDecider struct {
	in *bufio.Reader
}

func (d *terminalDecider) Ask(ctx context.Context, prompt download.DecisionPrompt) (download.Decision, error) {
	fmt.Fprintf(os.Stderr, "\n%s crossed the %s limit of %g (items=%d elapsed=%s size=%.1fMB)\n",
		prompt.URL, prompt.Kind, prompt.Threshold, prompt.Items, prompt.Elapsed.Round(time.Second), prompt.SizeMB)
	fmt.Fprint(os.Stderr, "continue? [y/N] ")

	answer := make(chan string, 1)
	go func() {
		line, _ := d.in.ReadString('\n')
		answer <- strings.ToLower(strings.TrimSpace(line))
	}()

	select {
	case <-ctx.Done():
		return download.DecisionSkip, ctx.Err()
	case line := <-answer:
		if line == "y" || line == "yes" {
			return download.DecisionContinue, nil
		}
		return download.DecisionSkip, nil
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dir := c.String("data"); dir != "" {
		cfg.Store.DataDir = dir
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	snaps, err := repository.NewFileSnapshots(cfg.Store.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data directory: %w", err)
	}
	s := store.New(store.Config{Snapshots: snaps, Logger: zap.NewNop()})
	if err := s.Load(ctx); err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	return s, nil
}

func newIngestor(cfg *config.Config, s *store.Store) (*ingest.Ingestor, error) {
	classifier := classify.New(classify.Config{
		Store:       s,
		Author:      cancelAuthor{},
		TrimClosers: cfg.Ingest.TrimTrailingClosers,
		Logger:      zap.NewNop(),
	})
	captures, err := storage.NewLocalStorage(cfg.Ingest.LinkFilesDir)
	if err != nil {
		return nil, fmt.Errorf("open link files directory: %w", err)
	}
	return ingest.New(ingest.Config{Store: s, Classifier: classifier, Captures: captures, Logger: zap.NewNop()}), nil
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func ingestFiles(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: gardenctl ingest <file>...", ExitUsageError)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	s, err := openStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	ing, err := newIngestor(cfg, s)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}

	reports := make([]ingest.Report, 0, c.NArg())
	for i := 0; i < c.NArg(); i++ {
		report, err := ing.ProcessFile(c.Context, c.Args().Get(i), c.Bool("force"))
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to ingest %s: %v", c.Args().Get(i), err), ExitDataError)
		}
		reports = append(reports, report)
	}

	return outputJSON(map[string]interface{}{
		"files":   len(reports),
		"reports": reports,
	})
}

func ingestClipboard(c *cli.Context) error {
	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to read stdin: %v", err), ExitDataError)
	}
	if len(content) == 0 {
		return cli.Exit("Usage: gardenctl clipboard < pasted.txt", ExitUsageError)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	s, err := openStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	ing, err := newIngestor(cfg, s)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}

	report, err := ing.ProcessClipboard(c.Context, string(content))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to ingest clipboard: %v", err), ExitDataError)
	}
	return outputJSON(report)
}

func scanDirectory(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	dir := cfg.Ingest.LinkFilesDir
	if c.NArg() > 0 {
		dir = c.Args().Get(0)
	}

	s, err := openStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	ing, err := newIngestor(cfg, s)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}

	reports, err := ing.ScanDirectory(c.Context, dir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to scan %s: %v", dir, err), ExitDataError)
	}
	return outputJSON(map[string]interface{}{
		"dir":     dir,
		"files":   len(reports),
		"reports": reports,
	})
}

func resumeBatches(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	s, err := openStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	ing, err := newIngestor(cfg, s)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}

	reports, err := ing.ResumeHalted(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to resume: %v", err), ExitDataError)
	}
	return outputJSON(map[string]interface{}{
		"resumed": len(reports),
		"reports": reports,
	})
}

func listLinks(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	s, err := openStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}

	query := models.LinkQuery{
		Search:   c.String("search"),
		Page:     c.Int("page"),
		PageSize: c.Int("limit"),
	}
	if raw := c.String("status"); raw != "" {
		status := models.LinkStatus(raw)
		if !status.Valid() {
			return cli.Exit(fmt.Sprintf("Unknown status %q", raw), ExitUsageError)
		}
		query.Status = status
	}

	links, total := s.List(query)
	return outputJSON(map[string]interface{}{
		"count": len(links),
		"total": total,
		"page":  query.Page,
		"links": links,
	})
}

func listFilters(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	s, err := openStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}

	return outputJSON(s.Filters())
}

func showStats(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	s, err := openStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}

	return outputJSON(s.Stats())
}

func listReview(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	s, err := openStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}

	links := s.LinksByStatus(models.StatusToSkipLimit)
	return outputJSON(map[string]interface{}{
		"count": len(links),
		"links": links,
	})
}

func runDownloads(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	s, err := openStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}

	slots := cfg.Queue.Slots
	if c.Int("slots") > 0 {
		slots = c.Int("slots")
	}

	executor := gallerydl.New(gallerydl.Config{
		Bin:       cfg.Download.Bin,
		ExtraArgs: cfg.Download.ExtraArgs,
		TargetDir: cfg.Download.TargetDir,
		Logger:    zap.NewNop(),
	})
	runner := download.NewRunner(download.Config{
		Store:    s,
		Executor: executor,
		Decider:  &terminalDecider{in: bufio.NewReader(os.Stdin)},
		Limits: download.Limits{
			MaxItems:  cfg.Limits.MaxItems,
			MaxTime:   cfg.Limits.MaxTime,
			MaxSizeMB: cfg.Limits.MaxSizeMB,
		},
		Slots:       slots,
		MaxAttempts: cfg.Queue.MaxRetries,
		Logger:      zap.NewNop(),
	})

	if err := runner.Start(); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to start: %v", err), ExitDataError)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-interrupt:
			fmt.Fprintln(os.Stderr, "interrupted, returning in-flight links to their tier")
			if err := runner.Stop(); err != nil {
				return cli.Exit(fmt.Sprintf("Failed to stop: %v", err), ExitGeneralError)
			}
			return outputJSON(runner.Status().Totals)
		case <-ticker.C:
			if runner.Status().State == download.StateIdle {
				return outputJSON(runner.Status().Totals)
			}
		}
	}
}

func exportReport(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	s, err := openStore(c.Context, cfg)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}

	files, err := storage.NewLocalStorage(c.String("out"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to open output directory: %v", err), ExitDataError)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exports := service.NewExportService(s, files, signer, service.ExportConfig{}, nil, zap.NewNop())

	result, err := exports.Generate(c.Context, service.ExportRequest{
		Kind:   c.String("kind"),
		Format: c.String("format"),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to export: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"file":   files.Path(result.RelativePath),
		"kind":   result.Kind,
		"format": result.Format,
	})
}
