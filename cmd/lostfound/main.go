// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/lostfound"
	"github.com/poiesic/lostfound/core"
	"github.com/poiesic/lostfound/match"
	"github.com/poiesic/lostfound/metrics"
	"github.com/poiesic/lostfound/notify"
	"github.com/poiesic/lostfound/rematch"
	"github.com/poiesic/lostfound/storage/postgres"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "lostfound",
		Usage: "Lost and found registry with automatic matching",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				EnvVars: []string{"LOSTFOUND_DB"},
			},
			&cli.StringFlag{
				Name:    "postgres-url",
				Usage:   "PostgreSQL connection string; used instead of --db when set",
				EnvVars: []string{"LOSTFOUND_POSTGRES_URL"},
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL for match notifications",
				EnvVars: []string{"LOSTFOUND_NATS_URL"},
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address, e.g. :9090",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:  "report",
				Usage: "Submit a lost or found report and show its matches",
				Subcommands: []*cli.Command{
					{
						Name:   "lost",
						Usage:  "Report something lost",
						Flags:  reportFlags(),
						Action: reportCommand(core.KindLost),
					},
					{
						Name:   "found",
						Usage:  "Report something found",
						Flags:  reportFlags(),
						Action: reportCommand(core.KindFound),
					},
				},
			},
			{
				Name:      "resolve",
				Usage:     "Mark a report as resolved",
				ArgsUsage: "<id>",
				Action:    resolveCommand,
			},
			{
				Name:      "matches",
				Usage:     "Match an existing report against the current open reports",
				ArgsUsage: "<id>",
				Action:    matchesCommand,
			},
			{
				Name:   "list",
				Usage:  "List reports of one kind and status",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "kind",
						Aliases:  []string{"k"},
						Usage:    "Report kind (lost, found)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Report status (open, resolved)",
						Value: "open",
					},
				},
			},
			{
				Name:   "recent",
				Usage:  "Show the newest lost and found reports",
				Action: recentCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of reports of each kind",
						Value: 3,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search titles, descriptions, locations and categories",
				ArgsUsage: "<query>",
				Action:    searchCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show report counts",
				Action: statsCommand,
			},
			{
				Name:   "rematch",
				Usage:  "Re-run matching for every open report",
				Action: rematchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "kind",
						Aliases: []string{"k"},
						Usage:   "Only sweep reports of this kind (lost, found)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of reports to match in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N reports",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of reports matched concurrently",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for repository reads",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 500 * time.Millisecond,
					},
				},
			},
			{
				Name:      "import",
				Usage:     "Submit reports from a JSON lines file (- for stdin)",
				ArgsUsage: "<file>",
				Action:    importCommand,
			},
		},
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Item or person name", Required: true},
		&cli.StringFlag{Name: "description", Usage: "Free text description"},
		&cli.StringFlag{Name: "category", Usage: "Category, e.g. Electronics or Missing Person"},
		&cli.StringFlag{Name: "location", Usage: "Where it was lost or found"},
		&cli.StringFlag{Name: "contact-name", Usage: "Contact name"},
		&cli.StringFlag{Name: "contact-phone", Usage: "Contact phone number"},
		&cli.StringFlag{Name: "age", Usage: "Age, for person reports"},
		&cli.StringFlag{Name: "gender", Usage: "Gender, for person reports"},
		&cli.StringFlag{Name: "height", Usage: "Height, for person reports"},
		&cli.StringFlag{Name: "image", Usage: "Reference to an uploaded image"},
	}
}

// openRegistry opens the registry selected by the global flags.
func openRegistry(c *cli.Context) (*lostfound.Registry, func(), error) {
	logger := slog.Default()
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	opts := []lostfound.RegistryOption{lostfound.WithLogger(logger)}

	if url := c.String("nats-url"); url != "" {
		cfg := notify.DefaultNATSConfig()
		cfg.URL = url
		nc, err := notify.Connect(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { nc.Drain() })

		notifier, err := notify.NewNATSNotifier(nc, notify.WithLogger(logger))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, lostfound.WithNotifier(notifier))
	}

	if addr := c.String("metrics-addr"); addr != "" {
		collectors, err := metrics.NewCollectors(prometheus.DefaultRegisterer)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, lostfound.WithMatchOptions(match.WithMonitor(collectors.Monitor())))

		server := &http.Server{Addr: addr, Handler: metrics.Handler(prometheus.DefaultGatherer)}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", addr, "err", err)
			}
		}()
		cleanups = append(cleanups, func() { server.Close() })
	}

	var (
		registry *lostfound.Registry
		err      error
	)
	if url := c.String("postgres-url"); url != "" {
		var repo *postgres.Repository
		repo, err = postgres.Open(c.Context, url)
		if err == nil {
			registry, err = lostfound.NewRegistryWithRepository(repo, opts...)
			if err != nil {
				repo.Close()
			}
		}
	} else {
		dbPath := c.String("db")
		if dbPath == "" {
			cleanup()
			return nil, nil, fmt.Errorf("database path is required (--db or --postgres-url)")
		}
		registry, err = lostfound.NewRegistry(dbPath, opts...)
	}
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open registry: %w", err)
	}

	return registry, func() {
		registry.Close()
		cleanup()
	}, nil
}

func reportCommand(kind core.Kind) cli.ActionFunc {
	return func(c *cli.Context) error {
		registry, closeAll, err := openRegistry(c)
		if err != nil {
			return err
		}
		defer closeAll()

		report := &core.Report{
			Kind:         kind,
			Title:        c.String("title"),
			Description:  c.String("description"),
			Category:     c.String("category"),
			Location:     c.String("location"),
			ContactName:  c.String("contact-name"),
			ContactPhone: c.String("contact-phone"),
			Age:          c.String("age"),
			Gender:       c.String("gender"),
			Height:       c.String("height"),
			ImageFile:    c.String("image"),
		}

		sub, err := registry.Submit(c.Context, report)
		if err != nil {
			return err
		}

		w := c.App.Writer
		fmt.Fprintf(w, "Reported %s #%d: %s\n", sub.Report.Kind, sub.Report.Id, sub.Report.Title)
		printMatches(w, sub)
		return nil
	}
}

func resolveCommand(c *cli.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	registry, closeAll, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer closeAll()

	report, err := registry.Resolve(c.Context, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Resolved %s #%d: %s\n", report.Kind, report.Id, report.Title)
	return nil
}

func matchesCommand(c *cli.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	registry, closeAll, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer closeAll()

	sub, err := registry.MatchesFor(c.Context, id)
	if err != nil {
		return err
	}
	printMatches(c.App.Writer, sub)
	return nil
}

func listCommand(c *cli.Context) error {
	kind, err := core.ParseKind(c.String("kind"))
	if err != nil {
		return err
	}
	status, err := core.ParseStatus(c.String("status"))
	if err != nil {
		return err
	}

	registry, closeAll, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer closeAll()

	reports, err := registry.Repository().ListReports(c.Context, kind, status)
	if err != nil {
		return err
	}
	for _, report := range reports {
		printReport(c.App.Writer, report)
	}
	return nil
}

func recentCommand(c *cli.Context) error {
	registry, closeAll, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer closeAll()

	overview, err := registry.Recent(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintln(w, "Recently lost:")
	for _, report := range overview.Lost {
		printReport(w, report)
	}
	fmt.Fprintln(w, "Recently found:")
	for _, report := range overview.Found {
		printReport(w, report)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	registry, closeAll, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer closeAll()

	dash, err := registry.Dashboard(c.Context, strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}
	for _, report := range dash.Reports {
		printReport(c.App.Writer, report)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	registry, closeAll, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer closeAll()

	stats, err := registry.Repository().Stats(c.Context)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Open lost:  %d\n", stats.OpenLost)
	fmt.Fprintf(w, "Open found: %d\n", stats.OpenFound)
	fmt.Fprintf(w, "Resolved:   %d\n", stats.Resolved)
	for _, location := range slices.Sorted(maps.Keys(stats.ByLocation)) {
		name := location
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(w, "  %s: %d\n", name, stats.ByLocation[location])
	}
	return nil
}

func rematchCommand(c *cli.Context) error {
	var kinds []core.Kind
	if k := c.String("kind"); k != "" {
		kind, err := core.ParseKind(k)
		if err != nil {
			return err
		}
		kinds = append(kinds, kind)
	}

	config := &rematch.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		Workers:        c.Int("workers"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	registry, closeAll, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer closeAll()

	sweeper, err := registry.NewSweeper(config, c.App.ErrWriter)
	if err != nil {
		return err
	}

	w := c.App.Writer
	summary, err := sweeper.Run(c.Context, func(result rematch.Result) error {
		if len(result.Matches) == 0 {
			return nil
		}
		fmt.Fprintf(w, "%s #%d %s:\n", result.Report.Kind, result.Report.Id, result.Report.Title)
		for _, m := range result.Matches {
			fmt.Fprintf(w, "  #%d %6.2f%%\n", m.Candidate, m.Score)
		}
		return nil
	}, kinds...)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Swept %d reports: %d with matches, %d matches total\n",
		summary.Reports, summary.WithMatches, summary.Matches)
	return nil
}

// importRecord is one line of an import file.
type importRecord struct {
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Location     string `json:"location"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	Age          string `json:"age"`
	Gender       string `json:"gender"`
	Height       string `json:"height"`
	ImageFile    string `json:"image_file"`
}

func (r importRecord) report() (*core.Report, error) {
	kind, err := core.ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}
	return &core.Report{
		Kind:         kind,
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Location:     r.Location,
		ContactName:  r.ContactName,
		ContactPhone: r.ContactPhone,
		Age:          r.Age,
		Gender:       r.Gender,
		Height:       r.Height,
		ImageFile:    r.ImageFile,
	}, nil
}

func importCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("import file is required")
	}

	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	registry, closeAll, err := openRegistry(c)
	if err != nil {
		return err
	}
	defer closeAll()

	imported, matched, err := importReports(c.Context, registry, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Imported %d reports, %d with matches\n", imported, matched)
	return nil
}

// importReports submits one report per non-blank line of in.
func importReports(ctx context.Context, registry *lostfound.Registry, in io.Reader) (int, int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	imported, matched, line := 0, 0, 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var record importRecord
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return imported, matched, fmt.Errorf("line %d: %w", line, err)
		}
		report, err := record.report()
		if err != nil {
			return imported, matched, fmt.Errorf("line %d: %w", line, err)
		}

		sub, err := registry.Submit(ctx, report)
		if err != nil {
			return imported, matched, fmt.Errorf("line %d: %w", line, err)
		}
		imported++
		if len(sub.Matches) > 0 {
			matched++
		}
	}
	return imported, matched, scanner.Err()
}

func parseID(c *cli.Context) (core.ID, error) {
	arg := c.Args().First()
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid report id %q", arg)
	}
	return core.ID(id), nil
}

func printReport(w io.Writer, report *core.Report) {
	fmt.Fprintf(w, "#%d [%s/%s] %s", report.Id, report.Kind, report.Status, report.Title)
	if report.Location != "" {
		fmt.Fprintf(w, " @ %s", report.Location)
	}
	fmt.Fprintf(w, " (%s)\n", report.ReportedAt.Local().Format(time.DateTime))
}

func printMatches(w io.Writer, sub *lostfound.Submission) {
	if len(sub.Matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return
	}
	fmt.Fprintf(w, "%d possible matches:\n", len(sub.Matches))
	for _, m := range sub.Matches {
		title := ""
		if m.Report != nil {
			title = m.Report.Title
		}
		fmt.Fprintf(w, "  #%d %6.2f%% %s\n", m.Candidate, m.Score, title)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
