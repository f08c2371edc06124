package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/dashboard"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/inference"
	"github.com/dvloznov/finance-dashboard/internal/ledger"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/notionsync"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "summary":
		runSummary(log, cfg)
	case "aggregate":
		runAggregate(log, cfg)
	case "anomalies":
		runAnomalies(log, cfg)
	case "forecast":
		runForecast(log, cfg)
	case "dashboard":
		runDashboard(log, cfg)
	case "ask":
		runAsk(log, cfg)
	case "chat":
		runChat(log, cfg)
	case "models":
		runModels(log, cfg)
	case "publish":
		runPublish(log, cfg)
	case "upload":
		runUpload(log, cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Dashboard CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  summary    Show KPIs, variations, alerts and insights")
	fmt.Println("  aggregate  Show per-period, per-category totals")
	fmt.Println("  anomalies  Detect unusual spending")
	fmt.Println("  forecast   Project the balance, flow or expenses forward")
	fmt.Println("  dashboard  Show every dashboard section")
	fmt.Println("  ask        Ask the assistant one question about the data")
	fmt.Println("  chat       Start an interactive assistant session")
	fmt.Println("  models     List the models available on the Ollama server")
	fmt.Println("  publish    Publish monthly summaries to Notion")
	fmt.Println("  upload     Validate a CSV and upload it to GCS")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
	fmt.Println("\nConfiguration is read from FINDASH_* environment variables and .env.")
}

// viewFlags are the filter and state flags shared by the analytics commands.
type viewFlags struct {
	source     *string
	from       *string
	to         *string
	categories *string
	kinds      *string
	classes    *string
	search     *string
	paid       *string
	bucket     *string
}

func addViewFlags(fs *flag.FlagSet, cfg *config.Config) *viewFlags {
	return &viewFlags{
		source:     fs.String("source", cfg.Data.Source, "Ledger source: file path, gs://bucket/object or bq://project.dataset.table"),
		from:       fs.String("from", "", "Start date (YYYY-MM-DD), inclusive"),
		to:         fs.String("to", "", "End date (YYYY-MM-DD), inclusive"),
		categories: fs.String("category", "", "Comma-separated categories"),
		kinds:      fs.String("kind", "", "Comma-separated kinds: income, expense, debt"),
		classes:    fs.String("cost-class", "", "Comma-separated cost classes: fixed, variable"),
		search:     fs.String("search", "", "Case-insensitive description substring"),
		paid:       fs.String("paid", "", "Restrict to paid (yes) or unpaid (no) transactions"),
		bucket:     fs.String("bucket", cfg.Aggregation.Bucket, "Time bucket: day, week or month"),
	}
}

func (v *viewFlags) filter() (ledger.Filter, error) {
	var f ledger.Filter
	var err error

	if *v.from != "" {
		if f.From, err = civil.ParseDate(*v.from); err != nil {
			return f, fmt.Errorf("invalid -from %q: %w", *v.from, err)
		}
	}
	if *v.to != "" {
		if f.To, err = civil.ParseDate(*v.to); err != nil {
			return f, fmt.Errorf("invalid -to %q: %w", *v.to, err)
		}
	}
	f.Categories = splitList(*v.categories)
	for _, k := range splitList(*v.kinds) {
		kind, ok := domain.ParseKind(k)
		if !ok {
			return f, fmt.Errorf("invalid -kind %q", k)
		}
		f.Kinds = append(f.Kinds, kind)
	}
	for _, c := range splitList(*v.classes) {
		f.CostClasses = append(f.CostClasses, domain.ParseCostClass(c))
	}
	f.Search = *v.search

	switch strings.ToLower(*v.paid) {
	case "":
	case "yes", "true":
		paid := true
		f.Paid = &paid
	case "no", "false":
		paid := false
		f.Paid = &paid
	default:
		return f, fmt.Errorf("invalid -paid %q: use yes or no", *v.paid)
	}

	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadView validates the configuration, loads the ledger and resolves the
// dashboard state from the flags.
func loadView(ctx context.Context, log zerolog.Logger, cfg *config.Config, v *viewFlags) (*ledger.Store, dashboard.State) {
	cfg.Data.Source = *v.source
	cfg.Aggregation.Bucket = *v.bucket
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	f, err := v.filter()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid filter")
	}

	src, err := ledger.SourceFromURI(cfg.Data.Source)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid data source")
	}

	store := ledger.NewStore(src, log)
	l, err := store.Reload(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("source", src.Name()).Msg("Failed to load ledger")
	}
	log.Info().Str("source", l.Source()).Int("transactions", l.Len()).Msg("Ledger loaded")

	state := cfg.DashboardState()
	state.Filter = f
	return store, state
}

func commandContext(log zerolog.Logger, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return logger.WithContext(ctx, log), cancel
}

func buildView(ctx context.Context, log zerolog.Logger, cfg *config.Config, v *viewFlags) (*dashboard.View, *ledger.Store) {
	store, state := loadView(ctx, log, cfg, v)
	l, _ := store.Current()
	return dashboard.Build(l, state, cfg.DashboardConfig()), store
}

func runSummary(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	vf := addViewFlags(fs, cfg)
	fs.Parse(os.Args[2:])

	ctx, cancel := commandContext(log, 2*time.Minute)
	defer cancel()

	view, _ := buildView(ctx, log, cfg, vf)
	out := os.Stdout
	printKPIs(out, view.KPIs)
	printVariations(out, view.IncomeVariation, view.ExpenseVariation, view.Trend)
	printAlerts(out, view.Alerts)
	printInsights(out, view.Insights)
}

func runAggregate(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("aggregate", flag.ExitOnError)
	vf := addViewFlags(fs, cfg)
	breakdown := fs.Bool("breakdown", false, "Show the category / cost-class breakdown instead")
	fs.Parse(os.Args[2:])

	ctx, cancel := commandContext(log, 2*time.Minute)
	defer cancel()

	view, _ := buildView(ctx, log, cfg, vf)
	if *breakdown {
		printBreakdown(os.Stdout, view.Breakdown)
		printRanking(os.Stdout, view.Ranking)
		return
	}
	printAggregates(os.Stdout, view.Aggregates)
}

func runAnomalies(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("anomalies", flag.ExitOnError)
	vf := addViewFlags(fs, cfg)
	sensitivity := fs.Float64("sensitivity", cfg.Detector.Sensitivity, "Standard deviations above the mean that count as anomalous")
	minHistory := fs.Int("min-history", cfg.Detector.MinHistory, "Minimum earlier periods per category")
	fs.Parse(os.Args[2:])

	cfg.Detector.Sensitivity = *sensitivity
	cfg.Detector.MinHistory = *minHistory

	ctx, cancel := commandContext(log, 2*time.Minute)
	defer cancel()

	view, _ := buildView(ctx, log, cfg, vf)
	printAnomalies(os.Stdout, view.Anomalies)
	printOutliers(os.Stdout, view.Outliers)
}

func runForecast(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("forecast", flag.ExitOnError)
	vf := addViewFlags(fs, cfg)
	horizon := fs.Int("horizon", cfg.Projection.Horizon, "Number of periods to project")
	target := fs.String("target", cfg.Projection.Target, "Series to project: balance, flow or expense")
	method := fs.String("method", cfg.Projection.Method, "Projection method: linear or moving_average")
	confidence := fs.Float64("confidence", cfg.Projection.Confidence, "Confidence level of the band")
	fs.Parse(os.Args[2:])

	cfg.Projection.Horizon = *horizon
	cfg.Projection.Target = *target
	cfg.Projection.Method = *method
	cfg.Projection.Confidence = *confidence
	if *horizon < 1 {
		log.Fatal().Int("horizon", *horizon).Msg("Error: -horizon must be at least 1")
	}

	ctx, cancel := commandContext(log, 2*time.Minute)
	defer cancel()

	view, _ := buildView(ctx, log, cfg, vf)
	printSeries(os.Stdout, view.Series)
	printProjection(os.Stdout, view.Projection)
}

func runDashboard(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	vf := addViewFlags(fs, cfg)
	recent := fs.Int("recent", 10, "Number of recent transactions to show")
	fs.Parse(os.Args[2:])

	ctx, cancel := commandContext(log, 2*time.Minute)
	defer cancel()

	view, _ := buildView(ctx, log, cfg, vf)
	out := os.Stdout

	fmt.Fprintf(out, "Source: %s (loaded %s)\n", view.Source, view.LoadedAt.Format(time.RFC3339))
	printKPIs(out, view.KPIs)
	printVariations(out, view.IncomeVariation, view.ExpenseVariation, view.Trend)
	printAlerts(out, view.Alerts)
	printInsights(out, view.Insights)
	printRanking(out, view.Ranking)
	printAnomalies(out, view.Anomalies)
	printOutliers(out, view.Outliers)
	printProjection(out, view.Projection)
	printRecent(out, view.Recent, *recent)
}

func newGenerator(ctx context.Context, cfg *config.Config) (inference.Generator, error) {
	switch cfg.Inference.Backend {
	case config.BackendGemini:
		return inference.NewGeminiClient(ctx, cfg.Inference.Model)
	default:
		// The per-attempt deadline comes from the request context.
		return inference.NewOllamaClient(cfg.Inference.Host, cfg.Inference.Model, &http.Client{}), nil
	}
}

func runModels(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	host := fs.String("host", cfg.Inference.Host, "Ollama host")
	fs.Parse(os.Args[2:])

	ctx, cancel := commandContext(log, 30*time.Second)
	defer cancel()

	models, err := inference.NewOllamaClient(*host, "", nil).ListModels(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("host", *host).Msg("Failed to list models")
	}
	for _, m := range models {
		marker := " "
		if m == cfg.Inference.Model {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, m)
	}
}

func runPublish(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	vf := addViewFlags(fs, cfg)
	notionToken := fs.String("notion-token", cfg.Notion.Token, "Notion API token")
	notionDBID := fs.String("notion-db-id", cfg.Notion.DatabaseID, "Notion database ID")
	dryRun := fs.Bool("dry-run", false, "Dry run mode - preview changes without publishing")
	archive := fs.String("archive", "", "Comma-separated months (YYYY-MM) to archive instead of publishing")
	fs.Parse(os.Args[2:])

	cfg.Notion.Token = *notionToken
	cfg.Notion.DatabaseID = *notionDBID
	if err := cfg.ValidateNotion(); err != nil {
		log.Fatal().Err(err).Msg("Invalid Notion configuration")
	}
	// Summaries are always monthly.
	*vf.bucket = string(domain.BucketMonth)
	cfg.Detector.Bucket = string(domain.BucketMonth)

	ctx, cancel := commandContext(log, 10*time.Minute)
	defer cancel()

	svc := notionsync.NewNotionClient(cfg.Notion.Token)
	if months := splitList(*archive); len(months) > 0 {
		n, err := notionsync.ArchiveMonths(ctx, svc, cfg.Notion.DatabaseID, months, *dryRun)
		if err != nil {
			log.Fatal().Err(err).Msg("Archive failed")
		}
		fmt.Printf("Archived %d page(s).\n", n)
		return
	}

	view, _ := buildView(ctx, log, cfg, vf)
	res, err := notionsync.PublishSummary(ctx, svc, cfg.Notion.DatabaseID, view, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Publish failed")
	}

	fmt.Printf("Publish completed: %d created, %d updated, %d failed.\n", res.Created, res.Updated, res.Failed)
	if res.Failed > 0 {
		os.Exit(1)
	}
}

func runUpload(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", cfg.Data.UploadBucket, "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local CSV file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}
	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx, cancel := commandContext(log, 5*time.Minute)
	defer cancel()

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading ledger to GCS")

	if err := ledger.Upload(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}
