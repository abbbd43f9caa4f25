// salonpost-run posts one dataset from the command line, without the
// service or a job database. The portal password is read from the
// SALONBOARD_PASSWORD environment variable.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"salonpost/internal/artifacts"
	"salonpost/internal/browser"
	"salonpost/internal/engine"
	"salonpost/internal/selectors"
)

func main() {
	var (
		datasetPath   = flag.String("dataset", "", "path to the style dataset (.csv or .xlsx)")
		imageDir      = flag.String("images", "", "directory the dataset's image names resolve against")
		userID        = flag.String("user", "", "portal login ID")
		salonID       = flag.String("salon-id", "", "salon ID for multi-salon accounts")
		salonName     = flag.String("salon-name", "", "salon name for multi-salon accounts")
		selectorsPath = flag.String("selectors", "config/selectors.yaml", "selector configuration YAML")
		artifactDir   = flag.String("artifacts", "data/artifacts", "directory for failure screenshots and the run log")
		offset        = flag.Int("offset", 0, "rows to skip (resume offset)")
		headless      = flag.Bool("headless", true, "run Chrome headless")
		slowMo        = flag.Duration("slowmo", 0, "delay before each browser action, for debugging")
		verbose       = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *datasetPath == "" || *imageDir == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: salonpost-run -dataset styles.csv -images ./images -user LOGIN")
		flag.PrintDefaults()
		os.Exit(2)
	}
	password := os.Getenv("SALONBOARD_PASSWORD")
	if password == "" {
		fmt.Fprintln(os.Stderr, "SALONBOARD_PASSWORD is not set")
		os.Exit(2)
	}

	result, err := run(runOptions{
		dataset:       *datasetPath,
		images:        *imageDir,
		userID:        *userID,
		password:      password,
		salon:         engine.SalonHint{ID: *salonID, Name: *salonName},
		selectorsPath: *selectorsPath,
		artifactDir:   *artifactDir,
		offset:        *offset,
		headless:      *headless,
		slowMo:        *slowMo,
	})
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	printResult(result)
	if !result.Success {
		os.Exit(1)
	}
}

type runOptions struct {
	dataset       string
	images        string
	userID        string
	password      string
	salon         engine.SalonHint
	selectorsPath string
	artifactDir   string
	offset        int
	headless      bool
	slowMo        time.Duration
}

func run(opts runOptions) (engine.Result, error) {
	sel, err := selectors.Load(opts.selectorsPath)
	if err != nil {
		return engine.Result{}, err
	}
	shots, err := artifacts.NewStore(opts.artifactDir)
	if err != nil {
		return engine.Result{}, err
	}

	// Ctrl-C requests a cooperative stop; the run finishes the current
	// row and reports how far it got. A second Ctrl-C kills the process.
	var stop atomic.Bool
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		slog.Info("stop requested, finishing the current row")
		stop.Store(true)
		signal.Stop(sigs)
	}()

	browserCfg := browser.Config{
		Headless: opts.headless,
		SlowMo:   opts.slowMo,
	}
	open := func(ctx context.Context) (engine.Driver, func(), error) {
		session, err := browser.Open(ctx, browserCfg)
		if err != nil {
			return nil, nil, err
		}
		return session, session.Close, nil
	}

	progress := engine.ProgressFunc(func(ctx context.Context, completed, total int) (bool, error) {
		fmt.Printf("progress: %d/%d\n", completed, total)
		return !stop.Load(), nil
	})

	eng := engine.New(sel, shots, slog.Default())
	jobID := "run_" + time.Now().Format("20060102_150405")

	return eng.Run(context.Background(), open, engine.Params{
		JobID:        jobID,
		Credentials:  engine.Credentials{UserID: opts.userID, Password: opts.password},
		Salon:        opts.salon,
		DatasetPath:  opts.dataset,
		ImageDir:     opts.images,
		ResumeOffset: opts.offset,
	}, progress, nil), nil
}

func printResult(result engine.Result) {
	fmt.Printf("posted %d of %d styles, %d failed\n", result.Completed, result.Total, result.Failed)
	if result.Interrupted {
		fmt.Printf("interrupted; resume with -offset %d\n", result.Completed)
	}
	for _, e := range result.Errors {
		if e.Row < 0 {
			fmt.Printf("fatal: %s", e.Message)
		} else {
			fmt.Printf("row %d (%s): %s", e.Row, e.Style, e.Message)
		}
		if e.Screenshot != "" {
			fmt.Printf(" [screenshot: %s]", e.Screenshot)
		}
		fmt.Println()
	}
}
