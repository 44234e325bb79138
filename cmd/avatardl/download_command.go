package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"avatardl/internal/config"
	"avatardl/internal/download"
	"avatardl/internal/history"
	"avatardl/internal/localdir"
	"avatardl/internal/logging"
	"avatardl/internal/selection"
	"avatardl/internal/services"
	"avatardl/internal/transfer"
)

type downloadFlags struct {
	all         bool
	include     []string
	dir         string
	concurrency int
	retries     int
	quiet       bool
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var flags downloadFlags

	cmd := &cobra.Command{
		Use:   "download [avatar-id[:descriptor-id,...]...]",
		Short: "Download the selected avatars' files into the output directory",
		Long: "Download resolved avatar files. Each argument names an avatar, optionally\n" +
			"narrowed to specific descriptor IDs (see `avatardl resolve`).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !flags.all {
				return errors.New("name at least one avatar or pass --all")
			}
			return runDownload(cmd, ctx, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.all, "all", false, "Download every avatar in the catalog")
	cmd.Flags().StringSliceVar(&flags.include, "include", nil, "Categories to download: model, secondary, variants, images (default from config)")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "Output directory (default paths.output_dir)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "Parallel transfers (default download.concurrency)")
	cmd.Flags().IntVar(&flags.retries, "retries", 0, "Re-queue failed downloads this many times after the queue drains")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Only print the final summary")
	return cmd
}

func runDownload(cmd *cobra.Command, ctx *commandContext, args []string, flags downloadFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	opts, err := downloadOptions(cfg, flags.include)
	if err != nil {
		return err
	}
	if flags.concurrency < 0 || flags.concurrency > download.MaxConcurrency {
		return fmt.Errorf("--concurrency must be between 1 and %d", download.MaxConcurrency)
	}
	if flags.retries < 0 {
		return errors.New("--retries must not be negative")
	}

	cat, err := ctx.loadCatalog()
	if err != nil {
		return err
	}
	resolver, err := ctx.newResolver()
	if err != nil {
		return err
	}

	sel := selection.New()
	ids := cat.IDs()
	if !flags.all {
		if sel, ids, err = parseSelection(args); err != nil {
			return err
		}
	}
	records, err := selectRecords(cat, ids)
	if err != nil {
		return err
	}
	avatars := make([]download.AvatarFiles, 0, len(records))
	for _, rec := range records {
		avatars = append(avatars, download.AvatarFiles{
			AvatarID:    rec.ID,
			Name:        rec.DisplayName(),
			Descriptors: resolver.Resolve(rec),
		})
	}

	root := cfg.Paths.OutputDir
	if strings.TrimSpace(flags.dir) != "" {
		if root, err = config.ExpandPath(flags.dir); err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
	}
	dir, err := localdir.Open(root)
	if err != nil {
		return err
	}
	defer func() { _ = dir.Release() }()

	concurrency := cfg.Download.Concurrency
	if flags.concurrency > 0 {
		concurrency = flags.concurrency
	}
	fetcher := transfer.NewHTTPFetcher(
		transfer.WithUserAgent(cfg.Download.UserAgent),
		transfer.WithMaxBytesPerSecond(cfg.Download.MaxBytesPerSecond),
	)
	orch := download.New(fetcher,
		download.WithConcurrency(concurrency),
		download.WithTaskTimeout(cfg.TaskTimeout()),
		download.WithLogger(logger),
	)

	out := &syncWriter{w: cmd.OutOrStdout()}
	colorize := shouldColorize(cmd.OutOrStdout())

	var unsubscribers []func()
	if store := openHistory(cfg, logger); store != nil {
		defer store.Close()
		recorder := history.NewRecorder(store, dir.Root(), logger)
		unsubscribers = append(unsubscribers, orch.Subscribe(recorder.Listener()))
	}
	if !flags.quiet {
		unsubscribers = append(unsubscribers, orch.Subscribe(func(e download.Event) {
			if e.Kind != download.EventTaskChanged {
				return
			}
			if line := taskStatusLine(e.Task, colorize); line != "" {
				out.Println(line)
			}
		}))
	}

	defer func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}()

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = services.WithRequestID(runCtx, uuid.NewString())

	snap, err := orch.StartBatch(runCtx, download.Request{
		Avatars:   avatars,
		Selection: sel,
		Options:   opts,
		Directory: dir,
	})
	if err != nil {
		return err
	}
	if snap.Total == 0 {
		out.Println("Nothing to download for the selected avatars and categories")
		return nil
	}
	out.Printf("Batch %s: %d files into %s (concurrency %d)\n", shortID(snap.BatchID), snap.Total, dir.Root(), orch.Concurrency())

	for attempt := 0; ; attempt++ {
		snap, err = orch.Wait(runCtx)
		if err != nil {
			orch.Clear()
			out.Println("Interrupted; completed files are kept, in-flight files are discarded")
			return err
		}
		if snap.Failed == 0 || attempt >= flags.retries {
			break
		}
		requeued := orch.RetryFailed()
		if requeued == 0 {
			break
		}
		out.Printf("Retrying %d failed downloads (%d/%d)\n", requeued, attempt+1, flags.retries)
	}

	// Drain listeners before the summary and before the history store closes.
	for _, unsubscribe := range unsubscribers {
		unsubscribe()
	}
	unsubscribers = nil

	out.Println(renderTaskTable(snap.Tasks))
	out.Printf("Completed %d of %d (%s)\n", snap.Completed, snap.Total, formatPercent(snap.OverallPercent))
	if snap.Failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", snap.Failed, snap.Total)
	}
	return nil
}

// parseSelection turns "avatar" and "avatar:desc1,desc2" arguments into a selection.
func parseSelection(args []string) (selection.Selection, []string, error) {
	sel := selection.New()
	var ids []string
	for _, arg := range args {
		avatarID, rest, hasDescriptors := strings.Cut(strings.TrimSpace(arg), ":")
		avatarID = strings.TrimSpace(avatarID)
		if avatarID == "" {
			return selection.Selection{}, nil, fmt.Errorf("invalid selection %q", arg)
		}
		if !sel.Has(avatarID) {
			ids = append(ids, avatarID)
		}
		if !hasDescriptors {
			sel = sel.WithAvatar(avatarID)
			continue
		}
		for _, descriptorID := range strings.Split(rest, ",") {
			if descriptorID = strings.TrimSpace(descriptorID); descriptorID != "" {
				sel = sel.WithDescriptor(avatarID, descriptorID)
			}
		}
	}
	return sel, ids, nil
}

func downloadOptions(cfg *config.Config, include []string) (download.Options, error) {
	if len(include) == 0 {
		return download.Options{
			IncludeModel:           cfg.Download.IncludeModel,
			IncludeSecondaryFormat: cfg.Download.IncludeSecondaryFormat,
			IncludeVariants:        cfg.Download.IncludeVariants,
			IncludeImages:          cfg.Download.IncludeImages,
		}, nil
	}
	var opts download.Options
	for _, value := range include {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "model":
			opts.IncludeModel = true
		case "secondary":
			opts.IncludeSecondaryFormat = true
		case "variants", "variant", "voxel":
			opts.IncludeVariants = true
		case "images", "image":
			opts.IncludeImages = true
		case "all":
			opts = download.Options{IncludeModel: true, IncludeSecondaryFormat: true, IncludeVariants: true, IncludeImages: true}
		default:
			return download.Options{}, fmt.Errorf("unknown --include value %q (want model, secondary, variants, images or all)", value)
		}
	}
	return opts, nil
}

func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "batch history unavailable", "history_open",
			logging.String("path", cfg.HistoryPath()),
			logging.String(logging.FieldErrorHint, "downloads continue without history; remove the database to reset it"),
			logging.Error(err),
		)
		return nil
	}
	return store
}

func renderTaskTable(tasks []download.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		detail := t.OutputPath
		if t.Status == download.StatusFailed {
			detail = fmt.Sprintf("%s: %s", t.ErrorKind, t.ErrorMessage)
		}
		rows = append(rows, []string{string(t.Status), t.DisplayName, formatBytes(t.BytesWritten), detail})
	}
	return renderTable([]column{
		{title: "Status"},
		{title: "File"},
		{title: "Size", align: alignRight},
		{title: "Output / Error", maxWidth: 60},
	}, rows)
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line)
}

func (s *syncWriter) Printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format, args...)
}

