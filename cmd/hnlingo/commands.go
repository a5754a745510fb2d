package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hnlingo/internal/cmdlog"
	"hnlingo/internal/config"
	"hnlingo/internal/ingest"
	"hnlingo/internal/jobs"
	"hnlingo/internal/logging"
	"hnlingo/internal/metrics"
	"hnlingo/internal/model"
	"hnlingo/internal/schedule"
	"hnlingo/internal/store"
	"hnlingo/internal/theme"
	"hnlingo/internal/translate"
	"hnlingo/internal/util"
)

// errRunFailed marks a run whose summary was printed but had failures.
var errRunFailed = errors.New("one or more listings failed")

func newInitCmd(opts *rootOptions) *cobra.Command {
	var path string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: cmdlog.Wrap(func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = opts.configPath
			}
			if path == "" {
				path = config.DefaultPath
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			abs, _ := filepath.Abs(path)
			theme.PrintBanner(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Config written to:", abs)
			return nil
		}),
	}
	cmd.Flags().StringVar(&path, "path", "", "path to write config (default --config or "+config.DefaultPath+")")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		names  []string
		limit  int
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest the configured listings once and print a summary",
		Args:  cobra.NoArgs,
		RunE: cmdlog.Wrap(func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			listings, err := selectListings(cfg, names, limit)
			if err != nil {
				return err
			}

			var (
				st ingest.Store
				tr translate.Translator
			)
			if dryRun {
				st, tr = ingest.NewRecorder(), translate.Noop{}
			} else {
				db, err := store.Open(cfg.Storage.DBPath)
				if err != nil {
					return err
				}
				defer db.Close()
				st, tr = db, newTranslator(cfg.Translation)
			}

			sum := jobs.RunOnce(cmd.Context(), newPipeline(cfg, tr, st), listings)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(sum); err != nil {
				return err
			}
			if !sum.Success {
				return errRunFailed
			}
			return nil
		}),
	}
	cmd.Flags().StringSliceVar(&names, "listing", nil, "listing to run (repeatable; default all configured)")
	cmd.Flags().IntVar(&limit, "limit", 0, "override the number of stories per listing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "fetch only: skip translation and keep results in memory")
	return cmd
}

// selectListings picks the named listings from cfg, or all of them.
func selectListings(cfg config.Config, names []string, limit int) ([]model.Listing, error) {
	var out []model.Listing
	if len(names) == 0 {
		out = cfg.ModelListings()
	} else {
		for _, n := range names {
			if !model.IsKnownListing(n) {
				return nil, fmt.Errorf("unknown listing %q (known: %v)", n, model.KnownListings)
			}
			out = append(out, cfg.Listing(n))
		}
	}
	if limit > 0 {
		for i := range out {
			out[i].Limit = limit
		}
	}
	return out, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		now      bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Ingest on the configured cron schedule until interrupted",
		Long: "Ingest on the configured cron schedule until interrupted.\n\n" +
			"With --interval the cron schedule is ignored: a pass runs immediately\n" +
			"and then once per interval.",
		Args: cobra.NoArgs,
		RunE: cmdlog.Wrap(func(cmd *cobra.Command, _ []string) error {
			if interval < 0 {
				return fmt.Errorf("--interval must not be negative")
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := store.Open(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			p := newPipeline(cfg, newTranslator(cfg.Translation), db)
			listings := cfg.ModelListings()

			srv := metrics.StartServer(cfg.Metrics.Addr)
			defer func() {
				if srv == nil {
					return
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			if interval > 0 {
				logging.Info("serve_started", map[string]any{"interval": interval.String(), "metrics": cfg.Metrics.Addr})
				err := jobs.RunLoop(ctx, p, listings, interval)
				logging.Info("serve_stopping", nil)
				if ctx.Err() != nil {
					return nil
				}
				return err
			}

			task := func() {
				sum := jobs.RunOnce(ctx, p, listings)
				if !sum.Success {
					logging.Error("scheduled_run_failed", map[string]any{"errors": sum.Errors})
				}
			}
			sched, err := schedule.New(cfg.Schedule.Timezone)
			if err != nil {
				return err
			}
			if err := sched.Schedule(cfg.Schedule.Cron, task); err != nil {
				return err
			}
			logging.Info("serve_started", map[string]any{"next": sched.Next(), "metrics": cfg.Metrics.Addr})
			if now {
				task()
			}
			sched.Start()

			<-ctx.Done()
			logging.Info("serve_stopping", nil)
			sched.Stop()
			return nil
		}),
	}
	cmd.Flags().BoolVar(&now, "now", false, "run once immediately before waiting for the schedule")
	cmd.Flags().DurationVar(&interval, "interval", 0, "ingest every interval instead of on the cron schedule (e.g. 30m)")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		order         string
		limit, offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored stories",
		Args:  cobra.NoArgs,
		RunE: cmdlog.Wrap(func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			var stories []store.StoredStory
			switch store.Order(order) {
			case store.OrderTop:
				stories, err = db.TopStories(cmd.Context(), limit, offset)
			case store.OrderLatest:
				stories, err = db.LatestStories(cmd.Context(), limit, offset)
			default:
				return fmt.Errorf("unknown order %q (want %s or %s)", order, store.OrderLatest, store.OrderTop)
			}
			if err != nil {
				return err
			}
			nStories, nComments, err := db.Counts(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCORE\tTIME\tTITLE")
			for _, s := range stories {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", s.ID, s.Score, s.Time.Format("2006-01-02 15:04"), util.Truncate(displayTitle(s), 70))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d stories, %d comments stored\n", nStories, nComments)
			return nil
		}),
	}
	cmd.Flags().StringVar(&order, "order", string(store.OrderLatest), "sort order: latest or top")
	cmd.Flags().IntVar(&limit, "limit", 30, "number of stories")
	cmd.Flags().IntVar(&offset, "offset", 0, "stories to skip")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored story with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: cmdlog.Wrap(func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid story id %q", args[0])
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			s, err := db.Story(cmd.Context(), id)
			if err != nil {
				return err
			}
			comments, err := db.StoryComments(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, displayTitle(s))
			if s.TitleTranslated != "" {
				fmt.Fprintln(out, s.Title)
			}
			fmt.Fprintf(out, "%d points by %s at %s", s.Score, s.By, s.Time.Format(time.RFC3339))
			if s.URL != "" {
				fmt.Fprintf(out, " | %s", s.URL)
			}
			fmt.Fprintln(out)
			if text := pick(s.TextTranslated, s.Text); text != "" {
				fmt.Fprintf(out, "\n%s\n", util.PlainText(text))
			}
			fmt.Fprintf(out, "\n%d comments\n", len(comments))
			for _, c := range comments {
				fmt.Fprintf(out, "\n-- %s at %s\n%s\n", c.By, c.Time.Format("2006-01-02 15:04"), util.PlainText(pick(c.TextTranslated, c.Text)))
			}
			return nil
		}),
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			theme.PrintBanner(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "hnlingo %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

func displayTitle(s store.StoredStory) string { return pick(s.TitleTranslated, s.Title) }

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
