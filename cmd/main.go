package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"linkbrief/internal/bot"
	"linkbrief/internal/httpapi"
	"linkbrief/internal/pipeline"
	"linkbrief/internal/scheduler"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var backendsFile string

	root := &cobra.Command{
		Use:           "linkbrief",
		Short:         "Summarize links from chat messages, HTTP requests or the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&backendsFile, "backends", "", "Path to backend chain YAML (overrides BACKENDS_FILE)")

	root.AddCommand(
		newBotCmd(&backendsFile),
		newServeCmd(&backendsFile),
		newSummarizeCmd(&backendsFile),
	)

	return root
}

func newBotCmd(backendsFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *backendsFile, os.Stdout)
			if err != nil {
				return err
			}

			return runBot(ctx, a)
		},
	}
}

func runBot(ctx context.Context, a *app) error {
	start := time.Now()
	log := a.log

	if strings.TrimSpace(a.cfg.Token) == "" {
		log.ErrorContext(ctx, "TOKEN is required",
			"envVar", "TOKEN")

		return errors.New("TOKEN is required")
	}

	botInst, err := bot.New(a.cfg.Token, a.orchestrator, bot.Options{
		AllowedChats:         a.cfg.AllowedChats,
		MaxConcurrentUpdates: a.cfg.MaxConcurrentUpdates,
		RequestTimeout:       a.cfg.RequestTimeout,
	}, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedChatsCount", len(a.cfg.AllowedChats))

		return err
	}
	log.InfoContext(ctx, "Bot is initialized",
		"allowedChatsCount", len(a.cfg.AllowedChats),
		"maxConcurrentUpdates", a.cfg.MaxConcurrentUpdates)

	sched := scheduler.New(ctx, botInst.RateLimiter(), scheduler.DefaultIdle, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", scheduler.SweepSpec)

		return err
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", scheduler.SweepSpec,
		"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())

	go botInst.Start(ctx)
	log.InfoContext(ctx, "Bot is started",
		"updateTimeoutSeconds", bot.BotUpdateTimeout)

	<-ctx.Done()
	log.InfoContext(ctx, "Shutdown signal is received",
		"uptimeSeconds", time.Since(start).Seconds())

	botInst.Stop()
	log.InfoContext(ctx, "Bot is stopped",
		"uptimeSeconds", time.Since(start).Seconds())

	return nil
}

func newServeCmd(backendsFile *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *backendsFile, os.Stdout)
			if err != nil {
				return err
			}

			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			gin.SetMode(gin.ReleaseMode)
			srv := httpapi.New(a.orchestrator, a.cfg.RequestTimeout, a.log)

			a.log.InfoContext(ctx, "HTTP API is starting",
				"addr", addr)

			if err = srv.Run(ctx, addr); err != nil {
				a.log.ErrorContext(ctx, "HTTP API stopped with error",
					"error", err,
					"addr", addr)

				return err
			}

			a.log.InfoContext(ctx, "HTTP API is stopped",
				"addr", addr)

			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")

	return cmd
}

func newSummarizeCmd(backendsFile *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summarize <text...>",
		Short: "Summarize the first link in the given text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *backendsFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
			defer cancel()

			res, err := a.orchestrator.Run(ctx, strings.Join(args, " "))
			if err != nil {
				var failure *pipeline.Failure
				if errors.As(err, &failure) {
					fmt.Fprintln(cmd.ErrOrStderr(), failure.UserMessage())
				}

				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(res)
			}

			return printSummary(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func printSummary(w io.Writer, res *pipeline.Result) error {
	var b strings.Builder

	title := res.Summary.Title
	if title == "" {
		title = res.Title
	}

	fmt.Fprintf(&b, "%s\n", title)
	if res.Author != "" {
		fmt.Fprintf(&b, "by %s\n", res.Author)
	}

	fmt.Fprintf(&b, "%s (%s)\n\n", res.URL, res.Category)

	for _, point := range res.Summary.KeyPoints {
		fmt.Fprintf(&b, "- %s\n", point)
	}

	fmt.Fprintf(&b, "\n%s\n", res.Summary.ConciseSummary)

	if res.Summary.ProblemAddressed != "" {
		fmt.Fprintf(&b, "\nProblem addressed: %s\n", res.Summary.ProblemAddressed)
	}

	if res.Summary.ApproachTaken != "" {
		fmt.Fprintf(&b, "Approach taken: %s\n", res.Summary.ApproachTaken)
	}

	_, err := io.WriteString(w, b.String())

	return err
}
