package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-curriculum/internal/app"
	"github.com/yungbote/neurobridge-curriculum/internal/observability"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/envutil"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

// runtime holds what PersistentPreRunE builds for subcommands.
type runtime struct {
	log      *logger.Logger
	app      *app.App
	shutdown func(context.Context) error
	out      io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rt := &runtime{out: os.Stdout}

	root := &cobra.Command{
		Use:           "curriculum",
		Short:         "Build and query course curriculum graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.start(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rt.stop()
		},
	}

	root.AddCommand(
		newIngestCmd(rt),
		newCoursesCmd(rt),
		newTraverseCmd(rt),
		newPrereqsCmd(rt),
		newNextModuleCmd(rt),
		newNextItemCmd(rt),
		newTopicCmd(rt),
		newPathCmd(rt),
		newMissingCmd(rt),
		newVisualizeCmd(rt),
		newDeleteCmd(rt),
		newLookupCmd(rt),
	)
	return root
}

func (rt *runtime) start(ctx context.Context) error {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	rt.log = log

	rt.shutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "curriculum-graph"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", ""),
	})

	a, err := app.New(ctx, log)
	if err != nil {
		log.Sync()
		return err
	}
	rt.app = a
	return nil
}

func (rt *runtime) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if rt.app != nil {
		err = rt.app.Close(ctx)
	}
	if rt.shutdown != nil {
		if serr := rt.shutdown(ctx); serr != nil && rt.log != nil {
			rt.log.Warn("otel shutdown failed", "error", serr)
		}
	}
	if rt.log != nil {
		rt.log.Sync()
	}
	return err
}

func (rt *runtime) print(v any) error {
	enc := json.NewEncoder(rt.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
