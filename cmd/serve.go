package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/linesmerrill/sos-dispatch-api/api/handlers"
	"github.com/linesmerrill/sos-dispatch-api/config"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the http api and the reassignment sweeper",
	RunE:  serve,
}

var noSweep bool

func init() {
	serveCmd.Flags().BoolVar(&noSweep, "no-sweep", false, "do not run the periodic sweeper in this process")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf := config.New()
	svc, err := build(ctx, conf)
	if err != nil {
		return err
	}
	defer svc.close(context.Background())

	a := handlers.App{Config: *conf}
	a.Initialize(handlers.Deps{
		Engine:    svc.engine,
		Projector: svc.projector,
		Directory: svc.store.directory,
		Citizens:  svc.store.citizens,
		Verifier:  svc.verifier,
		Metrics:   svc.metrics,
	})

	if !noSweep {
		if err := svc.scheduler.Start(); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", conf.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.S().Infow("sos-dispatch-api is up and running",
			"port", conf.Port,
			"url", conf.BaseUrl,
			"db_driver", conf.DBDriver,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.S().Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
