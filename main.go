package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"
	obskit "github.com/rudderlabs/rudder-observability-kit/go/labels"

	"github.com/rudderlabs/rudder-telemetry/collector"
	"github.com/rudderlabs/rudder-telemetry/flusher"
	"github.com/rudderlabs/rudder-telemetry/gaugedb"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logger.NewLogger().Child("telemetry")
	if err := run(ctx, log); err != nil {
		log.Errorn("telemetry flusher exited", obskit.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log logger.Logger) error {
	conf := config.Default

	stat := stats.Default
	if err := stat.Start(ctx, stats.DefaultGoRoutineFactory); err != nil {
		return err
	}
	defer stat.Stop()

	repo, err := gaugedb.NewRepository(conf.GetStringVar("./gauge-data", "GaugeDB.path"), conf, log.Child("gaugedb"), stat)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Stop(); err != nil {
			log.Errorn("failed to stop gauge repository", obskit.Error(err))
		}
	}()

	client := collector.NewClient(conf, log.Child("collector"), stat)
	f := flusher.NewFlusher(repo, client, conf, log.Child("flusher"), stat)
	cr := flusher.NewCronRunner(ctx, log.Child("cron"), stat, conf, f)

	go func() {
		<-ctx.Done()
		cr.Stop()
	}()

	log.Infon("starting telemetry flusher")
	cr.Run()
	log.Infon("telemetry flusher stopped")
	return nil
}
