package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantusnet/minercore/internal/control"
	"github.com/quantusnet/minercore/internal/infrastructure/config"
	"github.com/quantusnet/minercore/internal/infrastructure/influxdb"
	"github.com/quantusnet/minercore/internal/infrastructure/logging"
	"github.com/quantusnet/minercore/internal/infrastructure/mqtt"
	"github.com/quantusnet/minercore/internal/miner"
)

// version is overridden at build time via -ldflags.
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logging.Default().Error("minercore exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("MINERCORE_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Logging, version)
	logger.Info("starting minercore", "config", configPath, "chain", cfg.Node.Chain)

	// MQTT: event sink and command surface.
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to mqtt broker: %w", err)
	}
	defer mqttClient.Close()
	mqttClient.SetLogger(logger.With("component", "mqtt"))
	logger.Info("connected to mqtt broker", "host", cfg.MQTT.Broker.Host)

	sink := mqtt.NewSink(mqttClient, cfg.MQTT.QoS)
	sink.SetLogger(logger.With("component", "sink"))

	// InfluxDB: optional hashrate/status recorder.
	var recorder miner.Recorder
	if cfg.InfluxDB.Enabled {
		influxClient, ierr := influxdb.Connect(cfg.InfluxDB)
		if ierr != nil {
			logger.Warn("influxdb unavailable, telemetry recording disabled", "error", ierr)
		} else {
			defer influxClient.Close()
			influxClient.SetOnError(func(err error) {
				logger.Warn("influxdb write error", "error", err)
			})
			recorder = &influxRecorder{client: influxClient}
			logger.Info("connected to influxdb", "url", cfg.InfluxDB.URL)
		}
	}

	sup := miner.New(miner.Options{
		Publisher:      sink,
		Paths:          miner.NewPaths(cfg.Node.BasePath),
		LocalRPC:       cfg.Node.LocalRPC,
		Bootnodes:      cfg.Node.Bootnodes,
		SafeFlag:       cfg.SafeMode.Flag,
		SafeValue:      cfg.SafeMode.Value,
		RangeOverrides: safeRanges(cfg.SafeMode.Ranges),
		GracePeriod:    cfg.Node.GetGracePeriod(),
		Timings: miner.Timings{
			HealthInterval:   cfg.Poller.GetHealthInterval(),
			RemoteInterval:   cfg.Poller.GetRemoteInterval(),
			ReadTimeout:      cfg.Poller.GetReadTimeout(),
			ReconnectBackoff: cfg.Poller.GetReconnectBackoff(),
		},
	})
	sup.SetLogger(logger.With("component", "miner"))
	if recorder != nil {
		sup.SetRecorder(recorder)
	}

	base := miner.Config{
		Chain:          cfg.Node.Chain,
		Binary:         cfg.Node.Binary,
		RewardsAddress: cfg.Node.RewardsAddress,
		ExtraArgs:      cfg.Node.ExtraArgs,
		LogToFile:      cfg.Node.LogToFile,
	}

	ctrl := control.New(sup, base, logger.With("component", "control"))
	if err := ctrl.Attach(ctx, mqttClient, byte(cfg.MQTT.QoS)); err != nil {
		return fmt.Errorf("attaching command controller: %w", err)
	}

	// Start the node immediately when fully configured; otherwise wait
	// for a start command over MQTT.
	if base.Binary != "" && base.RewardsAddress != "" {
		if err := sup.Start(ctx, base); err != nil {
			logger.Error("initial node start failed, awaiting commands", "error", err)
		}
	} else {
		logger.Info("node binary or rewards address not configured, awaiting start command")
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sup.Shutdown(shutdownCtx); err != nil {
		logger.Warn("supervisor shutdown", "error", err)
	}

	logger.Info("minercore stopped")
	return nil
}

// safeRanges converts config block ranges into the miner's type.
func safeRanges(in map[string][]config.BlockRange) map[string][]miner.Range {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string][]miner.Range, len(in))
	for chain, ranges := range in {
		rs := make([]miner.Range, 0, len(ranges))
		for _, r := range ranges {
			rs = append(rs, miner.Range{Start: r.Start, End: r.End})
		}
		out[chain] = rs
	}
	return out
}

// influxRecorder adapts the InfluxDB client to the miner.Recorder interface.
type influxRecorder struct {
	client *influxdb.Client
}

func (r *influxRecorder) RecordHashrate(chain string, hps float64) {
	r.client.WriteMinerMetric(chain, "hashrate_hps", hps)
}

func (r *influxRecorder) RecordStatus(chain string, status miner.Status) {
	fields := make(map[string]interface{})
	if status.Peers != nil {
		fields["peers"] = int64(*status.Peers)
	}
	if status.CurrentBlock != nil {
		fields["current_block"] = int64(*status.CurrentBlock)
	}
	if status.HighestBlock != nil {
		fields["highest_block"] = int64(*status.HighestBlock)
	}
	if status.IsSyncing != nil {
		fields["is_syncing"] = *status.IsSyncing
	}
	if len(fields) == 0 {
		return
	}
	r.client.WritePoint("miner_status", map[string]string{"chain": chain}, fields)
}
