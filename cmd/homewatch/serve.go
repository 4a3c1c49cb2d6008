package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"homewatch/internal/config"
	"homewatch/internal/credentials"
	"homewatch/internal/detect"
	"homewatch/internal/netatmo"
	"homewatch/internal/oauth"
	"homewatch/internal/publish"
	"homewatch/internal/rate"
	"homewatch/internal/recognize"
	"homewatch/internal/server"
	"homewatch/internal/snapshot"
	"homewatch/internal/watch"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the homewatch daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	creds, err := credentials.Load(cfg.CredentialsFile)
	if err != nil {
		return err
	}

	manager, err := newOAuthManager(cfg, creds)
	if err != nil {
		return err
	}
	manager.StartWithInterval(ctx, cfg.OAuthRefreshInterval())

	client := netatmo.NewClient(netatmo.Config{HomeID: cfg.HomeID}, manager)

	detector, err := detect.NewClient(detect.Config{
		URL:        cfg.Detector.URL,
		Confidence: cfg.Detector.Confidence,
	})
	if err != nil {
		return err
	}

	roster, err := recognize.LoadRoster(cfg.Roster.File)
	if err != nil {
		return err
	}
	matcher, err := recognize.NewMatcher(roster, cfg.Roster.MatchThreshold)
	if err != nil {
		return err
	}

	store, err := snapshot.NewStore(snapshot.Config{
		Dir:      cfg.SnapshotDir(),
		MaxAge:   cfg.SnapshotMaxAge(),
		MaxBytes: cfg.SnapshotMaxBytes(),
	})
	if err != nil {
		return err
	}

	var archiver snapshot.Archiver
	if cfg.Snapshot.Archive {
		archiver, err = snapshot.NewS3Archiver(oauth.S3Config{
			Endpoint:      cfg.Blob.Endpoint,
			Bucket:        cfg.Blob.Bucket,
			Prefix:        "homewatch/snapshots",
			AccessKeyFile: cfg.Blob.AccessKeyFile,
			SecretKeyFile: cfg.Blob.SecretKeyFile,
			Region:        cfg.Blob.Region,
		})
		if err != nil {
			return err
		}
	}

	var publisher watch.Publisher
	var mqttPublisher *publish.MQTTPublisher
	if cfg.MQTT != nil {
		mqttPublisher, err = publish.NewMQTT(publish.MQTTConfig{
			Host:         cfg.MQTT.Host,
			Port:         cfg.MQTT.Port,
			TLS:          cfg.MQTT.TLS,
			Username:     cfg.MQTT.Username,
			PasswordFile: cfg.MQTT.PasswordFile,
			TopicPrefix:  cfg.MQTT.TopicPrefix,
		})
		if err != nil {
			return err
		}
		defer mqttPublisher.Close()
		publisher = mqttPublisher
	}

	seen, err := watch.NewSeenSet(cfg.SeenPath(), 0)
	if err != nil {
		return err
	}

	poller, err := watch.NewPoller(watch.PollerConfig{
		Source:    client,
		Detector:  detector,
		Matcher:   matcher,
		Store:     store,
		Archiver:  archiver,
		Publisher: publisher,
		Seen:      seen,
		Ring:      watch.NewRing(0),
		Interval:  cfg.PollInterval(),
		BatchSize: cfg.EventBatchSize,
		CameraIDs: cfg.Cameras,
	})
	if err != nil {
		return err
	}

	registry := server.NewRegistry(
		oauth.MetricsCollectors(),
		rate.MetricsCollectors(),
		watch.MetricsCollectors(),
	)
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "homewatch_build_info",
		Help: "Build information",
	}, func() float64 { return 1 }))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HealthHandler)
	mux.Handle("/metrics", server.MetricsHandler(registry))
	mux.Handle("/api/sightings", server.SightingsHandler(poller))
	mux.Handle("/api/cameras", server.CamerasHandler(poller))

	httpServer := server.NewHTTPServer(cfg.HTTPAddr, mux)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	log.Printf("homewatch: watching events on %s, api on %s", cfg.CredentialsFile, cfg.HTTPAddr)

	err = poller.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("http shutdown: %v", shutdownErr)
	}

	if err == context.Canceled {
		return nil
	}
	return err
}
