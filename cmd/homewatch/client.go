package main

import (
	"context"
	"fmt"

	"homewatch/internal/config"
	"homewatch/internal/credentials"
	"homewatch/internal/netatmo"
	"homewatch/internal/oauth"
)

// buildClient wires config, credentials, and the OAuth manager into a
// ready-to-use Netatmo client for one-shot commands.
func buildClient(ctx context.Context) (*netatmo.Client, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	creds, err := credentials.Load(cfg.CredentialsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", cfg.CredentialsFile, err)
	}

	manager, err := newOAuthManager(cfg, creds)
	if err != nil {
		return nil, nil, err
	}
	manager.StartWithInterval(ctx, cfg.OAuthRefreshInterval())

	client := netatmo.NewClient(netatmo.Config{HomeID: cfg.HomeID}, manager)
	return client, cfg, nil
}

func newOAuthManager(cfg *config.Config, creds credentials.Credentials) (*oauth.Manager, error) {
	opts := oauth.Options{StatePath: cfg.StatePath()}
	if cfg.Blob != nil {
		store, err := oauth.NewS3Store(oauth.S3Config{
			Endpoint:      cfg.Blob.Endpoint,
			Bucket:        cfg.Blob.Bucket,
			Prefix:        cfg.Blob.Prefix,
			AccessKeyFile: cfg.Blob.AccessKeyFile,
			SecretKeyFile: cfg.Blob.SecretKeyFile,
			Region:        cfg.Blob.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("blob store: %w", err)
		}
		opts.BlobStore = store
	}
	return oauth.NewManager(creds, opts)
}
