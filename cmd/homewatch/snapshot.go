package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"homewatch/internal/netatmo"
)

func snapshotCmd() *cobra.Command {
	var (
		outDir string
		size   int
		live   bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Download recent event snapshots (or live frames) to a directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, _, err := buildClient(ctx)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", outDir, err)
			}

			if live {
				return downloadLive(cmd, client, outDir)
			}
			return downloadEvents(cmd, client, outDir, size)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "Directory to write JPEG files into")
	cmd.Flags().IntVar(&size, "size", 10, "Number of events to scan for snapshots")
	cmd.Flags().BoolVar(&live, "live", false, "Grab a live frame from each monitoring camera instead")
	return cmd
}

func downloadEvents(cmd *cobra.Command, client *netatmo.Client, outDir string, size int) error {
	ctx := cmd.Context()

	events, err := client.Events(ctx, size)
	if err != nil {
		return err
	}

	saved := 0
	for _, event := range events {
		for i, sub := range event.Subevents {
			ref := sub.Snapshot
			if ref.Empty() {
				ref = sub.Vignette
			}
			if ref.Empty() {
				continue
			}

			data, err := client.DownloadSnapshot(ctx, ref)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %v\n", event.ID, err)
				continue
			}

			name := fmt.Sprintf("%s_%d.jpg", fileSafe(event.ID), i)
			path := filepath.Join(outDir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Println(path)
			saved++
		}
	}
	if saved == 0 {
		fmt.Println("no snapshots found")
	}
	return nil
}

func downloadLive(cmd *cobra.Command, client *netatmo.Client, outDir string) error {
	ctx := cmd.Context()

	cameras, err := client.Cameras(ctx)
	if err != nil {
		return err
	}

	for _, camera := range cameras {
		data, err := client.LiveSnapshot(ctx, camera)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %v\n", camera.Name, err)
			continue
		}

		path := filepath.Join(outDir, fileSafe(camera.ID)+"_live.jpg")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Println(path)
	}
	return nil
}

// fileSafe makes MAC-address style ids usable as file names.
func fileSafe(id string) string {
	return strings.NewReplacer(":", "-", "/", "-", "\\", "-", " ", "_").Replace(id)
}
