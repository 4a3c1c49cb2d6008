package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"homewatch/internal/config"
	"homewatch/internal/detect"
	"homewatch/internal/recognize"
)

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <image>",
		Short: "Run detection on a local JPEG and match persons against the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			detector, err := detect.NewClient(detect.Config{
				URL:        cfg.Detector.URL,
				Confidence: cfg.Detector.Confidence,
			})
			if err != nil {
				return err
			}

			roster, err := recognize.LoadRoster(cfg.Roster.File)
			if err != nil {
				return fmt.Errorf("load roster: %w", err)
			}
			matcher, err := recognize.NewMatcher(roster, cfg.Roster.MatchThreshold)
			if err != nil {
				return err
			}

			detections, err := detector.Detect(ctx, image)
			if err != nil {
				return err
			}
			if len(detections) == 0 {
				fmt.Println("no detections")
				return nil
			}

			for _, d := range detections {
				line := fmt.Sprintf("%-10s  %.2f", d.Class, d.Confidence)
				if d.IsPerson() && len(d.Embedding) > 0 {
					match := matcher.Match(d.Embedding)
					if match.Name != recognize.Unknown {
						line += "  " + color.GreenString("%s (%.2f)", match.Name, match.Score)
					} else {
						line += "  " + color.YellowString("%s (%.2f)", recognize.Unknown, match.Score)
					}
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
