package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent security events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, _, err := buildClient(ctx)
			if err != nil {
				return err
			}

			events, err := client.Events(ctx, size)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("no events found")
				return nil
			}

			for _, event := range events {
				fmt.Printf("%s  %-12s  camera %s  %s\n",
					event.Time.Format(time.RFC3339), event.Type, event.ModuleID, event.Message)
				for _, sub := range event.Subevents {
					media := "no snapshot"
					if !sub.Snapshot.Empty() || !sub.Vignette.Empty() {
						media = "snapshot available"
					}
					fmt.Printf("    %-12s  %s  %s\n", sub.Type, sub.Message, media)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 10, "Number of events to fetch")
	return cmd
}
