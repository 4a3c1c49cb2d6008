package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func camerasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cameras",
		Short: "List the cameras in the watched home",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, _, err := buildClient(ctx)
			if err != nil {
				return err
			}

			cameras, err := client.Cameras(ctx)
			if err != nil {
				return err
			}
			if len(cameras) == 0 {
				fmt.Println("no cameras found")
				return nil
			}

			for _, camera := range cameras {
				kind := "indoor"
				if camera.IsOutdoor() {
					kind = "outdoor"
				}
				state := color.GreenString("monitoring")
				if !camera.Monitoring {
					state = color.RedString("off")
				}
				fmt.Printf("%s  %-20s  %-7s  %s\n", camera.ID, camera.Name, kind, state)
			}
			return nil
		},
	}
}
