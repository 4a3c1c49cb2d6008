package main

import (
	"encoding/json"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"homewatch/internal/config"
	"homewatch/internal/credentials"
)

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the netatmo_credentials file",
	}
	cmd.AddCommand(credentialsSetCmd())
	cmd.AddCommand(credentialsShowCmd())
	return cmd
}

func credentialsSetCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Interactively write Netatmo OAuth credentials",
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := credentialsPath(file)
			if err != nil {
				return err
			}

			questions := []*survey.Question{
				{
					Name:     "clientID",
					Prompt:   &survey.Input{Message: "CLIENT_ID:"},
					Validate: survey.Required,
				},
				{
					Name:     "clientSecret",
					Prompt:   &survey.Password{Message: "CLIENT_SECRET:"},
					Validate: survey.Required,
				},
				{
					Name:   "refreshToken",
					Prompt: &survey.Password{Message: "REFRESH_TOKEN (xxxx|xxxx):"},
					Validate: func(ans interface{}) error {
						token, _ := ans.(string)
						return credentials.ValidateRefreshToken(token)
					},
				},
			}

			answers := struct {
				ClientID     string
				ClientSecret string
				RefreshToken string
			}{}
			if err := survey.Ask(questions, &answers); err != nil {
				return err
			}

			creds := credentials.Credentials{
				ClientID:     answers.ClientID,
				ClientSecret: answers.ClientSecret,
				RefreshToken: answers.RefreshToken,
			}
			if err := credentials.Write(path, creds); err != nil {
				return err
			}

			fmt.Println(color.GreenString("wrote %s", path))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Credentials file path (defaults to the configured location)")
	return cmd
}

func credentialsShowCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the credentials with secrets redacted",
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := credentialsPath(file)
			if err != nil {
				return err
			}

			creds, err := credentials.Load(path)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(creds.Redacted(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Credentials file path (defaults to the configured location)")
	return cmd
}

// credentialsPath prefers the explicit flag, then the config file, then the
// well-known default so `credentials set` works before any config exists.
func credentialsPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg, err := config.Load(configPath); err == nil {
		return cfg.CredentialsFile, nil
	}
	return config.DefaultCredentialsPath(), nil
}
