package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bodycoach/internal/chat"
	"bodycoach/internal/client"
	"bodycoach/internal/config"
	"bodycoach/internal/forms"
	"bodycoach/internal/identity"
	"bodycoach/internal/platform/logging"
	"bodycoach/internal/session"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coach",
		Short: "MY BODY COACH terminal client",
		Long:  "coach signs in to MY BODY COACH and chats with the nutrition coach.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, session.LoginPath)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/bodycoach/config.yaml)")

	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newPingCmd())

	return rootCmd
}

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account, then start chatting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, forms.RegisterPath)
		},
	}
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the functions server is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadClientConfig()
			if err != nil {
				return err
			}
			text, err := client.New(cfg.APIBaseURL, nil).HelloWorld(cmd.Context())
			if err != nil {
				return fmt.Errorf("ping %s: %w", cfg.APIBaseURL, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func loadClientConfig() (config.ClientConfig, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultClientConfigPath()
	}
	return config.LoadClient(path)
}

func runApp(cmd *cobra.Command, start string) error {
	cfg, err := loadClientConfig()
	if err != nil {
		return err
	}

	logger := logging.NewTo(os.Stderr, cfg.LogLevel, "text")
	if !cfg.AuthConfigured() {
		logger.Warn("auth provider is not configured; set FIREBASE_API_KEY or the config file")
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	functions := client.New(cfg.APIBaseURL, httpClient)
	manager := buildManager(cfg, functions, httpClient, logger)
	manager.Start()
	defer manager.Close()

	a := newApp(cmd.InOrStdin(), cmd.OutOrStdout(), manager, chat.NewConversation(manager, functions, logger))
	a.Navigate(start)
	return a.run(cmd.Context())
}

func buildManager(cfg config.ClientConfig, functions *client.Client, httpClient *http.Client, logger *slog.Logger) *session.Manager {
	if emulator := cfg.EmulatorURL(); emulator != "" {
		logger.Info("auth emulator connected", "url", emulator)
	}

	auth := identity.New(identity.Config{
		APIKey:      authAPIKey(cfg),
		EmulatorURL: cfg.EmulatorURL(),
		HTTPClient:  httpClient,
	})
	return session.NewManager(session.NewIdentityProvider(auth), functions, logger)
}

// authAPIKey blanks a missing or placeholder key so the identity client
// reports itself unconfigured instead of calling the provider.
func authAPIKey(cfg config.ClientConfig) string {
	if !cfg.AuthConfigured() {
		return ""
	}
	return cfg.Firebase.APIKey
}
