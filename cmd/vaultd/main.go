// vaultd is the LinkVault sync server: it stores one vault document per
// identity and streams accepted writes to each identity's watch feed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkmeir/linkvault/internal/auth"
	"github.com/linkmeir/linkvault/internal/config"
	"github.com/linkmeir/linkvault/internal/logging"
	"github.com/linkmeir/linkvault/internal/models"
	"github.com/linkmeir/linkvault/internal/server"
	"github.com/linkmeir/linkvault/internal/store"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "vaultd",
	Short: "LinkVault sync server",
	Long: `vaultd stores one vault document per identity and pushes every
accepted write to the identity's open watch connections, so all devices
of the same identity converge on the latest written state.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sync server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}

		logging.Init(os.Stderr, logging.Options{
			Level: cfg.LogLevel,
			File:  cfg.LogFile,
		})

		db, err := store.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open data directory: %w", err)
		}
		defer db.Close()

		srv := server.New(db, auth.NewVerifier(cfg.JWTSecret))
		httpSrv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logging.Info("vaultd listening", map[string]interface{}{"addr": cfg.ListenAddr})
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			logging.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return err
			}
		}
		return nil
	},
}

var (
	tokenUID  string
	tokenName string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for an identity",
	Long: `token signs an access token with this server's jwt_secret. Hand
the token to linkvault login on the client.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return fmt.Errorf("jwt_secret is not configured")
		}
		if tokenUID == "" {
			return fmt.Errorf("--uid is required")
		}

		token, err := auth.IssueToken(cfg.JWTSecret, models.Identity{
			UID:         tokenUID,
			DisplayName: tokenName,
		}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")

	tokenCmd.Flags().StringVar(&tokenUID, "uid", "", "identity the token is issued for")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name embedded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
