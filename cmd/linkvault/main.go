// linkvault is the command line client: a local-first manager for links
// and notes that syncs the whole collection with a vaultd server when an
// identity is signed in.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkmeir/linkvault/internal/auth"
	"github.com/linkmeir/linkvault/internal/config"
	"github.com/linkmeir/linkvault/internal/logging"
	"github.com/linkmeir/linkvault/internal/reconcile"
	"github.com/linkmeir/linkvault/internal/remote"
	"github.com/linkmeir/linkvault/internal/store"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "linkvault",
	Short: "Local-first link and note manager",
	Long: `linkvault keeps links and notes in a local vault and, when signed
in, mirrors the collection to a vaultd server so every device of the
same identity converges on the latest written state.`,
	SilenceUsage: true,
}

// app bundles everything a command needs after wiring.
type app struct {
	cfg    *config.Config
	engine *reconcile.Engine
	close  func()
}

// setup loads configuration, opens the local vault and, when an identity
// token is configured, signs in and waits for the first reconciliation to
// settle so commands operate on the authoritative state.
func setup(waitForSync bool) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Command output goes to stdout; diagnostics stay out of the way
	// unless a log file is configured.
	logging.Init(io.Discard, logging.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}

	var remoteStore remote.DocumentStore
	if cfg.RemoteURL != "" {
		remoteStore = remote.NewClient(cfg.RemoteURL, cfg.AuthToken)
	}

	engine := reconcile.NewEngine(store.NewSnapshotStore(db), remoteStore)
	a := &app{cfg: cfg, engine: engine, close: func() { db.Close() }}

	if cfg.AuthToken != "" && cfg.RemoteURL != "" {
		authenticator := auth.NewTokenAuthenticator()
		authenticator.OnAuthStateChanged(engine.HandleAuthChange)
		if _, err := authenticator.SignIn(context.Background(), cfg.AuthToken); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: sign-in failed, working locally: %v\n", err)
		} else if waitForSync {
			waitSettled(engine)
		}
	}
	return a, nil
}

// waitSettled blocks until the engine leaves the syncing state or the
// deadline passes. A one-shot process must not exit mid-push.
func waitSettled(e *reconcile.Engine) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if s := e.Status(); s != reconcile.StatusSyncing {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// finish pushes pending writes before the process exits and reports a
// degraded sync loudly.
func (a *app) finish() {
	waitSettled(a.engine)
	if a.engine.Status() == reconcile.StatusError {
		fmt.Fprintln(os.Stderr, "Warning: changes saved locally but not synced")
	}
	a.close()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
