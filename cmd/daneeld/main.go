// Command daneeld runs the DANEEL engine: the five-stage cognitive cycle,
// the sleep/dream scheduler, and the injection HTTP surface.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/royalbit/daneel/core/box"
	"github.com/royalbit/daneel/core/config"
	"github.com/royalbit/daneel/core/daneel"
	"github.com/royalbit/daneel/core/inject"
	"github.com/royalbit/daneel/core/vector"
	"github.com/spf13/cobra"
)

var (
	configFile string
	listenAddr string
)

func main() {
	root := &cobra.Command{
		Use:   "daneeld",
		Short: "DANEEL cognitive engine daemon",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file (optional, overlays Default())")
	root.AddCommand(runCmd(), statusCmd(), injectCmd(), verifyBoxCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()
	var err error
	if configFile != "" {
		cfg, err = cfg.LoadFile(configFile)
		if err != nil {
			return cfg, err
		}
	}
	return cfg.LoadEnv()
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "start the engine: cycle runner, dream scheduler, injection HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("daneeld: failed to load config: %w", err)
			}

			log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
			eng, err := daneel.New(cfg, listenAddr, log)
			if err != nil {
				return fmt.Errorf("daneeld: failed to construct engine: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := eng.Start(ctx); err != nil {
				return fmt.Errorf("daneeld: failed to start engine: %w", err)
			}
			log.Info("daneel engine started", "listen_addr", listenAddr)

			<-ctx.Done()
			log.Info("shutdown signal received, stopping engine")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return eng.Stop(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", ":8088", "address the injection HTTP surface listens on")
	return cmd
}

func statusCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "print a snapshot of a running engine's metrics (its /metrics readout)",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
			if err != nil {
				return fmt.Errorf("daneeld: failed to reach %s: %w", addr, err)
			}
			defer resp.Body.Close()

			var snapshot map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
				return fmt.Errorf("daneeld: failed to decode status response: %w", err)
			}

			keys := make([]string, 0, len(snapshot))
			for k := range snapshot {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"metric", "value"})
			for _, k := range keys {
				table.Append([]string{k, fmt.Sprintf("%v", snapshot[k])})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8088", "engine's injection HTTP address")
	return cmd
}

func injectCmd() *cobra.Command {
	var addr, keyID, label, secretHex string
	var salience float64
	var dims []float64

	cmd := &cobra.Command{
		Use:   "inject",
		Short: "send a signed test injection to a running engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(dims) == 0 {
				return fmt.Errorf("daneeld: --vector must name at least one component")
			}
			v := vector.Vector(dims)
			now := time.Now()
			sig := inject.Sign([]byte(secretHex), now, label, v)

			body, err := json.Marshal(map[string]any{
				"key_id":      keyID,
				"label":       label,
				"vector":      dims,
				"salience":    salience,
				"received_at": now,
				"signature":   sig,
			})
			if err != nil {
				return err
			}

			resp, err := http.Post(fmt.Sprintf("http://%s/inject", addr), "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("daneeld: failed to reach %s: %w", addr, err)
			}
			defer resp.Body.Close()

			var out map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return fmt.Errorf("daneeld: failed to decode inject response: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8088", "engine's injection HTTP address")
	cmd.Flags().StringVar(&keyID, "key-id", "", "injection key_id (required)")
	cmd.Flags().StringVar(&label, "label", "cli", "thought label")
	cmd.Flags().StringVar(&secretHex, "secret", "", "raw HMAC secret for the named key_id (required; must match the engine's DailyKeyStore)")
	cmd.Flags().Float64Var(&salience, "salience", 0.5, "declared salience in [0,1]")
	cmd.Flags().Float64SliceVar(&dims, "vector", nil, "vector components, comma-separated")
	cmd.MarkFlagRequired("key-id")
	cmd.MarkFlagRequired("secret")
	return cmd
}

func verifyBoxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-box",
		Short: "verify THE BOX's Four Laws hash and exit nonzero on mismatch",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := box.LoadDefault()
			if err != nil {
				return err
			}
			fmt.Printf("THE BOX verified: %d laws, hash %s\n", len(b.Laws()), b.Hash())
			return nil
		},
	}
}
