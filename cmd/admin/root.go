package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Joseph-Bethune/Gabble-Live/internal/bootstrap"
	"github.com/Joseph-Bethune/Gabble-Live/internal/config"
	"github.com/Joseph-Bethune/Gabble-Live/internal/observability"
)

// opener connects the stores a command works on.
type opener func(ctx context.Context) (*bootstrap.Runtime, error)

// openFromConfig loads the same configuration the server uses.
func openFromConfig(ctx context.Context) (*bootstrap.Runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.SetupLogger(cfg.Env)
	return bootstrap.InitRuntime(ctx, cfg)
}

type admin struct {
	open       opener
	jsonOutput bool
}

func newRootCmd(open opener) *cobra.Command {
	a := &admin{open: open}

	root := &cobra.Command{
		Use:   "gabble-admin",
		Short: "Maintenance commands for a Gabble deployment",
		Long: `gabble-admin works directly on the Gabble database.

It reads the same config.yml and environment variables as the API server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(a.migrateCmd(), a.seedCmd(), a.usersCmd(), a.rolesCmd())
	return root
}

// withRuntime opens the stores for the duration of fn.
func (a *admin) withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *bootstrap.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(ctx, rt)
}

func (a *admin) printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
