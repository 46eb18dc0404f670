package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/ripple/internal/errors"
	"github.com/vango-dev/ripple/pkg/snapshot"
)

func snapshotCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "snapshot [key]",
		Short: "Print a saved state snapshot as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			store, err := openStore(cfg.Snapshot)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("C003").WithDetail("snapshot.backend is not set")
			}
			defer store.Close()

			key := cfg.Snapshot.Key
			if len(args) == 1 {
				key = args[0]
			}
			state, err := snapshot.LoadState(cmd.Context(), store, key)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(state)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file or directory")

	return cmd
}
