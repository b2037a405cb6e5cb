package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nylonring/corert/internal/loaderbackend"
	"github.com/nylonring/corert/internal/module"
	"github.com/nylonring/corert/internal/symbol"
)

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "discover module.json manifests under plugin-dir and load them as one batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadHostConfig(configPath)
			if err != nil {
				return err
			}

			discoverer := module.NewDiscoverer(cfg.PluginDir)
			handles, err := discoverer.Scan()
			if err != nil {
				return err
			}
			if len(handles) == 0 {
				fmt.Printf("no module.json manifests found under %s\n", cfg.PluginDir)
				return nil
			}

			loader := loaderbackend.NewNative(cfg.abiVersion())
			subsystem := module.NewSubsystem(symbol.NewRegistry(), loader)
			infos, err := subsystem.LoadSet(handles)
			if err != nil {
				return fmt.Errorf("load_set: %w", err)
			}
			for _, info := range infos {
				fmt.Printf("loaded %s (%s) from %s\n", info.Name, info.Description, info.Path)
			}
			return nil
		},
	}
}
