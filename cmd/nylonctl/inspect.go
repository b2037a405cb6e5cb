package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nylonring/corert/internal/loaderbackend"
	"github.com/nylonring/corert/internal/module"
	"github.com/nylonring/corert/internal/symbol"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <module-name>",
		Short: "load plugin-dir's manifests and print one loaded module's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadHostConfig(configPath)
			if err != nil {
				return err
			}

			handles, err := module.NewDiscoverer(cfg.PluginDir).Scan()
			if err != nil {
				return err
			}

			subsystem := module.NewSubsystem(symbol.NewRegistry(), loaderbackend.NewNative(cfg.abiVersion()))
			if _, err := subsystem.LoadSet(handles); err != nil {
				return fmt.Errorf("load_set: %w", err)
			}

			info, ok := subsystem.FindByName(args[0])
			if !ok {
				return fmt.Errorf("module %q is not loaded", args[0])
			}
			fmt.Printf("name:        %s\n", info.Name)
			fmt.Printf("description: %s\n", info.Description)
			fmt.Printf("author:      %s\n", info.Author)
			fmt.Printf("license:     %s\n", info.License)
			fmt.Printf("path:        %s\n", info.Path)
			fmt.Printf("loaded:      %t\n", info.IsLoaded())
			fmt.Printf("strong refs: %d\n", info.StrongCount())
			return nil
		},
	}
}
