package main

import (
	"github.com/BurntSushi/toml"

	"github.com/nylonring/corert/internal/abi"
	"github.com/nylonring/corert/internal/errs"
)

// HostConfig is nylonctl's TOML-configured bootstrap: which plugin
// directory to discover modules in, the ABI version this host
// presents to loaded modules, and how many workers the demo task
// subsystem run-tasks spins up. Grounded on the pack's
// toml.DecodeFile usage (Creative-Workz-Studio-LLC's config loader).
type HostConfig struct {
	PluginDir string `toml:"plugin_dir"`
	AbiMajor  uint32 `toml:"abi_major"`
	AbiMinor  uint32 `toml:"abi_minor"`
	Workers   int    `toml:"workers"`
}

// defaultHostConfig is used whenever no config file is given or found;
// nylonctl is usable with zero configuration against the current
// directory.
func defaultHostConfig() HostConfig {
	return HostConfig{PluginDir: ".", AbiMajor: 1, AbiMinor: 0, Workers: 4}
}

func loadHostConfig(path string) (HostConfig, error) {
	cfg := defaultHostConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return HostConfig{}, errs.E("nylonctl.loadHostConfig", errs.Internal, err)
	}
	return cfg, nil
}

func (c HostConfig) abiVersion() abi.Version {
	return abi.Version{Major: c.AbiMajor, Minor: c.AbiMinor}
}
