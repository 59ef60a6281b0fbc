package config

import (
	"fmt"

	"github.com/mezonai/mnlight/store"
	"gopkg.in/ini.v1"
)

type OrphanPolicy string

const (
	OrphanHold   OrphanPolicy = "hold"
	OrphanReject OrphanPolicy = "reject"
)

type ChainConfig struct {
	OrphanPolicy OrphanPolicy `ini:"orphan_policy"`
	MaxOrphans   int          `ini:"max_orphans"`
	EventBuffer  int          `ini:"event_buffer"`
}

// MasternodeConfig bounds the list history to Retention heights below the current list.
type MasternodeConfig struct {
	Retention    uint32 `ini:"retention"`
	SnapshotPath string `ini:"snapshot_path"`
	SaveOnUpdate bool   `ini:"save_on_update"`
}

type MetricsConfig struct {
	Listen string `ini:"listen"`
}

type LogConfig struct {
	Level string `ini:"level"`
}

// NodeConfig is the INI-file configuration of a light client process.
type NodeConfig struct {
	Store      store.StoreConfig
	Chain      ChainConfig
	Masternode MasternodeConfig
	Metrics    MetricsConfig
	Log        LogConfig
}

func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		OrphanPolicy: OrphanHold,
		MaxOrphans:   100,
		EventBuffer:  50,
	}
}

func DefaultMasternodeConfig() MasternodeConfig {
	return MasternodeConfig{
		Retention: 100,
	}
}

func DefaultNodeConfig() *NodeConfig {
	return &NodeConfig{
		Store: store.StoreConfig{
			Type:      store.LevelDBStoreType,
			Directory: "./data/headers",
		},
		Chain:      DefaultChainConfig(),
		Masternode: DefaultMasternodeConfig(),
		Log:        LogConfig{Level: "info"},
	}
}

// LoadNodeConfig reads sections [store], [chain], [masternode], [metrics] and [log]
// from an .ini file on top of the defaults
func LoadNodeConfig(path string) (*NodeConfig, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	cfg := DefaultNodeConfig()
	sections := []struct {
		name string
		dst  interface{}
	}{
		{"store", &cfg.Store},
		{"chain", &cfg.Chain},
		{"masternode", &cfg.Masternode},
		{"metrics", &cfg.Metrics},
		{"log", &cfg.Log},
	}
	for _, s := range sections {
		if err := file.Section(s.name).MapTo(s.dst); err != nil {
			return nil, fmt.Errorf("failed to map [%s]: %w", s.name, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *NodeConfig) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	switch c.Chain.OrphanPolicy {
	case OrphanHold, OrphanReject:
	default:
		return fmt.Errorf("unknown orphan policy %q", c.Chain.OrphanPolicy)
	}
	if c.Chain.MaxOrphans < 0 {
		return fmt.Errorf("max_orphans must not be negative")
	}
	if c.Masternode.Retention == 0 {
		return fmt.Errorf("masternode retention must be at least 1")
	}
	return nil
}
