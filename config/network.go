package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/holiman/uint256"
	"github.com/mezonai/mnlight/block"
	"github.com/mezonai/mnlight/common"
	"gopkg.in/yaml.v3"
)

const defaultMaxFutureBlockTime = 2 * 60 * 60

// GenesisConfig describes the first header of a network.
type GenesisConfig struct {
	Version            int32  `yaml:"version"`
	Time               uint32 `yaml:"time"`
	Bits               uint32 `yaml:"bits"`
	Nonce              uint32 `yaml:"nonce"`
	MerkleRoot         string `yaml:"merkle_root"`
	MasternodeListRoot string `yaml:"masternode_list_root,omitempty"`
	// Hash, when set, must equal the hash of the header built from the fields above.
	Hash string `yaml:"hash,omitempty"`
}

type Checkpoint struct {
	Height uint32 `yaml:"height"`
	Hash   string `yaml:"hash"`
}

// NetworkParams holds the consensus constants of one network. Instances are passed
// to the components that need them; there is no process-wide current network.
type NetworkParams struct {
	Name               string        `yaml:"name"`
	PacketMagic        uint32        `yaml:"packet_magic"`
	DefaultPort        uint16        `yaml:"default_port"`
	AddressVersion     byte          `yaml:"address_version"`
	Genesis            GenesisConfig `yaml:"genesis"`
	PowLimitBits       uint32        `yaml:"pow_limit_bits"`
	TargetTimespan     int64         `yaml:"target_timespan_seconds"`
	TargetSpacing      int64         `yaml:"target_spacing_seconds"`
	NoRetargeting      bool          `yaml:"no_retargeting"`
	MaxFutureBlockTime int64         `yaml:"max_future_block_time_seconds"`
	Checkpoints        []Checkpoint  `yaml:"checkpoints,omitempty"`

	genesis     block.Header
	genesisHash common.Hash
	powLimit    *uint256.Int
	checkpoints map[uint32]common.Hash
	cpHeights   []uint32
}

const genesisMerkleRoot = "894177137a45952cfed89dd395e7fc85208a53548f34defc7c1a85cb0736b3a3"

// MainNetParams returns the production network parameters.
func MainNetParams() *NetworkParams {
	return mustBuiltin(&NetworkParams{
		Name:           "main",
		PacketMagic:    0x8cc5f8d7,
		DefaultPort:    6331,
		AddressVersion: 68,
		Genesis: GenesisConfig{
			Version:    1,
			Time:       1505224800,
			Bits:       0x207fffff,
			Nonce:      12345,
			MerkleRoot: genesisMerkleRoot,
		},
		PowLimitBits:       0x207fffff,
		TargetTimespan:     60,
		TargetSpacing:      60,
		MaxFutureBlockTime: defaultMaxFutureBlockTime,
	})
}

// TestNetParams returns the public test network parameters.
func TestNetParams() *NetworkParams {
	return mustBuiltin(&NetworkParams{
		Name:           "test",
		PacketMagic:    0xc948169a,
		DefaultPort:    6332,
		AddressVersion: 139,
		Genesis: GenesisConfig{
			Version:    1,
			Time:       1454124731,
			Bits:       0x1e0ffff0,
			Nonce:      2402015,
			MerkleRoot: genesisMerkleRoot,
		},
		PowLimitBits:       0x207fffff,
		TargetTimespan:     60,
		TargetSpacing:      60,
		MaxFutureBlockTime: defaultMaxFutureBlockTime,
	})
}

// RegTestParams returns a local network with minimal difficulty and no retargeting.
func RegTestParams() *NetworkParams {
	return mustBuiltin(&NetworkParams{
		Name:           "regtest",
		PacketMagic:    0xfabfb5da,
		DefaultPort:    6333,
		AddressVersion: 140,
		Genesis: GenesisConfig{
			Version:    1,
			Time:       1505224800,
			Bits:       0x207fffff,
			Nonce:      0,
			MerkleRoot: genesisMerkleRoot,
		},
		PowLimitBits:       0x207fffff,
		TargetTimespan:     60,
		TargetSpacing:      60,
		NoRetargeting:      true,
		MaxFutureBlockTime: defaultMaxFutureBlockTime,
	})
}

// builtins pin the genesis hash as a checkpoint at height 0.
func mustBuiltin(p *NetworkParams) *NetworkParams {
	if err := p.init(); err != nil {
		panic(fmt.Sprintf("invalid built-in network %s: %v", p.Name, err))
	}
	p.Checkpoints = []Checkpoint{{Height: 0, Hash: p.genesisHash.String()}}
	if err := p.init(); err != nil {
		panic(fmt.Sprintf("invalid built-in network %s: %v", p.Name, err))
	}
	return p
}

// NewNetworkParams validates hand-built parameters and derives the genesis header,
// pow limit and checkpoint table from them.
func NewNetworkParams(p NetworkParams) (*NetworkParams, error) {
	if err := p.init(); err != nil {
		return nil, err
	}
	return &p, nil
}

// NetworkByName returns a built-in network.
func NetworkByName(name string) (*NetworkParams, error) {
	switch name {
	case "main", "mainnet":
		return MainNetParams(), nil
	case "test", "testnet":
		return TestNetParams(), nil
	case "regtest":
		return RegTestParams(), nil
	}
	return nil, fmt.Errorf("unknown network %q", name)
}

// LoadNetworkParams reads network parameters from a YAML file.
func LoadNetworkParams(path string) (*NetworkParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network params %s: %w", path, err)
	}
	p := &NetworkParams{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to decode network params %s: %w", path, err)
	}
	if err := p.init(); err != nil {
		return nil, fmt.Errorf("invalid network params %s: %w", path, err)
	}
	return p, nil
}

// ResolveNetwork treats nameOrPath as a built-in network name first, then as a file.
func ResolveNetwork(nameOrPath string) (*NetworkParams, error) {
	if p, err := NetworkByName(nameOrPath); err == nil {
		return p, nil
	}
	return LoadNetworkParams(nameOrPath)
}

// YAML renders the parameters in the format LoadNetworkParams reads.
func (p *NetworkParams) YAML() ([]byte, error) {
	return yaml.Marshal(p)
}

func (p *NetworkParams) init() error {
	if p.Name == "" {
		return fmt.Errorf("network name is empty")
	}
	if p.TargetSpacing <= 0 || p.TargetTimespan < p.TargetSpacing {
		return fmt.Errorf("target spacing %d and timespan %d are inconsistent", p.TargetSpacing, p.TargetTimespan)
	}
	if p.MaxFutureBlockTime <= 0 {
		p.MaxFutureBlockTime = defaultMaxFutureBlockTime
	}

	limit, err := block.TargetFromBits(p.PowLimitBits)
	if err != nil {
		return fmt.Errorf("pow limit: %w", err)
	}
	p.powLimit = limit

	g := block.Header{
		Version: p.Genesis.Version,
		Time:    p.Genesis.Time,
		Bits:    p.Genesis.Bits,
		Nonce:   p.Genesis.Nonce,
	}
	if g.MerkleRoot, err = common.NewHashFromStr(p.Genesis.MerkleRoot); err != nil {
		return fmt.Errorf("genesis merkle root: %w", err)
	}
	if p.Genesis.MasternodeListRoot != "" {
		if g.MasternodeListRoot, err = common.NewHashFromStr(p.Genesis.MasternodeListRoot); err != nil {
			return fmt.Errorf("genesis masternode list root: %w", err)
		}
	}
	p.genesis = g
	p.genesisHash = g.BlockHash()
	if p.Genesis.Hash != "" {
		want, err := common.NewHashFromStr(p.Genesis.Hash)
		if err != nil {
			return fmt.Errorf("genesis hash: %w", err)
		}
		if want != p.genesisHash {
			return fmt.Errorf("genesis hash %s does not match header hash %s", want, p.genesisHash)
		}
	}

	p.checkpoints = make(map[uint32]common.Hash, len(p.Checkpoints))
	p.cpHeights = make([]uint32, 0, len(p.Checkpoints))
	for _, cp := range p.Checkpoints {
		h, err := common.NewHashFromStr(cp.Hash)
		if err != nil {
			return fmt.Errorf("checkpoint %d: %w", cp.Height, err)
		}
		if _, dup := p.checkpoints[cp.Height]; dup {
			return fmt.Errorf("duplicate checkpoint at height %d", cp.Height)
		}
		p.checkpoints[cp.Height] = h
		p.cpHeights = append(p.cpHeights, cp.Height)
	}
	sort.Slice(p.cpHeights, func(i, j int) bool { return p.cpHeights[i] < p.cpHeights[j] })
	return nil
}

// GenesisHeader returns a copy of the genesis header.
func (p *NetworkParams) GenesisHeader() *block.Header {
	g := p.genesis
	return &g
}

func (p *NetworkParams) GenesisHash() common.Hash {
	return p.genesisHash
}

// PowLimit returns a copy of the easiest allowed target.
func (p *NetworkParams) PowLimit() *uint256.Int {
	return new(uint256.Int).Set(p.powLimit)
}

// RetargetInterval is the number of blocks between difficulty adjustments.
func (p *NetworkParams) RetargetInterval() uint32 {
	return uint32(p.TargetTimespan / p.TargetSpacing)
}

// CheckpointAt returns the checkpointed hash at height, if any.
func (p *NetworkParams) CheckpointAt(height uint32) (common.Hash, bool) {
	h, ok := p.checkpoints[height]
	return h, ok
}

// LastCheckpointAtOrBelow returns the highest checkpoint height not above height.
func (p *NetworkParams) LastCheckpointAtOrBelow(height uint32) (uint32, bool) {
	i := sort.Search(len(p.cpHeights), func(i int) bool { return p.cpHeights[i] > height })
	if i == 0 {
		return 0, false
	}
	return p.cpHeights[i-1], true
}

// AddCheckpoint pins hash at height. Intended for setup before the params are shared.
func (p *NetworkParams) AddCheckpoint(height uint32, hash common.Hash) error {
	prev := p.Checkpoints
	p.Checkpoints = append(append([]Checkpoint(nil), prev...), Checkpoint{Height: height, Hash: hash.String()})
	if err := p.init(); err != nil {
		p.Checkpoints = prev
		_ = p.init()
		return err
	}
	return nil
}
