package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mezonai/mnlight/block"
	"github.com/mezonai/mnlight/chain"
	"github.com/mezonai/mnlight/config"
	"github.com/mezonai/mnlight/events"
	"github.com/mezonai/mnlight/exception"
	"github.com/mezonai/mnlight/jsonx"
	"github.com/mezonai/mnlight/logx"
	"github.com/mezonai/mnlight/masternode"
	"github.com/mezonai/mnlight/monitoring"
	"github.com/mezonai/mnlight/store"
	"github.com/mezonai/mnlight/stringutil"
	"github.com/spf13/cobra"
)

type importConfig struct {
	network       string
	configPath    string
	headersPath   string
	diffsPath     string
	metricsListen string
}

var importCfg importConfig

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import headers and masternode list diffs",
	Long: `Accept hex-encoded headers line by line into the configured header store,
following the masternode list with diffs from a JSON-lines file.

Examples:
  mnlight import --network regtest --headers ./headers.txt
  mnlight import --network regtest --config node.ini --headers ./headers.txt --diffs ./diffs.jsonl
  mnlight import --network testnet --headers ./headers.txt --metrics-listen :9100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runImport(cmd.Context(), importCfg); err != nil {
			logx.Error("IMPORT CLI", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importCfg.network, "network", "regtest", "Network name or path to a YAML parameters file")
	importCmd.Flags().StringVar(&importCfg.configPath, "config", "", "Path to node .ini configuration")
	importCmd.Flags().StringVar(&importCfg.headersPath, "headers", "", "File with one hex-encoded header per line")
	importCmd.Flags().StringVar(&importCfg.diffsPath, "diffs", "", "File with one JSON masternode list diff per line")
	importCmd.Flags().StringVar(&importCfg.metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address while importing")
	_ = importCmd.MarkFlagRequired("headers")
}

func loadNodeConfig(path string) (*config.NodeConfig, error) {
	if path == "" {
		return config.DefaultNodeConfig(), nil
	}
	return config.LoadNodeConfig(path)
}

func loadDiffs(path string) (*masternode.MemoryDiffSource, error) {
	source := masternode.NewMemoryDiffSource()
	if path == "" {
		return source, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open diffs %s: %w", path, err)
	}
	defer f.Close()

	dec := jsonx.NewDecoder(f)
	for {
		var d masternode.Diff
		if err := dec.Decode(&d); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode diff %d: %w", source.Len()+1, err)
		}
		source.Add(&d)
	}
	return source, nil
}

func startMetricsServer(addr string) {
	monitoring.InitMetrics()
	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	exception.SafeGo("MetricsServer", func() {
		logx.Info("METRICS", "Serving metrics on", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logx.Error("METRICS", "Metrics server stopped:", err)
		}
	})
}

func newImportRouter(bus *events.EventBus) *events.EventRouter {
	router := events.NewEventRouter(bus)
	router.Handle(events.EventReorganization, func(ev events.ChainEvent) {
		r := ev.(*events.Reorganization)
		logx.Warn("IMPORT", fmt.Sprintf("Reorganization | old_tip=%s | new_tip=%s | fork_height=%d | depth=%d",
			r.OldTip(), r.BlockHash(), r.AncestorHeight(), r.Depth()))
	})
	router.Handle(events.EventCommitmentMismatch, func(ev events.ChainEvent) {
		m := ev.(*events.CommitmentMismatch)
		logx.Warn("IMPORT", fmt.Sprintf("Masternode commitment mismatch | height=%d | expected=%s | actual=%s",
			m.Height(), m.Expected(), m.Actual()))
	})
	router.Handle(events.EventMasternodeListUpdated, func(ev events.ChainEvent) {
		u := ev.(*events.MasternodeListUpdated)
		logx.Info("IMPORT", fmt.Sprintf("Masternode list updated | height=%d | root=%s | size=%d | valid=%d",
			u.Height(), u.MerkleRoot(), u.Size(), u.ValidCount()))
	})
	return router
}

func runImport(ctx context.Context, ic importConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	nodeCfg, err := loadNodeConfig(ic.configPath)
	if err != nil {
		return err
	}
	level, err := logx.ParseLevel(nodeCfg.Log.Level)
	if err != nil {
		return err
	}
	logx.SetLevel(level)

	params, err := config.ResolveNetwork(ic.network)
	if err != nil {
		return err
	}
	metricsAddr := ic.metricsListen
	if metricsAddr == "" {
		metricsAddr = nodeCfg.Metrics.Listen
	}
	if metricsAddr != "" {
		startMetricsServer(metricsAddr)
	}

	blocks, err := store.CreateStore(&nodeCfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open header store: %w", err)
	}
	defer blocks.Close()

	diffs, err := loadDiffs(ic.diffsPath)
	if err != nil {
		return err
	}

	bus := events.NewEventBusWithBuffer(nodeCfg.Chain.EventBuffer)
	router := newImportRouter(bus)
	router.Start()
	defer router.Stop()

	mgr := masternode.NewManager(nodeCfg.Masternode, diffs, bus)
	if nodeCfg.Masternode.SnapshotPath != "" {
		if ok, err := mgr.Load(); err != nil {
			logx.Warn("IMPORT", "Ignoring unreadable masternode snapshot:", err)
		} else if ok {
			logx.Info("IMPORT", "Restored masternode list at height", mgr.CurrentList().Height())
		}
	}

	cs, err := chain.NewChainState(params, blocks, nodeCfg.Chain, bus)
	if err != nil {
		return err
	}
	cs.AddListener(mgr)

	accepted, rejected, err := importHeaders(ctx, cs, ic.headersPath)
	if err != nil {
		return err
	}

	head := cs.BestHead()
	if head == nil {
		return fmt.Errorf("no header accepted from %s: the %s genesis header must come first", ic.headersPath, params.Name)
	}
	logx.Info("IMPORT", fmt.Sprintf("Import finished | network=%s | accepted=%d | rejected=%d | height=%d | head=%s | orphans=%d",
		params.Name, accepted, rejected, head.Height, head.Hash(), cs.OrphanCount()))

	if nodeCfg.Masternode.SnapshotPath != "" && !nodeCfg.Masternode.SaveOnUpdate && mgr.CurrentList() != nil {
		if err := mgr.Save(); err != nil {
			return fmt.Errorf("failed to save masternode snapshot: %w", err)
		}
		logx.Info("IMPORT", "Saved masternode snapshot to", nodeCfg.Masternode.SnapshotPath)
	}
	return nil
}

func importHeaders(ctx context.Context, cs *chain.ChainState, path string) (accepted, rejected int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open headers %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		header, err := block.FromHex(text)
		if err != nil {
			return accepted, rejected, fmt.Errorf("line %d: %w", line, err)
		}
		res, err := cs.Accept(ctx, header)
		if err != nil && res.Hash.IsZero() {
			rejected++
			logx.Warn("IMPORT", fmt.Sprintf("Rejected header | line=%d | hash=%s | err=%v", line, stringutil.ShortHash(header.BlockHash()), err))
			continue
		}
		if err != nil {
			logx.Warn("IMPORT", fmt.Sprintf("Listener failed | line=%d | hash=%s | err=%v", line, stringutil.ShortHash(header.BlockHash()), err))
		}
		accepted++
		logx.Debug("IMPORT", fmt.Sprintf("Header %s | line=%d | hash=%s", res.Status, line, res.Hash))
	}
	if err := scanner.Err(); err != nil {
		return accepted, rejected, fmt.Errorf("failed to read headers: %w", err)
	}
	return accepted, rejected, nil
}
