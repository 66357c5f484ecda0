package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"swarmnode/api"
	"swarmnode/core"
	"swarmnode/db"

	"github.com/spf13/cobra"
)

func cmdContext() context.Context {
	return context.Background()
}

type rootFlags struct {
	dataDir    string
	portStart  int
	portEnd    int
	chunkBytes int64
}

func main() {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "swarmnode",
		Short: "Loopback peer-to-peer file sharing node",
	}
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", defaultDataDir(), "directory holding the node's database and serving subdirectories")
	root.PersistentFlags().IntVar(&flags.portStart, "port-start", 9000, "first port in the swarm's port range")
	root.PersistentFlags().IntVar(&flags.portEnd, "port-end", 9100, "last port in the swarm's port range")
	root.PersistentFlags().Int64Var(&flags.chunkBytes, "chunk-size", 1<<20, "chunk size in bytes")

	root.AddCommand(
		newServeCmd(flags),
		newMenuCmd(flags),
		newPullCmd(flags),
	)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swarmnode"
	}
	return filepath.Join(home, ".swarmnode")
}

// setupLogging mirrors the teacher's main.go: a file+stdout io.MultiWriter
// sink under the data directory.
func setupLogging(dataDir string) {
	logPath := filepath.Join(dataDir, "swarmnode.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("failed to open log file %s: %v", logPath, err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
}

// bootstrap initializes the data directory, database, and a started Node
// shared by every subcommand.
func bootstrap(flags *rootFlags) (*core.Node, *db.Settings, error) {
	if err := os.MkdirAll(flags.dataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	setupLogging(flags.dataDir)

	gdb, err := db.InitDB(filepath.Join(flags.dataDir, "swarmnode.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("init db: %w", err)
	}

	settings, err := db.LoadSettings(gdb)
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}

	portStart, portEnd := flags.portStart, flags.portEnd
	if settings.PortRangeStart != 0 {
		portStart, portEnd = settings.PortRangeStart, settings.PortRangeEnd
	}

	node, err := core.NewNode(flags.dataDir, core.ChunkSize(flags.chunkBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("new node: %w", err)
	}
	if err := node.Start(portStart, portEnd); err != nil {
		return nil, nil, fmt.Errorf("start node: %w", err)
	}

	return node, &settings, nil
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the node headless with its REST/WebSocket control plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			node, _, err := bootstrap(flags)
			if err != nil {
				return err
			}
			defer node.Stop()

			gdb, err := db.InitDB(filepath.Join(flags.dataDir, "swarmnode.db"))
			if err != nil {
				return err
			}

			server := api.NewServer(node, gdb)
			log.Printf("swarmnode serving on %s, swarm self=%s", addr, node.Self)

			go runShutdownWatch(server)
			return server.Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "listen", ":3666", "control plane listen address")
	return cmd
}

func runShutdownWatch(server *api.Server) {
	<-server.ShutdownChan
	log.Println("shutdown requested, exiting")
	os.Exit(0)
}
