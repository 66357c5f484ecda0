package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"swarmnode/core"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newMenuCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive REPL: list, pull <file>, status, peers, quit",
		RunE: func(cmd *cobra.Command, args []string) error {
			node, _, err := bootstrap(flags)
			if err != nil {
				return err
			}
			defer node.Stop()
			return runMenu(node, flags)
		},
	}
}

func runMenu(node *core.Node, flags *rootFlags) error {
	fmt.Printf("swarmnode listening on %s, serving %s\n", node.Self, node.ServeDir())
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, rest := fields[0], fields[1:]

		switch cmd {
		case "list":
			menuList(node, flags)
		case "pull":
			if len(rest) < 1 {
				fmt.Println("usage: pull <filename>")
				continue
			}
			menuPull(node, flags, strings.Join(rest, " "))
		case "status":
			menuStatus(node)
		case "peers":
			menuPeers(node)
		case "quit", "exit":
			return nil
		default:
			fmt.Printf("unknown command %q (try: list, pull <file>, status, peers, quit)\n", cmd)
		}
	}
}

func menuList(node *core.Node, flags *rootFlags) {
	entries, err := node.Scan(cmdContext(), flags.portStart, flags.portEnd)
	if err != nil {
		fmt.Printf("scan failed: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("no files available from other peers")
		return
	}
	for i, e := range entries {
		fmt.Printf("[%d] %s (%d seeder%s)\n", i+1, e.Filename, len(e.Seeders), plural(len(e.Seeders)))
	}
}

func menuPull(node *core.Node, flags *rootFlags, filename string) {
	entries, err := node.Scan(cmdContext(), flags.portStart, flags.portEnd)
	if err != nil {
		fmt.Printf("scan failed: %v\n", err)
		return
	}
	var seeders []core.PeerEndpoint
	for _, e := range entries {
		if e.Filename == filename {
			seeders = e.Seeders
			break
		}
	}
	if len(seeders) == 0 {
		fmt.Printf("no seeders found for %q\n", filename)
		return
	}

	job := node.StartDownload(filename, seeders)
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetDescription(filename),
		progressbar.OptionShowBytes(true),
	)

	for !job.Finished() {
		snap := job.Progress.Snapshot()
		if snap.TotalBytes > 0 {
			bar.ChangeMax64(snap.TotalBytes)
			bar.Set64(snap.DoneBytes)
		}
		time.Sleep(100 * time.Millisecond)
	}

	snap := job.Progress.Snapshot()
	bar.Finish()
	if snap.Success {
		fmt.Printf("\ndownload complete: %s (%s)\n", filename, humanize.Bytes(uint64(snap.TotalBytes)))
	} else {
		fmt.Printf("\ndownload failed: %s\n", filename)
	}
}

func menuStatus(node *core.Node) {
	jobs := node.Jobs.List()
	if len(jobs) == 0 {
		fmt.Println("no downloads yet")
		return
	}
	for _, j := range jobs {
		snap := j.Progress.Snapshot()
		state := "active"
		switch {
		case snap.Success:
			state = "success"
		case snap.Failed:
			state = "failed"
		case snap.Pending:
			state = "pending"
		}
		fmt.Printf("%s  %-20s  %s/%s  %s\n",
			j.ID[:8], j.Filename,
			humanize.Bytes(uint64(snap.DoneBytes)), humanize.Bytes(uint64(snap.TotalBytes)),
			state)
	}
}

func menuPeers(node *core.Node) {
	status := node.Health.Status()
	if len(status) == 0 {
		fmt.Println("no seeder failures recorded")
		return
	}
	for peer, n := range status {
		fmt.Printf("%s  consecutive temp failures: %s\n", peer, strconv.Itoa(n))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
