package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newPullCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull <filename>",
		Short: "Scan the swarm, then download one file non-interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]

			node, _, err := bootstrap(flags)
			if err != nil {
				return err
			}
			defer node.Stop()

			entries, err := node.Scan(cmdContext(), flags.portStart, flags.portEnd)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			for _, e := range entries {
				if e.Filename == filename {
					job := node.StartDownload(filename, e.Seeders)
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
					bar.Finish()
					snap := job.Progress.Snapshot()
					if !snap.Success {
						return fmt.Errorf("download of %q failed", filename)
					}
					fmt.Printf("\ndownloaded %s (%s)\n", filename, humanize.Bytes(uint64(snap.TotalBytes)))
					return nil
				}
			}
			return fmt.Errorf("no seeders found for %q", filename)
		},
	}
	return cmd
}
