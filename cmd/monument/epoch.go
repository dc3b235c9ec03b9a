package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/monument-sim/monument/pkg/store"
)

var epochCmd = &cobra.Command{
	Use:   "epoch <namespace> <ticks>",
	Short: "Set the epoch limit of a simulation",
	Long: `Sets the tick at which the simulation pauses. Raising the epoch of a
PAUSED simulation returns it to COLLECT so agents may resume.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		epoch, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("ticks must be an integer, got %q", args[1])
		}

		st, err := store.Open(ctx, dataDir, args[0])
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SetEpoch(ctx, epoch); err != nil {
			return err
		}
		fmt.Printf("Epoch for namespace '%s' set to %d\n", args[0], epoch)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(epochCmd)
}
