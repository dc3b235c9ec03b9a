// Monument server and operator CLI: serves the agent-facing HTTP API and
// manages simulation namespaces.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/monument-sim/monument/pkg/version"
)

var (
	dataDir string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "monument",
	Short: "Multi-agent grid world simulator",
	Long: `Monument runs persistent multi-agent grid simulations with a
bulk-synchronous tick loop: agents fetch a context snapshot, submit one
action per supertick, and the world advances when everyone has spoken.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(envFile); err == nil {
			slog.Info("Loaded environment", "path", envFile)
		}
		if dataDir == "" {
			dataDir = os.Getenv("MONUMENT_DATA_DIR")
		}
		if dataDir == "" {
			dataDir = "./data"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding namespace databases (default $MONUMENT_DATA_DIR or ./data)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to .env file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
