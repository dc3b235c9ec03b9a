package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/monument-sim/monument/pkg/config"
	"github.com/monument-sim/monument/pkg/store"
)

var (
	createSecretsFile string
	createForce       bool
	createSeed        int64
)

var createCmd = &cobra.Command{
	Use:   "create <config.yaml>",
	Short: "Create a simulation from a YAML definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate(cmd, args[0])
	},
}

func init() {
	createCmd.Flags().StringVarP(&createSecretsFile, "secrets-file", "s", "", "write agent secrets to this JSON file instead of stdout")
	createCmd.Flags().BoolVarP(&createForce, "force", "f", false, "overwrite the namespace if it exists")
	createCmd.Flags().Int64Var(&createSeed, "seed", 0, "seed for random placement (0 = time-based)")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, configPath string) error {
	ctx := cmd.Context()

	sim, err := config.LoadSim(configPath)
	if err != nil {
		return err
	}

	seed := createSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	specs, err := sim.Placements(rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	if createForce {
		if err := store.RemoveNamespace(dataDir, sim.Namespace); err != nil {
			return err
		}
	}

	st, err := store.Create(ctx, dataDir, sim.Namespace, sim.World.Width, sim.World.Height, sim.World.Goal, sim.World.Epoch)
	if err != nil {
		return err
	}
	defer st.Close()

	secrets := make(map[string]string, len(specs))
	for _, spec := range specs {
		secret, err := st.RegisterActor(ctx, spec)
		if err != nil {
			return err
		}
		secrets[spec.ID] = secret
	}

	fmt.Printf("Created simulation '%s' (%dx%d) with %d agents\n",
		sim.Namespace, sim.World.Width, sim.World.Height, len(secrets))

	if createSecretsFile != "" {
		data, err := json.MarshalIndent(secrets, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(createSecretsFile, data, 0o600); err != nil {
			return err
		}
		fmt.Printf("Secrets written to: %s\n", createSecretsFile)
		return nil
	}

	ids := make([]string, 0, len(secrets))
	for id := range secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Println("\nAgent secrets:")
	for _, id := range ids {
		fmt.Printf("%s: %s\n", id, secrets[id])
	}
	return nil
}
