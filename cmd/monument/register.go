package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monument-sim/monument/pkg/models"
	"github.com/monument-sim/monument/pkg/store"
)

var (
	registerX            int
	registerY            int
	registerFacing       string
	registerScopes       []string
	registerInstructions string
	registerModel        string
	registerSecret       string
)

var registerCmd = &cobra.Command{
	Use:   "register <namespace> <agent_id>",
	Short: "Register an agent in an existing simulation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, dataDir, args[0])
		if err != nil {
			return err
		}
		defer st.Close()

		scopes := make([]models.Scope, 0, len(registerScopes))
		for _, sc := range registerScopes {
			scopes = append(scopes, models.Scope(sc))
		}

		secret, err := st.RegisterActor(ctx, store.ActorSpec{
			ID:                 args[1],
			X:                  registerX,
			Y:                  registerY,
			Facing:             models.Facing(registerFacing),
			Scopes:             scopes,
			CustomInstructions: registerInstructions,
			LLMModel:           registerModel,
			Secret:             registerSecret,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Registered agent '%s' in namespace '%s'\n", args[1], args[0])
		fmt.Printf("Secret: %s\n", secret)
		return nil
	},
}

func init() {
	registerCmd.Flags().IntVar(&registerX, "x", 0, "spawn x coordinate")
	registerCmd.Flags().IntVar(&registerY, "y", 0, "spawn y coordinate")
	registerCmd.Flags().StringVar(&registerFacing, "facing", "N", "initial facing (N, S, E, W)")
	registerCmd.Flags().StringSliceVar(&registerScopes, "scopes", nil, "action scopes (default MOVE,PAINT,SPEAK,WAIT,SKIP)")
	registerCmd.Flags().StringVar(&registerInstructions, "instructions", "", "custom instructions shown in the agent's HUD")
	registerCmd.Flags().StringVar(&registerModel, "llm-model", "", "LLM model label for this agent")
	registerCmd.Flags().StringVar(&registerSecret, "secret", "", "pre-set secret (generated when empty)")
	rootCmd.AddCommand(registerCmd)
}
