package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monument-sim/monument/pkg/models"
	"github.com/monument-sim/monument/pkg/store"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage agents in a simulation",
}

var agentScopesCmd = &cobra.Command{
	Use:   "scopes <namespace> <agent_id> <scope,...>",
	Short: "Replace an agent's action scopes",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		scopes := make([]models.Scope, 0)
		for _, sc := range strings.Split(args[2], ",") {
			sc = strings.TrimSpace(sc)
			if !models.ValidScope(sc) {
				return fmt.Errorf("invalid scope %q", sc)
			}
			scopes = append(scopes, models.Scope(sc))
		}
		return withAgentStore(cmd.Context(), args[0], func(ctx context.Context, st *store.Store) error {
			err := st.Update(ctx, func(q *store.Queries) error {
				return q.UpdateActorScopes(ctx, args[1], scopes)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Scopes for agent '%s' set to %v\n", args[1], scopes)
			return nil
		})
	},
}

var agentInstructionsCmd = &cobra.Command{
	Use:   "instructions <namespace> <agent_id> <text>",
	Short: "Replace an agent's custom instructions",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAgentStore(cmd.Context(), args[0], func(ctx context.Context, st *store.Store) error {
			err := st.Update(ctx, func(q *store.Queries) error {
				return q.UpdateActorInstructions(ctx, args[1], args[2])
			})
			if err != nil {
				return err
			}
			fmt.Printf("Instructions for agent '%s' updated\n", args[1])
			return nil
		})
	},
}

var agentModelCmd = &cobra.Command{
	Use:   "model <namespace> <agent_id> <model>",
	Short: "Set an agent's LLM model label",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAgentStore(cmd.Context(), args[0], func(ctx context.Context, st *store.Store) error {
			err := st.Update(ctx, func(q *store.Queries) error {
				return q.UpdateActorModel(ctx, args[1], args[2])
			})
			if err != nil {
				return err
			}
			fmt.Printf("Model for agent '%s' set to %s\n", args[1], args[2])
			return nil
		})
	},
}

var agentRotateCmd = &cobra.Command{
	Use:   "rotate-secret <namespace> <agent_id>",
	Short: "Generate and install a new secret for an agent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAgentStore(cmd.Context(), args[0], func(ctx context.Context, st *store.Store) error {
			secret, err := store.GenerateSecret()
			if err != nil {
				return err
			}
			err = st.Update(ctx, func(q *store.Queries) error {
				return q.UpdateActorSecret(ctx, args[1], secret)
			})
			if err != nil {
				return err
			}
			fmt.Printf("New secret for agent '%s': %s\n", args[1], secret)
			return nil
		})
	},
}

var agentEliminateCmd = &cobra.Command{
	Use:   "eliminate <namespace> <agent_id>",
	Short: "Remove an agent from play",
	Long: `Soft-deletes an agent: it stops counting toward tick completion and
disappears from rosters, but its history rows are preserved.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAgentStore(cmd.Context(), args[0], func(ctx context.Context, st *store.Store) error {
			err := st.Update(ctx, func(q *store.Queries) error {
				return q.EliminateActor(ctx, args[1])
			})
			if err != nil {
				return err
			}
			fmt.Printf("Agent '%s' eliminated from namespace '%s'\n", args[1], args[0])
			return nil
		})
	},
}

func withAgentStore(ctx context.Context, namespace string, fn func(context.Context, *store.Store) error) error {
	st, err := store.Open(ctx, dataDir, namespace)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func init() {
	agentCmd.AddCommand(agentScopesCmd, agentInstructionsCmd, agentModelCmd, agentRotateCmd, agentEliminateCmd)
	rootCmd.AddCommand(agentCmd)
}
