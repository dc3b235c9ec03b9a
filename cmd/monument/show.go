package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/monument-sim/monument/pkg/models"
	"github.com/monument-sim/monument/pkg/store"
)

var showTick int

var showCmd = &cobra.Command{
	Use:   "show <namespace>",
	Short: "Show the state of a simulation",
	Long: `Prints the world summary: meta, actors, and painted tiles. With
--tick, the tile map and actor positions are replayed from history as they
stood after that supertick merged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, dataDir, args[0])
		if err != nil {
			return err
		}
		defer st.Close()

		var meta *models.Meta
		var actors []models.Actor
		var tiles []models.Tile
		err = st.View(ctx, func(q *store.Queries) error {
			if meta, err = q.Meta(ctx); err != nil {
				return err
			}
			if actors, err = q.LiveActors(ctx); err != nil {
				return err
			}
			tiles, err = q.Tiles(ctx)
			return err
		})
		if err != nil {
			return err
		}

		fmt.Printf("Namespace: %s\n", args[0])
		fmt.Printf("World:     %dx%d\n", meta.Width, meta.Height)
		fmt.Printf("Supertick: %d\n", meta.SupertickID)
		fmt.Printf("Phase:     %s\n", meta.Phase)
		fmt.Printf("Epoch:     %d\n", meta.Epoch)
		if meta.Goal != "" {
			fmt.Printf("Goal:      %s\n", meta.Goal)
		}

		if showTick >= 0 {
			return showAtTick(cmd, st, showTick)
		}

		fmt.Printf("\nActors (%d):\n", len(actors))
		for _, a := range actors {
			fmt.Printf("  %s at (%d, %d) facing %s\n", a.ID, a.X, a.Y, a.Facing)
		}

		painted := 0
		for _, t := range tiles {
			if t.Color != models.BlankColor {
				painted++
			}
		}
		fmt.Printf("\nPainted tiles: %d/%d\n", painted, len(tiles))
		return nil
	},
}

func showAtTick(cmd *cobra.Command, st *store.Store, tick int) error {
	ctx := cmd.Context()

	positions, err := st.ActorPositionsAtTick(ctx, tick)
	if err != nil {
		return err
	}
	tiles, err := st.TilesAtTick(ctx, tick)
	if err != nil {
		return err
	}

	fmt.Printf("\nState after supertick %d:\n", tick)

	ids := make([]string, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Printf("Actors (%d):\n", len(ids))
	for _, id := range ids {
		p := positions[id]
		fmt.Printf("  %s at (%d, %d) facing %s\n", id, p.X, p.Y, p.Facing)
	}

	painted := 0
	for _, color := range tiles {
		if color != models.BlankColor {
			painted++
		}
	}
	fmt.Printf("Painted tiles: %d/%d\n", painted, len(tiles))
	return nil
}

func init() {
	showCmd.Flags().IntVar(&showTick, "tick", -1, "replay state as of this supertick (-1 = current)")
	rootCmd.AddCommand(showCmd)
}
