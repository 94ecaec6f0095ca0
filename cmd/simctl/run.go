package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lifetree-backend/application/services"
	"lifetree-backend/application/simulation"
	domaincfg "lifetree-backend/domain/config"
	infraconfig "lifetree-backend/infrastructure/config"
	"lifetree-backend/infrastructure/generation"
	"lifetree-backend/infrastructure/persistence/memory"
)

func runCmd() *cobra.Command {
	var (
		rounds     int
		fanout     int
		seed       int64
		tick       time.Duration
		settle     time.Duration
		tuningFile string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Grow a tree with the local generator and report layout quality",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			physicsCfg := domaincfg.DefaultPhysicsConfig()
			if tuningFile != "" {
				loaded, err := infraconfig.LoadTuningFile(tuningFile)
				if err != nil {
					return err
				}
				physicsCfg = loaded
			}

			domainCfg := domaincfg.DefaultDomainConfig()
			domainCfg.EnablePortraits = false

			manager := simulation.NewManager(simulation.ManagerDeps{
				Store:        memory.NewSessionStore(),
				Generator:    generation.NewLocalScenarioGenerator(seed, 0),
				DomainConfig: domainCfg,
				PhysicsCfg:   physicsCfg,
				TickInterval: tick,
				Logger:       zap.NewNop(),
			})
			defer manager.Stop()

			sess, err := manager.CreateSession(ctx, simulation.RootSeed{})
			if err != nil {
				return err
			}

			if !asJSON {
				accent.Println("simctl run")
				subtle.Printf("  seed %d, %d rounds, fanout %d, tick %s\n\n", seed, rounds, fanout, tick)
			}

			for round := 1; round <= rounds; round++ {
				expanded, err := expandRound(ctx, sess, fanout)
				if err != nil {
					return err
				}
				if err := waitForBatches(ctx, sess); err != nil {
					return err
				}
				if !asJSON {
					stats, statsErr := sess.Stats(ctx)
					if statsErr != nil {
						return statsErr
					}
					fmt.Printf("  round %d: expanded %d nodes, tree now %d nodes\n", round, expanded, stats.NodeCount)
				}
			}

			// Let the layout relax before measuring it.
			select {
			case <-time.After(settle):
			case <-ctx.Done():
				return ctx.Err()
			}

			stats, err := sess.Stats(ctx)
			if err != nil {
				return err
			}
			snapshot, err := sess.Snapshot(ctx)
			if err != nil {
				return err
			}
			layout := services.NewTreeStatsService(zap.NewNop()).Compute(snapshot)

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(struct {
					Stats  *simulation.SessionStats `json:"stats"`
					Layout *services.LayoutStats    `json:"layout"`
				}{stats, layout})
			}

			fmt.Println()
			accent.Println("  layout")
			fmt.Printf("  Nodes:             %d\n", layout.NodeCount)
			fmt.Printf("  Edges:             %d\n", layout.EdgeCount)
			fmt.Printf("  Leaves:            %d\n", layout.LeafCount)
			fmt.Printf("  Max depth:         %d\n", layout.MaxDepth)
			fmt.Printf("  Bounds:            %.0f x %.0f\n", layout.Bounds.Width(), layout.Bounds.Height())
			fmt.Printf("  Mean edge stretch: %.3f\n", layout.MeanEdgeStretch)
			fmt.Printf("  Max edge stretch:  %.3f\n", layout.MaxEdgeStretch)
			fmt.Printf("  Min pair distance: %.1f\n", layout.MinPairDistance)
			fmt.Printf("  Mean speed:        %.3f\n", stats.MeanSpeed)
			fmt.Printf("  Ticks:             %d\n", stats.Tick)

			fmt.Println()
			if stats.MaxSpeed <= physicsCfg.MaxVelocity {
				good.Println("  layout settled within the velocity cap")
			} else {
				bad.Printf("  max speed %.2f exceeds the configured cap %.2f\n", stats.MaxSpeed, physicsCfg.MaxVelocity)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&rounds, "rounds", 3, "Expansion rounds to run")
	cmd.Flags().IntVar(&fanout, "fanout", 2, "Leaves to expand per round")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the local scenario generator")
	cmd.Flags().DurationVar(&tick, "tick", 16*time.Millisecond, "Simulation tick interval")
	cmd.Flags().DurationVar(&settle, "settle", 2*time.Second, "Relaxation time after the last round")
	cmd.Flags().StringVar(&tuningFile, "tuning", "", "Physics tuning file (defaults when empty)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit stats as JSON")

	return cmd
}

// expandRound expands up to fanout unexpanded nodes that already carry a
// scenario, preferring the shallow ones so the tree widens before it deepens.
func expandRound(ctx context.Context, sess *simulation.Session, fanout int) (int, error) {
	snapshot, err := sess.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	depth := make(map[int]int, len(snapshot.Nodes))
	for _, node := range snapshot.Nodes {
		if node.ParentID != nil {
			depth[node.ID] = depth[*node.ParentID] + 1
		}
	}

	var candidates []int
	for _, node := range snapshot.Nodes {
		if !node.Expanded && node.Title != "" {
			candidates = append(candidates, node.ID)
		}
	}
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && depth[candidates[j]] < depth[candidates[j-1]]; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	expanded := 0
	for _, id := range candidates {
		if expanded >= fanout {
			break
		}
		if _, err := sess.Expand(ctx, id); err != nil {
			return expanded, fmt.Errorf("expand node %d: %w", id, err)
		}
		expanded++
	}
	return expanded, nil
}

// waitForBatches polls until every pending generation batch has resolved.
func waitForBatches(ctx context.Context, sess *simulation.Session) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		stats, err := sess.Stats(ctx)
		if err != nil {
			return err
		}
		if stats.PendingBatches == 0 {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
