package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/spf13/cobra"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group an owner's unassigned faces",
	Long: `Group unassigned faces that appear to show the same person.

Each group is seeded by the earliest stored face; other faces join a group
when they are similar enough to its seed. Faces that match nothing stay
out of the output. The grouping is read-only: assigning the groups to
people is a separate step.

Examples:
  # Group the unassigned faces of owner 42
  face-tagger cluster --owner 42

  # Output as JSON
  face-tagger cluster --owner 42 --json`,
	RunE: runCluster,
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().Int64("owner", 0, "Owner id whose faces to group (required)")
	clusterCmd.Flags().Bool("json", false, "Output as JSON")
	_ = clusterCmd.MarkFlagRequired("owner")
}

// clusterOutput represents the JSON output structure for one group
type clusterOutput struct {
	SeedFaceID int64   `json:"seed_face_id"`
	FaceIDs    []int64 `json:"face_ids"`
}

func runCluster(cmd *cobra.Command, args []string) error {
	ownerID := mustGetInt64(cmd, "owner")
	asJSON := mustGetBool(cmd, "json")

	pool, faceRepo, personRepo, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	engine := facematch.NewEngine(faceRepo, personRepo)
	clusters, err := engine.ClusterUnassigned(cmd.Context(), ownerID)
	if err != nil {
		return fmt.Errorf("clustering faces: %w", err)
	}

	if asJSON {
		output := make([]clusterOutput, 0, len(clusters))
		for _, cluster := range clusters {
			ids := make([]int64, 0, len(cluster.Faces))
			for _, face := range cluster.Faces {
				ids = append(ids, face.ID)
			}
			output = append(output, clusterOutput{SeedFaceID: cluster.Seed.ID, FaceIDs: ids})
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	}

	if len(clusters) == 0 {
		fmt.Println("No face groups found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tFACES\tFACE IDS")
	for _, cluster := range clusters {
		ids := make([]string, 0, len(cluster.Faces))
		for _, face := range cluster.Faces {
			ids = append(ids, fmt.Sprintf("%d", face.ID))
		}
		fmt.Fprintf(w, "%d\t%d\t%v\n", cluster.Seed.ID, len(cluster.Faces), ids)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d groups\n", len(clusters))
	return nil
}
