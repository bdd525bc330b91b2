package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var autoAssignCmd = &cobra.Command{
	Use:   "autoassign",
	Short: "Assign an owner's unassigned faces to known people",
	Long: `Match every unassigned face of an owner against the owner's people and
assign each face to its best match when the score is good enough.

Assignments made by this pass are not verified; a user can still correct
them. Afterwards every person's face count is recomputed.

Examples:
  # Run an auto-assignment pass for owner 42
  face-tagger autoassign --owner 42`,
	RunE: runAutoAssign,
}

func init() {
	rootCmd.AddCommand(autoAssignCmd)

	autoAssignCmd.Flags().Int64("owner", 0, "Owner id whose faces to assign (required)")
	_ = autoAssignCmd.MarkFlagRequired("owner")
}

func runAutoAssign(cmd *cobra.Command, args []string) error {
	ownerID := mustGetInt64(cmd, "owner")

	pool, faceRepo, personRepo, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	var bar *progressbar.ProgressBar
	engine := facematch.NewEngine(faceRepo, personRepo).WithProgress(func(processed, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Assigning faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("faces"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Set(processed)
	})

	result, err := engine.AutoAssign(cmd.Context(), ownerID)
	if err != nil {
		return fmt.Errorf("auto-assignment failed: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	fmt.Printf("\nAssigned %d of %d unassigned faces\n", result.Assigned, result.Attempted)
	return nil
}
