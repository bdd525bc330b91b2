package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-tagger",
	Short: "Face clustering and identity assignment for photo libraries",
	Long: `Face Tagger keeps track of who appears in your photos. An external
detector posts face embeddings per media item; Face Tagger groups the
unassigned faces, suggests matching people and assigns identities, on
demand or as a background pass.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
