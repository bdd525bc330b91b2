package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/database/postgres"
	"github.com/kozaktomas/face-tagger/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Face Tagger API server.
The server accepts face detections from the external detector and serves
the assignment, clustering, suggestion and similarity endpoints.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides SERVER_PORT)")
}

// initHNSW builds the in-memory HNSW index for fast similarity search.
func initHNSW(ctx context.Context, faceRepo *postgres.FaceRepository) {
	fmt.Printf("Building in-memory HNSW index for face matching...\n")
	if err := faceRepo.EnableHNSW(ctx); err != nil {
		fmt.Printf("Warning: Failed to build HNSW index: %v\n", err)
		fmt.Printf("Similarity search will use PostgreSQL queries (slower)\n")
	} else {
		fmt.Printf("HNSW index built with %d faces (in-memory only)\n", faceRepo.HNSWCount())
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Server.Port = port
	}

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	faceRepo := postgres.NewFaceRepository(pool)
	personRepo := postgres.NewPersonRepository(pool)

	if cfg.Database.HNSWOnStartup {
		initHNSW(cmd.Context(), faceRepo)
	}

	server := web.NewServer(cfg, faceRepo, personRepo, pool)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Tagger API on port %d\n", cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
