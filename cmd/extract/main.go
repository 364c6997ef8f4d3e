// Command extract runs the document reader and normalizer against a local
// file and prints the resulting proposal, for debugging extraction quality
// without the full service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/tomhaynes/invoice-intake/internal/extraction"
	"github.com/tomhaynes/invoice-intake/pkg/utils"
)

type identityResolver struct{}

func (identityResolver) Resolve(relPath string) string { return relPath }

func main() {
	_ = gotenv.Load()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: extract <invoice-file>")
		os.Exit(2)
	}
	filePath, err := filepath.Abs(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid path: %v\n", err)
		os.Exit(2)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "OPENAI_API_KEY required")
		os.Exit(1)
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o"
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      "debug",
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reader := extraction.NewVisionReader(apiKey, model, logger)
	svc := extraction.NewService(reader, identityResolver{}, logger)

	proposal, err := svc.ProcessExtraction(ctx, filePath)
	if err != nil {
		logger.Fatal("Extraction failed", zap.Error(err))
	}
	if proposal == nil {
		fmt.Println("no extractable data")
		os.Exit(1)
	}

	out, err := json.MarshalIndent(proposal, "", "  ")
	if err != nil {
		logger.Fatal("Failed to marshal proposal", zap.Error(err))
	}
	fmt.Println(string(out))
}
