// Command editcli runs the mask-guided edit pipeline against local
// files, for development and scripting without standing up
// cmd/editserver.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/editcompositor/internal/config"
	"github.com/fpang/editcompositor/internal/editcore"
	"github.com/fpang/editcompositor/internal/logging"
	"github.com/fpang/editcompositor/internal/model"
	"github.com/fpang/editcompositor/internal/store"
)

var (
	fileFlag    string
	maskFlag    string
	promptFlag  string
	featherFlag int
	paddingFlag int
	outFlag     string
	apiKeyFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "editcli",
	Short: "Apply a mask-guided AI edit to a local image",
	Long: `editcli reads a base image and a mask from disk, sends the masked
region to the configured image model with a text prompt, and writes the
strictly composited result back to disk.

Example:
  editcli --file photo.png --mask mask.png --prompt "make the sky stormy" --out edited.png`,
	Run: runEdit,
}

func init() {
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Path to the base image (required)")
	rootCmd.Flags().StringVarP(&maskFlag, "mask", "m", "", "Path to the mask image (required)")
	rootCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Editing instruction (required)")
	rootCmd.Flags().IntVar(&featherFlag, "feather", 0, "Edge feather sigma in pixels (0 = use default)")
	rootCmd.Flags().IntVar(&paddingFlag, "padding", 0, "BBox padding in pixels (0 = use default)")
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", "edited.png", "Output file path")
	rootCmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "Model API key (falls back to GEMINI_API_KEY env var)")
	_ = rootCmd.MarkFlagRequired("file")
	_ = rootCmd.MarkFlagRequired("mask")
	_ = rootCmd.MarkFlagRequired("prompt")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEdit(cmd *cobra.Command, args []string) {
	logging.Init()

	apiKey := apiKeyFlag
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		log.Fatal().Msg("no model API key: pass --api-key or set GEMINI_API_KEY")
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	dir, err := os.MkdirTemp("", "editcli-*")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scratch dir")
	}
	defer os.RemoveAll(dir)

	fstore, err := store.NewFSStore(dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init store")
	}

	imgData, err := os.ReadFile(fileFlag)
	if err != nil {
		log.Fatal().Err(err).Str("path", fileFlag).Msg("failed to read base image")
	}
	// FSStore only accepts lowercase-hex-and-dash names.
	baseName := "00000000-0000-0000-0000-000000000000" + filepath.Ext(fileFlag)
	if err := os.WriteFile(filepath.Join(dir, baseName), imgData, 0o644); err != nil {
		log.Fatal().Err(err).Msg("failed to seed base image")
	}

	maskData, err := os.ReadFile(maskFlag)
	if err != nil {
		log.Fatal().Err(err).Str("path", maskFlag).Msg("failed to read mask image")
	}

	adapter := model.NewGeminiClient(apiKey)
	svc := editcore.New(fstore, adapter, cfg)

	req := editcore.Request{
		Filename:    baseName,
		MaskDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(maskData),
		Prompt:      promptFlag,
	}
	if featherFlag > 0 {
		req.Feather = &featherFlag
	}
	if paddingFlag > 0 {
		req.Padding = &paddingFlag
	}

	png, resp, err := svc.Edit(context.Background(), req)
	if err != nil {
		log.Fatal().Err(err).Msg("edit failed")
	}

	if err := os.WriteFile(outFlag, png, 0o644); err != nil {
		log.Fatal().Err(err).Msg("failed to write output")
	}

	fmt.Printf("wrote %s (bbox %dx%d at %d,%d)\n", outFlag, resp.BBox.Width, resp.BBox.Height, resp.BBox.Left, resp.BBox.Top)
}
