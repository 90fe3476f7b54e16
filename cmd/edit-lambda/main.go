// Command edit-lambda is a direct-invoke Lambda entry point for the
// edit and revise operations, for callers that drive this pipeline
// from a state machine or queue rather than through API Gateway (see
// cmd/editserver for the HTTP-fronted variant).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/editcompositor/internal/config"
	"github.com/fpang/editcompositor/internal/editcore"
	"github.com/fpang/editcompositor/internal/lambdaboot"
	"github.com/fpang/editcompositor/internal/logging"
	"github.com/fpang/editcompositor/internal/model"
	"github.com/fpang/editcompositor/internal/store"
)

var svc *editcore.Service

func init() {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	bucket := os.Getenv("EDIT_BUCKET_NAME")
	if bucket == "" {
		log.Fatal().Msg("EDIT_BUCKET_NAME environment variable is required")
	}
	editStore := store.NewS3Store(s3.NewFromConfig(awsCfg), bucket)

	apiKey, err := lambdaboot.LoadModelAPIKey(context.Background(), ssm.NewFromConfig(awsCfg))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load model API key")
	}

	adapter := model.NewGeminiClient(apiKey, model.WithTimeout(time.Duration(cfg.ModelTimeoutS)*time.Second))
	svc = editcore.New(editStore, adapter, cfg)

	logging.NewStartupLogger("edit-lambda").
		S3Bucket("edit", bucket).
		InitDuration(time.Since(initStart)).
		Log()
}

// Event is the direct-invoke payload. Type selects which operation
// runs; exactly one of Edit/Revise should be populated.
type Event struct {
	Type   string                  `json:"type"`
	Edit   *editcore.Request       `json:"edit,omitempty"`
	Revise *editcore.ReviseRequest `json:"revise,omitempty"`
}

// Result mirrors editcore.Response plus an error envelope, since direct
// Lambda invokes don't have HTTP status codes to carry the error tag.
type Result struct {
	editcore.Response
	Error string       `json:"error,omitempty"`
	Stage editcore.Stage `json:"stage,omitempty"`
	Tag   editcore.Tag   `json:"tag,omitempty"`
}

func rawHandler(ctx context.Context, event Event) (Result, error) {
	logger := logging.WithLambdaContext(ctx)

	switch event.Type {
	case "edit":
		if event.Edit == nil {
			return Result{}, fmt.Errorf("event.edit is required for type=edit")
		}
		_, resp, err := svc.Edit(ctx, *event.Edit)
		return toResult(resp, err, logger)
	case "revise":
		if event.Revise == nil {
			return Result{}, fmt.Errorf("event.revise is required for type=revise")
		}
		_, resp, err := svc.Revise(ctx, *event.Revise)
		return toResult(resp, err, logger)
	default:
		return Result{}, fmt.Errorf("unknown event type %q", event.Type)
	}
}

func toResult(resp editcore.Response, err error, logger zerolog.Logger) (Result, error) {
	if err == nil {
		return Result{Response: resp}, nil
	}
	var editErr *editcore.Error
	if errors.As(err, &editErr) {
		logger.Warn().Str("stage", string(editErr.Stage)).Str("tag", string(editErr.Tag)).Msg("edit pipeline rejected request")
		return Result{Error: editErr.Error(), Stage: editErr.Stage, Tag: editErr.Tag}, nil
	}
	logger.Error().Err(err).Msg("unhandled edit-lambda error")
	return Result{}, err
}

func main() {
	lambda.Start(rawHandler)
}
