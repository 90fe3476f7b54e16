// Command editserver exposes the edit and revise operations over
// HTTP, either standalone (bare `go run`, local dev) or behind API
// Gateway via httpadapter when SERVE_LAMBDA=1 is set.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/editcompositor/internal/config"
	"github.com/fpang/editcompositor/internal/editcore"
	"github.com/fpang/editcompositor/internal/lambdaboot"
	"github.com/fpang/editcompositor/internal/logging"
	"github.com/fpang/editcompositor/internal/metrics"
	"github.com/fpang/editcompositor/internal/model"
	"github.com/fpang/editcompositor/internal/store"
)

// commitHash is stamped at build time via -ldflags.
var commitHash = "dev"

var (
	svc *editcore.Service
	reg *metrics.Registry
)

func init() {
	initStart := time.Now()
	logging.Init()

	originVerifySecret = os.Getenv("ORIGIN_VERIFY_SECRET")

	cfg, err := config.Load(os.Getenv("EDIT_CONFIG_FILE"))
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
	s3Client := s3.NewFromConfig(awsCfg)
	editStore := store.NewS3Store(s3Client, bucket)
	ssmClient := ssm.NewFromConfig(awsCfg)

	var apiKey string
	warmUpCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Fan out the two cold-start dependency checks instead of doing them
	// serially: neither waits on the other, and a bad bucket name fails
	// fast alongside a bad API key rather than after it.
	g, gctx := errgroup.WithContext(warmUpCtx)
	g.Go(func() error {
		_, err := s3Client.HeadBucket(gctx, &s3.HeadBucketInput{Bucket: &bucket})
		if err != nil {
			return fmt.Errorf("bucket %s not reachable: %w", bucket, err)
		}
		return nil
	})
	g.Go(func() error {
		key, err := lambdaboot.LoadModelAPIKey(gctx, ssmClient)
		if err != nil {
			return err
		}
		apiKey = key
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("cold-start warm-up failed")
	}

	adapter := model.NewGeminiClient(apiKey, model.WithTimeout(time.Duration(cfg.ModelTimeoutS)*time.Second))
	svc = editcore.New(editStore, adapter, cfg)

	reg = metrics.NewRegistry(prometheus.DefaultRegisterer)

	logging.NewStartupLogger("editserver").
		CommitHash(commitHash).
		S3Bucket("edit", bucket).
		Config("max_patch_edge", strconv.Itoa(cfg.MaxPatchEdge)).
		InitDuration(time.Since(initStart)).
		Log()
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", handleHealth)
	mux.HandleFunc("/api/edit", handleEdit)
	mux.HandleFunc("/api/edit/revise", handleRevise)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func main() {
	mux := newMux()
	handler := withMetrics(reg)(withOriginVerify(mux))

	if os.Getenv("SERVE_LAMBDA") != "" {
		adapter := httpadapter.NewV2(handler)
		lambda.Start(adapter.ProxyWithContext)
		return
	}

	addr := os.Getenv("EDIT_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info().Str("addr", addr).Msg("editserver listening")
	log.Fatal().Err(http.ListenAndServe(addr, handler)).Msg("editserver exited")
}
