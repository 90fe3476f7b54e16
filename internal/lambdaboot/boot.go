// Package lambdaboot holds the cold-start bootstrapping shared by
// cmd/editserver and cmd/edit-lambda: the SSM fallback for loading the
// model API key. Callers construct their own AWS clients.
package lambdaboot

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// DefaultAPIKeyParam is used when SSM_API_KEY_PARAM is unset.
const DefaultAPIKeyParam = "/edit-compositor/prod/model-api-key"

// LoadModelAPIKey returns GEMINI_API_KEY from the environment if set,
// else fetches it from SSM Parameter Store at SSM_API_KEY_PARAM (or
// DefaultAPIKeyParam), decrypting it as a SecureString.
func LoadModelAPIKey(ctx context.Context, ssmClient *ssm.Client) (string, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key, nil
	}

	paramName := os.Getenv("SSM_API_KEY_PARAM")
	if paramName == "" {
		paramName = DefaultAPIKeyParam
	}

	result, err := ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("read model API key from SSM param %s: %w", paramName, err)
	}
	return *result.Parameter.Value, nil
}
