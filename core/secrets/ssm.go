// Package secrets resolves credentials kept in AWS SSM Parameter Store.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	coreconfig "github.com/m3rciful/tokenbot/core/config"
	"github.com/m3rciful/tokenbot/core/logger"
)

// ssmAPI is the subset of *ssm.Client used here.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter fetches a decrypted parameter value by name.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ParamStore reads parameters from SSM.
type ParamStore struct {
	api ssmAPI
}

// NewParamStore wraps an SSM API implementation.
func NewParamStore(api ssmAPI) (*ParamStore, error) {
	if api == nil {
		return nil, errors.New("secrets: api must not be nil")
	}
	return &ParamStore{api: api}, nil
}

// NewDefaultParamStore builds a ParamStore from the default AWS credential chain.
func NewDefaultParamStore(ctx context.Context) (*ParamStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("secrets: load aws config: %w", err)
	}
	return NewParamStore(ssm.NewFromConfig(cfg))
}

// GetParameter returns the decrypted value of name.
func (p *ParamStore) GetParameter(ctx context.Context, name string) (string, error) {
	if p == nil || p.api == nil {
		return "", errors.New("secrets: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("secrets: parameter name is required")
	}

	out, err := p.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("secrets: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("secrets: parameter %q has no value", name)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// ResolveOneShot fills cfg.OneShot.APISecret from the parameter named by
// APISecretParam. It is a no-op when no parameter is configured.
func ResolveOneShot(ctx context.Context, cfg *coreconfig.Config, getter Getter) error {
	if cfg == nil {
		return errors.New("secrets: nil config")
	}
	param := strings.TrimSpace(cfg.OneShot.APISecretParam)
	if param == "" {
		return nil
	}
	if getter == nil {
		return errors.New("secrets: no parameter store available")
	}

	start := time.Now()
	value, err := getter.GetParameter(ctx, param)
	if err != nil {
		logger.Error(ctx, "secrets", "param.get",
			slog.String("status", "fail"),
			slog.String("name", param),
			slog.String("err", err.Error()),
		)
		return err
	}
	cfg.OneShot.APISecret = value
	logger.Info(ctx, "secrets", "param.get",
		slog.String("status", "ok"),
		slog.String("name", param),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	)
	return nil
}
