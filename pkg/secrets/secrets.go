// Package secrets resolves named secrets stored as JSON blobs. Production
// uses AWS Secrets Manager; tests and local development use the in-memory
// variant in memory.go.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// ErrSecretNotFound marks a secret that is absent from the store, as opposed
// to a store that is unreachable or a value that fails to decode.
var ErrSecretNotFound = errors.New("secret not found")

// Repository resolves a named secret and decodes its JSON value into out.
type Repository interface {
	GetSecret(ctx context.Context, name string, out any) error
}

// AWSSecretsManagerRepository is the production Repository backed by AWS
// Secrets Manager.
type AWSSecretsManagerRepository struct {
	client *secretsmanager.Client
}

type Options struct {
	Region string
	// EndpointURL overrides the Secrets Manager endpoint (e.g. LocalStack).
	EndpointURL string
}

func Open(ctx context.Context, opts Options) (*AWSSecretsManagerRepository, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	var clientOpts []func(*secretsmanager.Options)
	if opts.EndpointURL != "" {
		clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		})
	}
	return &AWSSecretsManagerRepository{
		client: secretsmanager.NewFromConfig(cfg, clientOpts...),
	}, nil
}

func (r *AWSSecretsManagerRepository) GetSecret(ctx context.Context, name string, out any) error {
	resp, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return fmt.Errorf("fetching secret %s: %w", name, err)
	}
	if resp.SecretString == nil {
		return fmt.Errorf("%w: %s has no string value", ErrSecretNotFound, name)
	}
	if err := json.Unmarshal([]byte(*resp.SecretString), out); err != nil {
		return fmt.Errorf("decoding secret %s: %w", name, err)
	}
	return nil
}
