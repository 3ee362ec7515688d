package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/secretsconfig/internal/metrics"
	"github.com/Checker-Finance/secretsconfig/internal/rate"
)

const listPageSize = 100

// SecretsManagerAPI is the subset of the Secrets Manager SDK client used by AWSStore.
// Tests substitute a fake.
type SecretsManagerAPI interface {
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSOptions configures how the Secrets Manager client is built.
type AWSOptions struct {
	Region string
	// Profile and ProfilesLocation select a named profile from a shared credentials file.
	Profile          string
	ProfilesLocation string
	// Endpoint overrides the service endpoint (LocalStack, VPC endpoints).
	Endpoint string
	// Static credentials, only used when both are set.
	AccessKeyID     string
	SecretAccessKey string
	// RequestsPerSecond paces store calls client-side; zero disables pacing.
	RequestsPerSecond float64
	// ConfigureClient adjusts the SDK client options after defaults are applied.
	ConfigureClient func(*secretsmanager.Options)
}

// AWSStore implements Store on top of AWS Secrets Manager.
type AWSStore struct {
	client  SecretsManagerAPI
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewAWSStore loads the AWS configuration described by opts and returns a Store
// backed by a real Secrets Manager client.
func NewAWSStore(ctx context.Context, opts AWSOptions, logger *zap.Logger) (*AWSStore, error) {
	cfg, err := LoadAWSConfig(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		if opts.ConfigureClient != nil {
			opts.ConfigureClient(o)
		}
	})
	return NewAWSStoreWithClient(client, opts, logger), nil
}

// NewAWSStoreWithClient wraps an existing SDK client.
func NewAWSStoreWithClient(client SecretsManagerAPI, opts AWSOptions, logger *zap.Logger) *AWSStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AWSStore{
		client:  client,
		limiter: rate.New(opts.RequestsPerSecond, int(opts.RequestsPerSecond)+1),
		logger:  logger,
	}
}

// LoadAWSConfig resolves region and credentials for the Secrets Manager client.
func LoadAWSConfig(ctx context.Context, opts AWSOptions) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.ProfilesLocation != "" {
		loadOpts = append(loadOpts, config.WithSharedCredentialsFiles([]string{opts.ProfilesLocation}))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	return config.LoadDefaultConfig(ctx, loadOpts...)
}

// ListSecrets fetches one page of secret list entries.
func (s *AWSStore) ListSecrets(ctx context.Context, in ListSecretsInput) (ListSecretsPage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return ListSecretsPage{}, err
	}

	input := &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(listPageSize),
	}
	if in.NextToken != "" {
		input.NextToken = aws.String(in.NextToken)
	}
	for _, f := range in.Filters {
		input.Filters = append(input.Filters, types.Filter{
			Key:    types.FilterNameStringType(f.Key),
			Values: f.Values,
		})
	}

	start := time.Now()
	out, err := s.client.ListSecrets(ctx, input)
	metrics.ObserveDuration(metrics.StoreRequestDuration, start, "list_secrets")
	metrics.IncStoreRequest("list_secrets", statusOf(err))
	if err != nil {
		s.logger.Warn("aws.list_secrets_failed", zap.Error(err))
		return ListSecretsPage{}, fmt.Errorf("list secrets: %w", err)
	}

	page := ListSecretsPage{
		Secrets:   make([]SecretDescriptor, 0, len(out.SecretList)),
		NextToken: aws.ToString(out.NextToken),
	}
	for _, entry := range out.SecretList {
		page.Secrets = append(page.Secrets, SecretDescriptor{
			ID:               aws.ToString(entry.ARN),
			Name:             aws.ToString(entry.Name),
			VersionsToStages: entry.SecretVersionsToStages,
		})
	}
	return page, nil
}

// GetSecretValue retrieves a secret value. A ResourceNotFoundException is
// reported as ErrSecretNotFound.
func (s *AWSStore) GetSecretValue(ctx context.Context, req *GetSecretValueRequest) (SecretValue, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return SecretValue{}, err
	}

	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(req.SecretID),
	}
	if req.VersionID != "" {
		input.VersionId = aws.String(req.VersionID)
	}
	if req.VersionStage != "" {
		input.VersionStage = aws.String(req.VersionStage)
	}

	start := time.Now()
	out, err := s.client.GetSecretValue(ctx, input)
	metrics.ObserveDuration(metrics.StoreRequestDuration, start, "get_secret_value")
	metrics.IncStoreRequest("get_secret_value", statusOf(err))
	if err != nil {
		if isNotFoundError(err) {
			return SecretValue{}, fmt.Errorf("get secret value [%s]: %w: %w", req.SecretID, ErrSecretNotFound, err)
		}
		s.logger.Warn("aws.get_secret_value_failed",
			zap.String("secret_id", req.SecretID),
			zap.Error(err))
		return SecretValue{}, fmt.Errorf("get secret value [%s]: %w", req.SecretID, err)
	}

	id := aws.ToString(out.ARN)
	if id == "" {
		id = req.SecretID
	}
	return SecretValue{
		Descriptor: SecretDescriptor{
			ID:   id,
			Name: aws.ToString(out.Name),
		},
		String: out.SecretString,
		Binary: out.SecretBinary,
	}, nil
}

func isNotFoundError(err error) bool {
	var resourceNotFound *types.ResourceNotFoundException
	return errors.As(err, &resourceNotFound)
}

// statusOf turns an SDK error into a low-cardinality metric label.
func statusOf(err error) string {
	if err == nil {
		return "ok"
	}
	if isNotFoundError(err) {
		return "not_found"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return "error"
}
