package secrets

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rotisserie/eris"

	"github.com/umsgroup/adreal-sync/internal/resilience"
)

// secretsAPI is the slice of the Secrets Manager client we use.
type secretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSStore retrieves credentials from AWS Secrets Manager.
type AWSStore struct {
	client secretsAPI
	retry  resilience.RetryConfig
}

// NewAWSStore builds a store using the default AWS credential chain.
func NewAWSStore(ctx context.Context, region string) (*AWSStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "secrets: load aws config")
	}
	return &AWSStore{
		client: secretsmanager.NewFromConfig(cfg),
		retry:  resilience.DefaultRetryConfig(),
	}, nil
}

// NewAWSStoreWithClient injects a client (for tests).
func NewAWSStoreWithClient(client secretsAPI) *AWSStore {
	return &AWSStore{client: client, retry: resilience.DefaultRetryConfig()}
}

// Get implements Store. Transient transport failures are retried.
func (s *AWSStore) Get(ctx context.Context, secretID string) (string, error) {
	out, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*secretsmanager.GetSecretValueOutput, error) {
		return s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &secretID})
	})
	if err != nil {
		return "", eris.Wrapf(err, "secrets: get %q", secretID)
	}
	if out.SecretString == nil {
		return "", eris.Errorf("secrets: secret %q has no string payload", secretID)
	}
	return *out.SecretString, nil
}
