package aws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

var (
	ErrSecretNotFound  = errors.New("secret not found")
	ErrSecretNotString = errors.New("secret has no string value")
)

// SecretError names the secret a lookup failed for.
type SecretError struct {
	Name string
	Err  error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret %s: %v", e.Name, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient reads string secrets from Secrets Manager. Values are kept
// for the lifetime of the process; failed lookups are retried next call.
type SecretsClient struct {
	api    secretsAPI
	mu     sync.RWMutex
	values map[string]string
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return newSecretsClient(secretsmanager.NewFromConfig(cfg))
}

func newSecretsClient(api secretsAPI) *SecretsClient {
	return &SecretsClient{api: api, values: make(map[string]string)}
}

// GetSecret returns the SecretString stored under name. Errors are
// *SecretError wrapping ErrSecretNotFound, ErrSecretNotString or the SDK
// error.
func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	if v, ok := s.lookup(name); ok {
		return v, nil
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
	if err != nil {
		var missing *smtypes.ResourceNotFoundException
		if errors.As(err, &missing) {
			err = ErrSecretNotFound
		}
		return "", &SecretError{Name: name, Err: err}
	}
	if out.SecretString == nil {
		return "", &SecretError{Name: name, Err: ErrSecretNotString}
	}

	s.mu.Lock()
	s.values[name] = *out.SecretString
	s.mu.Unlock()
	return *out.SecretString, nil
}

// Resolve looks up every name. It returns what it could read along with the
// joined errors for the rest.
func (s *SecretsClient) Resolve(ctx context.Context, names ...string) (map[string]string, error) {
	found := make(map[string]string, len(names))
	var errs []error
	for _, name := range names {
		v, err := s.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		found[name] = v
	}
	return found, errors.Join(errs...)
}

func (s *SecretsClient) lookup(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}
