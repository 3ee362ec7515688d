package secrets

import (
	"context"
	"errors"
)

// ErrSecretNotFound is returned (wrapped) by Store implementations when the
// requested secret identifier does not resolve.
var ErrSecretNotFound = errors.New("secret not found")

// SecretDescriptor identifies a secret independently of its value.
type SecretDescriptor struct {
	// ID is the store identifier (ARN for AWS Secrets Manager).
	ID string
	// Name is the friendly name used as the root configuration key.
	Name string
	// VersionsToStages maps each version id to the staging labels attached to it.
	// Empty when the descriptor was synthesized from an explicit id list.
	VersionsToStages map[string][]string
}

// SecretValue is the result of a value retrieval. String is nil for
// binary-only secrets.
type SecretValue struct {
	Descriptor SecretDescriptor
	String     *string
	Binary     []byte
}

// HasString reports whether the secret carries a string value.
func (v SecretValue) HasString() bool {
	return v.String != nil
}

// Filter narrows a ListSecrets call on the store side.
// Key follows the Secrets Manager filter names (name, description, tag-key, tag-value, primary-region, all).
type Filter struct {
	Key    string
	Values []string
}

// ListSecretsInput requests one page of secret descriptors.
type ListSecretsInput struct {
	NextToken string
	Filters   []Filter
}

// ListSecretsPage is one page of a ListSecrets enumeration. An empty
// NextToken means no further pages.
type ListSecretsPage struct {
	Secrets   []SecretDescriptor
	NextToken string
}

// GetSecretValueRequest is built per secret and may be adjusted by the
// caller before it is sent.
type GetSecretValueRequest struct {
	SecretID     string
	VersionID    string
	VersionStage string
}

// Store is the narrow view of a remote secret store used to build configuration.
type Store interface {
	// ListSecrets returns a single page of secrets matching in.Filters.
	ListSecrets(ctx context.Context, in ListSecretsInput) (ListSecretsPage, error)

	// GetSecretValue retrieves the value of a single secret. It fails with an
	// error wrapping ErrSecretNotFound when the identifier does not resolve.
	GetSecretValue(ctx context.Context, req *GetSecretValueRequest) (SecretValue, error)
}
