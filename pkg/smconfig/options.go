package smconfig

import (
	"time"

	"github.com/Checker-Finance/secretsconfig/pkg/secrets"
)

// SecretFilter decides whether a discovered secret is fetched at all.
type SecretFilter func(secret secrets.SecretDescriptor) bool

// KeyGenerator maps a raw configuration key to the key exposed to readers.
// It is applied to the secret name for plain values and to every leaf key
// for structured values.
type KeyGenerator func(secret secrets.SecretDescriptor, key string) string

// RequestConfigurator may adjust the value request sent for a secret.
type RequestConfigurator func(req *secrets.GetSecretValueRequest, secret SecretValueContext)

// SecretValueContext is the read-only context handed to a RequestConfigurator.
type SecretValueContext struct {
	Name             string
	VersionsToStages map[string][]string
}

// Options controls which secrets are fetched and how they become keys.
//
// The provider keeps a pointer to the Options it was built with and reads it
// at the start of every fetch cycle without synchronization. Changing fields
// after Load is tolerated but a running poll may or may not observe it.
type Options struct {
	// SecretFilter drops discovered secrets before their value is requested.
	// Ignored when AcceptedSecretIDs is set.
	SecretFilter SecretFilter

	// AcceptedSecretIDs, when non-empty, replaces discovery: exactly these
	// ids (names, full or partial ARNs) are fetched.
	AcceptedSecretIDs []string

	// ListFilters narrows the remote ListSecrets call.
	ListFilters []secrets.Filter

	// KeyGenerator transforms every emitted key. Defaults to identity.
	KeyGenerator KeyGenerator

	// ConfigureRequest customizes each GetSecretValue request.
	ConfigureRequest RequestConfigurator

	// PollingInterval enables background refresh when positive.
	PollingInterval time.Duration

	// IgnoreMissingValues skips secrets that vanish between listing and
	// retrieval instead of failing the fetch.
	IgnoreMissingValues bool
}

// DefaultOptions returns options that accept every secret and keep keys as-is.
func DefaultOptions() *Options {
	return &Options{
		SecretFilter:     AcceptAll,
		KeyGenerator:     IdentityKey,
		ConfigureRequest: func(*secrets.GetSecretValueRequest, SecretValueContext) {},
	}
}

// AcceptAll is the default SecretFilter.
func AcceptAll(secrets.SecretDescriptor) bool { return true }

// IdentityKey is the default KeyGenerator.
func IdentityKey(_ secrets.SecretDescriptor, key string) string { return key }

func (o *Options) secretFilter() SecretFilter {
	if o.SecretFilter == nil {
		return AcceptAll
	}
	return o.SecretFilter
}

func (o *Options) keyGenerator() KeyGenerator {
	if o.KeyGenerator == nil {
		return IdentityKey
	}
	return o.KeyGenerator
}
