package smconfig

import (
	"strings"

	"github.com/Checker-Finance/secretsconfig/pkg/secrets"
)

// UppercaseKeys upper-cases every key.
func UppercaseKeys(_ secrets.SecretDescriptor, key string) string {
	return strings.ToUpper(key)
}

// PathKeys turns slash-separated secret names ("prod/db/creds") into nested
// configuration sections ("prod:db:creds").
func PathKeys(_ secrets.SecretDescriptor, key string) string {
	return strings.ReplaceAll(key, "/", KeyDelimiter)
}

// TrimPrefixKeys strips prefix from the start of every key, e.g. an
// environment segment shared by all secrets.
func TrimPrefixKeys(prefix string) KeyGenerator {
	return func(_ secrets.SecretDescriptor, key string) string {
		return strings.TrimPrefix(key, prefix)
	}
}

// ChainKeys applies generators left to right.
func ChainKeys(gens ...KeyGenerator) KeyGenerator {
	return func(secret secrets.SecretDescriptor, key string) string {
		for _, g := range gens {
			if g != nil {
				key = g(secret, key)
			}
		}
		return key
	}
}

// NameHasPrefix accepts secrets whose name starts with prefix.
func NameHasPrefix(prefix string) SecretFilter {
	return func(secret secrets.SecretDescriptor) bool {
		return strings.HasPrefix(secret.Name, prefix)
	}
}
