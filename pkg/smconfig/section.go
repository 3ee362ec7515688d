package smconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/Checker-Finance/secretsconfig/pkg/config"
	"github.com/Checker-Finance/secretsconfig/pkg/secrets"
)

// DefaultSectionPrefix is the environment prefix read by LoadSection when none is given.
const DefaultSectionPrefix = "SECRETS_MANAGER_"

// Section is the provider configuration as read from the environment.
type Section struct {
	Region           string
	Profile          string
	ProfilesLocation string
	Endpoint         string

	PollingIntervalSeconds int
	AcceptedSecretArns     []string
	ListSecretsFilters     []secrets.Filter
	IgnoreMissingValues    bool
	RequestsPerSecond      float64
}

// LoadSection reads a Section from environment variables named prefix+FIELD:
//
//	REGION, PROFILE, PROFILES_LOCATION, ENDPOINT, POLLING_INTERVAL_SECONDS,
//	ACCEPTED_SECRET_ARNS (comma separated), LIST_SECRETS_FILTERS (Key=v1,v2;Key2=v3),
//	IGNORE_MISSING_VALUES, REQUESTS_PER_SECOND
func LoadSection(prefix string) (Section, error) {
	if prefix == "" {
		prefix = DefaultSectionPrefix
	}
	key := func(name string) string { return prefix + name }

	s := Section{
		Region:                 config.GetEnv(key("REGION"), ""),
		Profile:                config.GetEnv(key("PROFILE"), ""),
		ProfilesLocation:       config.GetEnv(key("PROFILES_LOCATION"), ""),
		Endpoint:               config.GetEnv(key("ENDPOINT"), ""),
		PollingIntervalSeconds: config.GetEnvInt(key("POLLING_INTERVAL_SECONDS"), 0),
		AcceptedSecretArns:     config.GetEnvList(key("ACCEPTED_SECRET_ARNS"), nil),
		IgnoreMissingValues:    config.GetEnvBool(key("IGNORE_MISSING_VALUES"), false),
		RequestsPerSecond:      config.GetEnvFloat(key("REQUESTS_PER_SECOND"), 0),
	}
	if s.PollingIntervalSeconds < 0 {
		return Section{}, fmt.Errorf("%s must not be negative, got %d", key("POLLING_INTERVAL_SECONDS"), s.PollingIntervalSeconds)
	}

	filters, err := ParseFilters(config.GetEnv(key("LIST_SECRETS_FILTERS"), ""))
	if err != nil {
		return Section{}, fmt.Errorf("%s: %w", key("LIST_SECRETS_FILTERS"), err)
	}
	s.ListSecretsFilters = filters
	return s, nil
}

// ParseFilters parses "Key=v1,v2;Key2=v3" into discovery filters.
// Empty groups and empty values are dropped.
func ParseFilters(raw string) ([]secrets.Filter, error) {
	var out []secrets.Filter
	for _, group := range strings.Split(raw, ";") {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		name, values, ok := strings.Cut(group, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid filter %q: expected Key=value[,value]", group)
		}

		f := secrets.Filter{Key: name}
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				f.Values = append(f.Values, v)
			}
		}
		if len(f.Values) == 0 {
			return nil, fmt.Errorf("invalid filter %q: no values", group)
		}
		out = append(out, f)
	}
	return out, nil
}

// PollingInterval converts PollingIntervalSeconds; zero disables polling.
func (s Section) PollingInterval() time.Duration {
	return time.Duration(s.PollingIntervalSeconds) * time.Second
}

// Apply copies the section's fetch settings onto opts. Function fields are left alone.
func (s Section) Apply(opts *Options) {
	if len(s.AcceptedSecretArns) > 0 {
		opts.AcceptedSecretIDs = append([]string(nil), s.AcceptedSecretArns...)
	}
	if len(s.ListSecretsFilters) > 0 {
		opts.ListFilters = append([]secrets.Filter(nil), s.ListSecretsFilters...)
	}
	opts.PollingInterval = s.PollingInterval()
	opts.IgnoreMissingValues = s.IgnoreMissingValues
}

// AWSOptions returns the client settings for secrets.NewAWSStore.
func (s Section) AWSOptions() secrets.AWSOptions {
	return secrets.AWSOptions{
		Region:            s.Region,
		Profile:           s.Profile,
		ProfilesLocation:  s.ProfilesLocation,
		Endpoint:          s.Endpoint,
		RequestsPerSecond: s.RequestsPerSecond,
	}
}
