package smconfig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/secretsconfig/internal/metrics"
	"github.com/Checker-Finance/secretsconfig/pkg/secrets"
)

// Fetch cycle triggers, used as metric and log labels.
const (
	triggerLoad  = "load"
	triggerPoll  = "poll"
	triggerForce = "force"
)

// fetcher runs one complete fetch cycle against the store.
type fetcher struct {
	store  secrets.Store
	opts   *Options
	logger *zap.Logger
}

// fetch enumerates candidate secrets, retrieves their values sequentially and
// flattens them into a new snapshot. Any store error other than a tolerated
// missing value aborts the cycle.
func (f *fetcher) fetch(ctx context.Context, trigger string) (*Snapshot, error) {
	start := time.Now()
	cycleID := uuid.NewString()
	opts := *f.opts

	snap, stats, err := f.run(ctx, opts)
	metrics.ObserveDuration(metrics.FetchDuration, start, trigger)
	if err != nil {
		metrics.IncFetchCycle(trigger, "error")
		return nil, err
	}
	metrics.IncFetchCycle(trigger, "ok")

	f.logger.Debug("smconfig.fetch_complete",
		zap.String("cycle_id", cycleID),
		zap.String("trigger", trigger),
		zap.Int("candidates", stats.candidates),
		zap.Int("fetched", stats.fetched),
		zap.Int("skipped", stats.skipped),
		zap.Int("keys", snap.Len()),
		zap.Duration("duration", time.Since(start)))
	return snap, nil
}

type fetchStats struct {
	candidates int
	fetched    int
	skipped    int
}

func (f *fetcher) run(ctx context.Context, opts Options) (*Snapshot, fetchStats, error) {
	var stats fetchStats

	candidates, err := f.candidates(ctx, opts)
	if err != nil {
		return nil, stats, err
	}
	stats.candidates = len(candidates)

	keyGen := opts.keyGenerator()
	var entries []Entry

	for _, secret := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		value, err := f.getValue(ctx, opts, secret)
		if err != nil {
			if errors.Is(err, secrets.ErrSecretNotFound) {
				if opts.IgnoreMissingValues {
					metrics.IncSecretSkipped("missing")
					stats.skipped++
					continue
				}
				return nil, stats, &MissingSecretValueError{Name: secret.Name, ID: secret.ID, Err: err}
			}
			return nil, stats, err
		}

		if !value.HasString() {
			metrics.IncSecretSkipped("binary")
			stats.skipped++
			continue
		}

		flat, err := Flatten(secret.Name, *value.String)
		if err != nil {
			return nil, stats, fmt.Errorf("flatten secret %q: %w", secret.Name, err)
		}
		for _, e := range flat {
			entries = append(entries, Entry{Key: keyGen(secret, e.Key), Value: e.Value})
		}
		stats.fetched++
	}

	return NewSnapshot(entries), stats, nil
}

// candidates returns the secrets to fetch, in a stable order. An explicit id
// list bypasses discovery and every filter.
func (f *fetcher) candidates(ctx context.Context, opts Options) ([]secrets.SecretDescriptor, error) {
	if len(opts.AcceptedSecretIDs) > 0 {
		out := make([]secrets.SecretDescriptor, 0, len(opts.AcceptedSecretIDs))
		for _, id := range opts.AcceptedSecretIDs {
			out = append(out, secrets.SecretDescriptor{ID: id, Name: id})
		}
		return out, nil
	}

	all, err := f.discover(ctx, opts.ListFilters)
	if err != nil {
		return nil, err
	}

	accept := opts.secretFilter()
	out := all[:0]
	for _, secret := range all {
		if !accept(secret) {
			metrics.IncSecretSkipped("filtered")
			continue
		}
		out = append(out, secret)
	}
	return out, nil
}

// discover pages through ListSecrets until the store stops returning a token.
func (f *fetcher) discover(ctx context.Context, filters []secrets.Filter) ([]secrets.SecretDescriptor, error) {
	var (
		all   []secrets.SecretDescriptor
		token string
	)
	for {
		page, err := f.store.ListSecrets(ctx, secrets.ListSecretsInput{
			NextToken: token,
			Filters:   filters,
		})
		if err != nil {
			return nil, fmt.Errorf("discover secrets: %w", err)
		}
		all = append(all, page.Secrets...)
		if page.NextToken == "" {
			return all, nil
		}
		token = page.NextToken
	}
}

func (f *fetcher) getValue(ctx context.Context, opts Options, secret secrets.SecretDescriptor) (secrets.SecretValue, error) {
	req := &secrets.GetSecretValueRequest{SecretID: secret.ID}
	if opts.ConfigureRequest != nil {
		opts.ConfigureRequest(req, SecretValueContext{
			Name:             secret.Name,
			VersionsToStages: copyStages(secret.VersionsToStages),
		})
	}
	return f.store.GetSecretValue(ctx, req)
}

// copyStages keeps the hook from mutating the descriptor it was handed.
func copyStages(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
