package smconfig

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/Checker-Finance/secretsconfig/pkg/secrets"
)

// fakeStore is an in-memory secrets.Store. Secrets are listed in insertion
// order, pageSize per page. Safe for concurrent use.
type fakeStore struct {
	mu sync.Mutex

	order    []string
	secrets  map[string]fakeSecret
	pageSize int

	listErr error
	getErr  map[string]error

	// listStarted/listRelease, when set, hold ListSecrets until released.
	listStarted chan struct{}
	listRelease chan struct{}

	listCalls []secrets.ListSecretsInput
	getCalls  []secrets.GetSecretValueRequest
}

type fakeSecret struct {
	desc   secrets.SecretDescriptor
	value  *string
	binary []byte
	// listedOnly secrets appear in ListSecrets but their value is gone.
	listedOnly bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		secrets:  make(map[string]fakeSecret),
		getErr:   make(map[string]error),
		pageSize: 100,
	}
}

func (f *fakeStore) put(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsert(fakeSecret{desc: descriptor(name), value: &value})
}

func (f *fakeStore) putBinary(name string, b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsert(fakeSecret{desc: descriptor(name), binary: b})
}

func (f *fakeStore) putListedOnly(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsert(fakeSecret{desc: descriptor(name), listedOnly: true})
}

func (f *fakeStore) setStages(name string, stages map[string][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.secrets[name]
	s.desc.VersionsToStages = stages
	f.secrets[name] = s
}

func (f *fakeStore) failList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeStore) failGet(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.getErr, id)
		return
	}
	f.getErr[id] = err
}

// reorder changes the listing order; names must already exist.
func (f *fakeStore) reorder(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append([]string(nil), names...)
}

// holdList makes the next ListSecrets calls block until the returned func is called.
func (f *fakeStore) holdList() (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listStarted = make(chan struct{}, 1)
	f.listRelease = make(chan struct{})
	return f.listStarted, sync.OnceFunc(func() { close(f.listRelease) })
}

func (f *fakeStore) upsert(s fakeSecret) {
	if _, ok := f.secrets[s.desc.Name]; !ok {
		f.order = append(f.order, s.desc.Name)
	}
	f.secrets[s.desc.Name] = s
}

func (f *fakeStore) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

func (f *fakeStore) requests() []secrets.GetSecretValueRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]secrets.GetSecretValueRequest(nil), f.getCalls...)
}

func descriptor(name string) secrets.SecretDescriptor {
	return secrets.SecretDescriptor{ID: "arn:" + name, Name: name}
}

func (f *fakeStore) ListSecrets(ctx context.Context, in secrets.ListSecretsInput) (secrets.ListSecretsPage, error) {
	f.mu.Lock()
	started, release := f.listStarted, f.listRelease
	f.mu.Unlock()
	if release != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-ctx.Done():
			return secrets.ListSecretsPage{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, in)

	if err := ctx.Err(); err != nil {
		return secrets.ListSecretsPage{}, err
	}
	if f.listErr != nil {
		return secrets.ListSecretsPage{}, f.listErr
	}

	start := 0
	if in.NextToken != "" {
		n, err := strconv.Atoi(in.NextToken)
		if err != nil {
			return secrets.ListSecretsPage{}, fmt.Errorf("bad token %q", in.NextToken)
		}
		start = n
	}

	var page secrets.ListSecretsPage
	end := min(start+f.pageSize, len(f.order))
	for _, name := range f.order[start:end] {
		page.Secrets = append(page.Secrets, f.secrets[name].desc)
	}
	if end < len(f.order) {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

func (f *fakeStore) GetSecretValue(ctx context.Context, req *secrets.GetSecretValueRequest) (secrets.SecretValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = append(f.getCalls, *req)

	if err := ctx.Err(); err != nil {
		return secrets.SecretValue{}, err
	}
	if err, ok := f.getErr[req.SecretID]; ok {
		return secrets.SecretValue{}, err
	}

	for _, name := range f.order {
		s := f.secrets[name]
		if s.desc.ID != req.SecretID && s.desc.Name != req.SecretID {
			continue
		}
		if s.listedOnly {
			break
		}
		return secrets.SecretValue{Descriptor: s.desc, String: s.value, Binary: s.binary}, nil
	}
	return secrets.SecretValue{}, fmt.Errorf("get secret value [%s]: %w", req.SecretID, secrets.ErrSecretNotFound)
}
