// Package consul implements a cache store on Consul KV, useful for
// small shared indexes in environments that already run Consul.
// Consul limits values to 512KB, so large datasets should prefer the
// SQLite or PostgreSQL stores.
package consul

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/consul/api"

	"github.com/mwantia/bids/cache"
	"github.com/mwantia/bids/data"
)

// MaxSnapshotSize is the Consul KV value limit.
const MaxSnapshotSize = 512 * 1024

type ConsulStore struct {
	mu     sync.Mutex
	kv     *api.KV
	prefix string
}

// NewConsulStore connects to a Consul agent and stores snapshots as
// encoded blobs under the given KV prefix.
func NewConsulStore(config *api.Config, prefix string) (*ConsulStore, error) {
	if config == nil {
		config = api.DefaultConfig()
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, err
	}

	return &ConsulStore{
		kv:     client.KV(),
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

// Returns the identifier name defined for this store
func (*ConsulStore) Name() string {
	return "consul"
}

// buildKey maps a dataset root onto a KV key below the prefix. Slashes
// in the root are flattened so every dataset occupies exactly one key.
func (st *ConsulStore) buildKey(root string) string {
	flat := strings.ReplaceAll(strings.Trim(root, "/"), "/", "_")
	if st.prefix == "" {
		return flat
	}

	return st.prefix + "/" + flat
}

func (st *ConsulStore) Save(ctx context.Context, snap *cache.Snapshot) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.kv == nil {
		return data.ErrCacheClosed
	}

	raw, err := snap.Encode()
	if err != nil {
		return err
	}

	if len(raw) > MaxSnapshotSize {
		return fmt.Errorf("snapshot of %d bytes exceeds max value size of %d bytes (Consul KV limit: 512KB)",
			len(raw), MaxSnapshotSize)
	}

	pair := &api.KVPair{
		Key:   st.buildKey(snap.Root),
		Value: raw,
	}

	if _, err := st.kv.Put(pair, new(api.WriteOptions).WithContext(ctx)); err != nil {
		return err
	}

	return nil
}

func (st *ConsulStore) Load(ctx context.Context, root string) (*cache.Snapshot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.kv == nil {
		return nil, data.ErrCacheClosed
	}

	pair, _, err := st.kv.Get(st.buildKey(root), new(api.QueryOptions).WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, fmt.Errorf("%w: no snapshot for %s", data.ErrCacheMiss, root)
	}

	snap, err := cache.Decode(pair.Value)
	if err != nil {
		return nil, err
	}

	if snap.Root != root {
		return nil, fmt.Errorf("%w: snapshot belongs to %s", data.ErrCacheMiss, snap.Root)
	}

	return snap, nil
}

func (st *ConsulStore) Close(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.kv = nil
	return nil
}
