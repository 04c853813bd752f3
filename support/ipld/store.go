package ipld

import (
	"context"
	"sync"

	cid "github.com/ipfs/go-cid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/xerrors"

	"github.com/borroe/borroe-actors/actors/serde"
)

// Blockstore holds serialized objects keyed by the CID of their bytes.
type Blockstore interface {
	GetBlock(ctx context.Context, c cid.Cid) ([]byte, error)
	PutBlock(ctx context.Context, c cid.Cid, data []byte) error
}

var ErrNotFound = xerrors.New("block not found")

// Store serializes objects into and out of a blockstore.
type Store struct {
	ctx context.Context
	bs  Blockstore
}

func WrapBlockStore(ctx context.Context, bs Blockstore) *Store {
	return &Store{ctx: ctx, bs: bs}
}

// Creates a new, empty, store in memory.
// This store is appropriate for most kinds of testing.
func NewADTStore(ctx context.Context) *Store {
	return WrapBlockStore(ctx, NewBlockStoreInMemory())
}

func (s *Store) Context() context.Context {
	return s.ctx
}

func (s *Store) Blocks() Blockstore {
	return s.bs
}

func (s *Store) Get(ctx context.Context, c cid.Cid, out interface{}) error {
	data, err := s.bs.GetBlock(ctx, c)
	if err != nil {
		return err
	}
	return serde.Deserialize(data, out)
}

func (s *Store) Put(ctx context.Context, v interface{}) (cid.Cid, error) {
	c, data, err := serde.Put(v)
	if err != nil {
		return cid.Undef, err
	}
	if err := s.bs.PutBlock(ctx, c, data); err != nil {
		return cid.Undef, err
	}
	return c, nil
}

//
// In-memory blockstore
//

type BlockStoreInMemory struct {
	mu     sync.RWMutex
	blocks map[cid.Cid][]byte
}

func NewBlockStoreInMemory() *BlockStoreInMemory {
	return &BlockStoreInMemory{blocks: make(map[cid.Cid][]byte)}
}

func (b *BlockStoreInMemory) GetBlock(_ context.Context, c cid.Cid) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.blocks[c]
	if !ok {
		return nil, xerrors.Errorf("%s: %w", c, ErrNotFound)
	}
	return data, nil
}

func (b *BlockStoreInMemory) PutBlock(_ context.Context, c cid.Cid, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocks[c] = data
	return nil
}

// Copies out every block, keyed by CID string.
func (b *BlockStoreInMemory) Export() map[string][]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string][]byte, len(b.blocks))
	for c, data := range b.blocks {
		out[c.String()] = data
	}
	return out
}

// Adds blocks previously exported, verifying that each matches its key.
func (b *BlockStoreInMemory) Import(blocks map[string][]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, data := range blocks {
		c, err := cid.Decode(key)
		if err != nil {
			return xerrors.Errorf("invalid block key %q: %w", key, err)
		}
		sum, err := serde.Sum(data)
		if err != nil {
			return err
		}
		if !sum.Equals(c) {
			return xerrors.Errorf("block %s does not match its content %s", c, sum)
		}
		b.blocks[c] = data
	}
	return nil
}

//
// Metrics blockstore
//

// MetricsBlockStore counts reads and writes to an underlying blockstore.
type MetricsBlockStore struct {
	bs Blockstore

	reads        prometheus.Counter
	writes       prometheus.Counter
	bytesRead    prometheus.Counter
	bytesWritten prometheus.Counter
}

// Wraps a blockstore, registering its counters with reg when reg is not nil.
func NewMetricsBlockStore(underlying Blockstore, reg prometheus.Registerer) *MetricsBlockStore {
	m := &MetricsBlockStore{
		bs: underlying,
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "borroe_store_reads_total",
			Help: "Total number of blocks read",
		}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "borroe_store_writes_total",
			Help: "Total number of blocks written",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "borroe_store_read_bytes_total",
			Help: "Total bytes of blocks read",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "borroe_store_written_bytes_total",
			Help: "Total bytes of blocks written",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.reads, m.writes, m.bytesRead, m.bytesWritten)
	}
	return m
}

func (m *MetricsBlockStore) GetBlock(ctx context.Context, c cid.Cid) ([]byte, error) {
	data, err := m.bs.GetBlock(ctx, c)
	if err != nil {
		return nil, err
	}
	m.reads.Inc()
	m.bytesRead.Add(float64(len(data)))
	return data, nil
}

func (m *MetricsBlockStore) PutBlock(ctx context.Context, c cid.Cid, data []byte) error {
	if err := m.bs.PutBlock(ctx, c, data); err != nil {
		return err
	}
	m.writes.Inc()
	m.bytesWritten.Add(float64(len(data)))
	return nil
}

func (m *MetricsBlockStore) Underlying() Blockstore {
	return m.bs
}

func (m *MetricsBlockStore) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.reads, m.writes, m.bytesRead, m.bytesWritten}
}
