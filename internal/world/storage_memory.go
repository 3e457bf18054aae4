package world

import "sync"

type memoryStoreProvider struct {
	mu     sync.Mutex
	stores map[string]*MemoryChunkStore
}

// NewMemoryStoreProvider returns a provider whose stores live for the
// lifetime of the process. Opening the same digest twice shares the store.
func NewMemoryStoreProvider() StoreProvider {
	return &memoryStoreProvider{stores: make(map[string]*MemoryChunkStore)}
}

func (p *memoryStoreProvider) OpenStore(configDigest string) (ChunkStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.stores[configDigest]; ok {
		return s, nil
	}
	s := NewMemoryChunkStore()
	p.stores[configDigest] = s
	return s, nil
}

// MemoryChunkStore keeps chunk buffers in a map.
type MemoryChunkStore struct {
	mu     sync.RWMutex
	chunks map[ChunkCoord]*ChunkBuffer
}

func NewMemoryChunkStore() *MemoryChunkStore {
	return &MemoryChunkStore{chunks: make(map[ChunkCoord]*ChunkBuffer)}
}

func (m *MemoryChunkStore) Load(coord ChunkCoord) (*ChunkBuffer, bool, error) {
	m.mu.RLock()
	buf, ok := m.chunks[coord]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return cloneBuffer(buf), true, nil
}

func (m *MemoryChunkStore) Save(buf *ChunkBuffer) error {
	m.mu.Lock()
	m.chunks[buf.Coord] = cloneBuffer(buf)
	m.mu.Unlock()
	return nil
}

func (m *MemoryChunkStore) Delete(coord ChunkCoord) error {
	m.mu.Lock()
	delete(m.chunks, coord)
	m.mu.Unlock()
	return nil
}

func (m *MemoryChunkStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func (m *MemoryChunkStore) Close() error {
	return nil
}

func cloneBuffer(buf *ChunkBuffer) *ChunkBuffer {
	dup := *buf
	dup.Cells = make([]Cell, len(buf.Cells))
	copy(dup.Cells, buf.Cells)
	return &dup
}
