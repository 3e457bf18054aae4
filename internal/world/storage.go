package world

// ChunkStore caches generated chunk buffers for one world configuration.
type ChunkStore interface {
	Load(coord ChunkCoord) (*ChunkBuffer, bool, error)
	Save(buf *ChunkBuffer) error
	Delete(coord ChunkCoord) error
	Close() error
}

// StoreProvider opens a chunk store scoped to a configuration digest.
type StoreProvider interface {
	OpenStore(configDigest string) (ChunkStore, error)
}
