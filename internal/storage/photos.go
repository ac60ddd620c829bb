package storage

import (
	"context"
	"sync"
)

// PhotoStore keeps the image captured at enrollment.
type PhotoStore interface {
	PutPhoto(ctx context.Context, key string, data []byte, contentType string) error
	GetPhoto(ctx context.Context, key string) ([]byte, string, error)
	DeletePhoto(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// PhotoKey is the object key of an identity's enrollment photo.
func PhotoKey(digitalID, contentType string) string {
	ext := "bin"
	switch contentType {
	case "image/jpeg":
		ext = "jpg"
	case "image/png":
		ext = "png"
	case "image/webp":
		ext = "webp"
	}
	return "identities/" + digitalID + "/enrollment." + ext
}

type storedPhoto struct {
	data        []byte
	contentType string
}

// MemoryPhotoStore is an in-process PhotoStore.
type MemoryPhotoStore struct {
	mu     sync.RWMutex
	photos map[string]storedPhoto

	PutError error
}

func NewMemoryPhotoStore() *MemoryPhotoStore {
	return &MemoryPhotoStore{photos: make(map[string]storedPhoto)}
}

func (m *MemoryPhotoStore) PutPhoto(ctx context.Context, key string, data []byte, contentType string) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[key] = storedPhoto{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (m *MemoryPhotoStore) GetPhoto(ctx context.Context, key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.photos[key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return append([]byte(nil), p.data...), p.contentType, nil
}

func (m *MemoryPhotoStore) DeletePhoto(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.photos, key)
	return nil
}

func (m *MemoryPhotoStore) Ping(ctx context.Context) error { return nil }
