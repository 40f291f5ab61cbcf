package keys

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/server/models"
)

type MemoryRepository struct {
	mu   sync.Mutex
	keys map[string]models.KeyRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{keys: make(map[string]models.KeyRecord)}
}

func (r *MemoryRepository) Get(ctx context.Context, userID string) (*models.KeyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.keys[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rec, nil
}

func (r *MemoryRepository) InsertIfAbsent(ctx context.Context, rec *models.KeyRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[rec.UserID]; ok {
		return false, nil
	}
	r.keys[rec.UserID] = *rec
	return true, nil
}
