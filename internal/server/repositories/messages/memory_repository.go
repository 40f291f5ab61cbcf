package messages

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/whisperbox/internal/server/models"
)

type MemoryRepository struct {
	mu      sync.RWMutex
	threads map[string]map[string][]*models.Message
	log     []*models.Message
	opts    options
}

func NewMemoryRepository(opts ...Option) *MemoryRepository {
	return &MemoryRepository{
		threads: make(map[string]map[string][]*models.Message),
		opts:    newOptions(opts),
	}
}

func (r *MemoryRepository) Append(ctx context.Context, senderID, receiverID, ciphertext string) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msg := r.opts.newMessage(senderID, receiverID, ciphertext)
	for _, v := range views(msg) {
		byPartner, ok := r.threads[v.owner]
		if !ok {
			byPartner = make(map[string][]*models.Message)
			r.threads[v.owner] = byPartner
		}
		cp := *msg
		byPartner[v.partner] = append(byPartner[v.partner], &cp)
		models.SortMessages(byPartner[v.partner])
	}
	cp := *msg
	r.log = append(r.log, &cp)
	return msg, nil
}

func (r *MemoryRepository) GetThread(ctx context.Context, owner, partner string) ([]*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return copyThread(r.threads[owner][partner]), nil
}

func (r *MemoryRepository) GetLatestPerPartner(ctx context.Context, owner string) (map[string]*models.Message, error) {
	threads, err := r.GetAllThreads(ctx, owner)
	if err != nil {
		return nil, err
	}
	return latestOf(threads), nil
}

func (r *MemoryRepository) GetAllThreads(ctx context.Context, owner string) (map[string][]*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string][]*models.Message, len(r.threads[owner]))
	for partner, msgs := range r.threads[owner] {
		result[partner] = copyThread(msgs)
	}
	return result, nil
}

// LogLen reports how many messages the global log holds.
func (r *MemoryRepository) LogLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.log)
}

func copyThread(msgs []*models.Message) []*models.Message {
	out := make([]*models.Message, len(msgs))
	for i, m := range msgs {
		cp := *m
		out[i] = &cp
	}
	return out
}
