package repomanager

import (
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/keys"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/messages"
	"github.com/dmitrijs2005/whisperbox/internal/server/repositories/users"
)

// InMemoryRepositoryManager keeps everything in process memory. Data is
// lost when the process exits.
type InMemoryRepositoryManager struct {
	users    *users.MemoryRepository
	keys     *keys.MemoryRepository
	messages *messages.MemoryRepository
}

func NewInMemoryRepositoryManager(opts ...messages.Option) *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:    users.NewMemoryRepository(),
		keys:     keys.NewMemoryRepository(),
		messages: messages.NewMemoryRepository(opts...),
	}
}

func (m *InMemoryRepositoryManager) Users() users.Repository       { return m.users }
func (m *InMemoryRepositoryManager) Keys() keys.Repository         { return m.keys }
func (m *InMemoryRepositoryManager) Messages() messages.Repository { return m.messages }
func (m *InMemoryRepositoryManager) Close() error                  { return nil }
