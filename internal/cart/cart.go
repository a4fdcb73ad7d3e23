package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/feastline/orderhub/internal/domain"
)

// FileStore holds the serialized cart snapshot in a JSON file, the
// local preference store the checkout path reads from. Checkout only
// loads and clears it; whatever builds the cart writes through Save.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the cart snapshot. A missing file is an empty cart; a
// corrupt payload is an error.
func (s *FileStore) Load(_ context.Context) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cart file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode cart payload: %w", err)
	}
	return items, nil
}

func (s *FileStore) Save(_ context.Context, items []domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart payload: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Clear removes the snapshot; clearing an absent cart is a no-op.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear cart file: %w", err)
	}
	return nil
}
