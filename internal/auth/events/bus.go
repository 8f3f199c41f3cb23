package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

// Handler receives auth-change notifications.
type Handler func(change domain.AuthChange)

// Publisher emits auth-change notifications.
type Publisher interface {
	Publish(ctx context.Context, change domain.AuthChange) error
}

// Source delivers auth-change notifications to a subscriber until the
// returned unsubscribe func is called.
type Source interface {
	Subscribe(handler Handler) (unsubscribe func(), err error)
}

// Bus is both ends of an auth event transport.
type Bus interface {
	Publisher
	Source
}

func encode(change domain.AuthChange) ([]byte, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal auth change: %w", err)
	}
	return data, nil
}

func decode(data []byte) (domain.AuthChange, bool) {
	var change domain.AuthChange
	if err := json.Unmarshal(data, &change); err != nil {
		log.Printf("[warn] component=auth-events dropping malformed event: %v", err)
		return domain.AuthChange{}, false
	}
	return change, true
}
