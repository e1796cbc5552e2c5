package engine

import (
	"sync"

	"github.com/snowmigrate/snowmigrate-api/internal/models"
)

// broadcaster fans progress snapshots out to any number of per-job
// subscribers. Every subscriber has its own buffered channel, so each one
// sees every snapshot independently of the others.
type broadcaster struct {
	mu   sync.Mutex
	subs map[string]map[chan models.Progress]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[string]map[chan models.Progress]struct{})}
}

func (b *broadcaster) register(jobID string) chan models.Progress {
	ch := make(chan models.Progress, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[chan models.Progress]struct{})
	}
	b.subs[jobID][ch] = struct{}{}
	return ch
}

func (b *broadcaster) unregister(jobID string, ch chan models.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[jobID], ch)
	if len(b.subs[jobID]) == 0 {
		delete(b.subs, jobID)
	}
}

// publish delivers p to every subscriber of jobID. A subscriber that has
// fallen a full buffer behind misses this snapshot rather than stalling the
// stream readers.
func (b *broadcaster) publish(jobID string, p models.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[jobID] {
		select {
		case ch <- p:
		default:
		}
	}
}
