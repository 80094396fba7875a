package drawing

import (
	"sync"
	"time"
)

// Activity describes an operation currently running for a problem.
type Activity struct {
	Op        string    `json:"op"`
	StartedAt time.Time `json:"startedAt"`
}

// InFlight allows at most one save or load per problem at a time.
type InFlight struct {
	mu     sync.Mutex
	active map[string]Activity // problemID -> running op
}

func NewInFlight() *InFlight {
	return &InFlight{
		active: make(map[string]Activity),
	}
}

// Acquire marks problemID busy with op. It returns false if another
// operation already holds it; otherwise the caller must call release.
func (f *InFlight) Acquire(problemID, op string) (release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, busy := f.active[problemID]; busy {
		return nil, false
	}
	f.active[problemID] = Activity{Op: op, StartedAt: time.Now()}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.active, problemID)
			f.mu.Unlock()
		})
	}, true
}

func (f *InFlight) GetAll() map[string]Activity {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make(map[string]Activity, len(f.active))
	for k, v := range f.active {
		result[k] = v
	}
	return result
}
