package reports

import (
	"context"
	"sync"
)

// Saved is one report recorded by Memory.
type Saved struct {
	Filename string
	Data     []byte
}

// Memory keeps reports in process memory. Intended for tests and dry runs.
type Memory struct {
	mu    sync.Mutex
	saves []Saved
	// Err, when set, fails every save.
	Err error
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Save(_ context.Context, filename string, data []byte) (string, error) {
	name, err := cleanName(filename)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.saves = append(m.saves, Saved{Filename: name, Data: cp})
	return "memory://" + name, nil
}

// Saves returns every save in call order.
func (m *Memory) Saves() []Saved {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Saved(nil), m.saves...)
}
