package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrTransport covers network errors and non-success upstream statuses.
	ErrTransport = errors.New("llm: transport failure")
	// ErrMalformedResponse means the upstream answered but without candidate text.
	ErrMalformedResponse = errors.New("llm: malformed upstream response")
)

// GenerationConfig holds the sampling parameters sent with every prompt.
type GenerationConfig struct {
	Temperature     float32
	TopK            int32
	TopP            float32
	MaxOutputTokens int32
}

// DefaultGeneration is the fixed configuration used for all corrections.
var DefaultGeneration = GenerationConfig{
	Temperature:     0.7,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 1000,
}

type Engine interface {
	Name() string
	GetModel() string
	// Generate sends a single user-role prompt and returns the first candidate's text verbatim.
	Generate(ctx context.Context, prompt string, gen GenerationConfig) (string, error)
}

// Engines is the set of configured engines, keyed by Name().
type Engines struct {
	byName map[string]Engine
	order  []string
}

func NewEngines(engs ...Engine) *Engines {
	e := &Engines{byName: make(map[string]Engine, len(engs))}
	for _, eng := range engs {
		if eng == nil {
			continue
		}
		if _, dup := e.byName[eng.Name()]; !dup {
			e.order = append(e.order, eng.Name())
		}
		e.byName[eng.Name()] = eng
	}
	return e
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if eng, ok := e.byName[name]; ok {
		return eng, nil
	}
	return nil, fmt.Errorf("unknown engine %q; available: %s", name, strings.Join(e.order, " | "))
}

func (e *Engines) Names() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Manager hands out the default engine unless a chat picked another one.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Default() Engine { return m.def }

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}

func (m *Manager) Reset(chatID int64) {
	m.m.Delete(chatID)
}
