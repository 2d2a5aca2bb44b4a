package readiness

import (
	"context"
	"sync"
)

type key struct {
	mediaID   string
	commandID string
}

// Manager tracks active synchronizers, one per (media, command) pair.
type Manager struct {
	deps Deps

	mu     sync.Mutex
	active map[key]*Synchronizer
	armed  int
}

// NewManager returns a manager creating synchronizers from deps.
func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps, active: make(map[key]*Synchronizer)}
}

// SetCommands installs the command lookup after construction, for callers
// whose history is built from the manager.
func (m *Manager) SetCommands(commands CommandLookup) {
	m.mu.Lock()
	m.deps.Commands = commands
	m.mu.Unlock()
}

// Arm creates and sets up a synchronizer for b, tearing down any previous
// one for the same media and command first.
func (m *Manager) Arm(ctx context.Context, b Binding) (*Synchronizer, error) {
	k := key{mediaID: b.MediaItemID, commandID: b.CommandID}

	m.mu.Lock()
	previous := m.active[k]
	m.mu.Unlock()
	if previous != nil {
		previous.Cleanup()
	}

	m.mu.Lock()
	s := newSynchronizer(b, m.deps, m.release)
	m.active[k] = s
	m.armed++
	m.mu.Unlock()

	if err := s.Setup(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Active returns the number of synchronizers still waiting.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// ActiveFor returns the number of waiting synchronizers owned by a command.
func (m *Manager) ActiveFor(commandID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.active {
		if k.commandID == commandID {
			n++
		}
	}
	return n
}

// Armed returns how many synchronizers have been created in total.
func (m *Manager) Armed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// Shutdown cleans up every active synchronizer.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*Synchronizer, 0, len(m.active))
	for _, s := range m.active {
		all = append(all, s)
	}
	m.mu.Unlock()
	for _, s := range all {
		s.Cleanup()
	}
}

func (m *Manager) release(s *Synchronizer) {
	k := key{mediaID: s.binding.MediaItemID, commandID: s.binding.CommandID}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[k] == s {
		delete(m.active, k)
	}
}
