package testsupport

import (
	"context"
	"sync"

	"cutline/internal/acquire"
	"cutline/internal/media"
)

// Outcome is the scripted result of one acquisition.
type Outcome struct {
	Result media.Result
	Err    error
}

// Provider is a scripted acquisition provider. Each call pops the next
// outcome queued for the media item's name, falling back to Default.
// When Gate is set, acquisitions block until it is closed or receives.
type Provider struct {
	ProviderName string
	CanCancel    bool
	Gate         chan struct{}
	Default      Outcome

	mu       sync.Mutex
	outcomes map[string][]Outcome
	calls    map[string]int
}

// NewProvider returns a provider whose default outcome is a
// five second video.
func NewProvider(name string) *Provider {
	return &Provider{
		ProviderName: name,
		CanCancel:    true,
		Default: Outcome{Result: media.Result{
			Kind:        media.KindVideo,
			Duration:    150,
			HasDuration: true,
			Width:       1280,
			Height:      720,
		}},
		outcomes: make(map[string][]Outcome),
		calls:    make(map[string]int),
	}
}

// Queue appends outcomes for media with the given display name.
func (p *Provider) Queue(name string, outcomes ...Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes[name] = append(p.outcomes[name], outcomes...)
}

// Calls reports how many acquisitions ran for a display name.
func (p *Provider) Calls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *Provider) Name() string      { return p.ProviderName }
func (p *Provider) Cancellable() bool { return p.CanCancel }

func (p *Provider) Acquire(ctx context.Context, item media.Item, report acquire.PhaseFunc) (media.Result, error) {
	report("scripted")
	if p.Gate != nil {
		select {
		case <-p.Gate:
		case <-ctx.Done():
			return media.Result{}, ctx.Err()
		}
	}
	p.mu.Lock()
	p.calls[item.Name]++
	outcome := p.Default
	if queued := p.outcomes[item.Name]; len(queued) > 0 {
		outcome = queued[0]
		p.outcomes[item.Name] = queued[1:]
	}
	p.mu.Unlock()
	return outcome.Result, outcome.Err
}
