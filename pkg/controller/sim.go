package controller

import (
	"fmt"
	"sync"
	"time"

	"github.com/itohio/gopid/pkg/engine"
)

// simTickInterval is how often the simulated plant and control loop
// advance between polls.
const simTickInterval = 50 * time.Millisecond

// simLink satisfies link with an in-process engine instance. It never
// constructs a transport; replies come from the same dispatcher the
// firmware runs, against a simulated thermal plant, so simulated sessions
// stay format-exact with real hardware.
type simLink struct {
	mu    sync.Mutex
	plant *engine.SimPlant
	eng   *engine.Engine
	stop  chan struct{}
	done  chan struct{}
}

var _ link = (*simLink)(nil)

func newSimLink(cfg *engine.SimPlantConfig) *simLink {
	plant := engine.NewSimPlant(cfg)
	l := &simLink{
		plant: plant,
		eng:   engine.New(plant),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	go l.run()

	return l
}

// run ticks the engine so simulated telemetry evolves between polls the
// way the firmware loop would.
func (l *simLink) run() {
	defer close(l.done)

	ticker := time.NewTicker(simTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			l.plant.Step(float32(simTickInterval.Seconds()))
			l.eng.Tick(simTickInterval)
			l.mu.Unlock()
		}
	}
}

func (l *simLink) exec(cmd string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	reply, ok := l.eng.Handle(cmd)
	if !ok {
		return "", fmt.Errorf("%w: no reply for %q", ErrProtocol, cmd)
	}
	return reply, nil
}

func (l *simLink) send(cmd string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.eng.Handle(cmd)
	return nil
}

func (l *simLink) close() error {
	close(l.stop)
	<-l.done
	return nil
}
