package siren

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/oshokin/siren-guard/internal/domain/siren"
)

// write is one recorded actuator call.
type write struct {
	at        time.Duration
	direction domain.Direction
}

// fakeActuator records every Set call relative to its creation time.
type fakeActuator struct {
	mu     sync.Mutex
	start  time.Time
	writes []write
	err    error
}

func newFakeActuator() *fakeActuator {
	return &fakeActuator{start: time.Now()}
}

func (a *fakeActuator) Set(_ context.Context, direction domain.Direction) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.writes = append(a.writes, write{at: time.Since(a.start), direction: direction})

	return a.err
}

func (a *fakeActuator) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.err = err
}

func (a *fakeActuator) recorded() []write {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]write(nil), a.writes...)
}

func (a *fakeActuator) directions() []domain.Direction {
	writes := a.recorded()
	out := make([]domain.Direction, 0, len(writes))

	for _, w := range writes {
		out = append(out, w.direction)
	}

	return out
}

// published is one recorded payload.
type published struct {
	topic   string
	payload map[string]any
}

// recordingPublisher keeps everything published.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, published{topic: topic, payload: payload})

	return nil
}

// last returns the most recent payload on topic, or nil.
func (p *recordingPublisher) last(topic string) map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := len(p.messages) - 1; i >= 0; i-- {
		if p.messages[i].topic == topic {
			return p.messages[i].payload
		}
	}

	return nil
}

// fakeRepository stores the last saved set and can be made to fail.
type fakeRepository struct {
	mu    sync.Mutex
	saved []domain.ThresholdSet
	err   error
}

func (r *fakeRepository) Load(context.Context) (domain.ThresholdSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.saved) == 0 {
		return domain.ThresholdSet{}, errors.New("empty")
	}

	return r.saved[len(r.saved)-1], nil
}

func (r *fakeRepository) Save(_ context.Context, set domain.ThresholdSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.saved = append(r.saved, set)

	return nil
}

func (r *fakeRepository) sets() []domain.ThresholdSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.ThresholdSet(nil), r.saved...)
}

func (r *fakeRepository) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.err = err
}

// fakeSensor returns a fixed value or error and counts reads.
type fakeSensor struct {
	mu    sync.Mutex
	value float64
	err   error
	reads int
}

func (s *fakeSensor) ReadDistance(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads++

	return s.value, s.err
}

func (s *fakeSensor) set(value float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value, s.err = value, err
}

func (s *fakeSensor) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reads
}

func testTimings() Timings {
	return Timings{
		Unit:            time.Second,
		WarningCooldown: 60,
		AlertCooldown:   20,
		RebootPulse:     2 * time.Second,
	}
}

// newTestController builds a started controller that is closed when the test ends.
// Inside a synctest bubble the caller must close it before returning.
func newTestController(t *testing.T, act *fakeActuator, pub *recordingPublisher, repo *fakeRepository) *Controller {
	t.Helper()

	opts := &Options{
		DeviceID:    "test-device",
		Unit:        "cm",
		MaxDistance: 100,
		Thresholds:  domain.DefaultThresholds(),
		Actuator:    act,
		Timings:     testTimings(),
	}

	if pub != nil {
		opts.Publisher = pub
	}

	if repo != nil {
		opts.Repository = repo
	}

	c := NewController(context.Background(), opts)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start controller: %v", err)
	}

	return c
}
