package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tabrown76/Aramark-Scripts/internal/logging"
)

// ErrClosed is returned by Emit after Complete.
var ErrClosed = errors.New("event subject closed")

// HandlerFunc is the function called when an event is emitted.
type HandlerFunc func(context.Context, any) error

// SubjectOption configures a Subject
type SubjectOption func(*subjectConfig)

type subjectConfig struct {
	bufferSize int
	replaySize int
}

// WithBufferSize sets the event channel buffer size
func WithBufferSize(size int) SubjectOption {
	return func(cfg *subjectConfig) {
		cfg.bufferSize = size
	}
}

// WithReplay keeps the last size events per subject so late subscribers can catch up.
func WithReplay(size int) SubjectOption {
	return func(cfg *subjectConfig) {
		cfg.replaySize = size
	}
}

type event struct {
	topic   string
	message any
}

type subscribeRequest struct {
	topic   string
	id      string
	handler HandlerFunc
	replay  bool
	done    chan struct{}
}

// Subscription represents a handler subscribed to a specific topic.
type Subscription struct {
	ID          string
	Topic       string
	Unsubscribe func()
}

// Subject is an in-process pub/sub bus. All handlers run on a single
// goroutine, in emit order, so a handler never races with itself.
type Subject struct {
	config subjectConfig

	events     chan event
	subscribes chan subscribeRequest
	shutdown   chan struct{}

	mu     sync.Mutex
	subs   map[string]map[string]HandlerFunc
	nextID int64

	cache     []event
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSubject creates a new Subject with optional configuration.
func NewSubject(opts ...SubjectOption) *Subject {
	cfg := subjectConfig{bufferSize: 512}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Subject{
		config:     cfg,
		events:     make(chan event, cfg.bufferSize),
		subscribes: make(chan subscribeRequest),
		shutdown:   make(chan struct{}),
		subs:       make(map[string]map[string]HandlerFunc),
	}
	s.wg.Add(1)
	go s.eventLoop()
	return s
}

// Emit emits an event to the given topic.
func Emit[T any](s *Subject, topic string, value T) error {
	select {
	case <-s.shutdown:
		return ErrClosed
	default:
	}

	select {
	case s.events <- event{topic: topic, message: value}:
		return nil
	case <-s.shutdown:
		return ErrClosed
	case <-time.After(5 * time.Second):
		return fmt.Errorf("failed to emit event on %s: buffer full", topic)
	}
}

// Subscribe subscribes a typed handler to the given topic. With replay set,
// cached events for the topic are delivered first, before anything newer.
func Subscribe[T any](s *Subject, topic string, handler func(context.Context, T) error, replay bool) Subscription {
	wrapped := HandlerFunc(func(ctx context.Context, data any) error {
		typed, ok := data.(T)
		if !ok {
			return fmt.Errorf("type assertion failed for %T, expected %T", data, *new(T))
		}
		return handler(ctx, typed)
	})

	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("%s-%d", topic, s.nextID)
	s.mu.Unlock()

	sub := Subscription{
		ID:    id,
		Topic: topic,
		Unsubscribe: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if topicSubs, ok := s.subs[topic]; ok {
				delete(topicSubs, id)
				if len(topicSubs) == 0 {
					delete(s.subs, topic)
				}
			}
		},
	}

	req := subscribeRequest{topic: topic, id: id, handler: wrapped, replay: replay, done: make(chan struct{})}
	select {
	case s.subscribes <- req:
		<-req.done
	case <-s.shutdown:
	}
	return sub
}

// Complete shuts down the subject. Safe to call more than once.
func Complete(s *Subject) {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.shutdown)

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
	})
}

func (s *Subject) eventLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.shutdown:
			return

		case req := <-s.subscribes:
			s.mu.Lock()
			if _, ok := s.subs[req.topic]; !ok {
				s.subs[req.topic] = make(map[string]HandlerFunc)
			}
			s.subs[req.topic][req.id] = req.handler
			s.mu.Unlock()

			if req.replay {
				for _, evt := range s.cache {
					if evt.topic == req.topic {
						s.deliver(req.id, req.handler, evt)
					}
				}
			}
			close(req.done)

		case evt := <-s.events:
			if s.config.replaySize > 0 {
				s.cache = append(s.cache, evt)
				if len(s.cache) > s.config.replaySize {
					s.cache = s.cache[len(s.cache)-s.config.replaySize:]
				}
			}

			s.mu.Lock()
			handlers := make(map[string]HandlerFunc, len(s.subs[evt.topic]))
			for id, h := range s.subs[evt.topic] {
				handlers[id] = h
			}
			s.mu.Unlock()

			for id, h := range handlers {
				s.deliver(id, h, evt)
			}
		}
	}
}

func (s *Subject) deliver(id string, h HandlerFunc, evt event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h(ctx, evt.message); err != nil {
		logging.Debugf("event handler error: topic=%s subscription=%s: %v", evt.topic, id, err)
	}
}
