package nats

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	natsgo "github.com/nats-io/nats.go"

	"github.com/stacksjs/ttlcache/core/cache"
	"github.com/stacksjs/ttlcache/internal/codec"
)

var ErrBridgeClosed = errors.New("bridge closed")

type BridgeConfig struct {
	Connect Connector    // Connect creates the NATS connection. If nil, ConnectDefault() is used.
	Log     *slog.Logger // Log for publish failures (optional)
	Subject string       // Subject prefix, e.g. "ttlcache" -> ttlcache.<cache>.<event>
}

// Source is a cache whose notifications can be bridged. *cache.TTL
// implements it.
type Source interface {
	Name() string
	On(name cache.EventName, fn cache.Listener) (off func())
}

// Message is the payload published for every notification.
type Message struct {
	Cache string          `json:"cache"`
	Event cache.EventName `json:"event"`
	Key   any             `json:"key,omitempty"`
	Value any             `json:"value"`
}

// Bridge publishes the notifications of attached caches to NATS. It only
// observes: publish failures are logged and never reach the cache.
type Bridge struct {
	nc      *natsgo.Conn
	closeNc closeFunc
	log     *slog.Logger
	subject string

	mu       sync.Mutex
	nextID   uint64
	attached map[uint64]func()

	closed atomic.Bool
}

func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	connFn := cfg.Connect
	if connFn == nil {
		connFn = ConnectDefault()
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	subject := cfg.Subject
	if subject == "" {
		subject = "ttlcache"
	}

	nc, closeNc, err := connFn()
	if err != nil {
		return nil, err
	}

	return &Bridge{
		nc:       nc,
		closeNc:  closeNc,
		log:      log.With(slog.String("bridge", "nats")),
		subject:  subject,
		attached: make(map[uint64]func()),
	}, nil
}

// Subject returns the subject notifications of the named cache and event
// are published to.
func (b *Bridge) Subject(cacheName string, event cache.EventName) string {
	return b.subject + "." + token(cacheName) + "." + string(event)
}

// Attach subscribes to every notification of src. The returned function
// detaches it again.
func (b *Bridge) Attach(src Source) (detach func()) {
	name := src.Name()
	offs := make([]func(), 0, len(cache.Events))
	for _, ev := range cache.Events {
		offs = append(offs, src.On(ev, func(e cache.Event) {
			b.publish(name, e)
		}))
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	var once sync.Once
	detach = func() {
		once.Do(func() {
			for _, off := range offs {
				off()
			}
			b.mu.Lock()
			delete(b.attached, id)
			b.mu.Unlock()
		})
	}
	b.attached[id] = detach
	b.mu.Unlock()

	b.log.Debug("attached", slog.String("cache", name))
	return detach
}

func (b *Bridge) publish(cacheName string, e cache.Event) {
	if b.closed.Load() {
		return
	}

	log := b.log.With(slog.String("cache", cacheName), slog.String("event", string(e.Name)))

	data, err := encodeMessage(cacheName, e)
	if err != nil {
		log.Error("encode notification", slog.Any("error", err))
		return
	}

	if err := b.nc.Publish(b.Subject(cacheName, e.Name), data); err != nil {
		log.Error("publish notification", slog.Any("error", err))
	}
}

// Flush waits until the server has processed everything published so far.
func (b *Bridge) Flush(ctx context.Context) error {
	if b.closed.Load() {
		return ErrBridgeClosed
	}
	return b.nc.FlushWithContext(ctx)
}

// Close detaches all caches and releases the connection.
func (b *Bridge) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	detachers := make([]func(), 0, len(b.attached))
	for _, d := range b.attached {
		detachers = append(detachers, d)
	}
	b.mu.Unlock()

	for _, d := range detachers {
		d()
	}

	if err := b.nc.Flush(); err != nil {
		b.log.Warn("flush on close", slog.Any("error", err))
	}
	b.closeNc()
	return nil
}

// DecodeMessage parses a payload published by a Bridge.
func encodeMessage(cacheName string, e cache.Event) ([]byte, error) {
	return codec.JSON.Marshal(Message{
		Cache: cacheName,
		Event: e.Name,
		Key:   e.Key,
		Value: e.Value,
	})
}

func DecodeMessage(data []byte) (Message, error) {
	var m Message
	err := codec.JSON.Unmarshal(data, &m)
	return m, err
}

// token makes s usable as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
