// Package session keeps live backend connections for the life of the process.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"

	"github.com/n0madic/go-gradiogate/internal/models"
	"github.com/n0madic/go-gradiogate/internal/payload"
)

// ErrAuthenticationFailed is returned when a connection cannot be established
// with the supplied credential.
var ErrAuthenticationFailed = errors.New("failed to connect to backend with provided token")

// Lookup outcomes reported to the observer.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Result is the raw output of a backend operation: one value, or a sequence
// when Sequence is set.
type Result struct {
	Values   []string
	Sequence bool
}

// Handle is a live backend connection.
type Handle interface {
	Invoke(ctx context.Context, operation string, args *payload.Payload) (Result, error)
}

// Factory opens a connection to endpointRef. An empty credential means an
// anonymous connection.
type Factory func(ctx context.Context, endpointRef, credential string) (Handle, error)

// Key identifies a cached connection.
type Key struct {
	Model      string
	Credential string
	Anonymous  bool
}

// NewKey builds the key for model and credential. An empty credential maps to
// the anonymous key, which never equals a credentialed one.
func NewKey(model, credential string) Key {
	return Key{Model: model, Credential: credential, Anonymous: credential == ""}
}

func (k Key) flightKey() string {
	if k.Anonymous {
		return k.Model + "\x00anonymous"
	}
	return k.Model + "\x00token\x00" + k.Credential
}

// Option configures a Cache.
type Option func(*Cache)

// WithObserver registers fn to be called with the outcome of every lookup.
func WithObserver(fn func(result string)) Option {
	return func(c *Cache) { c.observe = fn }
}

// Cache maps (model, credential) to a live Handle. Entries are created lazily
// and never evicted. Failed connection attempts are not stored.
type Cache struct {
	conns   *xsync.Map[Key, Handle]
	group   singleflight.Group
	observe func(result string)
}

// NewCache returns an empty cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{conns: xsync.NewMap[Key, Handle]()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCreate returns the cached handle for (desc.ID, credential), connecting
// through factory on a miss. Concurrent misses for the same key share one
// factory call.
func (c *Cache) GetOrCreate(ctx context.Context, desc models.Descriptor, credential string, factory Factory) (Handle, error) {
	key := NewKey(desc.ID, credential)
	if h, ok := c.conns.Load(key); ok {
		c.report(LookupHit)
		return h, nil
	}

	v, err, _ := c.group.Do(key.flightKey(), func() (any, error) {
		if h, ok := c.conns.Load(key); ok {
			return h, nil
		}
		h, err := factory(ctx, desc.EndpointRef, credential)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
		}
		c.conns.Store(key, h)
		return h, nil
	})
	if err != nil {
		c.report(LookupError)
		return nil, err
	}
	c.report(LookupMiss)
	return v.(Handle), nil
}

// Len reports the number of cached connections.
func (c *Cache) Len() int {
	return c.conns.Size()
}

func (c *Cache) report(result string) {
	if c.observe != nil {
		c.observe(result)
	}
}
