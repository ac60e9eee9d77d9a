// Package querycache guarda resultados de consultas remotas con un tiempo de
// frescura, permite invalidarlos y agrupa las consultas concurrentes por clave.
package querycache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime es el tiempo durante el cual una entrada se considera fresca.
const DefaultStaleTime = 5 * time.Second

// FetchFunc obtiene el valor remoto para una clave.
type FetchFunc[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	value     T
	fetchedAt time.Time
	stale     bool
	// gen es la generación de la clave cuando empezó la consulta.
	gen uint64
}

// Cache es una caché de consultas por clave.
type Cache[T any] struct {
	mu        sync.Mutex
	entries   map[string]*entry[T]
	gens      map[string]uint64
	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time
}

// New crea una caché; staleTime <= 0 usa DefaultStaleTime.
func New[T any](staleTime time.Duration) *Cache[T] {
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	return &Cache[T]{
		entries:   make(map[string]*entry[T]),
		gens:      make(map[string]uint64),
		staleTime: staleTime,
		now:       time.Now,
	}
}

// Get devuelve la entrada fresca o ejecuta fetch. Llamadas concurrentes a la
// misma clave comparten una sola ejecución.
func (c *Cache[T]) Get(ctx context.Context, key string, fetch FetchFunc[T]) (T, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !e.stale && c.now().Sub(e.fetchedAt) < c.staleTime {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	gen := c.gens[key]
	c.mu.Unlock()

	// La consulta es compartida: no depende de la cancelación de quien la inició.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		v, err := fetch(fetchCtx)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		c.storeLocked(key, gen, v)
		c.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Peek devuelve la entrada guardada sin importar su frescura.
func (c *Cache[T]) Peek(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Invalidate marca la clave como vieja y descarta la consulta en curso.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	c.invalidateLocked(key)
	c.mu.Unlock()
}

// InvalidatePrefix invalida todas las claves que empiezan con prefix.
func (c *Cache[T]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.invalidateLocked(key)
		}
	}
}

// Remove borra la entrada de la clave.
func (c *Cache[T]) Remove(key string) {
	c.mu.Lock()
	c.invalidateLocked(key)
	delete(c.entries, key)
	c.mu.Unlock()
}

// storeLocked guarda v obtenido en la generación gen. Si la clave fue
// invalidada durante la consulta, el valor queda viejo y no pisa uno más nuevo.
func (c *Cache[T]) storeLocked(key string, gen uint64, v T) {
	current := c.gens[key]
	if gen == current {
		c.entries[key] = &entry[T]{value: v, fetchedAt: c.now(), gen: gen}
		return
	}
	if e, ok := c.entries[key]; ok && e.gen >= gen {
		return
	}
	c.entries[key] = &entry[T]{value: v, fetchedAt: c.now(), stale: true, gen: gen}
}

func (c *Cache[T]) invalidateLocked(key string) {
	c.gens[key]++
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
	c.group.Forget(key)
}

// Generation cuenta las invalidaciones de la clave.
func (c *Cache[T]) Generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}
