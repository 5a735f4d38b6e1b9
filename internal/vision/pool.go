package vision

import (
	"fmt"
	"sync"

	"github.com/tphakala/proctor-go/internal/errors"
)

// Pool hands out non-thread-safe model instances one caller at a time.
// The pool size bounds how many inferences run in parallel.
type Pool[T any] struct {
	items   chan T
	all     []T
	release func(T) error
	once    sync.Once
}

// NewPool creates size instances with create. If any creation fails the
// instances created so far are released and the error is returned.
func NewPool[T any](size int, create func(i int) (T, error), release func(T) error) (*Pool[T], error) {
	if size < 1 {
		return nil, errors.Newf("pool size must be at least 1, got %d", size).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	p := &Pool[T]{
		items:   make(chan T, size),
		all:     make([]T, 0, size),
		release: release,
	}

	for i := range size {
		item, err := create(i)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("creating pool instance %d: %w", i, err)
		}
		p.all = append(p.all, item)
		p.items <- item
	}

	return p, nil
}

// Size returns the number of instances in the pool
func (p *Pool[T]) Size() int {
	return len(p.all)
}

// Do borrows an instance for the duration of fn. It blocks while all
// instances are busy.
func (p *Pool[T]) Do(fn func(T) error) error {
	item := <-p.items
	defer func() { p.items <- item }()
	return fn(item)
}

// Close releases every instance. Callers must not use the pool afterwards.
func (p *Pool[T]) Close() error {
	var errs []error
	p.once.Do(func() {
		if p.release == nil {
			return
		}
		for _, item := range p.all {
			if err := p.release(item); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
