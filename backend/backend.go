// Package backend defines the compute backend used by layers, readouts and learning rules.
//
// Concrete backends live in subpackages and register themselves on import:
//
//	import _ "github.com/neurlang/rsnn/backend/native"
package backend

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownBackend is returned by Lookup for names nobody registered.
var ErrUnknownBackend = errors.New("unknown backend")

// Backend performs the dense float32 algebra behind the recurrent networks.
// Matrices are row-major.
type Backend interface {

	// Name reports the canonical backend name.
	Name() string

	// Gemm computes c = alpha*op(a)*op(b) + beta*c where op(a) is m×k,
	// op(b) is k×n and c is m×n. With transA set a is stored k×m, with
	// transB set b is stored n×k.
	Gemm(transA, transB bool, m, n, k int, alpha float32, a, b []float32, beta float32, c []float32)
}

// Featurer is implemented by backends which can describe the hardware they run on.
type Featurer interface {
	Features() map[string]string
}

// Factory makes a backend using up to threads goroutines (0 = backend default).
type Factory func(threads int) (Backend, error)

type entry struct {
	canonical string
	factory   Factory
}

var (
	mu       sync.RWMutex
	registry = map[string]entry{}
)

// Register makes a backend available under name and all aliases.
// Names are case-insensitive. Registering a name twice panics.
func Register(name string, f Factory, aliases ...string) {
	mu.Lock()
	defer mu.Unlock()
	for _, n := range append([]string{name}, aliases...) {
		key := strings.ToLower(n)
		if _, dup := registry[key]; dup {
			panic("backend: Register called twice for " + key)
		}
		registry[key] = entry{canonical: name, factory: f}
	}
}

// Lookup constructs the backend registered under name.
func Lookup(name string, threads int) (Backend, error) {
	mu.RLock()
	e, ok := registry[strings.ToLower(name)]
	mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q (known: %s)", name, strings.Join(Names(), ", "))
	}
	b, err := e.factory(threads)
	if err != nil {
		return nil, errors.Wrapf(err, "backend %s", e.canonical)
	}
	return b, nil
}

// Names lists every registered name and alias, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	var names = make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Reference is the plain triple loop every backend has to agree with.
func Reference(transA, transB bool, m, n, k int, alpha float32, a, b []float32, beta float32, c []float32) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for p := 0; p < k; p++ {
				sum += At(a, transA, i, p, m, k) * At(b, transB, p, j, k, n)
			}
			c[i*n+j] = alpha*sum + beta*c[i*n+j]
		}
	}
}

// At reads element (i, j) of op(x) where op(x) is rows×cols.
func At(x []float32, trans bool, i, j, rows, cols int) float32 {
	if trans {
		return x[j*rows+i]
	}
	return x[i*cols+j]
}
