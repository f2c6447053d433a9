// Package parallel provides the execution spaces data-parallel kernels are
// launched on. A kernel is written once against the Space interface and can
// then run sequentially or fork-join across goroutines.
package parallel

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// MemorySpace tags where buffers consumed by a Space must live.
type MemorySpace int

const (
	Host MemorySpace = iota
	Unified
	Device
)

func (m MemorySpace) String() string {
	switch m {
	case Host:
		return "host"
	case Unified:
		return "unified"
	case Device:
		return "device"
	}
	return "MemorySpace(" + strconv.Itoa(int(m)) + ")"
}

// Space is an execution target for data-parallel loops.
type Space interface {
	// For calls fn(i) once for every i in [0,n) and returns after all calls
	// have returned. Calls may run concurrently and in any order.
	For(n int, fn func(i int))
	// Workers returns the number of lanes For may run concurrently.
	Workers() int
	// Memory returns the memory space buffers must reside in.
	Memory() MemorySpace
}

// Sequential runs every iteration on the calling goroutine, in order.
type Sequential struct{}

func (Sequential) For(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}

func (Sequential) Workers() int        { return 1 }
func (Sequential) Memory() MemorySpace { return Host }
func (Sequential) String() string      { return "seq" }

// Threads splits iterations into contiguous chunks, one goroutine per chunk.
// N is the number of goroutines; zero or negative selects GOMAXPROCS.
type Threads struct {
	N int
}

func (t Threads) Workers() int {
	if t.N <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return t.N
}

func (t Threads) Memory() MemorySpace { return Host }

func (t Threads) String() string {
	return "threads:" + strconv.Itoa(t.Workers())
}

func (t Threads) For(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	nw := t.Workers()
	if nw == 1 || n == 1 {
		Sequential{}.For(n, fn)
		return
	}
	chunk := (n + nw - 1) / nw
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				fn(i)
			}
		}(lo, hi)
	}
	wg.Wait()
}

// ParseSpace returns the Space named by s. Accepted forms are
// "seq", "sequential", "threads" and "threads:N".
func ParseSpace(s string) (Space, error) {
	name, arg, hasArg := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	switch name {
	case "", "seq", "sequential":
		if hasArg {
			return nil, fmt.Errorf("sequential space takes no argument, got %q", s)
		}
		return Sequential{}, nil
	case "threads", "omp":
		if !hasArg {
			return Threads{}, nil
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("parsing thread count of %q: %w", s, err)
		}
		if n <= 0 {
			return nil, errors.New("thread count must be positive")
		}
		return Threads{N: n}, nil
	}
	return nil, fmt.Errorf("unknown execution space %q", s)
}
