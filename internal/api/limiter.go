package api

import (
	"sync"
)

// evalLimiter tracks concurrent evaluations per client IP and globally.
type evalLimiter struct {
	mu       sync.Mutex
	inFlight map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newEvalLimiter(maxPerIP int) *evalLimiter {
	if maxPerIP < 1 {
		maxPerIP = 1
	}
	return &evalLimiter{
		inFlight: make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: 1000, // Default global cap.
	}
}

// acquire attempts to register a new evaluation for the given IP.
// Returns false if the IP or global limit has been reached.
func (l *evalLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal {
		return false
	}
	if l.inFlight[ip] >= l.maxPerIP {
		return false
	}

	l.inFlight[ip]++
	l.total++
	return true
}

// release decrements the in-flight count for the given IP.
func (l *evalLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inFlight[ip]--
	l.total--
	if l.inFlight[ip] <= 0 {
		delete(l.inFlight, ip)
	}
}

// count returns the number of in-flight evaluations for the given IP.
func (l *evalLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight[ip]
}
