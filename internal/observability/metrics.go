package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	errorCount      map[string]int64
	assignmentCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		assignmentCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordAssignment counts routing outcomes per rule type. Unassigned
// outcomes count under an empty rule type.
func (m *Metrics) RecordAssignment(ruleType string, assigned bool) {
	if m == nil {
		return
	}
	key := ruleType + "|" + strconv.FormatBool(assigned)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignmentCount[key]++
}

// AssignmentCount reads one routing counter.
func (m *Metrics) AssignmentCount(ruleType string, assigned bool) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignmentCount[ruleType+"|"+strconv.FormatBool(assigned)]
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
