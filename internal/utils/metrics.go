// internal/utils/metrics.go
package utils

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics 进程内指标：计数器、仪表与耗时分布
type Metrics struct {
	mu         sync.RWMutex
	counters   map[string]*int64
	gauges     map[string]*int64
	histograms map[string]*histogram
	started    time.Time
}

type histogram struct {
	mu    sync.Mutex
	count int64
	sum   int64
	min   int64
	max   int64
}

// HistogramSnapshot 分布快照
type HistogramSnapshot struct {
	Count int64 `json:"count"`
	Sum   int64 `json:"sum"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

// MetricsSnapshot 全部指标的快照
type MetricsSnapshot struct {
	UptimeSeconds int64                        `json:"uptime_seconds"`
	Counters      map[string]int64             `json:"counters"`
	Gauges        map[string]int64             `json:"gauges"`
	Histograms    map[string]HistogramSnapshot `json:"histograms"`
}

// NewMetrics 创建指标收集器
func NewMetrics() *Metrics {
	return &Metrics{
		counters:   make(map[string]*int64),
		gauges:     make(map[string]*int64),
		histograms: make(map[string]*histogram),
		started:    time.Now(),
	}
}

// slot 读锁命中后直接返回，未命中时加写锁创建
func (m *Metrics) slot(table map[string]*int64, name string) *int64 {
	m.mu.RLock()
	v, ok := table[name]
	m.mu.RUnlock()
	if ok {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok = table[name]; !ok {
		v = new(int64)
		table[name] = v
	}
	return v
}

// Inc 计数器加一
func (m *Metrics) Inc(name string) { m.Add(name, 1) }

// Add 计数器增加 delta
func (m *Metrics) Add(name string, delta int64) {
	atomic.AddInt64(m.slot(m.counters, name), delta)
}

// Counter 读取计数器
func (m *Metrics) Counter(name string) int64 {
	return atomic.LoadInt64(m.slot(m.counters, name))
}

// GaugeAdd 仪表增减
func (m *Metrics) GaugeAdd(name string, delta int64) {
	atomic.AddInt64(m.slot(m.gauges, name), delta)
}

// Gauge 读取仪表
func (m *Metrics) Gauge(name string) int64 {
	return atomic.LoadInt64(m.slot(m.gauges, name))
}

// Observe 记录一次耗时
func (m *Metrics) Observe(name string, d time.Duration) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if h, ok = m.histograms[name]; !ok {
			h = &histogram{}
			m.histograms[name] = h
		}
		m.mu.Unlock()
	}

	v := d.Milliseconds()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 || v < h.min {
		h.min = v
	}
	if v > h.max {
		h.max = v
	}
	h.count++
	h.sum += v
}

// Snapshot 返回所有指标的副本
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := MetricsSnapshot{
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		Counters:      make(map[string]int64, len(m.counters)),
		Gauges:        make(map[string]int64, len(m.gauges)),
		Histograms:    make(map[string]HistogramSnapshot, len(m.histograms)),
	}
	for name, v := range m.counters {
		s.Counters[name] = atomic.LoadInt64(v)
	}
	for name, v := range m.gauges {
		s.Gauges[name] = atomic.LoadInt64(v)
	}
	for name, h := range m.histograms {
		h.mu.Lock()
		s.Histograms[name] = HistogramSnapshot{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
		h.mu.Unlock()
	}
	return s
}

// Names 已记录的计数器名称
func (m *Metrics) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.counters))
	for name := range m.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
