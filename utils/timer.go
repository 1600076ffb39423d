package utils

import (
	"fmt"
	"sort"
	"time"
)

// Timer accumulates named wall-clock intervals. It is the reduced form of the
// original profiler: create a label, bracket a region with Start/Stop, dump
// the totals at the end. Not safe for concurrent use; each rank owns its own.
type Timer struct {
	name    string
	totals  map[string]time.Duration
	started map[string]time.Time
	counts  map[string]int
}

func NewTimer(name string) *Timer {
	return &Timer{
		name:    name,
		totals:  make(map[string]time.Duration),
		started: make(map[string]time.Time),
		counts:  make(map[string]int),
	}
}

// Create registers a label; starting an unknown label registers it as well.
func (t *Timer) Create(label string) {
	if t == nil {
		return
	}
	if _, ok := t.totals[label]; !ok {
		t.totals[label] = 0
	}
}

func (t *Timer) Start(label string) {
	if t == nil {
		return
	}
	t.started[label] = time.Now()
}

func (t *Timer) Stop(label string) {
	if t == nil {
		return
	}
	if t0, ok := t.started[label]; ok {
		t.totals[label] += time.Since(t0)
		t.counts[label]++
		delete(t.started, label)
	}
}

// Disp prints the accumulated totals, longest first.
func (t *Timer) Disp() {
	if t == nil {
		return
	}
	labels := make([]string, 0, len(t.totals))
	for l := range t.totals {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return t.totals[labels[i]] > t.totals[labels[j]] })
	fmt.Printf("-- timings %s --\n", t.name)
	for _, l := range labels {
		fmt.Printf("%-20s %12v  (%d calls)\n", l, t.totals[l], t.counts[l])
	}
}
