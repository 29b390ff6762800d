// File: internal/progress/broadcaster.go
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Broadcaster owns the shared progress snapshot and pushes every change to
// all current subscribers, synchronously and in call order. One instance is
// created per process by the pipeline controller and injected into the
// stream layer; tests construct their own.
type Broadcaster struct {
	mu    sync.Mutex
	state State
	subs  map[int]func(State)
	next  int
	log   *zerolog.Logger
}

func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	l := logger.With().Str("component", "ProgressBroadcaster").Logger()
	return &Broadcaster{
		state: idleState(),
		subs:  map[int]func(State){},
		log:   &l,
	}
}

// Update merges the patch into the snapshot and notifies every subscriber
// with the new state. A subscriber that panics is logged and skipped; it
// never blocks the update or the other subscribers.
func (b *Broadcaster) Update(p Patch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.apply(p)
	snap := b.state.clone()
	for id, fn := range b.subs {
		b.notify(id, fn, snap)
	}
}

// Subscribe registers a listener and immediately delivers the current
// snapshot, so late subscribers see present state rather than only future
// deltas. The returned func removes the listener; calling it twice is safe.
func (b *Broadcaster) Subscribe(fn func(State)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	snap := b.state.clone()
	b.notify(id, fn, snap)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Snapshot returns a mutation-safe copy of the current state.
func (b *Broadcaster) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.clone()
}

// Reset restores idle defaults. Subscribers are kept and notified.
func (b *Broadcaster) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = idleState()
	snap := b.state.clone()
	for id, fn := range b.subs {
		b.notify(id, fn, snap)
	}
}

func (b *Broadcaster) notify(id int, fn func(State), snap State) {
	defer func() {
		if v := recover(); v != nil {
			b.log.Warn().Int("subscriber", id).Interface("panic", v).Msg("progress subscriber panicked")
		}
	}()
	fn(snap)
}

// ---- phase helpers ----
//
// Convenience wrappers that compute a human-readable message from the
// counters and call Update. The message mirrors the counters passed; tests
// assert on counters, not prose.

func (b *Broadcaster) StartCrawling(sourcesTotal int) {
	now := time.Now()
	b.Update(Patch{
		Step:             Ptr(StepCrawling),
		StartedAt:        &now,
		SourcesTotal:     Ptr(sourcesTotal),
		SourcesCompleted: Ptr(0),
		Message:          Ptr(fmt.Sprintf("crawling %d sources", sourcesTotal)),
	})
}

func (b *Broadcaster) SourceStarted(sourceID string, termsTotal int) {
	p := Patch{
		CurrentSource: Ptr(sourceID),
		Message:       Ptr(fmt.Sprintf("crawling %s", sourceID)),
	}
	if termsTotal > 0 {
		p.Sources = map[string]SourcePatch{sourceID: {TermsTotal: Ptr(termsTotal)}}
	}
	b.Update(p)
}

// CrawlingUpdate applies a per-source counter patch.
func (b *Broadcaster) CrawlingUpdate(sourceID string, sp SourcePatch) {
	msg := fmt.Sprintf("crawling %s", sourceID)
	if sp.Detail != nil {
		msg = fmt.Sprintf("crawling %s: %s", sourceID, *sp.Detail)
	}
	b.Update(Patch{
		Sources: map[string]SourcePatch{sourceID: sp},
		Message: Ptr(msg),
	})
}

func (b *Broadcaster) SourceCompleted(sourceID string, completed, total int) {
	b.Update(Patch{
		SourcesCompleted: Ptr(completed),
		Message:          Ptr(fmt.Sprintf("%s done (%d/%d sources)", sourceID, completed, total)),
	})
}

func (b *Broadcaster) CrawlingComplete(jobsDiscovered int) {
	b.Update(Patch{
		Step:           Ptr(StepImporting),
		JobsDiscovered: Ptr(jobsDiscovered),
		Message:        Ptr(fmt.Sprintf("discovered %d jobs, importing", jobsDiscovered)),
	})
}

func (b *Broadcaster) ImportComplete(created, skipped int) {
	b.Update(Patch{
		Step:        Ptr(StepScoring),
		JobsCreated: Ptr(created),
		JobsSkipped: Ptr(skipped),
		Message:     Ptr(fmt.Sprintf("imported %d new jobs (%d duplicates skipped)", created, skipped)),
	})
}

func (b *Broadcaster) ScoringProgress(scored, total int, currentJob string) {
	b.Update(Patch{
		Step:       Ptr(StepScoring),
		JobsScored: Ptr(scored),
		CurrentJob: Ptr(currentJob),
		Message:    Ptr(fmt.Sprintf("scoring %d/%d", scored, total)),
	})
}

func (b *Broadcaster) ScoringComplete(scored int) {
	b.Update(Patch{
		JobsScored: Ptr(scored),
		CurrentJob: Ptr(""),
		Message:    Ptr(fmt.Sprintf("scored %d jobs", scored)),
	})
}

func (b *Broadcaster) ProcessingProgress(processed, total int, currentJob string) {
	b.Update(Patch{
		Step:           Ptr(StepProcessing),
		JobsProcessed:  Ptr(processed),
		TotalToProcess: Ptr(total),
		CurrentJob:     Ptr(currentJob),
		Message:        Ptr(fmt.Sprintf("processing %d/%d", processed, total)),
	})
}

func (b *Broadcaster) JobComplete(processed, total int) {
	b.Update(Patch{
		JobsProcessed: Ptr(processed),
		Message:       Ptr(fmt.Sprintf("processed %d/%d", processed, total)),
	})
}

func (b *Broadcaster) Complete(jobsDiscovered, jobsProcessed int) {
	now := time.Now()
	b.Update(Patch{
		Step:          Ptr(StepCompleted),
		CompletedAt:   &now,
		JobsProcessed: Ptr(jobsProcessed),
		CurrentJob:    Ptr(""),
		Message:       Ptr(fmt.Sprintf("run complete: %d discovered, %d processed", jobsDiscovered, jobsProcessed)),
	})
}

func (b *Broadcaster) Failed(errMsg string) {
	now := time.Now()
	b.Update(Patch{
		Step:        Ptr(StepFailed),
		CompletedAt: &now,
		Error:       Ptr(errMsg),
		Message:     Ptr("run failed: " + errMsg),
	})
}
