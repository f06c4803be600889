// Package viewstate models the load lifecycle of a dashboard panel and
// detects responses that arrive after a newer fetch for the same panel.
package viewstate

import (
	"sync"
)

type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "error"
	default:
		return "idle"
	}
}

// State is what a template renders for one panel.
type State[T any] struct {
	Phase   Phase
	Data    T
	Message string
}

func Ready[T any](data T) State[T] {
	return State[T]{Phase: Loaded, Data: data}
}

func Error[T any](message string) State[T] {
	return State[T]{Phase: Failed, Message: message}
}

func (s State[T]) IsLoaded() bool { return s.Phase == Loaded }
func (s State[T]) IsError() bool  { return s.Phase == Failed }
func (s State[T]) IsIdle() bool   { return s.Phase == Idle }

// Token identifies one fetch of one panel.
type Token struct {
	key string
	gen uint64
}

func (t Token) Generation() uint64 { return t.gen }

// Tracker hands out increasing generations per key. Only the latest token
// for a key is current; results carried by older tokens must be dropped.
type Tracker struct {
	mu   sync.Mutex
	next uint64
	gens map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{gens: make(map[string]uint64)}
}

// Begin starts a new fetch for key and supersedes every earlier one.
func (t *Tracker) Begin(key string) Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	// one counter for all keys, so a generation is never reused
	t.next++
	t.gens[key] = t.next
	return Token{key: key, gen: t.next}
}

// Current reports whether tok is still the latest fetch for its key.
func (t *Tracker) Current(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gens[tok.key] == tok.gen
}

// Finish releases bookkeeping for key once its latest fetch completed.
func (t *Tracker) Finish(tok Token) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gens[tok.key] == tok.gen {
		delete(t.gens, tok.key)
	}
}
