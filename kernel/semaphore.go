package kernel

import (
	"runtime"
	"sync/atomic"
)

// Semaphore is a counting semaphore. MaxTokens == 0 means uncapped: Give
// never blocks and overflow is the caller's concern, matching the
// original's OS_semaphoreInitialiseCounting.
type Semaphore struct {
	kn  waitNotifier
	sig bool

	tokens    atomic.Uint32
	maxTokens uint32
	waitHead  *TCB
}

// Init prepares a general counting semaphore with the given ceiling and
// starting token count. initTokens greater than maxTokens (with
// maxTokens > 0) is rejected per the open-question decision in DESIGN.md:
// a debug build panics via assertDebug, and a release build clamps
// initTokens to maxTokens instead of storing the raw value.
func (s *Semaphore) Init(kn waitNotifier, maxTokens, initTokens uint32) {
	assertDebug(maxTokens == 0 || initTokens <= maxTokens, "semaphore: initTokens (%d) exceeds maxTokens (%d)", initTokens, maxTokens)
	if maxTokens != 0 && initTokens > maxTokens {
		initTokens = maxTokens
	}
	s.kn = kn
	s.maxTokens = maxTokens
	s.tokens.Store(initTokens)
	s.waitHead = nil
	s.sig = true
}

// InitBinary prepares a binary semaphore (maxTokens == 1). initFull > 1 is
// always clamped to 1 before Init is called, so it never trips Init's
// debug assertion.
func (s *Semaphore) InitBinary(kn waitNotifier, initFull uint32) {
	if initFull > 1 {
		initFull = 1
	}
	s.Init(kn, 1, initFull)
}

// InitCounting prepares an unbounded counting semaphore starting at zero
// tokens.
func (s *Semaphore) InitCounting(kn waitNotifier) {
	s.Init(kn, 0, 0)
}

// Take removes one token, blocking until one is available.
func (s *Semaphore) Take() {
	assertDebug(s.sig, "semaphore: Take called before Init")
	self := s.kn.currentTCB()

	for {
		failFastSeen := s.kn.fastFail()

		tokens := s.tokens.Load()
		if tokens > 0 {
			if s.tokens.CompareAndSwap(tokens, tokens-1) {
				s.kn.notify(&s.waitHead)
				return
			}
			runtime.Gosched()
			continue
		}

		s.kn.wait(self, &s.waitHead, failFastSeen)
		runtime.Gosched()
	}
}

// Give adds one token, blocking until there is room (only possible when
// maxTokens > 0).
func (s *Semaphore) Give() {
	assertDebug(s.sig, "semaphore: Give called before Init")
	self := s.kn.currentTCB()

	for {
		failFastSeen := s.kn.fastFail()

		tokens := s.tokens.Load()
		if s.maxTokens == 0 || tokens < s.maxTokens {
			if s.tokens.CompareAndSwap(tokens, tokens+1) {
				s.kn.notify(&s.waitHead)
				return
			}
			runtime.Gosched()
			continue
		}

		s.kn.wait(self, &s.waitHead, failFastSeen)
		runtime.Gosched()
	}
}

// Tokens returns the current token count, for tests and observability.
func (s *Semaphore) Tokens() uint32 { return s.tokens.Load() }
