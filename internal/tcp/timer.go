package tcp

// RetransmissionTimer is a pure data object: no background scheduling, no
// goroutines. Progression happens only via explicit Tick calls from the
// owning Sender.
type RetransmissionTimer struct {
	initialRTOMs uint64
	currentRTOMs uint64
	elapsedMs    uint64
	running      bool
}

// NewRetransmissionTimer constructs a timer with the given initial RTO.
func NewRetransmissionTimer(initialRTOMs uint64) *RetransmissionTimer {
	return &RetransmissionTimer{initialRTOMs: initialRTOMs, currentRTOMs: initialRTOMs}
}

// Start (re)starts the timer from zero elapsed time.
func (t *RetransmissionTimer) Start() {
	t.running = true
	t.elapsedMs = 0
}

// Stop halts the timer and resets elapsed time.
func (t *RetransmissionTimer) Stop() {
	t.running = false
	t.elapsedMs = 0
}

// ResetRTO restores the current RTO to its initial value.
func (t *RetransmissionTimer) ResetRTO() {
	t.currentRTOMs = t.initialRTOMs
}

// DoubleRTO doubles the current RTO (exponential backoff).
func (t *RetransmissionTimer) DoubleRTO() {
	t.currentRTOMs *= 2
}

// Tick advances elapsed time by deltaMs.
func (t *RetransmissionTimer) Tick(deltaMs uint64) {
	t.elapsedMs += deltaMs
}

// Expired reports whether the timer is running and has reached its RTO.
func (t *RetransmissionTimer) Expired() bool {
	return t.running && t.elapsedMs >= t.currentRTOMs
}

// IsRunning reports whether the timer is currently running.
func (t *RetransmissionTimer) IsRunning() bool {
	return t.running
}
