package history

import "fmt"

// ResetStreamCallback is invoked once per message decoded out of a
// ResetStreamConsumer's accumulated bytes. Returning an error stops the
// consumer and the error is latched (see LastError) and propagated out of
// AddStreamResetMessage.
type ResetStreamCallback func(Message) error

// ResetStreamConsumer accumulates concatenated ResetStream payload chunks
// and emits fully-decoded inner messages to a per-message callback as soon
// as enough bytes have arrived. It is exclusively owned by a SessionHistory
// while a streamed reset is Streaming; freeing it is a two-phase operation
// (Finish vs Discard) depending on whether draining succeeded.
type ResetStreamConsumer struct {
	callback ResetStreamCallback
	buf      []byte
	lastErr  error
}

// NewResetStreamConsumer constructs a consumer bound to callback.
func NewResetStreamConsumer(callback ResetStreamCallback) *ResetStreamConsumer {
	return &ResetStreamConsumer{callback: callback}
}

// Push appends data to the accumulator and decodes and dispatches as many
// complete messages as are available. It stops at the first callback error,
// latches it, and returns it; the remaining undispatched bytes (including
// the message that failed) stay buffered.
func (c *ResetStreamConsumer) Push(data []byte) error {
	if c.lastErr != nil {
		return c.lastErr
	}
	if len(data) == 0 {
		return nil
	}

	c.buf = append(c.buf, data...)

	for {
		msgs, consumed := DecodeMessages(c.buf)
		if len(msgs) == 0 {
			return nil
		}

		dispatched := 0
		for _, m := range msgs {
			if err := c.callback(m); err != nil {
				c.lastErr = err
				// Drop everything already dispatched plus the message
				// that failed; stop consuming further.
				c.buf = c.buf[consumed:]
				return err
			}
			dispatched++
		}

		c.buf = c.buf[consumed:]
		if len(c.buf) == 0 {
			return nil
		}
	}
}

// LastError returns the latched decode/callback error, if any.
func (c *ResetStreamConsumer) LastError() error {
	return c.lastErr
}

// Finish drains any fully-buffered-but-undispatched bytes (there should be
// none left if Push always ran to exhaustion) and reports whether the
// consumer ended cleanly.
func (c *ResetStreamConsumer) Finish() error {
	if c.lastErr != nil {
		return c.lastErr
	}
	if len(c.buf) != 0 {
		return fmt.Errorf("reset stream consumer: %d trailing undecoded bytes", len(c.buf))
	}
	return nil
}

// Discard releases the consumer's buffered state without further
// validation, used when a streamed reset is aborted.
func (c *ResetStreamConsumer) Discard() {
	c.buf = nil
}
