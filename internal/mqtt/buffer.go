package mqtt

import "log"

// pendingMsg is a serialized message held while the broker is unreachable.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a bounded FIFO of pending messages. When full, the oldest
// message is overwritten. Callers synchronize access.
type outbox struct {
	slots   []pendingMsg
	next    int
	size    int
	dropped int
	warned  bool
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{slots: make([]pendingMsg, capacity)}
}

func (o *outbox) push(m pendingMsg) {
	o.slots[o.next] = m
	o.next = (o.next + 1) % len(o.slots)
	if o.size < len(o.slots) {
		o.size++
		return
	}
	o.dropped++
	if !o.warned {
		log.Printf("mqtt: outbox full (%d messages), dropping oldest", len(o.slots))
		o.warned = true
	}
}

// drain returns pending messages oldest first and empties the outbox.
func (o *outbox) drain() []pendingMsg {
	if o.size == 0 {
		return nil
	}
	out := make([]pendingMsg, 0, o.size)
	first := (o.next - o.size + len(o.slots)) % len(o.slots)
	for i := 0; i < o.size; i++ {
		out = append(out, o.slots[(first+i)%len(o.slots)])
	}
	o.next, o.size, o.warned = 0, 0, false
	return out
}

func (o *outbox) len() int { return o.size }
