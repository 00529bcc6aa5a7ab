package transport

import "time"

// Message is one formatted player report, channel-neutral.
// Body markup is channel-specific and applied by the formatter before a
// message reaches a transport.
type Message struct {
	Title string
	Body  string
	URL   string // canonical player profile URL, optional
	At    time.Time
}

// Batch is an ordered group of messages delivered in one network call.
// Channels cap how many messages fit in a single call; callers split large
// runs into channel-sized batches.
type Batch []Message
