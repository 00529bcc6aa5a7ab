package tghtml

// MaxMessageRunes is the per-message chunk size used when splitting long
// reports. Telegram caps messages at 4096 characters; we stay a little under
// so parse-mode overhead never pushes a chunk over the wire limit.
const MaxMessageRunes = 4000
