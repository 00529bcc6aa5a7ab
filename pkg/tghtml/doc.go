// Package tghtml builds Telegram-safe HTML fragments and handles the
// platform's message size limits.
//
// Values of type H are treated as already-escaped; build them with Esc and B.
// Chunk splits a long report into sendable pieces.
package tghtml
