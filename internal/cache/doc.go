// Package cache stores synthesized audio so repeated chat lines (greetings,
// emotes, bot commands) are not sent to the speech engine twice. It has an
// in-memory LRU tier (L1) and an optional zstd-compressed disk tier (L2).
package cache
