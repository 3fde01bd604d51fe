// Package queue implements the bounded playback queue between the chat
// poller and the audio device. One consumer goroutine plays utterances in
// enqueue order, one at a time.
package queue
