// Package audio plays synthesized speech through the system audio device
// using oto/v3. Play blocks until the utterance has been heard or its
// context is cancelled, so a single consumer never overlaps audio.
package audio
