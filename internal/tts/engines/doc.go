// Package engines contains the speech engine implementations: Piper (local
// subprocess), OpenAI (remote API), a silent mock, and a caching decorator.
// Each implements tts.Engine.
package engines
