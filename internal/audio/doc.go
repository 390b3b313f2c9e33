// Package audio plays raw PCM through oto/v3 and reports playback
// position so speech boundaries can be timed against it.
package audio
