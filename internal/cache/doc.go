// Package cache stores synthesized speech so repeated segments skip the
// synthesizer. An in-memory LRU sits in front of a zstd-compressed disk
// store that survives restarts.
package cache
