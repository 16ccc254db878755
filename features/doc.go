// Package features provides the reference feature set for media
// playback: playback transport, the media timeline, volume and playback
// rate. Each constructor returns a fresh descriptor over the Media
// target surface, and All composes the full set.
//
// These are both the built-in vocabulary of the demo player and worked
// examples of how to write a feature: a snapshot over target
// properties, a subscription over target events, and requests that do
// nothing but call target methods and let the resulting events drive
// state.
package features
