// Package extract separates a foreground from the background it was painted
// on.
//
// Given a background texture and the same texture with something drawn over
// it, Extract produces two layers: an overlay holding whatever cannot be
// expressed with the background's own colors, and a palette layer recording,
// as sample numbers, where pixels moved to a different background tone.
// Recombining those layers with a different background (see package
// combine) re-skins the foreground onto it.
//
// The direct strategy classifies every pixel against the background palette
// in CIELAB and explains ambiguous pixels as blends of a foreground color
// over a background entry. When nothing stands out, or that search would be
// too expensive, extraction falls back to clustering colors and classifying
// by cluster membership instead.
package extract
