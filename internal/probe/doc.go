// Package probe shells out to an external media analyzer to obtain exact
// playback durations for catalog items. The analyzer is optional: every
// failure mode (missing binary, timeout, unparseable or insane output)
// reports absence rather than an error, and callers fall back to fixed
// segment durations.
package probe
