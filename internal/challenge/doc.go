// Package challenge produces the rotating 6-digit PIN shown on the device.
//
// A PIN is valid for a fixed window (120 s by default) measured from its
// generation time. Rotation is lazy: nothing runs in the background, and
// the first Current call at or after the end of the window draws a new PIN.
// A rotated PIN always differs from the one it replaces.
//
// Presenters registered with WithPresenter are told about every new PIN,
// including the first one drawn by New. They run after the generator's
// lock is released and their errors are logged, never returned.
package challenge
