// Package nvm models the device's raw byte-addressable non-volatile storage.
//
// A Region is a fixed-size byte range with ReadAt/WriteAt semantics, the
// same primitive a flash or EEPROM partition exposes. Three backends exist:
//
//   - Memory: volatile, for tests and devices without persistent storage
//   - File: a pre-sized file, fsynced after every write
//   - SQLite: a named BLOB row in the core database
//
// Backends never grow. Any access outside [0, Size()) fails with
// ErrOutOfRange and leaves the region unchanged.
package nvm
