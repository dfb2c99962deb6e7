// Package borg invokes the borg binary and classifies its outcome.
//
// Client runs `borg info -a '*' --json [--iec] <repository>` with the
// passphrase supplied via BORG_PASSPHRASE and the modern exit-code contract
// requested via BORG_EXIT_CODES=modern. Stdout is returned raw; parsing
// belongs to the report package.
//
// Exit code 73 (lock timeout under the modern contract) maps to
// ErrRepositoryLocked so callers can degrade to a blocked observation.
// Every other non-zero exit becomes an *InvocationError carrying the exit
// code and a stderr tail.
//
// The command constructor is injectable so tests can substitute a fake
// process without a borg installation.
package borg
