// SPDX-License-Identifier: GPL-3.0-or-later

package procwrap

import "github.com/google/uuid"

// NewSpanID returns a UUIDv7 identifying one spawn-to-reap lifecycle.
//
// A span is a single process's journey from [*CommandWrap.Spawn] through its
// final [ChildHandle.Wait]. Attach the span ID to a logger with
// [*slog.Logger.With] so every log entry for that process shares it,
// enabling correlation when many children are spawned concurrently.
//
// The span terminology is borrowed from OTel.
//
// This function panics if the system random number generator fails, which
// should only happen under extraordinary circumstances.
func NewSpanID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return id.String()
}
