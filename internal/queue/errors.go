package queue

import "errors"

// ErrConfiguration is raised synchronously at registration time, never
// during the dispatch loop, when a registration-time condition is
// violated (e.g. a non-invocable handler, a duplicate ident).
var ErrConfiguration = errors.New("queue: configuration error")

// ErrUnknownHandler is raised when a received callable_ident has no
// registered handler. The consumer logs and drops such a message without
// ever entering it into the in-flight hash, so the reaper never
// re-enqueues it.
var ErrUnknownHandler = errors.New("queue: unknown handler")
