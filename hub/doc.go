/*
Package hub implements the coordination core for a pool of
independently-operated air-quality measurement workers.

Workers connect over a persistent duplex channel and sign up with an
ed25519 signature over a challenge binding their correlation ID and public
key. Work orders reach workers over two paths: on explicit request (pull),
which claims and dispatches up to a batch of eligible places, and on a
periodic sweep (push), which claims each eligible place once and dispatches
it to a configurable number of registered workers. Both paths claim through
the store's conditional-claim primitive, so a place is never assigned
twice while a claim is live.

Every dispatched order registers a pending call under a fresh correlation
ID. A signed result consumes its pending call at most once and is committed
atomically: claim released, measurement recorded, payout accrued. Pending
calls and claims carry TTLs; a background sweep expires both, so a worker
that disconnects or never replies cannot leak claims forever.
*/
package hub
