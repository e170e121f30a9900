/*
Package ledger provides an append-only record of the calls an engine resolved, and a
flexible predicate for asking whether a particular call was made.

Calls are stored with their canonical URL, so a query matches regardless of the order query
parameters were written in.
*/
package ledger
