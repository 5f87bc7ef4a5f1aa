// Package progress routes asynchronous work-done progress notifications from
// the backend to the session that issued the correlated request.
//
// Every outgoing conversation request carries an opaque work-done token. The
// backend streams begin, report, and end notifications under that token. The
// Dispatcher holds the token to handler registrations; notifications for
// tokens with no registration are dropped, which is also how cancelled
// requests quiesce without a positive acknowledgement.
package progress
