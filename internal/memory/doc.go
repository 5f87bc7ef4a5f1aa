// Package memory holds the in-process ordered chat history for one tab.
//
// Memory is the source of truth while the tab is open; the store persists it
// asynchronously. Appending a message whose id already exists merges the
// update into the stored message, which is how streamed progress reports
// accumulate into a single assistant message. Subscribers receive coalesced
// change signals through the Broadcaster.
package memory
