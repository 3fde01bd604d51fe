// Package chat defines the contract between the speech pipeline and a live
// chat provider: messages, opaque cursors, pages and the error taxonomy used
// to decide between retrying, stopping cleanly and aborting.
package chat
