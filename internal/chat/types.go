package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cursor is an opaque continuation token marking how far a Source has been
// consumed. The zero value means "start of stream".
type Cursor string

// IsZero reports whether the cursor points at the start of the stream.
func (c Cursor) IsZero() bool {
	return c == ""
}

// Message is a single chat message. Identity is ID: two messages with the
// same ID are the same event regardless of their text.
type Message struct {
	ID          string
	Author      string
	Text        string
	PublishedAt time.Time
}

// Page is the result of one fetch.
type Page struct {
	// Messages in the order the provider returned them. They may overlap
	// with messages from earlier pages.
	Messages []Message

	// Next is the cursor to use for the following fetch.
	Next Cursor

	// PollAfter is the provider's hint for the minimum delay before the
	// next fetch. Zero means no hint.
	PollAfter time.Duration

	// Ended reports that the broadcast is over and no more messages will
	// arrive.
	Ended bool
}

// Source fetches the next batch of chat items since a cursor.
type Source interface {
	// Fetch returns the page following cursor. Errors are either
	// *TransientFetchError or *FatalFetchError.
	Fetch(ctx context.Context, cursor Cursor) (Page, error)
}

// StreamRef identifies the broadcast to follow. Exactly one field is set.
type StreamRef struct {
	VideoID   string
	ChannelID string
	// Handle is a channel handle without the leading "@".
	Handle   string
	Username string
}

// ParseChannelRef builds a StreamRef from a channel argument. "@name" is a
// handle, values that look like channel IDs ("UC...") are used as-is, and
// anything else is a legacy username.
func ParseChannelRef(channel string) StreamRef {
	channel = strings.TrimSpace(channel)
	switch {
	case strings.HasPrefix(channel, "@"):
		return StreamRef{Handle: strings.TrimPrefix(channel, "@")}
	case strings.HasPrefix(channel, "UC"):
		return StreamRef{ChannelID: channel}
	default:
		return StreamRef{Username: channel}
	}
}

// Validate checks that exactly one field is set.
func (r StreamRef) Validate() error {
	n := 0
	for _, v := range []string{r.VideoID, r.ChannelID, r.Handle, r.Username} {
		if v != "" {
			n++
		}
	}
	switch n {
	case 0:
		return ErrNoStreamRef
	case 1:
		return nil
	default:
		return fmt.Errorf("%w: set only one of video, channel, handle or username", ErrNoStreamRef)
	}
}

func (r StreamRef) String() string {
	switch {
	case r.VideoID != "":
		return "video:" + r.VideoID
	case r.ChannelID != "":
		return "channel:" + r.ChannelID
	case r.Handle != "":
		return "@" + r.Handle
	case r.Username != "":
		return "user:" + r.Username
	default:
		return "<none>"
	}
}

// Resolver turns a stream reference into the identifier a Source polls. It
// runs once before the polling loop starts.
type Resolver interface {
	Resolve(ctx context.Context, ref StreamRef) (string, error)
}
