package youtube

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/dgnsrekt/livechat-tts/internal/chat"
)

type liveChatResponse struct {
	NextPageToken         string `json:"nextPageToken"`
	PollingIntervalMillis int64  `json:"pollingIntervalMillis"`
	OfflineAt             string `json:"offlineAt"`
	Items                 []struct {
		ID      string `json:"id"`
		Snippet struct {
			Type           string `json:"type"`
			DisplayMessage string `json:"displayMessage"`
			PublishedAt    string `json:"publishedAt"`
		} `json:"snippet"`
		AuthorDetails struct {
			DisplayName string `json:"displayName"`
		} `json:"authorDetails"`
	} `json:"items"`
}

// LiveChat polls the messages of one live chat.
type LiveChat struct {
	client *Client
	chatID string
}

// LiveChat returns a chat.Source for the given live chat id.
func (c *Client) LiveChat(chatID string) *LiveChat {
	return &LiveChat{client: c, chatID: chatID}
}

// ChatID returns the live chat id being polled.
func (l *LiveChat) ChatID() string {
	return l.chatID
}

// Fetch returns the messages after cursor. Items without display text (bans,
// deletions, membership milestones without a message) are skipped.
func (l *LiveChat) Fetch(ctx context.Context, cursor chat.Cursor) (chat.Page, error) {
	params := url.Values{}
	params.Set("part", "snippet,authorDetails")
	params.Set("liveChatId", l.chatID)
	params.Set("maxResults", "2000")
	if !cursor.IsZero() {
		params.Set("pageToken", string(cursor))
	}

	var resp liveChatResponse
	err := l.client.getJSON(ctx, "liveChatMessages.list", "/liveChat/messages", params, &resp)
	if errors.Is(err, chat.ErrStreamEnded) {
		return chat.Page{Next: cursor, Ended: true}, nil
	}
	if err != nil {
		return chat.Page{}, err
	}

	page := chat.Page{
		Messages:  make([]chat.Message, 0, len(resp.Items)),
		Next:      chat.Cursor(resp.NextPageToken),
		PollAfter: time.Duration(resp.PollingIntervalMillis) * time.Millisecond,
		Ended:     resp.OfflineAt != "",
	}
	if page.Next.IsZero() {
		page.Next = cursor
	}

	for _, item := range resp.Items {
		if item.ID == "" || item.Snippet.DisplayMessage == "" {
			continue
		}
		published, err := time.Parse(time.RFC3339Nano, item.Snippet.PublishedAt)
		if err != nil {
			l.client.logger.Debug("Unparseable publishedAt", "id", item.ID, "value", item.Snippet.PublishedAt)
		}
		page.Messages = append(page.Messages, chat.Message{
			ID:          item.ID,
			Author:      item.AuthorDetails.DisplayName,
			Text:        item.Snippet.DisplayMessage,
			PublishedAt: published,
		})
	}

	return page, nil
}

var _ chat.Source = (*LiveChat)(nil)
var _ chat.Resolver = (*Client)(nil)
