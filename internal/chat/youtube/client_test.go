package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/livechat-tts/internal/chat"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBaseURL(srv.URL), WithRequestsPerMinute(0)}, opts...)
	c, err := NewClient("test-key", opts...)
	require.NoError(t, err)
	return c
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient("  ")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient("k")
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, c.baseURL)
	require.Equal(t, DefaultTimeout, c.timeout)
	require.NotNil(t, c.limiter)
}

// ---------------------------------------------------------------------------
// Fetch
// ---------------------------------------------------------------------------

const pageJSON = `{
  "nextPageToken": "tok-2",
  "pollingIntervalMillis": 5000,
  "items": [
    {"id": "m1", "snippet": {"type": "textMessageEvent", "displayMessage": "hello", "publishedAt": "2024-05-01T10:00:00.123Z"}, "authorDetails": {"displayName": "alice"}},
    {"id": "m2", "snippet": {"type": "messageDeletedEvent", "displayMessage": "", "publishedAt": "2024-05-01T10:00:01Z"}, "authorDetails": {"displayName": "mod"}},
    {"id": "m3", "snippet": {"type": "textMessageEvent", "displayMessage": "world", "publishedAt": "2024-05-01T10:00:02Z"}, "authorDetails": {"displayName": "bob"}}
  ]
}`

func TestFetch_ParsesPage(t *testing.T) {
	var gotToken, gotChat, gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/liveChat/messages", r.URL.Path)
		gotToken = r.URL.Query().Get("pageToken")
		gotChat = r.URL.Query().Get("liveChatId")
		gotKey = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(pageJSON))
	})

	page, err := c.LiveChat("chat-1").Fetch(context.Background(), chat.Cursor("tok-1"))
	require.NoError(t, err)

	require.Equal(t, "tok-1", gotToken)
	require.Equal(t, "chat-1", gotChat)
	require.Equal(t, "test-key", gotKey)

	require.Equal(t, chat.Cursor("tok-2"), page.Next)
	require.Equal(t, 5*time.Second, page.PollAfter)
	require.False(t, page.Ended)
	require.Len(t, page.Messages, 2)
	require.Equal(t, "m1", page.Messages[0].ID)
	require.Equal(t, "alice", page.Messages[0].Author)
	require.Equal(t, "hello", page.Messages[0].Text)
	require.False(t, page.Messages[0].PublishedAt.IsZero())
	require.Equal(t, "m3", page.Messages[1].ID)
}

func TestFetch_FirstPageHasNoToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["pageToken"]
		require.False(t, present, "first fetch must not send a page token")
		_, _ = w.Write([]byte(`{"items": []}`))
	})

	page, err := c.LiveChat("chat-1").Fetch(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, page.Messages)
	require.True(t, page.Next.IsZero())
}

func TestFetch_KeepsCursorWhenTokenMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items": []}`))
	})

	page, err := c.LiveChat("chat-1").Fetch(context.Background(), "tok-9")
	require.NoError(t, err)
	require.Equal(t, chat.Cursor("tok-9"), page.Next)
}

func TestFetch_OfflineAtEndsStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"offlineAt": "2024-05-01T12:00:00Z", "items": []}`))
	})

	page, err := c.LiveChat("chat-1").Fetch(context.Background(), "")
	require.NoError(t, err)
	require.True(t, page.Ended)
}

func TestFetch_LiveChatEndedReason(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "The live chat is no longer live.", "errors": [{"reason": "liveChatEnded"}]}}`))
	})

	page, err := c.LiveChat("chat-1").Fetch(context.Background(), "tok-3")
	require.NoError(t, err)
	require.True(t, page.Ended)
	require.Equal(t, chat.Cursor("tok-3"), page.Next)
}

func TestFetch_ErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"server error", http.StatusServiceUnavailable, `{}`, true},
		{"too many requests", http.StatusTooManyRequests, `{}`, true},
		{"rate limit reason", http.StatusForbidden, `{"error": {"code": 403, "errors": [{"reason": "rateLimitExceeded"}]}}`, true},
		{"quota exceeded", http.StatusForbidden, `{"error": {"code": 403, "errors": [{"reason": "quotaExceeded"}]}}`, false},
		{"chat not found", http.StatusNotFound, `{"error": {"code": 404, "errors": [{"reason": "liveChatNotFound"}]}}`, false},
		{"bad key", http.StatusBadRequest, `{"error": {"code": 400, "message": "API key not valid"}}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.LiveChat("chat-1").Fetch(context.Background(), "")
			require.Error(t, err)
			require.Equal(t, tc.transient, chat.IsTransient(err), "err=%v", err)
			require.Equal(t, !tc.transient, chat.IsFatal(err), "err=%v", err)
		})
	}
}

func TestFetch_TimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))

	_, err := c.LiveChat("chat-1").Fetch(context.Background(), "")
	require.Error(t, err)
	require.True(t, chat.IsTransient(err), "timeout must be transient, got %v", err)
}

func TestFetch_MalformedBodyIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items": [`))
	})

	_, err := c.LiveChat("chat-1").Fetch(context.Background(), "")
	require.True(t, chat.IsTransient(err), "got %v", err)
	require.True(t, errors.Is(err, errInvalidResponse))
}
