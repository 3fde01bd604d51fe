package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dgnsrekt/livechat-tts/internal/chat"
)

type videosResponse struct {
	Items []struct {
		ID                   string `json:"id"`
		LiveStreamingDetails struct {
			ActiveLiveChatID string `json:"activeLiveChatId"`
			ActualEndTime    string `json:"actualEndTime"`
		} `json:"liveStreamingDetails"`
	} `json:"items"`
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type channelsResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

// Resolve turns a stream reference into an active live chat id. Handles and
// usernames are resolved to channel ids, channels to their current live video,
// and the video to its live chat. A bare name that is not a legacy username
// is retried as a handle.
func (c *Client) Resolve(ctx context.Context, ref chat.StreamRef) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", err
	}

	videoID := ref.VideoID
	if videoID == "" {
		channelID := ref.ChannelID
		if channelID == "" {
			id, err := c.channelIDFor(ctx, ref)
			if err != nil {
				return "", err
			}
			channelID = id
		}

		id, err := c.LiveVideoID(ctx, channelID)
		if err != nil {
			return "", err
		}
		videoID = id
	}

	return c.LiveChatID(ctx, videoID)
}

func (c *Client) channelIDFor(ctx context.Context, ref chat.StreamRef) (string, error) {
	if ref.Handle != "" {
		return c.ChannelIDForHandle(ctx, ref.Handle)
	}
	id, err := c.ChannelIDForUsername(ctx, ref.Username)
	if errors.Is(err, errChannelNotFound) {
		c.logger.Debug("No legacy username, trying handle", "name", ref.Username)
		return c.ChannelIDForHandle(ctx, ref.Username)
	}
	return id, err
}

var errChannelNotFound = errors.New("channel not found")

// ChannelIDForHandle looks up the channel id of an @handle. The leading "@"
// is optional.
func (c *Client) ChannelIDForHandle(ctx context.Context, handle string) (string, error) {
	return c.lookupChannel(ctx, "forHandle", "@"+strings.TrimPrefix(handle, "@"))
}

// ChannelIDForUsername looks up the channel id of a legacy username.
func (c *Client) ChannelIDForUsername(ctx context.Context, username string) (string, error) {
	return c.lookupChannel(ctx, "forUsername", username)
}

func (c *Client) lookupChannel(ctx context.Context, param, value string) (string, error) {
	c.logger.Info("Looking up channel ID", param, value)

	params := url.Values{}
	params.Set("part", "id")
	params.Set(param, value)

	var resp channelsResponse
	if err := c.getJSON(ctx, "channels.list", "/channels", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].ID == "" {
		return "", &chat.FatalFetchError{Op: "channels.list", Err: fmt.Errorf("%w for %s %q", errChannelNotFound, param, value)}
	}

	c.logger.Info("Found channel", "id", resp.Items[0].ID)
	return resp.Items[0].ID, nil
}

// LiveVideoID returns the id of the channel's current live broadcast.
func (c *Client) LiveVideoID(ctx context.Context, channelID string) (string, error) {
	c.logger.Info("Searching for live stream", "channel", channelID)

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("eventType", "live")
	params.Set("type", "video")

	var resp searchResponse
	if err := c.getJSON(ctx, "search.list", "/search", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].ID.VideoID == "" {
		return "", &chat.FatalFetchError{Op: "search.list", Err: fmt.Errorf("%w for channel %s", chat.ErrNotLive, channelID)}
	}

	c.logger.Info("Found live stream", "video", resp.Items[0].ID.VideoID)
	return resp.Items[0].ID.VideoID, nil
}

// LiveChatID returns the active live chat id of a video.
func (c *Client) LiveChatID(ctx context.Context, videoID string) (string, error) {
	params := url.Values{}
	params.Set("part", "liveStreamingDetails")
	params.Set("id", videoID)

	var resp videosResponse
	if err := c.getJSON(ctx, "videos.list", "/videos", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", &chat.FatalFetchError{Op: "videos.list", Err: fmt.Errorf("video %s not found or not a live stream", videoID)}
	}

	details := resp.Items[0].LiveStreamingDetails
	if details.ActiveLiveChatID == "" {
		if details.ActualEndTime != "" {
			return "", chat.ErrStreamEnded
		}
		return "", &chat.FatalFetchError{Op: "videos.list", Err: fmt.Errorf("%w for video %s", chat.ErrNotLive, videoID)}
	}

	return details.ActiveLiveChatID, nil
}
