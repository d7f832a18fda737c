// Package youtube is a thin client for the YouTube Data API live chat
// endpoints.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/fanscore/internal/domain/model"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultTimeout = 30 * time.Second

	// Upstream page size limit for liveChat/messages.
	maxPageResults = "200"
)

// VideoInfo describes a live broadcast.
type VideoInfo struct {
	LiveChatID  string
	Title       string
	Description string
	StartedAt   time.Time
}

// Page is one page of live chat messages.
type Page struct {
	Items         []model.ChatEvent
	NextPageToken string
	// PollingInterval is the wait the upstream asks for before the next
	// page. Zero when the response carried none.
	PollingInterval time.Duration
}

// Client calls the YouTube Data API. Credentials are passed per call so
// the pool stays in charge of rotation.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client with configuration options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VideoInfo fetches the broadcast details for videoID. Returns
// ErrStreamGone when the video is missing or has no active live chat.
func (c *Client) VideoInfo(ctx context.Context, videoID, key string) (VideoInfo, error) {
	params := url.Values{
		"part": {"snippet,liveStreamingDetails"},
		"id":   {videoID},
		"key":  {key},
	}

	var resp videosResponse
	if err := c.get(ctx, "/videos", params, &resp); err != nil {
		return VideoInfo{}, err
	}
	if len(resp.Items) == 0 {
		return VideoInfo{}, fmt.Errorf("video %q: %w", videoID, ErrStreamGone)
	}

	item := resp.Items[0]
	if item.LiveStreamingDetails.ActiveLiveChatID == "" {
		return VideoInfo{}, fmt.Errorf("video %q has no active chat: %w", videoID, ErrStreamGone)
	}

	return VideoInfo{
		LiveChatID:  item.LiveStreamingDetails.ActiveLiveChatID,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		StartedAt:   parseTimestamp(item.LiveStreamingDetails.ActualStartTime),
	}, nil
}

// ChatPage fetches one page of live chat messages.
func (c *Client) ChatPage(ctx context.Context, liveChatID, pageToken, key string) (Page, error) {
	params := url.Values{
		"liveChatId": {liveChatID},
		"part":       {"snippet,authorDetails"},
		"maxResults": {maxPageResults},
		"key":        {key},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var resp chatResponse
	if err := c.get(ctx, "/liveChat/messages", params, &resp); err != nil {
		return Page{}, err
	}

	page := Page{
		NextPageToken:   resp.NextPageToken,
		PollingInterval: time.Duration(resp.PollingIntervalMillis) * time.Millisecond,
	}
	for _, item := range resp.Items {
		page.Items = append(page.Items, toEvent(item))
	}
	return page, nil
}

// Probe issues the cheapest list request that validates a key.
func (c *Client) Probe(ctx context.Context, key string) error {
	params := url.Values{
		"part":       {"snippet"},
		"chart":      {"mostPopular"},
		"maxResults": {"1"},
		"key":        {key},
	}
	var resp videosResponse
	return c.get(ctx, "/videos", params, &resp)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return classifyAPIError(envelope.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Errors  []struct {
		Reason string `json:"reason"`
	} `json:"errors"`
}

// classifyAPIError maps upstream error payloads onto the sentinel kinds
// the credential pool and poller act on.
func classifyAPIError(e *apiError) error {
	for _, detail := range e.Errors {
		switch detail.Reason {
		case "quotaExceeded", "rateLimitExceeded", "dailyLimitExceeded":
			return fmt.Errorf("%s: %w", e.Message, ErrQuotaExceeded)
		case "keyInvalid", "badRequest":
			if strings.Contains(e.Message, "API key") {
				return fmt.Errorf("%s: %w", e.Message, ErrInvalidKey)
			}
		case "liveChatEnded", "liveChatDisabled", "liveChatNotFound":
			return fmt.Errorf("%s: %w", e.Message, ErrStreamGone)
		}
	}
	if strings.Contains(e.Message, "quota") {
		return fmt.Errorf("%s: %w", e.Message, ErrQuotaExceeded)
	}
	if strings.Contains(e.Message, "API key not valid") {
		return fmt.Errorf("%s: %w", e.Message, ErrInvalidKey)
	}
	return fmt.Errorf("api error %d: %s", e.Code, e.Message)
}

type videosResponse struct {
	Items []struct {
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"snippet"`
		LiveStreamingDetails struct {
			ActiveLiveChatID string `json:"activeLiveChatId"`
			ActualStartTime  string `json:"actualStartTime"`
		} `json:"liveStreamingDetails"`
	} `json:"items"`
}

type chatResponse struct {
	NextPageToken         string     `json:"nextPageToken"`
	PollingIntervalMillis int64      `json:"pollingIntervalMillis"`
	Items                 []chatItem `json:"items"`
}

type chatItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Type               string `json:"type"`
		PublishedAt        string `json:"publishedAt"`
		DisplayMessage     string `json:"displayMessage"`
		TextMessageDetails struct {
			MessageText string `json:"messageText"`
		} `json:"textMessageDetails"`
		SuperChatDetails struct {
			AmountMicros string `json:"amountMicros"`
			Currency     string `json:"currency"`
			UserComment  string `json:"userComment"`
		} `json:"superChatDetails"`
	} `json:"snippet"`
	AuthorDetails struct {
		DisplayName string `json:"displayName"`
	} `json:"authorDetails"`
}

func toEvent(item chatItem) model.ChatEvent {
	ev := model.ChatEvent{
		ExternalID: item.ID,
		Author:     item.AuthorDetails.DisplayName,
		RawText:    item.Snippet.DisplayMessage,
		Kind:       toKind(item.Snippet.Type),
		ObservedAt: parseTimestamp(item.Snippet.PublishedAt),
	}
	if ev.RawText == "" {
		ev.RawText = item.Snippet.TextMessageDetails.MessageText
	}
	if ev.Kind == model.KindPaidMessage {
		ev.AmountMicros = parseMicros(item.Snippet.SuperChatDetails.AmountMicros)
		ev.Currency = item.Snippet.SuperChatDetails.Currency
		if item.Snippet.SuperChatDetails.UserComment != "" {
			ev.RawText = item.Snippet.SuperChatDetails.UserComment
		}
	}
	return ev
}

func toKind(apiType string) model.EventKind {
	switch apiType {
	case "textMessageEvent":
		return model.KindPlainMessage
	case "superChatEvent", "superStickerEvent":
		return model.KindPaidMessage
	case "newSponsorEvent", "memberMilestoneChatEvent", "membershipGiftingEvent":
		return model.KindMembership
	default:
		return model.KindOther
	}
}

func parseMicros(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
