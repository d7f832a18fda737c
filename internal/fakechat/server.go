// Package fakechat serves a scripted stand-in for the live chat API.
//
// Local development cannot run against a real broadcast, so this
// server speaks just enough of the upstream wire format for the
// pipeline to poll it: broadcast lookup, paged chat messages, and a
// continuation token per page.
package fakechat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/okian/fanscore/pkg/logger"
)

// Defaults for the simulated stream.
const (
	defaultDay             = 1
	defaultEventsPerPage   = 5
	defaultPollingInterval = 2 * time.Second
	defaultLiveChatID      = "fake-chat-1"
)

// defaultNames is the cast used when none is configured.
var defaultNames = []string{"ALICE", "BRUNO", "CARLA", "DANA"} //nolint:gochecknoglobals // default cast

// Server implements the subset of the chat API the poller consumes.
type Server struct {
	names           []string
	day             int
	eventsPerPage   int
	pollingInterval time.Duration
	liveChatID      string

	seq  atomic.Int64
	page atomic.Int64

	log logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithNames sets the cast members mentioned in generated messages.
func WithNames(names []string) Option {
	return func(s *Server) {
		if len(names) > 0 {
			s.names = names
		}
	}
}

// WithDay sets the show day advertised in the broadcast title.
func WithDay(day int) Option {
	return func(s *Server) {
		if day > 0 {
			s.day = day
		}
	}
}

// WithEventsPerPage sets how many events each page carries.
func WithEventsPerPage(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.eventsPerPage = n
		}
	}
}

// WithPollingInterval sets the interval the server asks pollers to wait.
func WithPollingInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollingInterval = d
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a fake chat server.
func New(opts ...Option) *Server {
	s := &Server{
		names:           defaultNames,
		day:             defaultDay,
		eventsPerPage:   defaultEventsPerPage,
		pollingInterval: defaultPollingInterval,
		liveChatID:      defaultLiveChatID,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logger.Get().Named("fakechat")
	}

	return s
}

// Handler returns the HTTP handler serving the chat API subset.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/videos", s.handleVideos)
	mux.HandleFunc("/liveChat/messages", s.handleMessages)
	return mux
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"items": []map[string]interface{}{
			{
				"snippet": map[string]interface{}{
					"title": fmt.Sprintf("LA CASA - DIA %d", s.day),
				},
				"liveStreamingDetails": map[string]interface{}{
					"activeLiveChatId": s.liveChatID,
					"actualStartTime":  time.Now().UTC().Format(time.RFC3339),
				},
			},
		},
	}
	s.writeJSON(r.Context(), w, resp)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if got := r.URL.Query().Get("liveChatId"); got != s.liveChatID {
		w.WriteHeader(http.StatusNotFound)
		s.writeJSON(r.Context(), w, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    http.StatusNotFound,
				"message": "live chat not found",
				"errors": []map[string]string{
					{"reason": "liveChatNotFound"},
				},
			},
		})
		return
	}

	items := make([]chatItem, 0, s.eventsPerPage)
	for i := 0; i < s.eventsPerPage; i++ {
		items = append(items, s.generateEvent(s.seq.Add(1)))
	}

	resp := chatResponse{
		NextPageToken:         fmt.Sprintf("fake-tok-%d", s.page.Add(1)),
		PollingIntervalMillis: s.pollingInterval.Milliseconds(),
		Items:                 items,
	}
	s.writeJSON(r.Context(), w, resp)
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn(ctx, "response write failed", logger.Error(err))
	}
}

// chatResponse mirrors the upstream page shape.
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
		DisplayMessage     string `json:"displayMessage,omitempty"`
		TextMessageDetails struct {
			MessageText string `json:"messageText,omitempty"`
		} `json:"textMessageDetails"`
		SuperChatDetails struct {
			AmountMicros string `json:"amountMicros,omitempty"`
			Currency     string `json:"currency,omitempty"`
			UserComment  string `json:"userComment,omitempty"`
		} `json:"superChatDetails"`
	} `json:"snippet"`
	AuthorDetails struct {
		DisplayName string `json:"displayName"`
	} `json:"authorDetails"`
}
