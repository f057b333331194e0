package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nijaru/yt-summary/errors"
)

const defaultDataAPIURL = "https://www.googleapis.com/youtube/v3"

// MetadataClient looks up video details through the YouTube Data API.
type MetadataClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewMetadataClient(apiKey, baseURL string, client *http.Client) *MetadataClient {
	if baseURL == "" {
		baseURL = defaultDataAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &MetadataClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Enabled reports whether an API key is configured.
func (m *MetadataClient) Enabled() bool {
	return m != nil && m.apiKey != ""
}

type videoListResponse struct {
	Items []struct {
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// Title returns the title of videoID.
func (m *MetadataClient) Title(ctx context.Context, videoID string) (string, error) {
	const op = "MetadataClient.Title"

	if !m.Enabled() {
		return "", errors.Internal(op, nil, "YouTube Data API key not configured")
	}

	query := url.Values{
		"part": {"snippet"},
		"id":   {videoID},
		"key":  {m.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/videos?"+query.Encode(), nil)
	if err != nil {
		return "", errors.Internal(op, err, "Failed to build request")
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", errors.FromContext(op, err, "Video lookup failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Internal(op, fmt.Errorf("status %d", resp.StatusCode), "Video lookup failed")
	}

	var list videoListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", errors.Internal(op, err, "Failed to decode video details")
	}
	if len(list.Items) == 0 {
		return "", errors.NotFound(op, nil, "Video not found")
	}
	return list.Items[0].Snippet.Title, nil
}
