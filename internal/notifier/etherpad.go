package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/briefings/internal/application"
)

const etherpadAPIVersion = "1.2.13"

// EtherpadSettings configures the shared speaker document channel.
type EtherpadSettings struct {
	URL         string
	APIKey      string
	TemplatePad string
	Location    *time.Location
}

// Etherpad creates one pad per talk, seeded from a template pad.
type Etherpad struct {
	settings EtherpadSettings
	client   *http.Client
	newID    func() string
}

// NewEtherpad builds the document channel. A nil client uses a client with a
// 15 second timeout.
func NewEtherpad(settings EtherpadSettings, client *http.Client) *Etherpad {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	settings.URL = strings.TrimRight(settings.URL, "/")
	return &Etherpad{
		settings: settings,
		client:   client,
		newID:    func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// Provision creates the pad, copies the template into it and returns the pad URL.
func (e *Etherpad) Provision(ctx context.Context, event application.Event) (string, error) {
	padID := event.Date.In(e.settings.Location).Format("20060102") + e.newID()

	if _, err := e.call(ctx, http.MethodGet, "createPad", url.Values{"padID": {padID}}); err != nil {
		return "", err
	}

	if e.settings.TemplatePad != "" {
		data, err := e.call(ctx, http.MethodGet, "getHTML", url.Values{"padID": {e.settings.TemplatePad}})
		if err != nil {
			return "", err
		}
		var tpl struct {
			HTML string `json:"html"`
		}
		if err := json.Unmarshal(data, &tpl); err != nil {
			return "", fmt.Errorf("etherpad: decode template: %w", err)
		}
		html := e.fill(tpl.HTML, event)
		if _, err := e.call(ctx, http.MethodPost, "setHTML", url.Values{"padID": {padID}, "html": {html}}); err != nil {
			return "", err
		}
	}

	return e.settings.URL + "/p/" + padID, nil
}

func (e *Etherpad) fill(html string, event application.Event) string {
	conf := ""
	if event.ConfLink != nil {
		conf = *event.ConfLink
	}
	return strings.NewReplacer(
		"{{speaker}}", event.Speaker,
		"{{title}}", event.Title,
		"{{date}}", event.Date.In(e.settings.Location).Format("2006-01-02 15:04"),
		"{{conf_link}}", conf,
	).Replace(html)
}

type etherpadResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *Etherpad) call(ctx context.Context, method, function string, params url.Values) (json.RawMessage, error) {
	params.Set("apikey", e.settings.APIKey)
	endpoint := fmt.Sprintf("%s/api/%s/%s", e.settings.URL, etherpadAPIVersion, function)

	var (
		req *http.Request
		err error
	)
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+params.Encode(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("etherpad: build %s: %w", function, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("etherpad: %s: %w", function, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("etherpad: %s: status %d: %s", function, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var payload etherpadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("etherpad: %s: decode: %w", function, err)
	}
	if payload.Code != 0 {
		return nil, fmt.Errorf("etherpad: %s: %s", function, payload.Message)
	}
	return payload.Data, nil
}
