// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/torcapp/torc/internal/buildinfo"
)

const (
	torrentListPath   = "/api/torrent/list"
	torrentAddPath    = "/api/torrent/add"
	torrentPausePath  = "/api/torrent/pause/"
	torrentResumePath = "/api/torrent/resume/"
	torrentDeletePath = "/api/torrent/delete/"
	systemDrivesPath  = "/api/system/drives"
)

// defaultClientTimeout bounds any single backend call that the caller's
// context does not bound tighter.
const defaultClientTimeout = 30 * time.Second

// Client is the erroring HTTP layer against one backend. Every method makes
// exactly one attempt and classifies its failure into the package sentinels;
// nothing here retries. The fail-soft surface consumers see lives on the
// Session.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, defaultClientTimeout)
}

func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// TorrentList fetches the backend's full torrent list.
func (c *Client) TorrentList(ctx context.Context) ([]TorrentSnapshot, error) {
	var torrents []TorrentSnapshot
	if err := c.getJSON(ctx, torrentListPath, &torrents); err != nil {
		return nil, err
	}
	return torrents, nil
}

// DriveList fetches per-drive storage usage from the backend.
func (c *Client) DriveList(ctx context.Context) ([]DriveUsage, error) {
	var drives []DriveUsage
	if err := c.getJSON(ctx, systemDrivesPath, &drives); err != nil {
		return nil, err
	}
	return drives, nil
}

type addTorrentRequest struct {
	MagnetLink string `json:"magnetLink"`
	SavePath   string `json:"savePath"`
}

// Add submits a magnet link to be downloaded into savePath.
func (c *Client) Add(ctx context.Context, magnetLink, savePath string) error {
	return c.postJSON(ctx, torrentAddPath, addTorrentRequest{
		MagnetLink: magnetLink,
		SavePath:   savePath,
	})
}

// Pause stops the given torrent.
func (c *Client) Pause(ctx context.Context, hash string) error {
	return c.postJSON(ctx, torrentPausePath+url.PathEscape(hash), nil)
}

// Resume restarts the given torrent.
func (c *Client) Resume(ctx context.Context, hash string) error {
	return c.postJSON(ctx, torrentResumePath+url.PathEscape(hash), nil)
}

// Delete removes the torrent from the backend; deleteFiles also removes its
// payload from disk.
func (c *Client) Delete(ctx context.Context, hash string, deleteFiles bool) error {
	endpoint := fmt.Sprintf("%s%s?deleteFiles=%t", torrentDeletePath, url.PathEscape(hash), deleteFiles)
	return c.deleteReq(ctx, endpoint)
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, errors.Wrapf(ErrTransport, "build %s %s: %v", method, endpoint, err)
	}

	req.Header.Set("User-Agent", buildinfo.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrTransport, "%s %s: %v", method, endpoint, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		drainAndClose(resp.Body)
		return nil, errors.Wrapf(ErrProtocol, "%s %s: status %d", method, endpoint, resp.StatusCode)
	}

	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, result any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.Wrapf(ErrParse, "decode %s response: %v", endpoint, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(ErrParse, "encode %s request: %v", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	drainAndClose(resp.Body)
	return nil
}

func (c *Client) deleteReq(ctx context.Context, endpoint string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	drainAndClose(resp.Body)
	return nil
}

// drainAndClose reads the remaining body so the connection can be reused,
// then closes it.
func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}
