// Package gateway talks to the imaging service: slice rasters, contours,
// uploads, predictions and the login session.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/slicecontour/internal/cache"
	"github.com/example/slicecontour/internal/contour"
	"github.com/google/uuid"
)

// RequestIDHeader carries a per-request identifier the server echoes in logs.
const RequestIDHeader = "X-Request-ID"

// Client is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenStore
	cache  cache.Cache

	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenStore sets where bearer tokens are kept.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// WithCache caches slice rasters and prediction overlays.
func WithCache(kv cache.Cache) Option {
	return func(c *Client) { c.cache = kv }
}

// New returns a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("gateway: empty base url")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("gateway: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("gateway: base url %q must be http or https", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 60 * time.Second},
		tokens: &MemoryStore{},
		cache:  cache.Nop{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(parts ...string) string {
	return c.base.JoinPath(parts...).String()
}

func imageKey(volumeID string, slice int) string {
	return "image/" + volumeID + "/" + strconv.Itoa(slice)
}

func predictionKey(volumeID string, slice int) string {
	return "predict/" + volumeID + "/" + strconv.Itoa(slice)
}

// FetchImage returns the clean raster bytes for one slice.
func (c *Client) FetchImage(ctx context.Context, volumeID string, slice int) ([]byte, error) {
	key := imageKey(volumeID, slice)
	if data, err := c.cache.Get(ctx, key); err == nil {
		return data, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Printf("cache: %v", err)
	}
	data, err := c.get(ctx, c.endpoint("files", volumeID, strconv.Itoa(slice), "clean"))
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, data); err != nil {
		log.Printf("cache: %v", err)
	}
	return data, nil
}

// FetchContour returns the raw contour payload. A missing contour yields
// (nil, nil).
func (c *Client) FetchContour(ctx context.Context, volumeID string, slice int) ([]byte, error) {
	data, err := c.get(ctx, c.endpoint("contours", volumeID, strconv.Itoa(slice)))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return data, nil
}

type savePayload struct {
	Points *contour.Collection `json:"points"`
}

// SaveContour overwrites the stored contour. An empty collection is sent as
// an empty array.
func (c *Client) SaveContour(ctx context.Context, volumeID string, slice int, pts *contour.Collection) error {
	if pts == nil {
		pts = contour.New()
	}
	body, err := json.Marshal(savePayload{Points: pts})
	if err != nil {
		return fmt.Errorf("encode contour: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, c.endpoint("contours", volumeID, strconv.Itoa(slice), "save"), body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// UploadResult describes a stored volume.
type UploadResult struct {
	UUID      string `json:"uuid"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	NumSlices int    `json:"num_slices"`
	IsPublic  bool   `json:"is_public"`
}

// Upload sends a .nii volume.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (*UploadResult, error) {
	if !strings.EqualFold(filepath.Ext(name), ".nii") {
		return nil, fmt.Errorf("upload %s: %w", name, ErrNotNIfTI)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("upload %s: read: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	resp, err := c.do(ctx, http.MethodPost, c.endpoint("upload"), buf.Bytes(), mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("upload %s: decode response: %w", name, err)
	}
	return &out, nil
}

// UploadFile opens path and uploads it.
func (c *Client) UploadFile(ctx context.Context, path string) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer f.Close()
	return c.Upload(ctx, path, f)
}

// Predict returns the segmentation overlay PNG for one slice.
func (c *Client) Predict(ctx context.Context, volumeID string, slice int) ([]byte, error) {
	key := predictionKey(volumeID, slice)
	if data, err := c.cache.Get(ctx, key); err == nil {
		return data, nil
	}
	body, err := json.Marshal(struct {
		UUID      string `json:"uuid_file"`
		NumImages int    `json:"num_images"`
	}{volumeID, slice})
	if err != nil {
		return nil, fmt.Errorf("encode predict request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, c.endpoint("predict"), body, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read", URL: resp.Request.URL.String(), Err: err}
	}
	if err := c.cache.Set(ctx, key, data); err != nil {
		log.Printf("cache: %v", err)
	}
	return data, nil
}

// InvalidatePrediction drops the cached overlay for a slice whose contour
// changed.
func (c *Client) InvalidatePrediction(ctx context.Context, volumeID string, slice int) error {
	return c.cache.Delete(ctx, predictionKey(volumeID, slice))
}

// Photo is a saved prediction.
type Photo struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	FileUUID  string `json:"file_uuid"`
	NumImages int    `json:"num_images"`
	URL       string `json:"url"`
}

// ContourVersion is one saved revision of a contour.
type ContourVersion struct {
	ID        int    `json:"id"`
	Version   int    `json:"version"`
	FileUUID  string `json:"file_uuid"`
	NumImages int    `json:"num_images"`
	URL       string `json:"url"`
}

// Profile lists what the signed in user has saved.
type Profile struct {
	Photos   []Photo          `json:"saved_photos_direct"`
	Contours []ContourVersion `json:"contours"`
}

// Profile returns the current user's saved photos and contours.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	data, err := c.get(ctx, c.endpoint("photos"))
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// SavePhoto stores the prediction for one slice in the user's profile.
func (c *Client) SavePhoto(ctx context.Context, volumeID string, slice int) (*Photo, error) {
	body, err := json.Marshal(struct {
		UUID      string `json:"uuid_file"`
		NumImages int    `json:"num_images"`
	}{volumeID, slice})
	if err != nil {
		return nil, fmt.Errorf("encode photo request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, c.endpoint("photos", "save"), body, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var p Photo
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	return &p, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read", URL: u, Err: err}
	}
	return data, nil
}

func isAuthPath(u string) bool {
	return strings.Contains(u, "/auth/")
}

// do sends a request and maps the status to an error. Non-auth requests carry
// the bearer token; a 401 triggers one refresh and one retry.
func (c *Client) do(ctx context.Context, method, u string, body []byte, contentType string) (*http.Response, error) {
	sent := c.accessToken()
	resp, err := c.send(ctx, method, u, body, contentType, sent)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && !isAuthPath(u) {
		drain(resp)
		if err := c.refresh(ctx, sent); err != nil {
			if cerr := c.tokens.Clear(); cerr != nil {
				log.Printf("logout: %v", cerr)
			}
			return nil, fmt.Errorf("%s %s: %w", method, u, err)
		}
		resp, err = c.send(ctx, method, u, body, contentType, c.accessToken())
		if err != nil {
			return nil, err
		}
	}
	if err := checkStatus(resp); err != nil {
		drain(resp)
		return nil, err
	}
	return resp, nil
}

func (c *Client) accessToken() string {
	t, err := c.tokens.Load()
	if err != nil {
		log.Printf("credentials: %v", err)
		return ""
	}
	return t.Access
}

// send issues one request. access is attached as the bearer token on
// non-auth paths; auth paths carry the refresh cookie instead.
func (c *Client) send(ctx context.Context, method, u string, body []byte, contentType, access string) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !isAuthPath(u) {
		if access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	} else if t, err := c.tokens.Load(); err == nil && t.Refresh != "" {
		req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: t.Refresh})
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method, URL: u, Err: err}
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	u := resp.Request.URL.String()
	method := resp.Request.Method
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, u, ErrNotFound)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", method, u, ErrUnauthorized)
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Method:    method,
		URL:       u,
		Code:      resp.StatusCode,
		RequestID: resp.Request.Header.Get(RequestIDHeader),
		Body:      strings.TrimSpace(string(snippet)),
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
