// File: internal/infra/adapters/storage/object_store.go
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"video-analysis-platform/internal/domain"
	"video-analysis-platform/internal/domain/ports/adapter"
)

var _ adapter.ObjectStore = (*HTTPObjectStore)(nil)

// HTTPObjectStore implements adapter.ObjectStore against the storage
// service's REST API (list, head, sign).
type HTTPObjectStore struct {
	baseURL    string
	bucket     string
	serviceKey string
	client     *http.Client
}

func NewHTTPObjectStore(baseURL, bucket, serviceKey string) *HTTPObjectStore {
	return &HTTPObjectStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *HTTPObjectStore) configured() error {
	if s.baseURL == "" || s.bucket == "" || s.serviceKey == "" {
		return domain.ErrMissingConfig
	}
	return nil
}

// List returns object names under prefix, relative to the prefix.
func (s *HTTPObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	body, _ := json.Marshal(map[string]any{"prefix": prefix, "limit": 100})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/object/list/"+s.bucket, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage list: unexpected status %d", resp.StatusCode)
	}
	var out []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	names := make([]string, 0, len(out))
	for _, o := range out {
		names = append(names, o.Name)
	}
	return names, nil
}

func (s *HTTPObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.configured(); err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead,
		s.baseURL+"/object/"+s.bucket+"/"+key, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("storage head: unexpected status %d", resp.StatusCode)
	}
}

// SignURL asks the storage service for a time-limited signed URL for key.
func (s *HTTPObjectStore) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := s.configured(); err != nil {
		return "", err
	}
	body, _ := json.Marshal(map[string]any{"expiresIn": int(ttl.Seconds())})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/object/sign/"+s.bucket+"/"+key, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("storage sign: unexpected status %d", resp.StatusCode)
	}
	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	if out.SignedURL == "" {
		return "", fmt.Errorf("storage sign: empty signed url")
	}
	if strings.HasPrefix(out.SignedURL, "http") {
		return out.SignedURL, nil
	}
	return s.baseURL + "/" + strings.TrimLeft(out.SignedURL, "/"), nil
}
