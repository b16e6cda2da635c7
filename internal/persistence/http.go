package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrRejected = errors.New("persistence: backend rejected the change")

// StatusError is a non-success answer from the backend. It matches ErrRejected.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("persistence: backend answered %d: %s", e.Status, e.Body)
}

func (e *StatusError) Is(target error) bool { return target == ErrRejected }

// ReorderRequest is the wire body of a reorder commit.
type ReorderRequest struct {
	ExerciseIDs []string `json:"exercise_ids"`
}

// MoveRequest is the wire body of a cross-day move commit.
type MoveRequest struct {
	FromDayID string `json:"from_day_id"`
	ToDayID   string `json:"to_day_id"`
	NewIndex  int    `json:"new_index"`
}

// EditorCommitHeader marks a request as an editor's own commit, which the backend applies without
// waiting for that editor's pending commits.
const EditorCommitHeader = "X-Editor-Commit"

// HTTPAdapter commits editor changes to a remote backend:
//
//	PUT  {base}/training-days/{dayID}/exercises/order
//	POST {base}/day-exercises/{itemID}/move
//
// Every request carries a fresh Idempotency-Key and the EditorCommitHeader.
type HTTPAdapter struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPAdapter creates an adapter for baseURL. token is sent as a bearer token when set.
func NewHTTPAdapter(baseURL, token string, timeout time.Duration) *HTTPAdapter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of the adapter that authenticates as another user.
func (a *HTTPAdapter) WithToken(token string) *HTTPAdapter {
	c := *a
	c.token = token
	return &c
}

func (a *HTTPAdapter) CommitReorder(ctx context.Context, dayID string, orderedIDs []string) error {
	path := "/training-days/" + url.PathEscape(dayID) + "/exercises/order"
	return a.send(ctx, http.MethodPut, path, ReorderRequest{ExerciseIDs: orderedIDs})
}

func (a *HTTPAdapter) CommitMove(ctx context.Context, itemID, fromDayID, toDayID string, index int) error {
	path := "/day-exercises/" + url.PathEscape(itemID) + "/move"
	return a.send(ctx, http.MethodPost, path, MoveRequest{FromDayID: fromDayID, ToDayID: toDayID, NewIndex: index})
}

func (a *HTTPAdapter) send(ctx context.Context, method, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	req.Header.Set(EditorCommitHeader, "1")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
