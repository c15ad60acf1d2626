package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// UploadOutcome tags the result of one submission attempt.
type UploadOutcome int

const (
	// UploadNone means no file was selected; nothing was sent.
	UploadNone UploadOutcome = iota
	// UploadAccepted means the backend answered with a 2xx status.
	UploadAccepted
	// UploadHTTPError means the backend answered with a non-2xx status.
	UploadHTTPError
	// UploadTransportError means the request never produced a response.
	UploadTransportError
)

// UploadResult reports how a submission ended. StatusCode is set for
// UploadAccepted and UploadHTTPError, Err for UploadTransportError.
type UploadResult struct {
	Outcome    UploadOutcome
	StatusCode int
	Err        error
}

// Uploader transmits a selected video file to the backend upload endpoint
// as a multipart form and records the submission lifecycle in the shared
// state. It is the sole writer of the upload status field.
type Uploader struct {
	endpoint string
	client   *http.Client
	state    *State

	mu       sync.Mutex
	selected string
}

// NewUploader creates an uploader posting to the given endpoint URL.
func NewUploader(endpoint string, state *State) *Uploader {
	return &Uploader{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
		state:    state,
	}
}

// SelectFile records the chosen file path, replacing any prior selection.
// No validation of type or size happens here.
func (u *Uploader) SelectFile(path string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.selected = path
}

// Selected returns the currently selected file path, or "" when none.
func (u *Uploader) Selected() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.selected
}

// Submit sends the selected file to the backend. Without a selection it is
// a no-op: no network call, no status change. The in-progress status is set
// before the request is issued. A successful upload consumes the selection;
// a failed one keeps it so the user can retry.
func (u *Uploader) Submit() UploadResult {
	u.mu.Lock()
	path := u.selected
	u.mu.Unlock()

	if path == "" {
		return UploadResult{Outcome: UploadNone}
	}

	u.state.SetUploadStatus(StatusUploading)

	result := u.post(path)
	switch result.Outcome {
	case UploadAccepted:
		u.state.SetUploadStatus(StatusUploadSuccess)
		u.mu.Lock()
		if u.selected == path {
			u.selected = ""
		}
		u.mu.Unlock()
	default:
		// HTTP and transport failures collapse into one displayed message.
		u.state.SetUploadStatus(StatusUploadFailed)
	}
	return result
}

func (u *Uploader) post(path string) UploadResult {
	file, err := os.Open(path)
	if err != nil {
		return UploadResult{Outcome: UploadTransportError, Err: err}
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("video", filepath.Base(path))
	if err != nil {
		return UploadResult{Outcome: UploadTransportError, Err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{Outcome: UploadTransportError, Err: err}
	}
	if err := writer.Close(); err != nil {
		return UploadResult{Outcome: UploadTransportError, Err: err}
	}

	req, err := http.NewRequest(http.MethodPost, u.endpoint, &body)
	if err != nil {
		return UploadResult{Outcome: UploadTransportError, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return UploadResult{Outcome: UploadTransportError, Err: fmt.Errorf("upload request: %w", err)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return UploadResult{Outcome: UploadAccepted, StatusCode: resp.StatusCode}
	}
	return UploadResult{Outcome: UploadHTTPError, StatusCode: resp.StatusCode}
}
