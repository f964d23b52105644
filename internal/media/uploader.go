// Package media uploads case evidence to the external media service and
// returns the hosted URL.
package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/Nabothdaniel/exam-malpractice-project/internal/services"
)

type Uploader struct {
	url    string
	client *http.Client
}

var _ services.MediaUploader = (*Uploader)(nil)

func NewUploader(url string) *Uploader {
	return &Uploader{url: url, client: &http.Client{Timeout: 30 * time.Second}}
}

// Upload posts the file as multipart/form-data and returns the hosted URL.
func (u *Uploader) Upload(filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, u.url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", services.NewBadGatewayError(fmt.Sprintf("media upload returned %d", resp.StatusCode))
	}

	var body struct {
		URL       string `json:"url"`
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if body.SecureURL != "" {
		return body.SecureURL, nil
	}
	if body.URL == "" {
		return "", services.NewBadGatewayError("media upload response missing url")
	}
	return body.URL, nil
}
