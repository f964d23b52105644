package media

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUploadReturnsHostedURL(t *testing.T) {
	var gotName string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotBody, _ = io.ReadAll(file)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secure_url":"https://cdn.example.com/evidence/abc.png"}`))
	}))
	defer srv.Close()

	u := NewUploader(srv.URL)
	url, err := u.Upload("evidence.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if url != "https://cdn.example.com/evidence/abc.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if gotName != "evidence.png" || string(gotBody) != "png-bytes" {
		t.Fatalf("server saw name=%q body=%q", gotName, gotBody)
	}
}

func TestUploadNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewUploader(srv.URL).Upload("f.png", []byte("x")); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}

func TestUploadMissingURLIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := NewUploader(srv.URL).Upload("f.png", []byte("x")); err == nil {
		t.Fatalf("expected error when response has no url")
	}
}
