package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost:8000", "/api", "ftp://example.com"} {
		_, err := New(base)
		assert.Error(t, err, base)
	}
}

func TestURLJoinsPrefix(t *testing.T) {
	c, err := New("http://localhost:8000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/v1/auth/login/json", c.URL("/auth/login/json"))

	c, err = New("https://exam.example.com", WithPrefix(""))
	require.NoError(t, err)
	assert.Equal(t, "https://exam.example.com/exams", c.URL("exams"))
}

func TestDoEncodesAndDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/exams", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in["id"] = 12
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, c.Post(context.Background(), "/exams", map[string]any{"title": "IELTS Mock 1"}, &out))
	assert.Equal(t, "IELTS Mock 1", out["title"])
	assert.EqualValues(t, 12, out["id"])
}

func TestDoSendsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("skip"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	var out json.RawMessage
	require.NoError(t, c.Get(context.Background(), "/auth/login-history", url.Values{"skip": {"0"}, "limit": {"10"}}, &out))
	assert.JSONEq(t, `[]`, string(out))
}

func TestDoEmptySuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, c.Delete(context.Background(), "/exams/1", nil, &out))
	assert.Nil(t, out)
}

func TestErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", 400, `{"detail":"Email already registered"}`, "Email already registered"},
		{"detail list", 422, `{"detail":[{"loc":["body","email"],"msg":"field required"},{"msg":"value is not a valid email"}]}`, "field required; value is not a valid email"},
		{"detail object", 400, `{"detail":{"message":"Passwords do not match"}}`, "Passwords do not match"},
		{"message", 500, `{"message":"boom"}`, "boom"},
		{"not json", 502, `<html>bad gateway</html>`, "Bad Gateway"},
		{"empty", 404, ``, "Not Found"},
		{"unknown status", 599, ``, "request failed with status 599"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MessageFrom(tc.status, []byte(tc.body)))
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := New(base)
	require.NoError(t, err)

	err = c.Get(context.Background(), "/exams", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, 0, apiErr.Status)
	assert.False(t, apiErr.Unauthorized())
}

func TestUploadSendsMultipartFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/upload/image", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)

		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "png-bytes", string(data))
		_, _ = w.Write([]byte(`{"filename":"abc.png","url":"/static/uploads/abc.png"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	var out struct {
		Filename string `json:"filename"`
		URL      string `json:"url"`
	}
	require.NoError(t, c.Upload(context.Background(), "/upload/image", "file", "cat.png", strings.NewReader("png-bytes"), &out))
	assert.Equal(t, "abc.png", out.Filename)
}

func TestWithHTTPClientIsNotModified(t *testing.T) {
	base := &http.Client{}
	_, err := New("http://localhost:8000", WithHTTPClient(base))
	require.NoError(t, err)
	assert.Nil(t, base.Transport)
}
