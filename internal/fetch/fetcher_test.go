package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>visa listing</body></html>"))
	}))
	defer srv.Close()

	f := New(5*time.Second, "")
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "visa listing")
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(5*time.Second, "")
	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestFetch_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listening any more

	f := New(2*time.Second, "")
	_, err := f.Fetch(context.Background(), url)
	require.Error(t, err)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
	assert.NotNil(t, fe.Err)
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewWithClient(&http.Client{Timeout: 50 * time.Millisecond}, "test-agent")
	_, err := f.Fetch(context.Background(), srv.URL)

	var fe *Error
	require.True(t, errors.As(err, &fe))
}
