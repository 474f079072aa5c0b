package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func newClient(t *testing.T, baseURL string) Client {
	t.Helper()
	c, err := NewInstrumentedClient(
		WithProviderName("test"),
		WithBaseURL(baseURL),
		WithRequestTimeout(2*time.Second),
		WithMeterProvider(noop.NewMeterProvider()),
		WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	require.NoError(t, err)
	return c
}

func TestGet_EncodesRepeatedQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/updates/price/latest", r.URL.Path)
		assert.Equal(t, []string{"0xaa", "0xbb"}, r.URL.Query()["ids[]"])
		assert.Equal(t, "true", r.URL.Query().Get("parsed"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	var out struct {
		Value int `json:"value"`
	}
	resp, err := newClient(t, srv.URL).NewRequest().
		AddQueryParam("ids[]", "0xaa").
		AddQueryParam("ids[]", "0xbb").
		SetQueryParam("parsed", "true").
		SetResult(&out).
		Get(context.Background(), "/v2/updates/price/latest")

	require.NoError(t, err)
	assert.False(t, resp.IsError())
	assert.Equal(t, 42, out.Value)
	assert.Same(t, &out, resp.Result())
}

func TestGet_ErrorHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code":-1003,"msg":"too many requests"}`))
	}))
	defer srv.Close()

	errLimited := errors.New("limited")
	resp, err := newClient(t, srv.URL).NewRequestWithOptions(
		WithLabels(NewLabel("endpoint", "bookTicker")),
		WithResponseErrorHandler(func(status int, body []byte) error {
			if status == http.StatusTooManyRequests {
				return errLimited
			}
			return nil
		}),
	).Get(context.Background(), "api/v3/ticker/bookTicker")

	require.ErrorIs(t, err, errLimited)
	require.NotNil(t, resp)
	assert.True(t, resp.IsError())
	assert.Contains(t, resp.String(), "too many requests")
}

func TestGet_MalformedBodyIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	_, err := newClient(t, srv.URL).NewRequest().SetResult(&out).Get(context.Background(), "/")
	assert.Error(t, err)
}

func TestGet_ErrorStatusSkipsDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream down`))
	}))
	defer srv.Close()

	var out map[string]any
	resp, err := newClient(t, srv.URL).NewRequest().SetResult(&out).Get(context.Background(), "/")
	require.NoError(t, err)
	assert.True(t, resp.IsError())
	assert.Nil(t, resp.Result())
}
