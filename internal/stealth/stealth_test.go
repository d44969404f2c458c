package stealth

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

func TestNewCourtesyDelay(t *testing.T) {
	assert.Equal(t, NormalInterval, NewCourtesyDelay(ProfileNormal).Interval)
	assert.Equal(t, FastInterval, NewCourtesyDelay(ProfileFast).Interval)
	assert.Equal(t, NormalInterval, NewCourtesyDelay("unknown").Interval)
}

func TestCourtesyDelay_UsesInjectedSleep(t *testing.T) {
	var got []time.Duration
	d := NewCourtesyDelay(ProfileFast).WithSleep(func(_ context.Context, d time.Duration) error {
		got = append(got, d)
		return nil
	})
	require.NoError(t, d.Wait(context.Background()))
	require.NoError(t, d.WaitFor(context.Background(), time.Second))
	assert.Equal(t, []time.Duration{FastInterval, time.Second}, got)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleep_Elapses(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
	assert.NoError(t, Sleep(context.Background(), 0))
}

func TestNoSleep(t *testing.T) {
	assert.NoError(t, NoSleep(context.Background(), time.Hour))
}

func newRobotsServer(t *testing.T, robots string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(robots))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("page"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRobotsChecker_IsAllowed(t *testing.T) {
	srv := newRobotsServer(t, "User-agent: *\nDisallow: /private\n")
	rc := NewRobotsChecker(srv.Client())

	ok, err := rc.IsAllowed(context.Background(), "Mozilla/5.0", srv.URL+"/search?q=zaku")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rc.IsAllowed(context.Background(), "Mozilla/5.0", srv.URL+"/private/list")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rc := NewRobotsChecker(&http.Client{Timeout: time.Second})
	ok, err := rc.IsAllowed(context.Background(), "ua", url+"/x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRobotsTransport(t *testing.T) {
	srv := newRobotsServer(t, "User-agent: *\nDisallow: /private\n")
	client := &http.Client{Transport: &RobotsTransport{Robots: NewRobotsChecker(srv.Client())}}

	resp, err := client.Get(srv.URL + "/open")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = client.Get(srv.URL + "/private")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDisallowed))
}
