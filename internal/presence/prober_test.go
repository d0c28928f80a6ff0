package presence

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digifootprint/internal/cache"
	"digifootprint/internal/common"
	"digifootprint/internal/gateway"
)

type fakeClient struct {
	mu        sync.Mutex
	calls     int32
	responses map[string]gateway.ProbeResponse
	errs      map[string]error
}

func (f *fakeClient) Probe(_ context.Context, req gateway.ProbeRequest) (gateway.ProbeResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[req.Platform]; ok {
		return gateway.ProbeResponse{}, err
	}
	if resp, ok := f.responses[req.Platform]; ok {
		return resp, nil
	}
	return gateway.ProbeResponse{Status: http.StatusNotFound}, nil
}

func testRoster() []Platform {
	return []Platform{
		{Name: "Alpha", SiteURL: "https://alpha.test", ProbeURL: "https://alpha.test/api/{username}"},
		{Name: "Beta", SiteURL: "https://beta.test", ProbeURL: "https://beta.test/{username}", Method: http.MethodHead, Rule: StatusOKOrRedirect},
		{Name: "Gamma", SiteURL: "https://gamma.test", ProbeURL: "https://gamma.test/u/{username}/about.json", Rule: NameMatch},
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestDefaultRosterOrder(t *testing.T) {
	var names []string
	for _, p := range DefaultRoster() {
		names = append(names, p.Name)
		assert.Contains(t, p.ProbeURL, placeholder, p.Name)
	}
	assert.Equal(t, []string{
		"GitHub", "Twitter", "Instagram", "LinkedIn", "Reddit", "TikTok",
		"YouTube", "Pinterest", "Twitch", "Snapchat", "Medium",
	}, names)
}

func TestRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		resp gateway.ProbeResponse
		want bool
	}{
		{"ok", StatusOK, gateway.ProbeResponse{Status: 200}, true},
		{"ok rejects redirect", StatusOK, gateway.ProbeResponse{Status: 302}, false},
		{"redirect 301", StatusOKOrRedirect, gateway.ProbeResponse{Status: 301}, true},
		{"redirect 302", StatusOKOrRedirect, gateway.ProbeResponse{Status: 302}, true},
		{"redirect rejects 404", StatusOKOrRedirect, gateway.ProbeResponse{Status: 404}, false},
		{"name match", NameMatch, gateway.ProbeResponse{Status: 200, Body: []byte(`{"data":{"name":"neo"}}`)}, true},
		{"name mismatch", NameMatch, gateway.ProbeResponse{Status: 200, Body: []byte(`{"data":{"name":"Neo"}}`)}, false},
		{"name bad json", NameMatch, gateway.ProbeResponse{Status: 200, Body: []byte(`<html>`)}, false},
		{"name non-200", NameMatch, gateway.ProbeResponse{Status: 404, Body: []byte(`{"data":{"name":"neo"}}`)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Platform{Rule: tt.rule}.matches(tt.resp, "neo"))
		})
	}
}

func TestRequestEscapesUsername(t *testing.T) {
	github := DefaultRoster()[0]
	tests := []struct {
		username string
		path     string
	}{
		{"alice?tab=x", "/users/alice%3Ftab=x"},
		{"a/b", "/users/a%2Fb"},
		{"x#y", "/users/x%23y"},
		{"plain", "/users/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			u, err := url.Parse(github.request(tt.username).URL)
			require.NoError(t, err)
			assert.Equal(t, "api.github.com", u.Host)
			assert.Equal(t, tt.path, u.EscapedPath())
			assert.Empty(t, u.RawQuery)
			assert.Empty(t, u.Fragment)
		})
	}
	assert.Equal(t, "https://github.com/alice%3Ftab=x", github.profileURL("alice?tab=x"))
}

func TestWalkThreeStates(t *testing.T) {
	client := &fakeClient{
		responses: map[string]gateway.ProbeResponse{
			"Alpha": {Status: http.StatusOK},
			"Gamma": {Status: http.StatusOK, Body: []byte(`{"data":{"name":"neo"}}`)},
		},
		errs: map[string]error{"Beta": &gateway.Error{Provider: "Beta", Kind: gateway.ErrConnection}},
	}
	p := New(client, WithRoster(testRoster()), WithInterval(0))

	rep := p.Walk(context.Background(), "neo")
	require.Len(t, rep.Checks, 3)
	assert.Equal(t, Found, rep.Checks[0].State)
	assert.Equal(t, Failed, rep.Checks[1].State)
	assert.NotEmpty(t, rep.Checks[1].Error)
	assert.Equal(t, Found, rep.Checks[2].State)

	assert.Equal(t, []common.PlatformAccount{
		{Platform: "Alpha", URL: "https://alpha.test/neo", Status: common.AccountFound},
		{Platform: "Gamma", URL: "https://gamma.test/neo", Status: common.AccountFound},
	}, rep.Accounts)
}

func TestProbeIsCachedForTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	client := &fakeClient{responses: map[string]gateway.ProbeResponse{"Alpha": {Status: http.StatusOK}}}
	p := New(client,
		WithRoster(testRoster()),
		WithInterval(0),
		WithCache(cache.New[Report]("platform_test", DefaultCacheTTL, cache.WithClock(clock.Now))),
	)

	first := p.Probe(context.Background(), "neo")
	assert.Equal(t, int32(3), atomic.LoadInt32(&client.calls))

	clock.Advance(9 * time.Minute)
	second := p.Probe(context.Background(), "neo")
	assert.Equal(t, first, second)
	assert.Equal(t, int32(3), atomic.LoadInt32(&client.calls), "cache hit skips the walk")

	clock.Advance(time.Minute)
	p.Probe(context.Background(), "neo")
	assert.Equal(t, int32(6), atomic.LoadInt32(&client.calls), "expired entry triggers a fresh walk")
}

func TestWalkIsPaced(t *testing.T) {
	client := &fakeClient{}
	p := New(client, WithRoster(testRoster()), WithInterval(25*time.Millisecond))

	start := time.Now()
	p.Walk(context.Background(), "neo")
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestCancelledWalkIsNotCached(t *testing.T) {
	client := &fakeClient{responses: map[string]gateway.ProbeResponse{"Alpha": {Status: http.StatusOK}}}
	p := New(client, WithRoster(testRoster()), WithInterval(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := p.Walk(ctx, "neo")
	assert.Equal(t, "neo", rep.Username)
	require.Len(t, rep.Checks, 3)
	for _, c := range rep.Checks {
		assert.Equal(t, Failed, c.State)
		assert.Contains(t, c.Error, context.Canceled.Error())
	}
	assert.Zero(t, atomic.LoadInt32(&client.calls))

	rep = p.Walk(context.Background(), "neo")
	assert.Len(t, rep.Accounts, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&client.calls))
}

func TestWalkOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/neo":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/neo":
			assert.Equal(t, http.MethodHead, r.Method)
			http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
		case strings.HasSuffix(r.URL.Path, "about.json"):
			_, _ = io.WriteString(w, `{"data":{"name":"someone-else"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	roster := testRoster()
	roster[0].ProbeURL = srv.URL + "/api/{username}"
	roster[1].ProbeURL = srv.URL + "/{username}"
	roster[2].ProbeURL = srv.URL + "/u/{username}/about.json"

	p := New(gateway.NewHTTPProber(time.Second), WithRoster(roster), WithInterval(0))
	rep := p.Walk(context.Background(), "neo")

	require.Len(t, rep.Checks, 3)
	assert.Equal(t, Found, rep.Checks[0].State)
	assert.Equal(t, Found, rep.Checks[1].State)
	assert.Equal(t, http.StatusMovedPermanently, rep.Checks[1].Status)
	assert.Equal(t, NotFound, rep.Checks[2].State)
	assert.Len(t, rep.Accounts, 2)
}

// gatedClient holds every probe until release is closed.
type gatedClient struct {
	fakeClient
	entered chan struct{}
	once    sync.Once
	release chan struct{}
}

func (g *gatedClient) Probe(ctx context.Context, req gateway.ProbeRequest) (gateway.ProbeResponse, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return gateway.ProbeResponse{}, ctx.Err()
	}
	return g.fakeClient.Probe(ctx, req)
}

func TestSharedWalkSurvivesCancelledCaller(t *testing.T) {
	client := &gatedClient{
		fakeClient: fakeClient{responses: map[string]gateway.ProbeResponse{
			"Alpha": {Status: http.StatusOK},
			"Beta":  {Status: http.StatusOK},
			"Gamma": {Status: http.StatusOK, Body: []byte(`{"data":{"name":"neo"}}`)},
		}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := New(client, WithRoster(testRoster()), WithInterval(0))

	ctxA, cancelA := context.WithCancel(context.Background())
	repA := make(chan Report, 1)
	go func() { repA <- p.Walk(ctxA, "neo") }()
	<-client.entered

	repB := make(chan Report, 1)
	go func() { repB <- p.Walk(context.Background(), "neo") }()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	a := <-repA
	assert.Empty(t, a.Accounts)
	for _, c := range a.Checks {
		assert.Equal(t, Failed, c.State)
	}

	close(client.release)
	b := <-repB
	require.Len(t, b.Checks, 3)
	for _, c := range b.Checks {
		assert.Equal(t, Found, c.State, c.Platform)
	}
	assert.Len(t, b.Accounts, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&client.calls))
}
