package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/lemon/internal/presentation/web"
	"github.com/aretw0/lemon/pkg/adapters/memory"
	"github.com/aretw0/lemon/pkg/domain"
	"github.com/aretw0/lemon/pkg/gate"
	"github.com/aretw0/lemon/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	store  *memory.Store
}

func newTestEnv(t *testing.T, mutate ...func(*Server)) *testEnv {
	t.Helper()
	store := memory.NewStore()
	renderer, err := web.NewRenderer(web.Site{Title: "Lemon", Hub: gate.DefaultHub})
	require.NoError(t, err)

	s := &Server{
		Manager:  session.NewManager(store),
		Gate:     gate.New(domain.DefaultPageOrder),
		Renderer: renderer,
		Pages: map[string]Page{
			domain.PageIntro:  {Title: "Hello", Body: "<p>intro body</p>"},
			domain.PagePhotos: {Title: "Photos", Gallery: true},
		},
		Invite: "aHR0cHM6Ly9kaXNjb3JkLmdnL2V4YW1wbGU=",
	}
	for _, m := range mutate {
		m(s)
	}

	srv := httptest.NewServer(NewHandler(s))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{srv: srv, client: client, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	return e.do(t, http.MethodGet, path, nil, "")
}

func (e *testEnv) post(t *testing.T, path string) (*http.Response, string) {
	return e.do(t, http.MethodPost, path, nil, "")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestSessionCookie_IssuedOnce(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/")
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Zero(t, c.MaxAge, "session cookie must not persist")

	resp, _ = env.get(t, "/hub")
	assert.Empty(t, resp.Cookies(), "existing session keeps its cookie")
}

func TestPages_Gating(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/pages/intro")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "intro body")

	resp, body = env.get(t, "/pages/memory")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "This page is locked until you visit previous surprises.")
	assert.Contains(t, body, `url=/hub`)

	resp, _ = env.get(t, "/pages/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVisited_AdvancesFrontier(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, "/api/pages/memory/visited")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, `"redirect":"/hub"`)

	resp, body = env.post(t, "/api/pages/intro/visited")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got visitedResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, []string{"intro"}, got.Visited)
	assert.Equal(t, 1, got.Frontier)
	require.Len(t, got.Pages, len(domain.DefaultPageOrder))
	assert.Equal(t, domain.PageUnlocked, got.Pages[1].State)
	assert.Equal(t, domain.PageLocked, got.Pages[2].State)

	resp, _ = env.get(t, "/pages/memory")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.post(t, "/api/pages/nope/visited")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = env.get(t, "/hub")
	assert.Contains(t, body, `href="/pages/memory"`)
	assert.NotContains(t, body, `href="/pages/photos"`)
}

func TestImages_AddListRemove(t *testing.T) {
	env := newTestEnv(t)
	add := func(url string) *http.Response {
		resp, _ := env.do(t, http.MethodPost, "/api/images",
			strings.NewReader(`{"data_url":"`+url+`"}`), "application/json")
		return resp
	}

	assert.Equal(t, http.StatusCreated, add("data:image/png;base64,AAAA").StatusCode)
	assert.Equal(t, http.StatusCreated, add("data:image/png;base64,BBBB").StatusCode)
	assert.Equal(t, http.StatusBadRequest, add("javascript:alert(1)").StatusCode)

	resp, _ := env.do(t, http.MethodDelete, "/api/images/7", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/images/x", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/images/0", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body := env.get(t, "/api/images")
	assert.JSONEq(t, `{"images":["data:image/png;base64,BBBB"]}`, body)
}

func TestImages_MultipartUpload(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "pic.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, body := env.do(t, http.MethodPost, "/api/images", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Contains(t, body, "data:image/png;base64,")

	buf.Reset()
	mw = multipart.NewWriter(&buf)
	fw, err = mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("plain text"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, _ = env.do(t, http.MethodPost, "/api/images", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImages_UploadTooLarge(t *testing.T) {
	env := newTestEnv(t, func(s *Server) { s.MaxUploadBytes = 8 })

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "pic.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, _ := env.do(t, http.MethodPost, "/api/images", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestPhotosPage_ShowsGallery(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/api/pages/intro/visited")
	env.post(t, "/api/pages/memory/visited")
	env.do(t, http.MethodPost, "/api/images",
		strings.NewReader(`{"data_url":"data:image/gif;base64,R0lG"}`), "application/json")

	resp, body := env.get(t, "/pages/photos")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `src="data:image/gif;base64,R0lG"`)
}

func TestMusic_Toggle(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.get(t, "/api/music")
	assert.JSONEq(t, `{"playing":false}`, body)
	_, body = env.post(t, "/api/music")
	assert.JSONEq(t, `{"playing":true}`, body)
	_, body = env.get(t, "/api/music")
	assert.JSONEq(t, `{"playing":true}`, body)
}

func TestEndSession_ClearsState(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/api/pages/intro/visited")
	require.NotEmpty(t, env.store.Sessions())

	resp, _ := env.post(t, "/api/session/end")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, env.store.Sessions())

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/session/end", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/html")
	resp, err = env.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestInvite(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.get(t, "/invite")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://discord.gg/example", resp.Header.Get("Location"))

	env = newTestEnv(t, func(s *Server) { s.Invite = "" })
	resp, _ = env.get(t, "/invite")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetrics_Mounted(t *testing.T) {
	env := newTestEnv(t, func(s *Server) {
		s.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "lemon_up 1\n")
		})
	})
	_, body := env.get(t, "/metrics")
	assert.Equal(t, "lemon_up 1\n", body)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, func(s *Server) { s.CORSOrigin = "https://example.com" })
	resp, _ := env.do(t, http.MethodOptions, "/api/visited", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_Session(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/") // establish the session cookie

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.srv.URL+"/api/events?watch=visited", nil)
	require.NoError(t, err)
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l, ok := <-lines:
			require.True(t, ok, "stream closed")
			return l
		case <-ctx.Done():
			t.Fatal("timed out waiting for SSE line")
			return ""
		}
	}
	require.Equal(t, "event: ping", next())
	require.Equal(t, "data: connected", next())
	require.Equal(t, "", next())

	// Filtered out by watch=visited.
	env.post(t, "/api/music")
	env.post(t, "/api/pages/intro/visited")

	require.Equal(t, "event: change", next())
	data := strings.TrimPrefix(next(), "data: ")
	var ev domain.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, domain.ChangeVisited, ev.Kind)
	assert.Equal(t, "intro", ev.Key)
	assert.Equal(t, []string{"intro"}, ev.Visited)
}

func TestSignedCookie(t *testing.T) {
	env := newTestEnv(t, func(s *Server) { s.CookieSecret = []byte("0123456789abcdef0123456789abcdef") })

	resp, _ := env.get(t, "/")
	require.Len(t, resp.Cookies(), 1)
	value := resp.Cookies()[0].Value
	assert.Equal(t, 2, strings.Count(value, "."), "cookie should be a signed token")

	env.post(t, "/api/pages/intro/visited")
	_, body := env.get(t, "/api/visited")
	assert.Contains(t, body, `"visited":["intro"]`)

	// A bare session ID is not accepted once signing is on.
	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/api/visited", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "6f1c1f44-7c2e-4c4b-9a53-0f3f3d3c1a11"})
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Len(t, resp.Cookies(), 1, "forged cookie is replaced")
	assert.NotEqual(t, "6f1c1f44-7c2e-4c4b-9a53-0f3f3d3c1a11", resp.Cookies()[0].Value)
}

func TestOpenAPI_Served(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/openapi.yaml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "/api/pages/{key}/visited:")
}

func TestLoadContract(t *testing.T) {
	router, err := loadContract(context.Background())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/images/3", nil)
	route, params, err := router.FindRoute(req)
	require.NoError(t, err)
	assert.Equal(t, "removeImage", route.Operation.OperationID)
	assert.Equal(t, "3", params["index"])
}

func TestContract_RejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodDelete, "/api/images/-x", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "index")

	resp, _ = env.do(t, http.MethodPost, "/api/images", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/images", strings.NewReader(`data`), "text/plain")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, "/api/unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/music", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
