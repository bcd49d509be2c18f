package service

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewModeForRoles(t *testing.T) {
	tests := []struct {
		name     string
		roles    string
		extRoles string
		want     string
	}{
		{"learner", "Learner", "", ViewStudent},
		{"student urn", "urn:lti:role:ims/lis/Learner", "", ViewStudent},
		{"instructor", "Instructor", "", ViewEditor},
		{"instructor beats learner", "Learner, Instructor", "", ViewEditor},
		{"admin in ext_roles", "Learner", "urn:lti:sysrole:ims/lis/SysAdmin", ViewEditor},
		{"teaching assistant", "urn:lti:role:ims/lis/TeachingAssistant", "", ViewEditor},
		{"unrecognised", "urn:lti:sysrole:ims/lis/User", "", ViewEditor},
		{"blank entries", " , ,Student,", "", ViewStudent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ViewModeForRoles(tt.roles, tt.extRoles))
		})
	}
}

// noRedirect returns a client that hands back the redirect response itself.
func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func postLaunch(t *testing.T, target string, form url.Values, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := noRedirect().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestLTILaunchRedirectsToConfiguredFrontend(t *testing.T) {
	h := NewHandler(new(mockStore), quietLogger(), WithFrontendURL("https://graph.example.edu/app?theme=dark"))
	srv := httptest.NewServer(h.Routes("/api"))
	defer srv.Close()

	resp := postLaunch(t, srv.URL+"/lti_launch", url.Values{"roles": {"Learner"}}, nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "graph.example.edu", loc.Host)
	assert.Equal(t, "/app", loc.Path)
	assert.Equal(t, "student", loc.Query().Get("view_mode"))
	assert.Equal(t, "dark", loc.Query().Get("theme"))

	resp = postLaunch(t, srv.URL+"/lti_launch", url.Values{"roles": {"Learner"}, "ext_roles": {"Instructor"}}, nil)
	loc, err = url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "editor", loc.Query().Get("view_mode"))
}

func TestLTILaunchWithoutFormIsStudent(t *testing.T) {
	srv := newTestServer(t, new(mockStore))

	resp := postLaunch(t, srv.URL+"/lti_launch", url.Values{}, http.Header{"X-Forwarded-Host": {"tunnel.example.com"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://tunnel.example.com/?view_mode=student", resp.Header.Get("Location"))
}

func TestDirectAccessRedirectsToEditor(t *testing.T) {
	srv := newTestServer(t, new(mockStore))

	resp, err := noRedirect().Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "https", loc.Scheme)
	assert.Equal(t, "editor", loc.Query().Get("view_mode"))

	resp, err = noRedirect().Get(srv.URL + "/lti_launch")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRequestFrontendHost(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://localhost:5000/lti_launch", nil)
	assert.Equal(t, "localhost:5173", requestFrontendHost(r))

	r = httptest.NewRequest(http.MethodPost, "http://graph.internal/lti_launch", nil)
	assert.Equal(t, "graph.internal", requestFrontendHost(r))

	r.Header.Set("X-Forwarded-Host", "a.example.com, b.example.com")
	assert.Equal(t, "a.example.com", requestFrontendHost(r))
}
