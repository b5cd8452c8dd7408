package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/MemberGate/internal/pkg/middleware"
	"github.com/ManuelReschke/MemberGate/internal/pkg/session"
)

const testSessionSecret = "session-secret"

func newCodec(t *testing.T) *session.Codec {
	t.Helper()
	codec, err := session.NewCodec(testSessionSecret)
	require.NoError(t, err)
	return codec
}

// newSessionApp returns an app that decodes the session cookie and requires it.
func newSessionApp(codec *session.Codec) *fiber.App {
	app := fiber.New()
	app.Use(middleware.UserContextMiddleware(codec))
	return app
}

func sessionCookie(t *testing.T, codec *session.Codec, user session.User) string {
	t.Helper()
	token, err := codec.Issue(user, "at_123", "rt_456")
	require.NoError(t, err)
	return session.CookieName + "=" + token
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, app *fiber.App, target, cookie string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	return doRequest(t, app, req)
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out), string(body))
}

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	decodeJSON(t, resp, &out)
	return out
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
