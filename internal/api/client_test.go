package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecomission/internal/credential"
	"github.com/nhle/ecomission/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *credential.Keyring) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := credential.NewKeyring(keyring.NewArrayKeyring(nil))
	c := NewClient(Options{
		BaseURL:            srv.URL,
		RequestsPerSecond:  1000,
		Burst:              1000,
		KakaoClientID:      "kakao-client",
		KakaoRedirectURI:   "https://app.example.com/auth/kakao/callback",
		SocialLoginTimeout: 50 * time.Millisecond,
		Logger:             zerolog.Nop(),
	}, tokens)
	return c, tokens
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRequest_ReadsTokenFreshEachCall(t *testing.T) {
	seen := make(chan string, 2)
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("Authorization")
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(w, http.StatusOK, map[string]string{})
	}))

	require.NoError(t, tokens.SetTokens("first", "r"))
	require.NoError(t, c.Get(context.Background(), "/users/me", nil))
	require.NoError(t, tokens.SetAccess("second"))
	require.NoError(t, c.Get(context.Background(), "/users/me", nil))

	assert.Equal(t, "Bearer first", <-seen)
	assert.Equal(t, "Bearer second", <-seen)
}

func TestRequest_RefreshesOnceAndRetries(t *testing.T) {
	var calls, refreshes atomic.Int32
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshes.Add(1)
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "old-refresh", body["refresh"])
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]string{"access": "new-access", "refresh": "new-refresh"})
			return
		}
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer new-access" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"name": "kim"})
	}))
	require.NoError(t, tokens.SetTokens("old-access", "old-refresh"))

	var u model.User
	require.NoError(t, c.Get(context.Background(), "/users/me", &u))
	assert.Equal(t, "kim", u.Name)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), refreshes.Load())

	access, _ := tokens.Access()
	refresh, _ := tokens.Refresh()
	assert.Equal(t, "new-access", access)
	assert.Equal(t, "new-refresh", refresh)
}

func TestRequest_SecondUnauthorizedIsTerminal(t *testing.T) {
	var calls, refreshes atomic.Int32
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshes.Add(1)
			writeJSON(w, http.StatusOK, map[string]string{"access": "still-bad"})
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	require.NoError(t, tokens.SetTokens("a", "r"))

	err := c.Get(context.Background(), "/friends", nil)
	require.Error(t, err)
	assert.True(t, IsAuthExpired(err))
	assert.Equal(t, int32(2), calls.Load(), "exactly one retry")
	assert.Equal(t, int32(1), refreshes.Load())

	refresh, _ := tokens.Refresh()
	assert.Equal(t, "r", refresh, "refresh token kept when the response omits it")
}

func TestRequest_FailedRefreshLeavesTokensUntouched(t *testing.T) {
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "refresh expired"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	require.NoError(t, tokens.SetTokens("a", "r"))

	err := c.Get(context.Background(), "/friends", nil)
	var authErr *AuthExpiredError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "인증이 만료되었습니다.", authErr.Error())

	access, _ := tokens.Access()
	refresh, _ := tokens.Refresh()
	assert.Equal(t, "a", access)
	assert.Equal(t, "r", refresh)
}

func TestRequest_NoRefreshTokenSkipsRefresh(t *testing.T) {
	var refreshes atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshes.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := c.Get(context.Background(), "/friends", nil)
	assert.True(t, IsAuthExpired(err))
	assert.Zero(t, refreshes.Load())
}

func TestRequest_HTTPErrorMessagePrecedence(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message wins", http.StatusBadRequest, `{"message":"m","detail":"d"}`, "m"},
		{"detail fallback", http.StatusConflict, `{"detail":"d"}`, "d"},
		{"non-string detail ignored", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body"]}]}`, "request failed (HTTP 422)"},
		{"no body", http.StatusInternalServerError, ``, "request failed (HTTP 500)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))

			err := c.Post(context.Background(), "/group-missions/1/join", nil, nil)
			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tc.status, httpErr.Status)
			assert.Equal(t, tc.want, httpErr.Message)
			assert.Equal(t, tc.status, StatusOf(err))
		})
	}
}

func TestRequest_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(Options{BaseURL: base, Logger: zerolog.Nop()}, credential.NewKeyring(keyring.NewArrayKeyring(nil)))
	err := c.Get(context.Background(), "/friends", nil)
	assert.True(t, IsNetworkError(err))
	assert.Zero(t, StatusOf(err))
}

func TestDayMissions_NormalizesRecords(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/days/2024-06-05/missions", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id": 11, "mission": {"id": 101, "name": "텀블러"}, "sub_mission": "카페에서 텀블러", "completed": true},
			{"id": 12, "mission": {"id": 102, "name": "장바구니"}},
			{"id": 13, "mission": {"id": 103, "submissions": ["손수건 사용"]}},
			{"mission": {"id": 104, "category": "생활"}, "is_weekly_routine": true, "routine_id": 9},
			{"id": 15, "mission": {"id": 105}}
		]`))
	}))

	entries, err := c.DayMissions(context.Background(), "2024-06-05")
	require.NoError(t, err)
	require.Len(t, entries, 5)

	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.SubmissionLabel
	}
	assert.Equal(t, []string{"카페에서 텀블러", "장바구니", "손수건 사용", "생활", "미션-105"}, labels)

	assert.True(t, entries[0].Completed)
	require.NotNil(t, entries[0].ServerRecordID)
	assert.Equal(t, 11, *entries[0].ServerRecordID)

	assert.Nil(t, entries[3].ServerRecordID)
	assert.True(t, entries[3].IsWeeklyRoutine)
	require.NotNil(t, entries[3].RoutineID)
	assert.Equal(t, 9, *entries[3].RoutineID)
}

func TestDayMissions_LegacyRouteAndNonArray(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/days/2024-06-05/missions" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "/days/2024-06-05", r.URL.Path)
		_, _ = w.Write([]byte(`{"missions": "unexpected"}`))
	}))

	entries, err := c.DayMissions(context.Background(), "2024-06-05")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMyGroups_NormalizesParticipants(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/group-missions/my", r.URL.Path)
		assert.Equal(t, "2024-06-05", r.URL.Query().Get("date"))
		_, _ = w.Write([]byte(`[{"id": 3, "name": "제로웨이스트", "participants": ["Alice", null, {"id": 8}], "checked": true}]`))
	}))

	groups, err := c.MyGroups(context.Background(), "2024-06-05")
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, model.DefaultGroupColor, g.ColorTag)
	require.NotNil(t, g.Checked)
	assert.True(t, *g.Checked)
	assert.Equal(t, []model.Participant{
		{ID: 0, Name: "Alice", ColorTag: model.DefaultParticipantColor},
		{ID: 8, Name: "그룹원 3", ColorTag: model.DefaultParticipantColor},
	}, g.Participants)
}

func TestLogin_AcceptsTokenFieldVariants(t *testing.T) {
	bodies := []string{
		`{"access": "a", "refresh": "r"}`,
		`{"access_token": "a", "refresh_token": "r"}`,
		`{"token": "a", "refreshToken": "r"}`,
		`{"accessToken": "a", "refresh": "r"}`,
	}
	for _, body := range bodies {
		c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/login", r.URL.Path)
			_, _ = w.Write([]byte(body))
		}))

		require.NoError(t, c.Login(context.Background(), "kim@example.com", "pw"), body)
		access, _ := tokens.Access()
		refresh, _ := tokens.Refresh()
		assert.Equal(t, "a", access, body)
		assert.Equal(t, "r", refresh, body)
	}
}

func TestLogin_Failures(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access": "a"}`))
	}))
	assert.ErrorIs(t, c.Login(context.Background(), "kim@example.com", "pw"), ErrNoTokens)

	c, _ = newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	err := c.Login(context.Background(), "kim@example.com", "pw")
	assert.Equal(t, "로그인에 실패했습니다.", MessageOf(err))
}

func TestKakaoLogin_TimesOut(t *testing.T) {
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))

	err := c.KakaoLogin(context.Background(), "code")
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	access, _ := tokens.Access()
	assert.Empty(t, access)
}

func TestKakaoAuthURL(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())

	u, err := url.Parse(c.KakaoAuthURL("xyz"))
	require.NoError(t, err)
	assert.Equal(t, "kauth.kakao.com", u.Host)
	assert.Equal(t, "kakao-client", u.Query().Get("client_id"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, "xyz", u.Query().Get("state"))
	assert.Equal(t, "https://app.example.com/auth/kakao/callback", u.Query().Get("redirect_uri"))
}

func TestServerDate_Shapes(t *testing.T) {
	for _, body := range []string{`"2024-06-05"`, `{"date": "2024-06-05"}`, `"2024-06-05T09:00:00+09:00"`} {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		d, err := c.ServerDate(context.Background())
		require.NoError(t, err, body)
		assert.Equal(t, model.CalendarDate("2024-06-05"), d)
	}
}

func TestLogout_ClearsTokensEvenWhenServerFails(t *testing.T) {
	c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	require.NoError(t, tokens.SetTokens("a", "r"))

	require.NoError(t, c.Logout(context.Background()))
	access, _ := tokens.Access()
	assert.Empty(t, access)
}
