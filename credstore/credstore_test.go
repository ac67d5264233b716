package credstore

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/securecookie"
	"github.com/guardteam/authgate/permission"
)

func TestMemoryStore_userinfo_round_trip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	want := &permission.UserInfo{
		Email:  "ana@example.com",
		Name:   "Ana",
		Groups: []string{"grupo-reportes", "grupo-usuarios"},
		Profiles: []permission.Profile{
			{ID: 1, Name: "Gestor", Description: "Gestión", GroupID: "aad-1", GroupName: "grupo-reportes"},
		},
		Permissions: []permission.Permission{
			{Code: "REPORTES_LEER", Name: "Leer reportes", Module: "REPORTES", Action: "LEER", Description: "view"},
		},
	}
	want.SyncCodes()

	if err := SetJSON(store, KeyUserInfo, want); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	got := &permission.UserInfo{}
	ok, err := GetJSON(store, KeyUserInfo, got)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if !ok {
		t.Fatal("GetJSON() ok = false, want true")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore_copy_on_read(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.Set(KeyToken, []byte("Bearer abc"))

	v, _ := store.Get(KeyToken)
	v[0] = 'X'

	v2, _ := store.Get(KeyToken)
	if string(v2) != "Bearer abc" {
		t.Errorf("Get() after reader mutation = %q, want %q", v2, "Bearer abc")
	}
}

func TestMemoryStore_clear(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.Set(KeyToken, []byte("t"))
	store.Set(KeyAuthConfig, []byte("c"))

	store.Clear()

	if _, ok := store.Get(KeyToken); ok {
		t.Error("Get(KeyToken) after Clear() found a value")
	}
	if _, ok := store.Get(KeyAuthConfig); ok {
		t.Error("Get(KeyAuthConfig) after Clear() found a value")
	}
}

func TestMemoryStore_subscription(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	events, cancel := store.Subscribe()
	defer cancel()

	store.Set(KeyPermissionCodes, []byte(`["USUARIOS_LEER"]`))

	select {
	case key := <-events:
		if key != KeyPermissionCodes {
			t.Errorf("event key = %s, want %s", key, KeyPermissionCodes)
		}
	case <-time.After(time.Second):
		t.Fatal("no mutation event received")
	}

	// Deleting an absent key publishes nothing.
	store.Delete(KeyAttemptedURL)
	select {
	case key := <-events:
		t.Errorf("unexpected event for key %s", key)
	default:
	}
}

func TestCookieStore_persists_across_requests(t *testing.T) {
	t.Parallel()

	sc := securecookie.New(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
	client := NewCookieClient(sc)

	// First request writes the token.
	w1 := httptest.NewRecorder()
	r1 := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	s1 := client.Open(w1, r1)
	s1.Set(KeyToken, []byte("Bearer abc"))

	cookies := w1.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no cookie written")
	}

	// Second request carries the cookie back.
	w2 := httptest.NewRecorder()
	r2 := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	for _, c := range cookies {
		r2.AddCookie(c)
	}
	s2 := client.Open(w2, r2)

	got, ok := s2.Get(KeyToken)
	if !ok {
		t.Fatal("Get(KeyToken) ok = false, want true")
	}
	if string(got) != "Bearer abc" {
		t.Errorf("Get(KeyToken) = %q, want %q", got, "Bearer abc")
	}
}

func TestCookieStore_clear_expires_cookie(t *testing.T) {
	t.Parallel()

	sc := securecookie.New(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
	client := NewCookieClient(sc, WithCookieName("creds"))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	s := client.Open(w, r)
	s.Set(KeyToken, []byte("t"))
	s.Clear()

	if _, ok := s.Get(KeyToken); ok {
		t.Error("Get(KeyToken) after Clear() found a value")
	}

	cookies := w.Result().Cookies()
	last := cookies[len(cookies)-1]
	if last.Name != "creds" || last.MaxAge != -1 {
		t.Errorf("last cookie = %s (MaxAge %d), want creds expired", last.Name, last.MaxAge)
	}
}
