package ezproxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchFollowsLoginRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("user") != "me" || r.PostForm.Get("pass") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "ezproxy", Value: "s1", Path: "/"})
		http.Redirect(w, r, "/content/paper.pdf", http.StatusFound)
	})
	mux.HandleFunc("/content/paper.pdf", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("ezproxy"); err != nil || c.Value != "s1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := New(srv.URL, "me", "pw").Fetch(context.Background(), "https://journal.example/paper")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !res.IsPDF || string(res.Content) != "%PDF-1.4" {
		t.Fatalf("result = %+v", res)
	}
	if res.URL != srv.URL+"/content/paper.pdf" {
		t.Fatalf("final url = %q", res.URL)
	}
}

func TestFetchBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	if _, err := New(srv.URL, "me", "bad").Fetch(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFetchNotConfigured(t *testing.T) {
	if _, err := New("", "", "").Fetch(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}
