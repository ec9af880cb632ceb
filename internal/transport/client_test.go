package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestNewClient tests the Client constructor.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("no proxy creates direct client", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.ProxyAddress() != "" {
			t.Errorf("expected empty proxy address, got %q", client.ProxyAddress())
		}
	})

	t.Run("valid proxy address creates client", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(WithProxy("127.0.0.1:9050"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.ProxyAddress() != "127.0.0.1:9050" {
			t.Errorf("ProxyAddress() = %q, expected %q", client.ProxyAddress(), "127.0.0.1:9050")
		}
	})

	invalid := []string{"127.0.0.1", ":9050", "127.0.0.1:", "127.0.0.1:abc", "127.0.0.1:0", "127.0.0.1:70000"}
	for _, addr := range invalid {
		t.Run("invalid address "+addr, func(t *testing.T) {
			t.Parallel()

			_, err := NewClient(WithProxy(addr))
			if !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
			}
		})
	}
}

// TestHTTPClient tests request decoration and redirect handling.
func TestHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("headers, cookie and user agent are sent", func(t *testing.T) {
		t.Parallel()

		var got http.Header
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client, err := NewClient(
			WithUserAgent("SiteCrawler/1.0"),
			WithCookie("session=abc"),
			WithHeaders(map[string]string{"X-Test": "yes"}),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		resp, err := client.HTTPClient().Get(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		if got.Get("User-Agent") != "SiteCrawler/1.0" {
			t.Errorf("expected user agent, got %q", got.Get("User-Agent"))
		}
		if got.Get("Cookie") != "session=abc" {
			t.Errorf("expected cookie, got %q", got.Get("Cookie"))
		}
		if got.Get("X-Test") != "yes" {
			t.Errorf("expected X-Test header, got %q", got.Get("X-Test"))
		}
		if got.Get("Accept-Encoding") != AcceptEncoding {
			t.Errorf("expected Accept-Encoding %q, got %q", AcceptEncoding, got.Get("Accept-Encoding"))
		}
	})

	t.Run("redirects are not followed", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/old" {
				http.Redirect(w, r, "/new", http.StatusMovedPermanently)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		resp, err := client.HTTPClient().Get(srv.URL + "/old")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusMovedPermanently {
			t.Errorf("expected 301, got %d", resp.StatusCode)
		}
		if resp.Header.Get("Location") != "/new" {
			t.Errorf("expected Location /new, got %q", resp.Header.Get("Location"))
		}
	})
}

// TestCheckProxy tests the SOCKS5 handshake check.
func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("no proxy is always fine", func(t *testing.T) {
		t.Parallel()

		client, _ := NewClient()
		if err := client.CheckProxy(context.Background()); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("SOCKS5 server accepts", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, []byte{socks5Version, socks5AuthNone})
		client, err := NewClient(WithProxy(addr))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := client.CheckProxy(context.Background()); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("non SOCKS5 server is rejected", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, []byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		client, err := NewClient(WithProxy(addr))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := client.CheckProxy(context.Background()); !errors.Is(err, ErrProxyNotSOCKS5) {
			t.Errorf("expected ErrProxyNotSOCKS5, got %v", err)
		}
	})

	t.Run("closed port cannot connect", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := ln.Addr().String()
		ln.Close()

		client, err := NewClient(WithProxy(addr))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := client.CheckProxy(context.Background()); !errors.Is(err, ErrProxyCannotConnect) {
			t.Errorf("expected ErrProxyCannotConnect, got %v", err)
		}
	})
}

// serveOnce accepts one connection, reads the greeting and writes reply.
func serveOnce(t *testing.T, reply []byte) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 3)
		_, _ = conn.Read(buf)
		_, _ = conn.Write(reply)
	}()

	return ln.Addr().String()
}
