package seleniumtest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	socks5 "github.com/armon/go-socks5"
	"github.com/tebeka/selenium"
)

// ServeDemoPage serves DemoPage at every path until the test ends.
func ServeDemoPage(t testing.TB) *httptest.Server {
	t.Helper()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, DemoPage)
	}))
	t.Cleanup(s.Close)
	return s
}

// Proxy is a SOCKS5 proxy that sends every connection to one HTTP server,
// whatever address the client asked for.
type Proxy struct {
	// Addr is the host:port the proxy listens on.
	Addr string

	conns int64
}

// Connections returns the number of connections the proxy has forwarded.
func (p *Proxy) Connections() int {
	return int(atomic.LoadInt64(&p.conns))
}

// Selenium returns the proxy capability that routes a browser through p.
func (p *Proxy) Selenium() selenium.Proxy {
	return selenium.Proxy{
		Type:         selenium.Manual,
		SOCKS:        p.Addr,
		SOCKSVersion: 5,
	}
}

// addrRewriter rewrites all requested addresses to the one specified by the
// URL.
type addrRewriter struct{ u *url.URL }

func (a *addrRewriter) Rewrite(ctx context.Context, _ *socks5.Request) (context.Context, *socks5.AddrSpec) {
	port, err := strconv.Atoi(a.u.Port())
	if err != nil {
		panic(err)
	}
	return ctx, &socks5.AddrSpec{
		FQDN: a.u.Hostname(),
		Port: port,
	}
}

// targetResolver answers every name lookup with the target's address, so
// that hosts which do not resolve can still be rewritten.
type targetResolver struct{ ip net.IP }

func (r targetResolver) Resolve(ctx context.Context, _ string) (context.Context, net.IP, error) {
	return ctx, r.ip, nil
}

// StartProxy starts a Proxy forwarding to target. It is stopped when the
// test ends.
func StartProxy(t testing.TB, target string) *Proxy {
	t.Helper()
	u, err := url.Parse(target)
	if err != nil {
		t.Fatalf("url.Parse(%q) returned error: %v", target, err)
	}

	ip := net.ParseIP(u.Hostname())
	if ip == nil {
		ip = net.IPv4(127, 0, 0, 1)
	}

	p := &Proxy{}
	var dialer net.Dialer
	socks, err := socks5.New(&socks5.Config{
		Resolver: targetResolver{ip},
		Rewriter: &addrRewriter{u},
		Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			atomic.AddInt64(&p.conns, 1)
			return dialer.DialContext(ctx, network, addr)
		},
	})
	if err != nil {
		t.Fatalf("socks5.New(_) returned error: %v", err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen(_, _) returned error: %v", err)
	}
	p.Addr = l.Addr().String()

	// Serve until the listener is closed at the end of the test; the error
	// Serve returns then is expected.
	done := make(chan struct{})
	go func() {
		err := socks.Serve(l)
		select {
		case <-done:
			return
		default:
		}
		if err != nil {
			t.Errorf("socks.Serve(_) returned error: %v", err)
		}
	}()
	t.Cleanup(func() {
		close(done)
		l.Close()
	})
	return p
}
