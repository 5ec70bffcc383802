package http

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	proto "github.com/marmos91/dittoweb/internal/protocol/http"
	"github.com/marmos91/dittoweb/pkg/handler"
	"github.com/marmos91/dittoweb/pkg/metrics"
	"github.com/marmos91/dittoweb/pkg/store/docroot/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startAdapter binds an adapter on a loopback ephemeral port, serves it in
// the background and stops it when the test ends.
func startAdapter(t *testing.T, config HTTPConfig, docs map[string][]byte) (*HTTPAdapter, string) {
	t.Helper()

	store := memory.NewMemoryStore()
	for path, body := range docs {
		require.NoError(t, store.Put(context.Background(), path, body))
	}

	return startAdapterWith(t, config, handler.New(store), nil)
}

// startAdapterWith is startAdapter with an explicit handler and metrics sink.
func startAdapterWith(t *testing.T, config HTTPConfig, h handler.Handler, m metrics.HTTPMetrics) (*HTTPAdapter, string) {
	t.Helper()

	config.Address = "127.0.0.1"
	config.Port = 0
	adapter := New(config, h, m)
	require.NoError(t, adapter.Listen())

	serveDone := make(chan error, 1)
	go func() { serveDone <- adapter.Serve(context.Background()) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, adapter.Stop(ctx))
		assert.NoError(t, <-serveDone)
	})

	return adapter, adapter.Addr().String()
}

// roundTrip sends raw on a fresh connection and returns everything the
// server writes before closing.
func roundTrip(t *testing.T, addr string, raw string) []byte {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err = io.WriteString(conn, raw)
	require.NoError(t, err)

	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	return resp
}

func parseResponse(t *testing.T, raw []byte) (*nethttp.Response, []byte) {
	t.Helper()

	resp, err := nethttp.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	require.NoError(t, err, "response %q", raw)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestServeIndex(t *testing.T) {
	index := bytes.Repeat([]byte("a"), 120)
	_, addr := startAdapter(t, HTTPConfig{}, map[string][]byte{"/index.html": index})

	raw := roundTrip(t, addr, "GET /index.html HTTP/1.0\r\n\r\n")

	assert.True(t, bytes.HasPrefix(raw, []byte("HTTP/1.0 200 OK\r\n")), "got %q", raw)
	assert.Contains(t, string(raw), "Content-Length: 120\r\n")
	assert.Contains(t, string(raw), "Content-Type: text/html\r\n")
	assert.True(t, bytes.HasSuffix(raw, append([]byte("\r\n\r\n"), index...)))
}

func TestServeDirectoryIndex(t *testing.T) {
	_, addr := startAdapter(t, HTTPConfig{}, map[string][]byte{"/index.html": []byte("home")})

	resp, body := parseResponse(t, roundTrip(t, addr, "GET / HTTP/1.0\r\nHost: localhost\r\n\r\n"))
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "home", string(body))
}

func TestPathTraversalIsBadRequest(t *testing.T) {
	_, addr := startAdapter(t, HTTPConfig{}, nil)

	raw := roundTrip(t, addr, "GET /../../etc/passwd HTTP/1.0\r\n\r\n")
	assert.True(t, bytes.HasPrefix(raw, []byte("HTTP/1.0 400 Bad Request\r\n")), "got %q", raw)
}

func TestBareLineFeedIsBadRequest(t *testing.T) {
	_, addr := startAdapter(t, HTTPConfig{}, map[string][]byte{"/index.html": []byte("x")})

	resp, body := parseResponse(t, roundTrip(t, addr, "GET /index.html HTTP/1.0\n\r\n"))
	assert.Equal(t, 400, resp.StatusCode)
	assert.Contains(t, string(body), "400 Bad Request")
}

func TestMissingFileIsNotFound(t *testing.T) {
	_, addr := startAdapter(t, HTTPConfig{}, nil)

	resp, body := parseResponse(t, roundTrip(t, addr, "GET /missing.png HTTP/1.0\r\n\r\n"))
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "404 Not Found")
}

// A request trickling in over several reads is parsed across all of them.
func TestRequestSplitAcrossReads(t *testing.T) {
	_, addr := startAdapter(t, HTTPConfig{}, map[string][]byte{"/a.txt": []byte("split")})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	for _, part := range []string{"GE", "T /a.t", "xt HTTP/1.", "0\r\nHost: x\r", "\n\r\n"} {
		_, err := io.WriteString(conn, part)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	raw, err := io.ReadAll(conn)
	require.NoError(t, err)

	resp, body := parseResponse(t, raw)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "split", string(body))
}

// Concurrent fetches of distinct files each get their own, unmixed content
// whatever the number of worker goroutines.
func TestConcurrentDistinctFiles(t *testing.T) {
	const k = 50

	docs := make(map[string][]byte, k)
	for i := 0; i < k; i++ {
		docs[fmt.Sprintf("/file%d.txt", i)] = bytes.Repeat([]byte(strconv.Itoa(i)+"-"), 200+i)
	}

	for _, threads := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("threads=%d", threads), func(t *testing.T) {
			_, addr := startAdapter(t, HTTPConfig{Threads: threads}, docs)

			var wg sync.WaitGroup
			results := make([][]byte, k)
			errs := make([]error, k)

			for i := 0; i < k; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = fetch(addr, fmt.Sprintf("/file%d.txt", i))
				}(i)
			}
			wg.Wait()

			for i := 0; i < k; i++ {
				require.NoError(t, errs[i], "fetch %d", i)
				assert.Equal(t, docs[fmt.Sprintf("/file%d.txt", i)], results[i], "file %d", i)
			}
		})
	}
}

// fetch GETs path and returns the body of a 200 reply.
func fetch(addr, path string) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return nil, err
	}

	if _, err := fmt.Fprintf(conn, "GET %s HTTP/1.0\r\n\r\n", path); err != nil {
		return nil, err
	}

	resp, err := nethttp.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func TestRateLimitAnswersServiceUnavailable(t *testing.T) {
	_, addr := startAdapter(t, HTTPConfig{
		RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 1},
	}, map[string][]byte{"/a.html": []byte("a")})

	resp, _ := parseResponse(t, roundTrip(t, addr, "GET /a.html HTTP/1.0\r\n\r\n"))
	assert.Equal(t, 200, resp.StatusCode)

	// A rejected connection is answered without its request being read, so
	// the client sends nothing and only reads.
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	raw, err := io.ReadAll(conn)
	require.NoError(t, err)

	resp, body := parseResponse(t, raw)
	assert.Equal(t, 503, resp.StatusCode)
	assert.Contains(t, string(body), "503 Service Unavailable")
}

func TestMaxConnectionsDefersAccept(t *testing.T) {
	adapter, addr := startAdapter(t, HTTPConfig{MaxConnections: 1, Threads: 2},
		map[string][]byte{"/a.html": []byte("a")})

	// The first connection holds the only slot until it sends its request.
	first, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.SetDeadline(time.Now().Add(5*time.Second)))

	require.Eventually(t, func() bool { return adapter.ActiveConnections() == 1 },
		2*time.Second, 10*time.Millisecond)

	secondDone := make(chan []byte, 1)
	go func() {
		body, _ := fetch(addr, "/a.html")
		secondDone <- body
	}()

	select {
	case <-secondDone:
		t.Fatal("second connection served while the limit was reached")
	case <-time.After(150 * time.Millisecond):
	}
	assert.Equal(t, int32(1), adapter.ActiveConnections())

	_, err = io.WriteString(first, "GET /a.html HTTP/1.0\r\n\r\n")
	require.NoError(t, err)
	_, err = io.ReadAll(first)
	require.NoError(t, err)

	select {
	case body := <-secondDone:
		assert.Equal(t, "a", string(body))
	case <-time.After(5 * time.Second):
		t.Fatal("second connection never served")
	}
}

func TestReadTimeoutDropsConnection(t *testing.T) {
	_, addr := startAdapter(t, HTTPConfig{ReadTimeout: 50 * time.Millisecond}, nil)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = io.WriteString(conn, "GET /incompl")
	require.NoError(t, err)

	// No reply, just a closed socket.
	raw, _ := io.ReadAll(conn)
	assert.Empty(t, raw)
}

func TestStopClosesIdleConnections(t *testing.T) {
	store := memory.NewMemoryStore()
	adapter := New(HTTPConfig{Address: "127.0.0.1", Threads: 2}, handler.New(store), nil)
	require.NoError(t, adapter.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- adapter.Serve(ctx) }()

	conn, err := net.Dial("tcp", adapter.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return adapter.ActiveConnections() == 1 },
		2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-serveDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	// Stop after shutdown waits for the shutdown in progress.
	assert.NoError(t, adapter.Stop(context.Background()))
	assert.Equal(t, int32(0), adapter.ActiveConnections())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestConnectionAcceptedDuringShutdownIsClosed(t *testing.T) {
	adapter := New(HTTPConfig{Address: "127.0.0.1"}, handler.New(memory.NewMemoryStore()), nil)
	adapter.initiateShutdown()

	client, server := net.Pipe()
	defer client.Close()

	adapter.handleAccept(server, nil)
	assert.Equal(t, int32(0), adapter.ActiveConnections())

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := client.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestStopBeforeServe(t *testing.T) {
	adapter := New(HTTPConfig{Address: "127.0.0.1"}, handler.New(memory.NewMemoryStore()), nil)

	assert.NoError(t, adapter.Stop(context.Background()))
	assert.Error(t, adapter.Serve(context.Background()))
}

func TestListenFailureIsReported(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	adapter := New(HTTPConfig{Address: "127.0.0.1", Port: port}, handler.New(memory.NewMemoryStore()), nil)

	err = adapter.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), strconv.Itoa(port))
}

func TestAdapterIdentity(t *testing.T) {
	adapter := New(HTTPConfig{Port: 8081}, handler.New(memory.NewMemoryStore()), nil)
	assert.Equal(t, "HTTP", adapter.Protocol())
	assert.Equal(t, 8081, adapter.Port())
	assert.Nil(t, adapter.Addr())

	bound, addr := startAdapter(t, HTTPConfig{}, nil)
	assert.True(t, strings.HasSuffix(addr, ":"+strconv.Itoa(bound.Port())))
}

func TestInvalidConfigPanics(t *testing.T) {
	assert.Panics(t, func() {
		New(HTTPConfig{Port: 70000}, handler.New(memory.NewMemoryStore()), nil)
	})
	assert.Panics(t, func() {
		New(HTTPConfig{ReadTimeout: -time.Second}, handler.New(memory.NewMemoryStore()), nil)
	})
}

// recordingMetrics captures what the adapter reports.
type recordingMetrics struct {
	mu          sync.Mutex
	requests    []int
	methods     []string
	bytesSent   int64
	parseErrors int
	accepted    int
	closed      int
}

func (m *recordingMetrics) RecordRequest(method string, status int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods = append(m.methods, method)
	m.requests = append(m.requests, status)
}

func (m *recordingMetrics) RecordBytesSent(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesSent += bytes
}

func (m *recordingMetrics) RecordParseError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parseErrors++
}

func (m *recordingMetrics) RecordRateLimited()         {}
func (m *recordingMetrics) SetActiveConnections(int32) {}

func (m *recordingMetrics) RecordConnectionAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted++
}

func (m *recordingMetrics) RecordConnectionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
}

func TestMetricsAreRecorded(t *testing.T) {
	store := memory.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "/a.txt", []byte("hello")))

	rec := &recordingMetrics{}
	adapter := New(HTTPConfig{Address: "127.0.0.1"}, handler.New(store), rec)
	require.NoError(t, adapter.Listen())

	go func() { _ = adapter.Serve(context.Background()) }()
	t.Cleanup(func() { _ = adapter.Stop(context.Background()) })

	addr := adapter.Addr().String()
	ok := roundTrip(t, addr, "GET /a.txt HTTP/1.0\r\n\r\n")
	bad := roundTrip(t, addr, "BROKEN\n")

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.closed == 2
	}, 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.accepted)
	assert.Equal(t, []int{200}, rec.requests)
	assert.Equal(t, []string{"GET"}, rec.methods)
	assert.Equal(t, 1, rec.parseErrors)
	assert.Equal(t, int64(len(ok)+len(bad)), rec.bytesSent)
}

// handlerFunc adapts a function to handler.Handler.
type handlerFunc func(ctx context.Context, req *proto.Request, rep *proto.Reply)

func (f handlerFunc) HandleRequest(ctx context.Context, req *proto.Request, rep *proto.Reply) {
	f(ctx, req, rep)
}

func textReply(rep *proto.Reply, body string) {
	rep.Status = proto.StatusOK
	rep.Content = []byte(body)
	rep.AddHeader("Content-Length", strconv.Itoa(len(body)))
	rep.AddHeader("Content-Type", "text/plain")
}

// A handler blocked on its document must not hold the only worker.
func TestSlowHandlerDoesNotBlockOtherConnections(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	h := handlerFunc(func(ctx context.Context, req *proto.Request, rep *proto.Reply) {
		if req.URI == "/slow" {
			close(entered)
			select {
			case <-release:
			case <-ctx.Done():
			}
			textReply(rep, "slow")
			return
		}
		textReply(rep, "fast")
	})
	_, addr := startAdapterWith(t, HTTPConfig{Threads: 1}, h, nil)

	slowDone := make(chan []byte, 1)
	go func() {
		body, _ := fetch(addr, "/slow")
		slowDone <- body
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("slow request never reached the handler")
	}

	fastDone := make(chan []byte, 1)
	go func() {
		body, _ := fetch(addr, "/fast")
		fastDone <- body
	}()

	select {
	case body := <-fastDone:
		assert.Equal(t, "fast", string(body))
	case <-time.After(2 * time.Second):
		t.Fatal("fast request was held up by the slow one")
	}

	release <- struct{}{}
	select {
	case body := <-slowDone:
		assert.Equal(t, "slow", string(body))
	case <-time.After(5 * time.Second):
		t.Fatal("slow request never completed")
	}
}

func TestHandlerPanicAnswersInternalServerError(t *testing.T) {
	h := handlerFunc(func(ctx context.Context, req *proto.Request, rep *proto.Reply) {
		panic("broken handler")
	})
	adapter, addr := startAdapterWith(t, HTTPConfig{MaxConnections: 1}, h, nil)

	for i := 0; i < 2; i++ {
		resp, body := parseResponse(t, roundTrip(t, addr, "GET /a HTTP/1.0\r\n\r\n"))
		assert.Equal(t, 500, resp.StatusCode)
		assert.Contains(t, string(body), "500 Internal Server Error")
	}

	require.Eventually(t, func() bool { return adapter.ActiveConnections() == 0 },
		2*time.Second, 10*time.Millisecond)
}

// panickingMetrics fails while the connection completes its write.
type panickingMetrics struct {
	metrics.HTTPMetrics
}

func (panickingMetrics) RecordBytesSent(int64) {
	panic("metrics sink failed")
}

// A panic inside a connection's own completion handler still releases its
// socket and its connection slot.
func TestPanicInCompletionClosesConnection(t *testing.T) {
	m := panickingMetrics{HTTPMetrics: metrics.NewNoopHTTPMetrics()}
	adapter, addr := startAdapterWith(t, HTTPConfig{MaxConnections: 1},
		handler.New(memory.NewMemoryStore()), m)

	// The second round trip only gets a slot once the first was released.
	for i := 0; i < 2; i++ {
		raw := roundTrip(t, addr, "GET /missing HTTP/1.0\r\n\r\n")
		assert.True(t, bytes.HasPrefix(raw, []byte("HTTP/1.0 404 Not Found\r\n")), "got %q", raw)
	}

	require.Eventually(t, func() bool { return adapter.ActiveConnections() == 0 },
		2*time.Second, 10*time.Millisecond)
}
