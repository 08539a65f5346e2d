// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/config"
	"rivaas.dev/dispatch/handler"
	"rivaas.dev/dispatch/logging"
	"rivaas.dev/dispatch/metrics"
	"rivaas.dev/dispatch/middleware/accesslog"
	"rivaas.dev/dispatch/middleware/compression"
	"rivaas.dev/dispatch/middleware/requestid"
	"rivaas.dev/dispatch/middleware/security"
	"rivaas.dev/dispatch/router"
	"rivaas.dev/dispatch/tracing"
	"rivaas.dev/dispatch/transport"
	"rivaas.dev/dispatch/validation"
)

const settingsYAML = `
service:
  name: orders
  version: 1.0.0
server:
  addr: 127.0.0.1:0
  shutdown_grace: 2s
schedulers:
  - name: io
    workers: 4
log:
  level: debug
metrics:
  provider: prometheus
errors:
  format: rfc9457
`

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type order struct {
	ID   string `json:"id"`
	Item string `json:"item" validate:"required"`
	Qty  int    `json:"qty" validate:"min=1"`
}

type stack struct {
	url      string
	logs     *syncBuffer
	spans    *tracetest.SpanRecorder
	recorder *metrics.Recorder
	cancel   context.CancelFunc
	done     chan error
}

func startStack(extraYAML string) *stack {
	s := &stack{logs: &syncBuffer{}, spans: tracetest.NewSpanRecorder(), done: make(chan error, 1)}

	settings, err := config.Load(context.Background(),
		config.WithContent([]byte(settingsYAML), config.FormatYAML),
		config.WithContent([]byte(extraYAML), config.FormatYAML),
	)
	Expect(err).NotTo(HaveOccurred())

	logger, err := settings.Logger(logging.WithOutput(s.logs))
	Expect(err).NotTo(HaveOccurred())
	log := logger.Logger()

	pools, err := settings.BuildSchedulers(log)
	Expect(err).NotTo(HaveOccurred())

	s.recorder, err = settings.BuildMetrics(log)
	Expect(err).NotTo(HaveOccurred())
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.spans))
	tracer := tracing.MustNew(tracing.WithTracerProvider(tp))

	opts := []dispatch.Option{
		dispatch.WithLogger(log),
		dispatch.WithSchedulers(pools...),
		dispatch.WithErrorFormatter(settings.Formatter()),
		dispatch.WithObserver(
			requestid.New(),
			tracer,
			s.recorder,
			accesslog.New(accesslog.WithLogger(log)),
			security.New(),
		),
		dispatch.WithResponseAdvice(compression.New()),
	}
	v := validation.MustNew()
	opts = append(opts,
		dispatch.WithEntityAdvice(validation.EntityAdvice(v)),
		dispatch.WithExceptionHandlers(validation.ExceptionHandler()),
	)
	opts = append(opts, dispatch.WithInterceptors(settings.Interceptors(log)...))
	if limiter := settings.ConnLimiter(log); limiter != nil {
		opts = append(opts, dispatch.WithConnInit(limiter.Init))
	}
	d := dispatch.MustNew(opts...)
	s.recorder.ObserveDispatcher(d)
	registerRoutes(d)

	srv, err := transport.New(d, settings.ServerOptions(log)...)
	Expect(err).NotTo(HaveOccurred())
	ln, err := net.Listen("tcp", settings.Server.Addr)
	Expect(err).NotTo(HaveOccurred())
	s.url = "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() { s.done <- srv.RunListener(ctx, ln) }()

	DeferCleanup(func() {
		s.stop()
		_ = tp.Shutdown(context.Background())
		_ = s.recorder.Shutdown(context.Background())
	})
	return s
}

func (s *stack) stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	Eventually(s.done, 5*time.Second).Should(Receive(BeNil()))
}

func registerRoutes(d *dispatch.Dispatcher) {
	must := func(_ *router.Route, err error) { Expect(err).NotTo(HaveOccurred()) }

	must(d.GET("/orders/:id", handler.MustNew(func(id string) order {
		return order{ID: id, Item: "book", Qty: 1}
	}, handler.Path("id")), router.WithProduces("application/json")))

	must(d.POST("/orders", handler.MustNew(func(o order) order {
		o.ID = "new"
		return o
	}, handler.Body()), router.WithConsumes("application/json"), router.WithProduces("application/json")))

	must(d.GET("/reports/:name", handler.MustNew(func(name string) handler.Future {
		return handler.Async(func() (string, error) {
			time.Sleep(10 * time.Millisecond)
			return "report " + name, nil
		})
	}, handler.Path("name")), router.WithScheduler("io"), router.WithProduces("text/plain")))

	must(d.GET("/catalog", handler.MustNew(func() string {
		return strings.Repeat("catalog entry\n", 200)
	}), router.WithProduces("text/plain")))
}

func get(url string, header http.Header) (*http.Response, []byte) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	Expect(err).NotTo(HaveOccurred())
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, body
}

var _ = Describe("Dispatch over HTTP", func() {
	var s *stack

	BeforeEach(func() {
		s = startStack("{}")
	})

	It("serves a matched route with request id and trace context", func() {
		header := http.Header{}
		header.Set("Traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
		resp, body := get(s.url+"/orders/42", header)

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(HavePrefix("application/json"))
		Expect(resp.Header.Get(requestid.DefaultHeader)).NotTo(BeEmpty())
		Expect(resp.Header.Get("X-Frame-Options")).To(Equal("DENY"))

		var got order
		Expect(json.Unmarshal(body, &got)).To(Succeed())
		Expect(got).To(Equal(order{ID: "42", Item: "book", Qty: 1}))

		Eventually(s.spans.Ended).Should(HaveLen(1))
		span := s.spans.Ended()[0]
		Expect(span.Name()).To(Equal("GET /orders/:id"))
		Expect(span.SpanContext().TraceID().String()).To(Equal("4bf92f3577b34da6a3ce929d0e0e4736"))

		Eventually(s.logs.String).Should(ContainSubstring(`"route":"/orders/:id"`))
		Expect(s.logs.String()).To(ContainSubstring(`"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`))
		Expect(s.logs.String()).To(ContainSubstring(resp.Header.Get(requestid.DefaultHeader)))
	})

	It("answers invalid bodies with a problem document", func() {
		resp, err := http.Post(s.url+"/orders", "application/json", strings.NewReader(`{"item":"","qty":0}`))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(resp.Header.Get("Content-Type")).To(HavePrefix("application/problem+json"))
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(And(ContainSubstring("item"), ContainSubstring("qty")))
	})

	It("accepts valid bodies", func() {
		resp, err := http.Post(s.url+"/orders", "application/json", strings.NewReader(`{"item":"pen","qty":2}`))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var got order
		Expect(json.NewDecoder(resp.Body).Decode(&got)).To(Succeed())
		Expect(got).To(Equal(order{ID: "new", Item: "pen", Qty: 2}))
	})

	It("completes asynchronous results on a worker pool", func() {
		resp, body := get(s.url+"/reports/daily", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal("report daily"))
	})

	It("compresses large bodies the client accepts", func() {
		header := http.Header{}
		header.Set("Accept-Encoding", "br")
		resp, body := get(s.url+"/catalog", header)

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Encoding")).To(Equal("br"))
		plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(plain)).To(Equal(strings.Repeat("catalog entry\n", 200)))
	})

	It("answers unknown paths with 404 and logs them", func() {
		resp, _ := get(s.url+"/nowhere", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		Expect(resp.Header.Get(requestid.DefaultHeader)).NotTo(BeEmpty())
		Eventually(s.logs.String).Should(ContainSubstring(`"status":404`))
	})

	It("exports request metrics", func() {
		get(s.url+"/orders/1", nil)
		get(s.url+"/orders/2", nil)

		h, err := s.recorder.Handler()
		Expect(err).NotTo(HaveOccurred())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(rec.Body.String()).To(And(
			ContainSubstring("dispatch_requests_total"),
			ContainSubstring(`route="/orders/:id"`),
			ContainSubstring("dispatch_connections"),
		))
	})

	It("drains and stops when its context ends", func() {
		get(s.url+"/orders/1", nil)
		s.stop()
		Expect(s.logs.String()).To(ContainSubstring("dispatcher drained"))

		_, err := http.Get(s.url + "/orders/1")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Connection admission", func() {
	It("closes connections above the limit", func() {
		s := startStack("limits:\n  max_connections: 1\n")
		addr := strings.TrimPrefix(s.url, "http://")

		first, err := net.Dial("tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		defer first.Close()
		_, err = io.WriteString(first, "GET /orders/1 HTTP/1.1\r\nHost: test\r\n\r\n")
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.ReadResponse(bufio.NewReader(first), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		_ = resp.Body.Close()

		second, err := net.Dial("tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		defer second.Close()
		_ = second.SetDeadline(time.Now().Add(2 * time.Second))
		_, _ = io.WriteString(second, "GET /orders/2 HTTP/1.1\r\nHost: test\r\n\r\n")
		_, err = http.ReadResponse(bufio.NewReader(second), nil)
		Expect(err).To(HaveOccurred())

		Expect(first.Close()).To(Succeed())
		Eventually(func() int {
			resp, err := http.Get(s.url + "/orders/3")
			if err != nil {
				return 0
			}
			_ = resp.Body.Close()
			return resp.StatusCode
		}, 2*time.Second, 20*time.Millisecond).Should(Equal(http.StatusOK))
	})
})

var _ = Describe("Request limits", func() {
	It("rejects oversize bodies and clients over their rate", func() {
		s := startStack("limits:\n  request_rate: 0.001\n  request_burst: 2\n  max_body_bytes: 16\n")

		resp, _ := get(s.url+"/orders/1", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("RateLimit-Limit")).To(Equal("2"))

		big, err := http.Post(s.url+"/orders", "application/json",
			strings.NewReader(`{"item":"a very long item name","qty":1}`))
		Expect(err).NotTo(HaveOccurred())
		_ = big.Body.Close()
		Expect(big.StatusCode).To(Equal(http.StatusRequestEntityTooLarge))

		limited, _ := get(s.url+"/orders/1", nil)
		Expect(limited.StatusCode).To(Equal(http.StatusTooManyRequests))
		Expect(limited.Header.Get("Retry-After")).NotTo(BeEmpty())
		Expect(limited.Header.Get("Content-Type")).To(HavePrefix("application/problem+json"))
	})
})
