package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/shopcart/internal/domain/product"
)

// DefaultURL is the public catalog endpoint.
const DefaultURL = "https://fakestoreapi.com/products"

// StatusError is returned when the catalog responds with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %s", e.Status)
}

// HTTPSource fetches the catalog with a single GET. There is no retry and no
// timeout besides the request context.
type HTTPSource struct {
	url    string
	client *http.Client
}

type httpOptions struct {
	client         *http.Client
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures HTTPSource.
type Option func(*httpOptions)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *httpOptions) { o.client = c }
}

// WithTracerProvider sets the tracer provider of the default client.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *httpOptions) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider of the default client.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *httpOptions) { o.meterProvider = mp }
}

// NewHTTPSource creates a catalog source for url. An empty url means DefaultURL.
func NewHTTPSource(url string, opts ...Option) *HTTPSource {
	var o httpOptions
	for _, opt := range opts {
		opt(&o)
	}
	if url == "" {
		url = DefaultURL
	}
	client := o.client
	if client == nil {
		var transportOpts []otelhttp.Option
		if o.tracerProvider != nil {
			transportOpts = append(transportOpts, otelhttp.WithTracerProvider(o.tracerProvider))
		}
		if o.meterProvider != nil {
			transportOpts = append(transportOpts, otelhttp.WithMeterProvider(o.meterProvider))
		}
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport, transportOpts...),
		}
	}
	return &HTTPSource{url: url, client: client}
}

// Fetch downloads and decodes the full product list.
func (s *HTTPSource) Fetch(ctx context.Context) ([]product.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "get catalog")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return decodeProducts(jx.Decode(resp.Body, 4096))
}
