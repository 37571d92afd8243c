package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jask/equipviz/internal/dataset"
	"github.com/jask/equipviz/internal/logger"
)

const (
	opIngest  = "ingest dataset"
	opHistory = "list history"
	opReport  = "render report"
)

// Gateway is the analysis backend as seen by the client. Each call is a single
// request/response; retrying is the caller's decision.
type Gateway interface {
	Ingest(ctx context.Context, filename string, data []byte) (dataset.DatasetRecord, error)
	ListHistory(ctx context.Context) ([]dataset.HistoryEntry, error)
	RenderReport(ctx context.Context, id string) ([]byte, error)
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	Username string
	Password string
	// Timeout bounds each request; zero leaves requests unbounded.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logger.Logger
}

// Client talks to the analysis service over HTTP with basic auth.
type Client struct {
	base     string
	username string
	password string
	http     *http.Client
	log      *logger.Logger
	tracer   trace.Tracer
}

var _ Gateway = (*Client)(nil)

// New validates the base address and builds a Client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base url %q", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   opts.Timeout,
		}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		base:     base,
		username: opts.Username,
		password: opts.Password,
		http:     hc,
		log:      log.With("component", "gateway"),
		tracer:   otel.Tracer("github.com/jask/equipviz/internal/gateway"),
	}, nil
}

// Ingest uploads raw CSV bytes as multipart field "file" and returns the analysed record.
func (c *Client) Ingest(ctx context.Context, filename string, data []byte) (dataset.DatasetRecord, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.ingest", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("file.name", filename), attribute.Int("file.size", len(data))))
	defer span.End()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return dataset.DatasetRecord{}, c.fail(span, &TransportError{Op: opIngest, Err: err})
	}
	if _, err := part.Write(data); err != nil {
		return dataset.DatasetRecord{}, c.fail(span, &TransportError{Op: opIngest, Err: err})
	}
	if err := mw.Close(); err != nil {
		return dataset.DatasetRecord{}, c.fail(span, &TransportError{Op: opIngest, Err: err})
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/datasets/", &body)
	if err != nil {
		return dataset.DatasetRecord{}, c.fail(span, &TransportError{Op: opIngest, Err: err})
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := c.do(req, opIngest, "")
	if err != nil {
		return dataset.DatasetRecord{}, c.fail(span, err)
	}
	rec, err := dataset.DecodeRecord(raw)
	if err != nil {
		return dataset.DatasetRecord{}, c.fail(span, &TransportError{Op: opIngest, Err: err})
	}
	span.SetAttributes(attribute.String("dataset.id", rec.ID), attribute.Int("dataset.rows", len(rec.Rows)))
	c.log.Info("dataset ingested", "dataset_id", rec.ID, "name", rec.Name, "rows", len(rec.Rows))
	return rec, nil
}

// ListHistory returns recent datasets in backend order.
func (c *Client) ListHistory(ctx context.Context) ([]dataset.HistoryEntry, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.list_history", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := c.newRequest(ctx, http.MethodGet, "/api/history/", nil)
	if err != nil {
		return nil, c.fail(span, &TransportError{Op: opHistory, Err: err})
	}
	raw, err := c.do(req, opHistory, "")
	if err != nil {
		return nil, c.fail(span, err)
	}
	entries, err := dataset.DecodeHistory(raw)
	if err != nil {
		return nil, c.fail(span, &TransportError{Op: opHistory, Err: err})
	}
	span.SetAttributes(attribute.Int("history.len", len(entries)))
	return entries, nil
}

// RenderReport fetches the PDF report for id as opaque bytes.
func (c *Client) RenderReport(ctx context.Context, id string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.render_report", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("dataset.id", id)))
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return nil, c.fail(span, &NotFoundError{Op: opReport})
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/datasets/"+url.PathEscape(id)+"/generate_report/", nil)
	if err != nil {
		return nil, c.fail(span, &TransportError{Op: opReport, Err: err})
	}
	raw, err := c.do(req, opReport, id)
	if err != nil {
		return nil, c.fail(span, err)
	}
	span.SetAttributes(attribute.Int("report.size", len(raw)))
	return raw, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// do sends req and classifies the outcome into the error taxonomy.
func (c *Client) do(req *http.Request, op, id string) ([]byte, error) {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}
	c.log.Debug("backend response",
		"op", op,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"),
		"elapsed", time.Since(started),
	)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Op: op, ID: id}
	}
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Error != "" {
			return nil, &ValidationError{Op: op, Status: resp.StatusCode, Message: eb.Error}
		}
		if eb.Detail != "" {
			return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(eb.Detail)}
		}
	}
	return nil, &TransportError{
		Op:     op,
		Status: resp.StatusCode,
		Err:    fmt.Errorf("request failed with status code %d", resp.StatusCode),
	}
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.log.Warn("backend call failed", "error", err.Error())
	return err
}
