package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/equipviz/internal/dataset"
	"github.com/jask/equipviz/internal/fixtures"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: baseURL + "/", Username: fixtures.Username, Password: fixtures.Password})
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	t.Parallel()
	_, err := New(Options{BaseURL: "localhost"})
	require.Error(t, err)
}

func TestIngestReturnsRecord(t *testing.T) {
	t.Parallel()
	srv := fixtures.NewServer(t)
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rec, err := c.Ingest(ctx, "plant.csv", []byte(fixtures.SampleCSV))
	require.NoError(t, err)
	require.Equal(t, "plant.csv", rec.Name)
	require.Equal(t, 5, rec.Summary.TotalCount)
	require.Equal(t, map[string]int{"Reactor": 2, "Mixer": 1, "Separator": 1, "Pump": 1}, rec.Summary.TypeCounts)
	require.Len(t, rec.Rows, 5)
	require.Equal(t, "Reactor-001", rec.Rows[0].Name)

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	require.Equal(t, "plant.csv", uploads[0].Filename)
	require.Equal(t, fixtures.SampleCSV, string(uploads[0].Data))
}

func TestIngestValidationError(t *testing.T) {
	t.Parallel()
	srv := fixtures.NewServer(t)
	srv.OnIngest = func(string, []byte) (dataset.DatasetRecord, int, string) {
		return dataset.DatasetRecord{}, http.StatusBadRequest, "could not convert string to float: 'abc'"
	}
	c := newTestClient(t, srv.URL)

	_, err := c.Ingest(context.Background(), "bad.csv", []byte("x"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, http.StatusBadRequest, verr.Status)
	require.Equal(t, "could not convert string to float: 'abc'", Message(err))
}

func TestIngestServerErrorWithoutBody(t *testing.T) {
	t.Parallel()
	srv := fixtures.NewServer(t)
	srv.OnIngest = func(string, []byte) (dataset.DatasetRecord, int, string) {
		return dataset.DatasetRecord{}, http.StatusInternalServerError, ""
	}
	c := newTestClient(t, srv.URL)

	_, err := c.Ingest(context.Background(), "x.csv", []byte("x"))
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, http.StatusInternalServerError, terr.Status)
	require.Equal(t, "request failed with status code 500", Message(err))
}

func TestBadCredentialsAreTransportErrors(t *testing.T) {
	t.Parallel()
	srv := fixtures.NewServer(t)
	c, err := New(Options{BaseURL: srv.URL, Username: "admin", Password: "wrong"})
	require.NoError(t, err)

	_, err = c.ListHistory(context.Background())
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, http.StatusUnauthorized, terr.Status)
	require.Equal(t, "Invalid username/password.", Message(err))
}

func TestListHistoryOrder(t *testing.T) {
	t.Parallel()
	srv := fixtures.NewServer(t)
	older := fixtures.SampleRecord("older.csv", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := fixtures.SampleRecord("newer.csv", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	srv.Seed(newer, older)
	c := newTestClient(t, srv.URL)

	entries, err := c.ListHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, newer.ID, entries[0].ID)
	require.Equal(t, older.ID, entries[1].ID)
	require.Equal(t, 5, entries[0].Summary.TotalCount)
}

func TestListHistoryTransportFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.ListHistory(context.Background())
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	require.Zero(t, terr.Status)
	require.NotEmpty(t, Message(err))
}

func TestListHistoryMalformedBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.ListHistory(context.Background())
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
}

func TestRenderReport(t *testing.T) {
	t.Parallel()
	srv := fixtures.NewServer(t)
	rec := fixtures.SampleRecord("plant.csv", time.Now())
	srv.Seed(rec)
	c := newTestClient(t, srv.URL)

	data, err := c.RenderReport(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, fixtures.ReportBytes(rec.ID), data)

	_, err = c.RenderReport(context.Background(), "abc123de-missing")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "abc123de-missing", nf.ID)

	_, err = c.RenderReport(context.Background(), " ")
	require.True(t, errors.As(err, &nf))
}

func TestRequestsCarryAuthAndRequestID(t *testing.T) {
	t.Parallel()
	var gotUser, gotPass, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		gotID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	entries, err := c.ListHistory(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Equal(t, fixtures.Username, gotUser)
	require.Equal(t, fixtures.Password, gotPass)
	require.Len(t, gotID, 36)
}
