package exports

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/internal/models"
	"github.com/lumen-tutoring/booking-backend/pkg/queue"
)

type oneBooking struct{ b *models.Booking }

func (o oneBooking) Get(_ context.Context, id string) (*models.Booking, error) {
	if id == o.b.BookingID || id == o.b.ID.String() {
		return o.b, nil
	}
	return nil, bookings.ErrNotFound
}

type captureQueue struct {
	got []queue.ExportPayload
	err error
}

func (q *captureQueue) EnqueueExport(_ context.Context, p queue.ExportPayload) error {
	if q.err != nil {
		return q.err
	}
	q.got = append(q.got, p)
	return nil
}

type fakePresigner struct{}

func (fakePresigner) PresignExport(_ context.Context, key string) (string, error) {
	return "https://s3.test/" + key + "?sig=1", nil
}

func router(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/admin/bookings/:id/analytics/export", h.Request)
	r.GET("/api/admin/exports/*key", h.DownloadURL)
	return r
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRequest_QueuesExport(t *testing.T) {
	b := &models.Booking{BookingID: "BK-LX2-ABC123", MagicLinkID: "tok"}
	q := &captureQueue{}
	h := NewHandler(oneBooking{b: b}, q, nil, nil)
	h.now = func() time.Time { return time.Unix(1718000000, 0) }

	w := serve(router(h), http.MethodPost, "/api/admin/bookings/BK-LX2-ABC123/analytics/export")
	require.Equal(t, http.StatusAccepted, w.Code)
	var body struct {
		Data ExportQueued `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "exports/BK-LX2-ABC123/1718000000.json", body.Data.Key)
	require.Len(t, q.got, 1)
	assert.Equal(t, "tok", q.got[0].MagicLinkID)
	assert.Equal(t, body.Data.Key, q.got[0].Key)
}

func TestRequest_Errors(t *testing.T) {
	b := &models.Booking{BookingID: "BK-1", MagicLinkID: "tok"}
	assert.Equal(t, http.StatusNotFound,
		serve(router(NewHandler(oneBooking{b: b}, &captureQueue{}, nil, nil)), http.MethodPost, "/api/admin/bookings/BK-X/analytics/export").Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		serve(router(NewHandler(oneBooking{b: b}, nil, nil, nil)), http.MethodPost, "/api/admin/bookings/BK-1/analytics/export").Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		serve(router(NewHandler(oneBooking{b: b}, &captureQueue{err: errors.New("down")}, nil, nil)), http.MethodPost, "/api/admin/bookings/BK-1/analytics/export").Code)
}

func TestDownloadURL(t *testing.T) {
	r := router(NewHandler(nil, nil, fakePresigner{}, nil))

	w := serve(r, http.MethodGet, "/api/admin/exports/exports/BK-1/1718000000.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://s3.test/exports/BK-1/1718000000.json")

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/admin/exports/secrets/x.json").Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		serve(router(NewHandler(nil, nil, nil, nil)), http.MethodGet, "/api/admin/exports/exports/BK-1/1.json").Code)
}
