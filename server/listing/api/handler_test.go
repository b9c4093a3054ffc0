package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	commonauth "listing_server/server/common/auth"
	"listing_server/server/listing/domain"
	"listing_server/server/listing/service"
)

type stubIngestor struct {
	calls int
	asset domain.ImageAsset
	err   error
}

func (s *stubIngestor) ProcessAndStore(context.Context, string, string, []byte, string) (domain.ImageAsset, error) {
	s.calls++
	return s.asset, s.err
}

type stubCoordinator struct {
	listing   domain.Listing
	submitErr error
}

func (s *stubCoordinator) SubmitListing(context.Context, string, service.SubmitListingRequest) (domain.Listing, error) {
	return s.listing, s.submitErr
}

func (s *stubCoordinator) GetListing(context.Context, int64) (domain.Listing, error) {
	return s.listing, nil
}

func (s *stubCoordinator) DeleteListing(context.Context, string, string, int64) error {
	return nil
}

func (s *stubCoordinator) SweepPendingDeletions(context.Context, int) (int, int, error) {
	return 0, 0, nil
}

func newTestRouter(t *testing.T, ingestor *stubIngestor, coord *stubCoordinator) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	authSvc := commonauth.NewService("test-secret", 60)
	token, err := authSvc.GenerateToken("owner-1", "user")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	h := NewHandler(ingestor, coord, authSvc)
	r := gin.New()
	h.RegisterRoutes(r)
	return r, token
}

func TestUploadImageRejectsOversizedBeforeProcessing(t *testing.T) {
	ingestor := &stubIngestor{}
	r, token := newTestRouter(t, ingestor, &stubCoordinator{})

	body := bytes.NewBuffer(nil)
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("image", "huge.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(make([]byte, service.MaxUploadBytes+1)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/images", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
	if ingestor.calls != 0 {
		t.Fatalf("oversized upload must never reach the image pipeline, got %d calls", ingestor.calls)
	}
}

func TestSubmitListingInfraErrorBodyIsGeneric(t *testing.T) {
	coord := &stubCoordinator{
		submitErr: fmt.Errorf("submission gate: %w", errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")),
	}
	r, token := newTestRouter(t, &stubIngestor{}, coord)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if strings.Contains(resp.Error, "dial tcp") {
		t.Fatalf("infrastructure detail leaked to the client: %s", resp.Error)
	}
	if resp.Error != "internal server error" {
		t.Fatalf("expected generic error body, got %q", resp.Error)
	}
}
