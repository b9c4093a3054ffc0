package api

import (
	"errors"
	"net/http"

	"listing_server/server/common/transport/httpresp"
	"listing_server/server/listing/domain"
)

type SweepResponse struct {
	Retried int `json:"retried"`
	Cleared int `json:"cleared"`
}

func NewSweepResponse(retried, cleared int) SweepResponse {
	return SweepResponse{Retried: retried, Cleared: cleared}
}

// imageErrorResponse maps an image-stage error to its HTTP status. Every
// image-stage error happens before any record-store write, so the client can
// simply re-upload.
func imageErrorResponse(err error) (int, httpresp.ErrorResponse) {
	switch {
	case errors.Is(err, domain.ErrInvalidFormat):
		return http.StatusBadRequest, httpresp.NewErrorResponse(domain.ErrInvalidFormat.Error())
	case errors.Is(err, domain.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, httpresp.NewErrorResponse(domain.ErrTooLarge.Error())
	case errors.Is(err, domain.ErrCorruptImage):
		return http.StatusUnprocessableEntity, httpresp.NewErrorResponse(domain.ErrCorruptImage.Error())
	case errors.Is(err, domain.ErrDerivativeGeneration):
		return http.StatusUnprocessableEntity, httpresp.NewErrorResponse(domain.ErrDerivativeGeneration.Error())
	default:
		return http.StatusInternalServerError, httpresp.NewErrorResponse("image upload failed")
	}
}

func toRespViolations(violations []domain.FieldViolation) []httpresp.FieldViolation {
	out := make([]httpresp.FieldViolation, 0, len(violations))
	for _, v := range violations {
		out = append(out, httpresp.FieldViolation{Field: v.Field, Message: v.Message})
	}
	return out
}
