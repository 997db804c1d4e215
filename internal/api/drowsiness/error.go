package drowsiness

import (
	"net/http"

	"DrowsyGuard/pkg/response"
)

var (
	ErrNoFrameUploaded         = response.NewError(http.StatusBadRequest, "No frame uploaded")
	ErrDecodeFailure           = response.NewError(http.StatusBadRequest, "frame could not be decoded")
	ErrModelUninitialized      = response.NewError(http.StatusServiceUnavailable, "detection models are not initialized")
	ErrInvalidLandmarkCount    = response.NewError(http.StatusBadGateway, "landmark extractor returned an invalid landmark count")
	ErrFaceLocatorFailed       = response.NewError(http.StatusBadGateway, "face locator failed")
	ErrLandmarkExtractorFailed = response.NewError(http.StatusBadGateway, "landmark extractor failed")
	ErrInternalServerError     = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrFrameTimeout            = response.NewError(http.StatusRequestTimeout, "Request Timeout")

	ErrAlertStoreUnavailable = response.NewError(http.StatusServiceUnavailable, "alert store is not configured")
	ErrAlertNotFound         = response.NewError(http.StatusNotFound, "no alert recorded for this source")
)
