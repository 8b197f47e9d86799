package apierr

import (
	"context"
	"errors"
	"net/http"

	"github.com/onnwee/metro-map/backend/internal/city"
	"github.com/onnwee/metro-map/backend/internal/sim"
	"github.com/onnwee/metro-map/backend/internal/terrain"
	"github.com/onnwee/metro-map/backend/internal/tessellation"
)

var domainErrors = []struct {
	target error
	code   ErrorCode
	status int
}{
	{city.ErrPolygonNotFound, ErrPolygonNotFound, http.StatusNotFound},
	{city.ErrNodeNotFound, ErrNodeNotFound, http.StatusNotFound},
	{city.ErrInvalidType, ErrPolygonInvalidType, http.StatusBadRequest},
	{city.ErrInvalidAlphaTarget, ErrSimulationInvalidAlpha, http.StatusBadRequest},
	{city.ErrInvalidSites, ErrCityInvalidSites, http.StatusBadRequest},
	{city.ErrInvalidOptions, ErrCityInvalidOptions, http.StatusBadRequest},
	{city.ErrInvalidProfile, ErrCityInvalidOptions, http.StatusBadRequest},
	{city.ErrNoSubject, ErrDragNoSubject, http.StatusNotFound},
	{city.ErrNotDragging, ErrDragNotDragging, http.StatusConflict},
	{terrain.ErrUnknownLayer, ErrLayerUnknown, http.StatusBadRequest},
	{terrain.ErrReadOnlyLayer, ErrLayerReadOnly, http.StatusBadRequest},
	{terrain.ErrInvalidBrush, ErrLayerInvalidBrush, http.StatusBadRequest},
	{terrain.ErrInvalidWaterline, ErrLayerInvalidWaterline, http.StatusBadRequest},
	{terrain.ErrSiteOutOfRange, ErrPolygonNotFound, http.StatusNotFound},
	{tessellation.ErrNoSites, ErrCityInvalidSites, http.StatusBadRequest},
	{tessellation.ErrInvalidExtent, ErrCityInvalidOptions, http.StatusBadRequest},
	{tessellation.ErrDegenerate, ErrCityGeneration, http.StatusUnprocessableEntity},
	{sim.ErrInvalidNode, ErrCityGeneration, http.StatusUnprocessableEntity},
}

// FromError maps an error returned by the city packages onto a structured
// API error. Unknown errors become SYSTEM_INTERNAL without leaking their
// message.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return SystemTimeout("")
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.target) {
			return New(d.code, err.Error(), d.status)
		}
	}
	return SystemInternal("")
}

// WriteDomainError maps err and writes it with the request id attached.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	WriteErrorWithContext(w, r, FromError(err))
}
