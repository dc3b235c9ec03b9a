package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/monument-sim/monument/pkg/services"
	"github.com/monument-sim/monument/pkg/store"
)

// mapServiceError maps service-layer errors to HTTP error responses.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	var staleErr *services.SnapshotStaleError
	if errors.As(err, &staleErr) {
		return echo.NewHTTPError(http.StatusBadRequest, staleErr.Error())
	}
	var phaseErr *services.PhaseClosedError
	if errors.As(err, &phaseErr) {
		return echo.NewHTTPError(http.StatusBadRequest, phaseErr.Error())
	}
	var dupErr *services.AlreadySubmittedError
	if errors.As(err, &dupErr) {
		return echo.NewHTTPError(http.StatusBadRequest, dupErr.Error())
	}
	var scopeErr *services.ScopeDeniedError
	if errors.As(err, &scopeErr) {
		return echo.NewHTTPError(http.StatusForbidden, scopeErr.Error())
	}
	if errors.Is(err, services.ErrAuthFailed) {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication failed")
	}
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if errors.Is(err, store.ErrNamespaceNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if errors.Is(err, store.ErrInvalidNamespace) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
