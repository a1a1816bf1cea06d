package api

import (
	"bytes"
	"image/jpeg"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/ecosort/collector-go/internal/errors"
	"github.com/ecosort/collector-go/internal/sample"
	"github.com/ecosort/collector-go/internal/schema"
)

// previewQuality is the JPEG quality of the live preview endpoint; commits
// encode at the configured dataset quality instead.
const previewQuality = 80

// StateResponse reports the active class and every class's live attribute
// values.
type StateResponse struct {
	ActiveClass string                              `json:"activeClass"`
	Classes     map[string]schema.AttributeValueMap `json:"classes"`
}

// UpdateRequest is the body of POST /attributes.
type UpdateRequest struct {
	Class     string `json:"class"`
	Attribute string `json:"attribute"`
	Value     any    `json:"value"`
}

// ClassRequest is the body of POST /class and POST /reset.
type ClassRequest struct {
	Class string `json:"class"`
}

// CommitResponse reports the outcome of a commit. CSVError is set when the
// sample was persisted but its CSV row was not.
type CommitResponse struct {
	ImageFile   string         `json:"imageFile"`
	SidecarFile string         `json:"sidecarFile"`
	Sample      *sample.Sample `json:"sample"`
	CSVError    string         `json:"csvError,omitempty"`
}

// GetState returns the active class and all live attribute values.
func (c *Controller) GetState(ctx echo.Context) error {
	classes := make(map[string]schema.AttributeValueMap)
	for _, label := range c.Collector.Labels() {
		snapshot, err := c.Collector.Snapshot(label)
		if err != nil {
			return c.httpError(ctx, err)
		}
		classes[label] = snapshot
	}
	return ctx.JSON(http.StatusOK, StateResponse{
		ActiveClass: c.Collector.ActiveClass(),
		Classes:     classes,
	})
}

// GetSchemas returns the loaded attribute schema per class so the front-end
// can render its controls.
func (c *Controller) GetSchemas(ctx echo.Context) error {
	schemas := make(map[string]*schema.ClassSchema)
	for _, label := range c.Collector.Labels() {
		s, err := c.Collector.Schema(label)
		if err != nil {
			return c.httpError(ctx, err)
		}
		schemas[label] = s
	}
	return ctx.JSON(http.StatusOK, schemas)
}

// GetFrame serves the most recent frame as JPEG.
func (c *Controller) GetFrame(ctx echo.Context) error {
	frame, ok := c.Source.Frame()
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no frame available")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: previewQuality}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "frame encoding failed")
	}
	return ctx.Blob(http.StatusOK, "image/jpeg", buf.Bytes())
}

// GetStatistics returns the per-class sample counts.
func (c *Controller) GetStatistics(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Collector.Statistics())
}

// SetClass switches the active class.
func (c *Controller) SetClass(ctx echo.Context) error {
	var req ClassRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Collector.SetActiveClass(req.Class); err != nil {
		return c.httpError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]string{"activeClass": req.Class})
}

// UpdateAttribute overwrites one attribute value.
func (c *Controller) UpdateAttribute(ctx echo.Context) error {
	var req UpdateRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Collector.Update(req.Class, req.Attribute, req.Value); err != nil {
		return c.httpError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ResetAttributes restores a class's attributes to schema defaults.
func (c *Controller) ResetAttributes(ctx echo.Context) error {
	var req ClassRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	label := req.Class
	if label == "" {
		label = c.Collector.ActiveClass()
	}
	if err := c.Collector.Reset(label); err != nil {
		return c.httpError(ctx, err)
	}
	snapshot, err := c.Collector.Snapshot(label)
	if err != nil {
		return c.httpError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, snapshot)
}

// CommitSample persists the current frame and attribute state as a new
// sample. CSV failures are reported in the response, not as request errors;
// the labeling session continues.
func (c *Controller) CommitSample(ctx echo.Context) error {
	frame, ok := c.Source.Frame()
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no frame available")
	}

	mode := c.Source.Mode()
	result, err := c.Collector.Commit(frame, sample.CaptureInfo{
		Width:  mode.Width,
		Height: mode.Height,
		FPS:    mode.FPS,
	})
	if err != nil {
		return c.httpError(ctx, err)
	}

	resp := CommitResponse{
		ImageFile:   filepath.Base(result.ImagePath),
		SidecarFile: filepath.Base(result.SidecarPath),
		Sample:      result.Sample,
	}
	if result.CSVError != nil {
		resp.CSVError = result.CSVError.Error()
	}
	return ctx.JSON(http.StatusOK, resp)
}

// ExportAll consolidates every sidecar into one CSV and returns its path.
func (c *Controller) ExportAll(ctx echo.Context) error {
	path, err := c.Collector.ExportAll()
	if err != nil {
		if errors.Is(err, errors.ErrExportEmpty) {
			return echo.NewHTTPError(http.StatusNotFound, "no samples to export")
		}
		return c.httpError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]string{"path": path})
}

// httpError maps core errors onto HTTP status codes. Unknown class/attribute
// errors are caller bugs and map to 400, everything else is a server-side
// failure.
func (c *Controller) httpError(ctx echo.Context, err error) error {
	c.apiLogger.Error("request failed", "path", ctx.Path(), "error", err)
	switch {
	case errors.Is(err, errors.ErrUnknownClass), errors.Is(err, errors.ErrUnknownAttribute):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
