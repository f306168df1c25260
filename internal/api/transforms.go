package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/resize.cheap/internal/apperror"
	"github.com/abdul-hamid-achik/resize.cheap/internal/logger"
	"github.com/abdul-hamid-achik/resize.cheap/internal/presets"
	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
	"github.com/google/uuid"
)

const (
	defaultQuality = 0.85
	defaultFormat  = "image/jpeg"
)

// TransformBody is the JSON form of a transform request. Source is a data
// URI; multipart requests carry the same fields as form values.
type TransformBody struct {
	RequestID         string   `json:"request_id,omitempty"`
	Source            string   `json:"source"`
	Preset            string   `json:"preset,omitempty"`
	Width             int      `json:"width,omitempty"`
	Height            int      `json:"height,omitempty"`
	KeepAspectRatio   *bool    `json:"keep_aspect_ratio,omitempty"`
	Format            string   `json:"format,omitempty"`
	Quality           *float64 `json:"quality,omitempty"`
	CompressionFactor *float64 `json:"compression_factor,omitempty"`
	Watermark         bool     `json:"watermark,omitempty"`
}

// parsedRequest is a transform request plus the uploaded file name, if any.
type parsedRequest struct {
	transform.Request
	Filename string
}

func parseTransformRequest(w http.ResponseWriter, r *http.Request, maxSize int64) (*parsedRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		body     TransformBody
		source   []byte
		filename string
		err      error
	)
	switch mediaType {
	case "multipart/form-data":
		body, source, filename, err = parseMultipart(r)
	case "application/json", "":
		err = decodeJSONBody(r, &body)
	default:
		return nil, apperror.WrapWithMessage(nil, "unsupported_media_type",
			"Send multipart/form-data or application/json", http.StatusUnsupportedMediaType)
	}
	if err != nil {
		return nil, err
	}

	if len(source) == 0 {
		source = []byte(body.Source)
	}
	if len(source) == 0 {
		return nil, apperror.ErrMissingSource
	}

	req, err := body.toRequest(logger.RequestID(r.Context()))
	if err != nil {
		return nil, err
	}
	req.Source = source

	return &parsedRequest{Request: req, Filename: filename}, nil
}

func (b TransformBody) toRequest(fallbackID string) (transform.Request, error) {
	req := transform.Request{
		RequestID: b.RequestID,
		Format:    b.Format,
		Watermark: b.Watermark,
	}
	if b.Quality != nil {
		req.Quality = *b.Quality
	}

	if b.Preset != "" {
		if err := presets.Apply(b.Preset, &req); err != nil {
			return req, apperror.WrapWithMessage(err, "unknown_preset",
				fmt.Sprintf("Unknown preset %q", b.Preset), http.StatusBadRequest)
		}
	}

	if b.Width > 0 {
		req.Width = b.Width
	}
	if b.Height > 0 {
		req.Height = b.Height
	}
	if b.KeepAspectRatio != nil {
		req.KeepAspectRatio = *b.KeepAspectRatio
	}
	if b.Quality == nil && req.Quality == 0 {
		req.Quality = defaultQuality
	}
	if req.Format == "" {
		req.Format = defaultFormat
	}
	req.CompressionFactor = b.CompressionFactor

	if req.RequestID == "" {
		req.RequestID = fallbackID
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	return req, nil
}

func decodeJSONBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.Wrap(err, apperror.ErrFileTooLarge)
		}
		if errors.Is(err, io.EOF) {
			return apperror.ErrMissingSource
		}
		return apperror.WrapWithMessage(err, apperror.ErrBadRequest.Code, "Invalid JSON body", http.StatusBadRequest)
	}
	return nil
}

func parseMultipart(r *http.Request) (TransformBody, []byte, string, error) {
	var body TransformBody

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return body, nil, "", apperror.Wrap(err, apperror.ErrFileTooLarge)
		}
		return body, nil, "", apperror.WrapWithMessage(err, apperror.ErrBadRequest.Code, "Invalid multipart body", http.StatusBadRequest)
	}

	var (
		source   []byte
		filename string
	)
	if file, header, err := r.FormFile("file"); err == nil {
		defer func() { _ = file.Close() }()

		if ct := header.Header.Get("Content-Type"); ct != "" && !IsAllowedSourceType(ct) {
			return body, nil, "", apperror.WrapWithMessage(nil, "invalid_file_type",
				"Only JPEG, PNG, GIF, WebP, BMP and TIFF images are accepted", http.StatusBadRequest)
		}
		if source, err = io.ReadAll(file); err != nil {
			return body, nil, "", apperror.Wrap(err, apperror.ErrBadRequest)
		}
		filename = header.Filename
	}

	body.RequestID = r.FormValue("request_id")
	body.Source = r.FormValue("source")
	body.Preset = r.FormValue("preset")
	body.Format = r.FormValue("format")

	var err error
	if body.Width, err = formInt(r, "width"); err != nil {
		return body, nil, "", err
	}
	if body.Height, err = formInt(r, "height"); err != nil {
		return body, nil, "", err
	}
	if body.Quality, err = formFloat(r, "quality"); err != nil {
		return body, nil, "", err
	}
	if body.CompressionFactor, err = formFloat(r, "compression_factor"); err != nil {
		return body, nil, "", err
	}
	if v := r.FormValue("keep_aspect_ratio"); v != "" {
		keep, err := strconv.ParseBool(v)
		if err != nil {
			return body, nil, "", invalidField("keep_aspect_ratio", err)
		}
		body.KeepAspectRatio = &keep
	}
	if v := r.FormValue("watermark"); v != "" {
		if body.Watermark, err = strconv.ParseBool(v); err != nil {
			return body, nil, "", invalidField("watermark", err)
		}
	}

	return body, source, filename, nil
}

func formInt(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidField(name, err)
	}
	return n, nil
}

func formFloat(r *http.Request, name string) (*float64, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, invalidField(name, err)
	}
	return &f, nil
}

func invalidField(name string, err error) error {
	return apperror.WrapWithMessage(err, apperror.ErrBadRequest.Code,
		fmt.Sprintf("Invalid value for %s", name), http.StatusBadRequest)
}
