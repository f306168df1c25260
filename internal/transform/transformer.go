package transform

import (
	"bytes"
	"context"
	"errors"
	"image"
	"time"

	"github.com/abdul-hamid-achik/resize.cheap/internal/codec"
	"github.com/abdul-hamid-achik/resize.cheap/internal/logger"
	"github.com/abdul-hamid-achik/resize.cheap/internal/tracing"
	"github.com/disintegration/imaging"
)

// Transformer runs the decode, resample, watermark and encode pipeline.
// It holds no per-request state and is safe for concurrent use.
type Transformer struct {
	config *Config
	codecs *codec.Registry
	filter imaging.ResampleFilter
}

func NewTransformer(cfg *Config, codecs *codec.Registry) (*Transformer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if codecs == nil {
		codecs = codec.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filter, err := ParseFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}
	return &Transformer{config: cfg, codecs: codecs, filter: filter}, nil
}

func (t *Transformer) Config() *Config {
	return t.config
}

// Transform runs req to completion and returns exactly one result. Every
// failure, including a panic in a codec, is reported as a failed Result
// carrying req.RequestID.
func (t *Transformer) Transform(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	log := logger.ForRequest(ctx, req.RequestID)

	ctx, span := tracing.StartTransformSpan(ctx, req.RequestID, req.Format, req.Width, req.Height)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log.Error("transform panicked", "panic", r)
			res = failure(req.RequestID, newError(KindContext, req.RequestID, "render panicked: %v", r))
		}
		res.Duration = time.Since(start)
		if !res.Success {
			tracing.RecordError(ctx, res.Err())
			log.Warn("transform failed", "kind", res.ErrorKind, "error", res.Error, "duration_ms", res.Duration.Milliseconds())
		}
	}()

	data, out, err := t.run(ctx, req)
	if err != nil {
		return failure(req.RequestID, err)
	}

	bounds := out.img.Bounds()
	log.Debug("transform completed",
		"width", bounds.Dx(),
		"height", bounds.Dy(),
		"size", len(data),
		"content_type", out.enc.ContentType(),
		"quality", out.quality,
	)

	return Result{
		Success:     true,
		RequestID:   req.RequestID,
		Data:        data,
		ContentType: out.enc.ContentType(),
		Extension:   out.enc.Extension(),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Size:        len(data),
		Quality:     out.quality,
	}
}

type rendered struct {
	img     image.Image
	enc     codec.Encoder
	quality float64
}

func (t *Transformer) run(ctx context.Context, req Request) ([]byte, *rendered, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	enc, err := t.codecs.GetOrError(req.Format)
	if err != nil {
		return nil, nil, &Error{Kind: KindEncode, RequestID: req.RequestID, Err: err}
	}

	decodeSpan := tracing.StartStage(ctx, tracing.StageDecode)
	src, srcFormat, err := decodeSource(req.Source, t.config.MaxSourcePixels)
	decodeSpan.End()
	if err != nil {
		var te *Error
		if errors.As(err, &te) {
			te.RequestID = req.RequestID
			return nil, nil, te
		}
		return nil, nil, &Error{Kind: KindDecode, RequestID: req.RequestID, Err: err}
	}

	srcBounds := src.Bounds()
	w, h := OutputSize(srcBounds.Dx(), srcBounds.Dy(), req.Width, req.Height, req.KeepAspectRatio)
	if exceedsBudget(w, h, t.config.MaxOutputPixels) {
		return nil, nil, newError(KindContext, req.RequestID,
			"output surface %dx%d exceeds the %d pixel limit", w, h, t.config.MaxOutputPixels)
	}

	tracing.AnnotateOutput(ctx, srcFormat, w, h)
	logger.ForRequest(ctx, req.RequestID).Debug("rendering",
		"source_format", srcFormat,
		"source_width", srcBounds.Dx(),
		"source_height", srcBounds.Dy(),
		"width", w,
		"height", h,
	)

	renderSpan := tracing.StartStage(ctx, tracing.StageRender)
	var img image.Image = imaging.Resize(src, w, h, t.filter)
	if req.Watermark {
		img, err = applyWatermark(img)
	}
	renderSpan.End()
	if err != nil {
		return nil, nil, &Error{Kind: KindContext, RequestID: req.RequestID, Err: err}
	}

	quality := EffectiveQuality(req.Quality, req.CompressionFactor, t.config.QualityFloor)

	encodeSpan := tracing.StartStage(ctx, tracing.StageEncode)
	var buf bytes.Buffer
	err = enc.Encode(&buf, img, quality)
	encodeSpan.End()
	if err != nil {
		return nil, nil, &Error{Kind: KindEncode, RequestID: req.RequestID, Err: err}
	}
	if buf.Len() == 0 {
		return nil, nil, newError(KindEncode, req.RequestID, "%s encoder produced no output", enc.Name())
	}

	return buf.Bytes(), &rendered{img: img, enc: enc, quality: quality}, nil
}

// exceedsBudget reports whether a w x h surface holds more than max pixels
// without computing w*h, which can overflow.
func exceedsBudget(w, h, max int) bool {
	return w > max/h
}
