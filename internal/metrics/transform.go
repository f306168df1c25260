package metrics

import (
	"github.com/abdul-hamid-achik/resize.cheap/internal/codec"
	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
)

// ObserveTransform records a finished transform. It has the shape of
// transform.Observer so it can be passed to transform.WithObserver.
func ObserveTransform(req transform.Request, res transform.Result) {
	format := formatLabel(req.Format)

	if !res.Success {
		TransformsTotal.WithLabelValues(format, "error").Inc()
		TransformDuration.WithLabelValues(format, "error").Observe(res.Duration.Seconds())
		TransformErrorsTotal.WithLabelValues(string(res.ErrorKind)).Inc()
		return
	}

	TransformsTotal.WithLabelValues(format, "success").Inc()
	TransformDuration.WithLabelValues(format, "success").Observe(res.Duration.Seconds())
	TransformOutputBytes.WithLabelValues(format).Observe(float64(res.Size))
}

// formatLabel keeps label cardinality bounded to the registered formats.
func formatLabel(format string) string {
	switch mime := codec.Normalize(format); mime {
	case codec.JPEG, codec.PNG, codec.GIF, codec.BMP, codec.TIFF, codec.WebP:
		return mime
	default:
		return "other"
	}
}
