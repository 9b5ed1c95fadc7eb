package inference

import (
	"encoding/base64"
	"net/http"
)

// EncodeImageBase64 encodes raw image bytes to base64.
func EncodeImageBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// ImageDataURL returns a data: URL for the image, sniffing its MIME type.
func ImageDataURL(data []byte) string {
	mime := http.DetectContentType(data)
	if mime == "application/octet-stream" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + EncodeImageBase64(data)
}
