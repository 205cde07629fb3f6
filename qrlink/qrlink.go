/*
Package qrlink builds equipment deep links and renders them as
scannable QR images. Both operations are stateless.
*/
package qrlink

import (
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Builder constructs deep links for equipment items from a configured
// base URL.
type Builder struct {
	BaseURL string
}

// NewBuilder creates a Builder. A trailing slash on base is tolerated.
func NewBuilder(base string) Builder {
	return Builder{BaseURL: strings.TrimRight(base, "/")}
}

// DeepLink returns the URL a scanned code resolves to, carrying the
// equipment id and display name as query parameters.
func (b Builder) DeepLink(equipmentID, equipmentName string) string {
	q := url.Values{}
	q.Set("equipo_id", equipmentID)
	q.Set("nombre_equipo", equipmentName)
	return fmt.Sprintf("%s/?%s", b.BaseURL, q.Encode())
}

// RenderPNG encodes text as a PNG QR image. Low error correction keeps
// codes compact; the labels these print on are small.
func RenderPNG(text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("nothing to encode")
	}
	png, err := qrcode.Encode(text, qrcode.Low, 256)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}
