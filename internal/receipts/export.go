package receipts

import (
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// MarshalSnapshot serializes the current snapshot as a JSON array, oldest first.
// An empty log encodes as "[]".
func (l *Log) MarshalSnapshot() ([]byte, error) {
	payload, err := json.Marshal(l.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode receipts: %w", err)
	}
	return payload, nil
}

// QRCode renders the serialized snapshot as a PNG QR code of size x size
// pixels. Non-positive sizes use the default; sizes are capped at 1024.
func (l *Log) QRCode(size int) ([]byte, error) {
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	payload, err := l.MarshalSnapshot()
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(string(payload), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
