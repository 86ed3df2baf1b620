package adb

import (
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/moyoez/gesubridge-go/types"
)

// PairingPayload builds the wireless-debugging pairing string Android
// scans from its "Pair device with QR code" screen.
func PairingPayload(host string, port int, code string) string {
	return fmt.Sprintf("WIFI:T:ADB;S:%s:%d;P:%s;;", host, port, code)
}

// PairingQR renders the pairing payload as a PNG of size pixels.
func PairingQR(host string, port int, code string, size int) ([]byte, error) {
	if host == "" || port <= 0 || code == "" {
		return nil, types.NewInvalidPathError("host, port and code are required for pairing")
	}
	png, err := qrcode.Encode(PairingPayload(host, port, code), qrcode.Medium, size)
	if err != nil {
		return nil, types.NewAdbError("failed to encode pairing QR: %v", err)
	}
	return png, nil
}
