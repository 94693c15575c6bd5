package notify

import (
	"fmt"

	"ms-events/internal/models"

	"github.com/skip2/go-qrcode"
)

// BookingQR renders the booking reference as a PNG the door staff can scan
func BookingQR(b models.Booking) ([]byte, error) {
	content := fmt.Sprintf("%s|%s", b.Reference, b.EventID)
	return qrcode.Encode(content, qrcode.Medium, 256)
}
