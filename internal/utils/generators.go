package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBookingReference returns a human friendly reference such as EVT-20250101-K7QX9M
func GenerateBookingReference(now time.Time) string {
	var b strings.Builder
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// Fallback to the uuid generator if random generation fails
			return fmt.Sprintf("EVT-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(ShortID()))
		}
		b.WriteByte(referenceAlphabet[n.Int64()])
	}
	return fmt.Sprintf("EVT-%s-%s", now.UTC().Format("20060102"), b.String())
}

// ShortID is the first eight hex characters of a random UUID
func ShortID() string {
	return uuid.NewString()[:8]
}
