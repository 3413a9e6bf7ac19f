package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"ms-booking/internal/models"

	"github.com/skip2/go-qrcode"
)

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// checkInPayload is what venue staff scan at the door. The QR code never
// carries pricing.
type checkInPayload struct {
	BookingID string `json:"booking_id"`
	Ref       string `json:"ref"`
	EventID   string `json:"event_id"`
	UserID    string `json:"user_id"`
	Quantity  int    `json:"quantity"`
}

func (q *QRGenerator) GenerateEncryptedQR(booking models.Booking) ([]byte, error) {
	data, err := json.Marshal(checkInPayload{
		BookingID: booking.BookingID,
		Ref:       booking.Ref,
		EventID:   booking.EventID,
		UserID:    booking.UserID,
		Quantity:  booking.Quantity,
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, q.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
