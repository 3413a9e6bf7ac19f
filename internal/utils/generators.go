package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateOrderRef creates a human-readable order reference.
func GenerateOrderRef() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("ord_%d_%06d", timestamp, randomNum.Int64())
}

// GenerateBookingRef creates a human-readable booking reference.
func GenerateBookingRef() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("bkg_%d_%06d", timestamp, randomNum.Int64())
}
