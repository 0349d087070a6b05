package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/rs/zerolog/log"
)

const otpDigits = 6

// Sender delivers one-time codes to a phone number. The SMS gateway lives
// behind this interface so development and tests run without one.
type Sender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the application log instead of sending SMS.
type LogSender struct{}

func (LogSender) SendOTP(_ context.Context, phone, code string) error {
	log.Info().
		Str("phone", maskPhone(phone)).
		Str("code", code).
		Msg("OTP issued (log delivery)")
	return nil
}

// generateOTPCode returns a zero-padded 6-digit code from crypto/rand.
func generateOTPCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generating OTP: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}

// maskPhone keeps only the last 4 digits for log output.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "***"
	}
	return "***" + phone[len(phone)-4:]
}
