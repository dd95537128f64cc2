package otp

import (
	"ImeiGuard/internal/core/ports"
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogSender is a mock SMS gateway: it logs the code instead of sending it
// and remembers the last code per phone so tests and the dev bot can read it.
type LogSender struct {
	log  zerolog.Logger
	mu   sync.RWMutex
	last map[string]string
}

var _ ports.OTPSender = (*LogSender)(nil)

func NewLogSender(baseLogger *zerolog.Logger) *LogSender {
	return &LogSender{
		log:  baseLogger.With().Str("component", "otp_sender").Logger(),
		last: make(map[string]string),
	}
}

func (s *LogSender) Send(ctx context.Context, phone, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.last[phone] = code
	s.mu.Unlock()

	s.log.Info().Str("phone", phone).Str("code", code).Msg("OTP sent (mock)")
	return nil
}

// LastCode returns the most recent code sent to phone.
func (s *LogSender) LastCode(phone string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.last[phone]
	return code, ok
}
