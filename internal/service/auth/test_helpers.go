package auth

import (
	"time"

	"github.com/lambda-platform/lambda-api/internal/config"
)

// NewJWTServiceWithTimeFunc creates a JWT service whose notion of "now" is
// controlled by the caller. Intended for tests that exercise expiry and
// clock-skew behavior.
func NewJWTServiceWithTimeFunc(cfg config.AuthConfig, timeFunc func() time.Time) (JWTService, error) {
	svc, err := NewJWTService(cfg)
	if err != nil {
		return nil, err
	}

	impl := svc.(*hmacJWTService)
	impl.timeFunc = timeFunc
	return impl, nil
}
