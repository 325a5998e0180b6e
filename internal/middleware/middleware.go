package middleware

import (
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// RequestLogger logs every inbound update at debug level
func RequestLogger(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			fields := []zap.Field{
				zap.Int64("user_id", c.Sender().ID),
			}
			if c.Callback() != nil {
				fields = append(fields, zap.String("callback", c.Callback().Data))
			} else {
				fields = append(fields, zap.String("text", c.Text()))
			}
			logger.Debug("Update received", fields...)
			return next(c)
		}
	}
}

// Recover converts handler panics into logged errors so one broken
// update cannot take the poller down
func Recover(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Recovered from handler panic",
						zap.Any("panic", r),
						zap.Int64("user_id", c.Sender().ID),
					)
				}
			}()
			return next(c)
		}
	}
}
