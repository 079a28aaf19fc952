package middleware

import (
	"log/slog"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"uploadstore/internal/service"
)

// SessionLocalKey is the key under which the per-request service.SessionStorage is stored.
const SessionLocalKey = "session_storage"

// maxSessionIDLength matches the storage limit on a file context.
const maxSessionIDLength = service.MaxFieldLength

// SessionConfig configures the Session middleware.
type SessionConfig struct {
	// CookieName is read first and set when a new session is minted.
	CookieName string
	// Header is read when the cookie is absent.
	Header string
	// TTLSeconds is applied to every file of the session after each request; 0 disables renewal.
	TTLSeconds int64
	Secure     bool
	Logger     *slog.Logger
}

// Session resolves the caller's session id and binds a context-scoped view of storage to it.
//
// Behavior:
//   - Reads the session id from the cookie, then from the header.
//   - If missing or longer than a file context may be, mints a new UUID and sets the cookie.
//   - Stores a service.SessionStorage in locals under SessionLocalKey.
//   - After the handler returns, renews the TTL of every file of the session.
func Session(storage service.FileStorage, cfg SessionConfig) fiber.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "session"))

	return func(c *fiber.Ctx) error {
		id := c.Cookies(cfg.CookieName)
		if id == "" {
			id = c.Get(cfg.Header)
		}
		if id == "" || utf8.RuneCountInString(id) > maxSessionIDLength {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     cfg.CookieName,
				Value:    id,
				Path:     "/",
				HTTPOnly: true,
				Secure:   cfg.Secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		view := service.NewFixedView(storage, id)
		c.Locals(SessionLocalKey, service.SessionStorage(view))

		err := c.Next()

		if cfg.TTLSeconds > 0 {
			if _, rerr := view.SetTimeToLive(c.UserContext(), cfg.TTLSeconds); rerr != nil {
				logger.WarnContext(c.UserContext(), "session ttl renewal failed",
					slog.String("request_id", RequestIDFrom(c)),
					slog.String("error", rerr.Error()),
				)
			}
		}

		return err
	}
}

// SessionFrom returns the session storage stored by Session, or nil.
func SessionFrom(c *fiber.Ctx) service.SessionStorage {
	s, _ := c.Locals(SessionLocalKey).(service.SessionStorage)
	return s
}
