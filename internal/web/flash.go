package web

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
)

const messagesCookie = "messages"

// Message levels understood by the base layout.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "danger"
)

type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Flash queues a message for the next page the browser loads.
func Flash(c *fiber.Ctx, level, text string) {
	pending, _ := c.Locals("flash").([]Message)
	pending = append(pending, Message{Level: level, Text: text})
	c.Locals("flash", pending)

	raw, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     messagesCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Messages pops the queued flash messages into c.Locals("messages").
func Messages() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(messagesCookie)
		if raw == "" {
			return c.Next()
		}

		c.Cookie(&fiber.Cookie{
			Name:     messagesCookie,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		if msgs := decodeMessages(raw); len(msgs) > 0 {
			c.Locals("messages", msgs)
		}
		return c.Next()
	}
}

func decodeMessages(raw string) []Message {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil
	}
	return msgs
}
