package web

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	flashCookie     = "messages"
	flashContextKey = "flash.pending"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

const (
	levelSuccess = "success"
	levelWarning = "warning"
	levelInfo    = "info"
)

func addFlash(c echo.Context, level, text string) {
	pending, _ := c.Get(flashContextKey).([]Flash)
	pending = append(pending, Flash{Level: level, Text: text})
	c.Set(flashContextKey, pending)

	data, err := json.Marshal(pending)
	if err != nil {
		log.Printf("Failed to encode flash messages: %v", err)
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns the messages stored by the previous response and
// clears them.
func popFlashes(c echo.Context) []Flash {
	cookie, err := c.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	c.SetCookie(&http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})

	flashes, err := decodeFlashes(cookie.Value)
	if err != nil {
		log.Printf("Discarding malformed flash cookie: %v", err)
		return nil
	}
	return flashes
}

func decodeFlashes(value string) ([]Flash, error) {
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, err
	}
	var flashes []Flash
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil, err
	}
	return flashes, nil
}
