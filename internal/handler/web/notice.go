package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

const noticeCookie = "console_notice"

type noticeKind string

const (
	noticeSuccess noticeKind = "success"
	noticeError   noticeKind = "error"
)

// Notice is a transient operator message. It is shown once, on the next
// rendered page, and can be dismissed.
type Notice struct {
	Kind noticeKind `json:"k"`
	Text string     `json:"t"`
}

func noticeFor(ok bool, text string) *Notice {
	if text == "" {
		return nil
	}
	if ok {
		return &Notice{Kind: noticeSuccess, Text: text}
	}
	return &Notice{Kind: noticeError, Text: text}
}

func errorNotice(text string) *Notice { return noticeFor(false, text) }

// flash stores n for the next page render.
func flash(c echo.Context, n *Notice) {
	if n == nil {
		return
	}
	b, err := json.Marshal(n)
	if err != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     noticeCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeNotice returns and clears the pending notice, if any.
func takeNotice(c echo.Context) *Notice {
	ck, err := c.Cookie(noticeCookie)
	if err != nil || ck.Value == "" {
		return nil
	}
	c.SetCookie(&http.Cookie{Name: noticeCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	b, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return nil
	}
	var n Notice
	if err := json.Unmarshal(b, &n); err != nil || n.Text == "" {
		return nil
	}
	return &n
}
