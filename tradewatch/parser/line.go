// Package parser reads game chat logs and extracts trade offers from them.
package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformedLine = errors.New("not a timestamped chat line")
	ErrNotTrade      = errors.New("not a trade message")
	ErrInvalidPrice  = errors.New("invalid price")
)

var (
	reLine       = regexp.MustCompile(`^\[(\d{2}):(\d{2}):(\d{2})\]\s+(.*)$`)
	reNick       = regexp.MustCompile(`^<([^>]+)>\s*(.*)$`)
	reServerTag  = regexp.MustCompile(`^\((\w{3})\)\s*`)
	reLogStarted = regexp.MustCompile(`^Logging started (\d{4}-\d{2}-\d{2})`)
)

// servers maps the chat server tags to server names.
var servers = map[string]string{
	"cad": "Cadence",
	"cel": "Celebration",
	"del": "Deliverance",
	"exo": "Exodus",
	"har": "Harmony",
	"ind": "Independence",
	"mel": "Melody",
	"pri": "Pristine",
	"rel": "Release",
	"xan": "Xanadu",
}

// ChatLine is one message from a chat log.
type ChatLine struct {
	Timestamp time.Time `json:"timestamp"`
	Nick      string    `json:"nick"`
	Server    string    `json:"server"`
	Message   string    `json:"message"`
}

// ParseLine reads a "[HH:MM:SS] <Nick> message" line. The clock time is
// placed on day's date in day's location. Messages relayed from another
// server carry a "(Xxx)" tag, which is moved into Server.
func ParseLine(line string, day time.Time) (ChatLine, error) {
	m := reLine.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return ChatLine{}, ErrMalformedLine
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	if h > 23 || min > 59 || sec > 59 {
		return ChatLine{}, ErrMalformedLine
	}

	y, mo, d := day.Date()
	out := ChatLine{Timestamp: time.Date(y, mo, d, h, min, sec, 0, day.Location())}

	body := strings.TrimSpace(m[4])
	if n := reNick.FindStringSubmatch(body); n != nil {
		out.Nick = strings.TrimSpace(n[1])
		body = n[2]
	} else if nick, rest, ok := strings.Cut(body, " "); ok {
		out.Nick = strings.TrimSuffix(nick, ":")
		body = rest
	} else {
		return ChatLine{}, ErrMalformedLine
	}

	if tag := reServerTag.FindStringSubmatch(body); tag != nil {
		out.Server = ServerName(tag[1])
		body = body[len(tag[0]):]
	}
	out.Message = strings.TrimSpace(body)
	return out, nil
}

// ParseLogDate recognises the "Logging started YYYY-MM-DD" header the game
// writes when a log file is opened.
func ParseLogDate(line string, loc *time.Location) (time.Time, bool) {
	m := reLogStarted.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation("2006-01-02", m[1], loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// ServerName expands a three letter server tag. Unknown tags are returned
// upper-cased.
func ServerName(tag string) string {
	if name, ok := servers[strings.ToLower(tag)]; ok {
		return name
	}
	return strings.ToUpper(tag)
}
