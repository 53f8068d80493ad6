package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tortaapp/tradewatch/tradewatch/services"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type health struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Uptime   string `json:"uptime"`
	Profiles int    `json:"profiles"`
	Trades   int    `json:"trades"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return SendSuccess(c, health{
		Status:   "ok",
		Version:  s.version,
		Commit:   s.commit,
		Uptime:   s.now().Sub(s.started).Round(time.Second).String(),
		Profiles: s.directory.Len(),
		Trades:   s.market.Book().Len(),
	}, "")
}

func (s *Server) handleCategories(c *fiber.Ctx) error {
	return SendSuccess(c, services.Categories, "")
}

// handleServices lists traders seen within the listing window, or every live
// profile with all=true.
func (s *Server) handleServices(c *fiber.Ctx) error {
	filter := services.Filter{
		Server: c.Query("server"),
		Query:  c.Query("q"),
	}
	if raw := c.Query("category"); raw != "" {
		cat, ok := services.ParseCategory(raw)
		if !ok {
			return SendBadRequest(c, "Unknown category", map[string]string{"category": raw})
		}
		filter.Category = cat
	}

	now := s.now()
	if c.QueryBool("all") {
		return SendSuccess(c, s.directory.Profiles(filter, now), "")
	}
	return SendSuccess(c, s.directory.Listing(filter, now), "")
}

func (s *Server) handleItems(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultSearchLimit)
	if limit <= 0 || limit > maxSearchLimit {
		return SendBadRequest(c, "Invalid limit", map[string]string{"limit": c.Query("limit")})
	}

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		return SendSuccess(c, s.market.Search(q, limit), "")
	}

	items, err := s.market.Items(c.UserContext())
	if err != nil {
		return err
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return SendSuccess(c, items, "")
}

func (s *Server) handleItem(c *fiber.Ctx) error {
	id := c.Params("id")
	report, err := s.market.Item(c.UserContext(), id)
	if err != nil {
		return err
	}
	if len(report.History) == 0 {
		return SendNotFound(c, "No trades recorded for "+id)
	}
	return SendSuccess(c, report, "")
}

func (s *Server) handleTimeline(c *fiber.Ctx) error {
	id := c.Params("id")
	timeline, err := s.market.Timeline(c.UserContext(), id)
	if err != nil {
		return err
	}
	if len(timeline) == 0 {
		return SendNotFound(c, "No snapshots recorded for "+id)
	}
	return SendSuccess(c, timeline, "")
}
