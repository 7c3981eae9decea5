package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/daybook/daybook/internal/entry"
	"github.com/daybook/daybook/internal/entry/service"
	"github.com/daybook/daybook/internal/insights"
	"github.com/daybook/daybook/pkg/logger"
	"github.com/daybook/daybook/pkg/middleware"
)

type entryRequest struct {
	Title      *string           `json:"title"`
	Content    string            `json:"content"`
	Mood       *int              `json:"mood"`
	Template   *entry.Template   `json:"template"`
	FiveMinute *entry.FiveMinute `json:"fiveMinute"`
}

func (r entryRequest) input() service.Input {
	return service.Input{Title: r.Title, Content: r.Content, Mood: r.Mood, Template: r.Template, FiveMinute: r.FiveMinute}
}

type entryResponse struct {
	*entry.Entry
	Preview    string            `json:"preview"`
	FiveMinute *entry.FiveMinute `json:"fiveMinute,omitempty"`
}

func present(e *entry.Entry) entryResponse {
	out := entryResponse{Entry: e, Preview: e.Preview()}
	if five, ok := e.Body().(entry.FiveMinute); ok {
		out.FiveMinute = &five
	}
	return out
}

func presentAll(list []*entry.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, present(e))
	}
	return out
}

// fail writes the error response for err. action completes "Failed to ..."
// for store failures so backend details never reach the client.
func fail(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, entry.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, entry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
	case errors.Is(err, entry.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

// location resolves the optional tz query parameter; nil means the service default.
func location(c *gin.Context) (*time.Location, bool) {
	tz := c.Query("tz")
	if tz == "" {
		return nil, true
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown time zone " + strconv.Quote(tz)})
		return nil, false
	}
	return loc, true
}

func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return n, true
}

func bindEntry(c *gin.Context) (service.Input, bool) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return service.Input{}, false
	}
	return req.input(), true
}

// RegisterEntryRoutes mounts the journal routes on r, which must already run
// the auth middleware.
func RegisterEntryRoutes(r gin.IRoutes, svc service.Service) {
	r.POST("/entry", func(c *gin.Context) {
		in, ok := bindEntry(c)
		if !ok {
			return
		}
		e, err := svc.Create(c.Request.Context(), middleware.OwnerID(c), in)
		if err != nil {
			fail(c, err, "create entry")
			return
		}
		c.JSON(http.StatusCreated, present(e))
	})

	listing := func(def int) gin.HandlerFunc {
		return func(c *gin.Context) {
			limit, ok := intQuery(c, "limit", def)
			if !ok {
				return
			}
			offset, ok := intQuery(c, "offset", 0)
			if !ok {
				return
			}
			list, err := svc.List(c.Request.Context(), middleware.OwnerID(c), limit, offset)
			if err != nil {
				fail(c, err, "fetch entries")
				return
			}
			c.JSON(http.StatusOK, presentAll(list))
		}
	}
	r.GET("/entry", listing(service.DefaultListLimit))
	r.GET("/entry/past", listing(service.PastListLimit))

	// No entry yet today is not an error: the body is null.
	r.GET("/entry/today", func(c *gin.Context) {
		loc, ok := location(c)
		if !ok {
			return
		}
		e, err := svc.Today(c.Request.Context(), middleware.OwnerID(c), loc)
		if errors.Is(err, entry.ErrNotFound) {
			c.JSON(http.StatusOK, nil)
			return
		}
		if err != nil {
			fail(c, err, "fetch today's entry")
			return
		}
		c.JSON(http.StatusOK, present(e))
	})

	r.PUT("/entry/today", func(c *gin.Context) {
		loc, ok := location(c)
		if !ok {
			return
		}
		in, ok := bindEntry(c)
		if !ok {
			return
		}
		e, created, err := svc.SaveToday(c.Request.Context(), middleware.OwnerID(c), in, loc)
		if err != nil {
			fail(c, err, "save entry")
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, present(e))
	})

	r.GET("/entry/search", func(c *gin.Context) {
		list, err := svc.Search(c.Request.Context(), middleware.OwnerID(c), c.Query("q"))
		if err != nil {
			fail(c, err, "search entries")
			return
		}
		c.JSON(http.StatusOK, presentAll(list))
	})

	r.GET("/entry/insights", func(c *gin.Context) {
		days, ok := intQuery(c, "days", insights.DefaultWindow)
		if !ok {
			return
		}
		loc, ok := location(c)
		if !ok {
			return
		}
		sum, err := svc.Insights(c.Request.Context(), middleware.OwnerID(c), days, loc)
		if err != nil {
			if errors.Is(err, entry.ErrStore) {
				logger.Warnf("serving empty insights: %v", err)
				c.JSON(http.StatusOK, insights.Empty(days))
				return
			}
			fail(c, err, "fetch insights")
			return
		}
		c.JSON(http.StatusOK, sum)
	})

	r.GET("/entry/:id", func(c *gin.Context) {
		e, err := svc.Get(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
		if err != nil {
			fail(c, err, "fetch entry")
			return
		}
		c.JSON(http.StatusOK, present(e))
	})

	r.PUT("/entry/:id", func(c *gin.Context) {
		in, ok := bindEntry(c)
		if !ok {
			return
		}
		e, err := svc.Update(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), in)
		if err != nil {
			fail(c, err, "update entry")
			return
		}
		c.JSON(http.StatusOK, present(e))
	})

	r.DELETE("/entry/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), middleware.OwnerID(c), c.Param("id")); err != nil {
			fail(c, err, "delete entry")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
}
