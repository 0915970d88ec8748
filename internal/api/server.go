// Package api serves tuning and sweep artifacts as read-only JSON for
// downstream dashboards and plotters. It renders no charts; the CSV table
// and tile store remain the canonical on-disk contracts.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/gemmtune/internal/bench"
	"github.com/samcharles93/gemmtune/internal/results"
	"github.com/samcharles93/gemmtune/internal/roofline"
	"github.com/samcharles93/gemmtune/internal/tilestore"
)

type Server struct {
	tiles       *tilestore.Store
	resultsDir  string
	params      roofline.Params
	defaultTile bench.Tile
}

func NewServer(tiles *tilestore.Store, resultsDir string, params roofline.Params) *Server {
	return &Server{
		tiles:       tiles,
		resultsDir:  resultsDir,
		params:      params,
		defaultTile: bench.Tile{MB: 256, NB: 256, KB: 256},
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.Use(requestID())
	e.GET("/v1/tiles", s.handleTiles)
	e.GET("/v1/results", s.handleListResults)
	e.GET("/v1/results/:name", s.handleGetResult)
	e.GET("/v1/roofline", s.handleRoofline)
}

// requestID stamps every response with a fresh X-Request-Id.
func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			c.Response().Header().Set("X-Request-Id", uuid.NewString())
			return next(c)
		}
	}
}

func (s *Server) handleTiles(c *echo.Context) error {
	tiles, err := s.tiles.Load()
	if err != nil {
		return writeNotFound(c, "no tuned tiles recorded")
	}
	return c.JSON(http.StatusOK, tiles)
}

func (s *Server) handleListResults(c *echo.Context) error {
	entries, err := os.ReadDir(s.resultsDir)
	if err != nil {
		return c.JSON(http.StatusOK, map[string]any{"results": []string{}})
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return c.JSON(http.StatusOK, map[string]any{"results": names})
}

func (s *Server) handleGetResult(c *echo.Context) error {
	name := c.Param("name")
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".csv") {
		return writeBadRequest(c, "invalid result table name")
	}
	rows, err := results.ReadTable(filepath.Join(s.resultsDir, name))
	if err != nil {
		return writeNotFound(c, "result table not found or unreadable")
	}
	out := make([]resultRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRow(row))
	}
	return c.JSON(http.StatusOK, map[string]any{"name": name, "rows": out})
}

func (s *Server) handleRoofline(c *echo.Context) error {
	tile := s.defaultTile
	for _, q := range []struct {
		name string
		dst  *int
	}{
		{"MB", &tile.MB}, {"NB", &tile.NB}, {"KB", &tile.KB},
	} {
		raw := c.QueryParam(q.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return writeBadRequest(c, "invalid "+q.name)
		}
		*q.dst = v
	}

	point := roofline.Analyze(tile)
	resp := rooflineResponse{
		Point:   point,
		Params:  s.params,
		Ridge:   s.params.Ridge(),
		Ceiling: s.params.Ceiling(point.Intensity),
		Bound:   s.params.Classify(point.Intensity),
	}
	if raw := c.QueryParam("measured"); raw != "" {
		measured, err := strconv.ParseFloat(raw, 64)
		if err != nil || measured < 0 {
			return writeBadRequest(c, "invalid measured")
		}
		resp.Measured = measured
		resp.Efficiency = s.params.Efficiency(measured)
	}
	return c.JSON(http.StatusOK, resp)
}
