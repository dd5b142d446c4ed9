// Package api exposes a read-only HTTP view of an opened container.
package api

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/eprvstd/rvdata/pkg/level2"
)

type Server struct {
	container *level2.Container
	path      string
}

// NewServer serves one opened container. The path is informational and
// echoed back in the summary.
func NewServer(c *level2.Container, path string) *Server {
	return &Server{container: c, path: path}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/summary", s.handleSummary)
	e.GET("/v1/extensions", s.handleExtensions)
	e.GET("/v1/extensions/:name/header", s.handleHeader)
}

func (s *Server) handleSummary(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, SummaryResponse{
		Path:       s.path,
		Level:      s.container.Level(),
		Extensions: s.container.Extensions(),
	})
}

func (s *Server) handleExtensions(c *echo.Context) error {
	names := s.container.Extensions()
	out := make([]ExtensionInfo, 0, len(names))
	for _, name := range names {
		out = append(out, s.extensionInfo(name))
	}
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleHeader(c *echo.Context) error {
	name := c.Param("name")
	hdr, ok := s.container.Header(name)
	if !ok {
		return writeNotFound(c, "no extension named "+name)
	}
	cards := hdr.Cards()
	dto := HeaderResponse{Name: name, Cards: make([]CardDTO, 0, len(cards))}
	for _, card := range cards {
		dto.Cards = append(dto.Cards, CardDTO{
			Keyword: card.Keyword,
			Value:   card.Value,
			Comment: card.Comment,
		})
	}
	return writeJSON(c, http.StatusOK, dto)
}

func (s *Server) extensionInfo(name string) ExtensionInfo {
	typ, _ := s.container.TypeOf(name)
	info := ExtensionInfo{Name: name, Type: typ.String()}
	if hdr, ok := s.container.Header(name); ok {
		info.Cards = hdr.Len()
	}
	switch typ {
	case level2.ExtImage:
		if im, err := s.container.ImageData(name); err == nil {
			info.Shape = im.Shape()
		}
	case level2.ExtSpectrum:
		if sp, err := s.container.Spectrum(name); err == nil {
			info.Shape = sp.Shape()
		}
	case level2.ExtTable:
		if tbl, err := s.container.TableData(name); err == nil {
			info.Rows = tbl.Rows()
		}
	}
	return info
}

func writeJSON(c *echo.Context, status int, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(status, echo.MIMEApplicationJSON, buf)
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeJSON(c, http.StatusNotFound, map[string]any{
		"error": ResponseError{Message: msg, Type: "not_found_error"},
	})
}
