package commands

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"

	"github.com/jtarchie/labdeviceproxy/audit"
	"github.com/jtarchie/labdeviceproxy/server"
)

//go:embed templates/*
var templatesFS embed.FS

// Server renders the recent-command dashboard: a read-only view onto
// the audit log a Proxy instance writes to, grouped into a tree by
// device-tool path (adb / idevice_id / ...).
type Server struct {
	Port    int    `default:"8080"              help:"Port to run the dashboard on"`
	Storage string `help:"Path to the audit log sqlite file" required:""`
}

type TemplateRender struct {
	templates *template.Template
}

func (t *TemplateRender) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	err := t.templates.ExecuteTemplate(w, name, data)
	if err != nil {
		return fmt.Errorf("could not execute template: %w", err)
	}

	return nil
}

func (c *Server) Run(logger *slog.Logger) error {
	store, err := audit.Open(c.Storage)
	if err != nil {
		return fmt.Errorf("could not open audit log: %w", err)
	}
	defer store.Close()

	templates, err := template.New("templates").
		Funcs(sprig.FuncMap()).
		Funcs(template.FuncMap{
			"formatPath": func(path string) string {
				path = strings.ReplaceAll(path, " ", "")
				path = filepath.Clean(path)
				if path[0] != '/' {
					path = "/" + path
				}

				return strings.ReplaceAll(path, "/", " / ")
			},
		}).
		ParseFS(templatesFS, "templates/*")
	if err != nil {
		return fmt.Errorf("could not parse templates: %w", err)
	}

	renderer := &TemplateRender{
		templates: templates,
	}

	router := echo.New()
	router.Use(slogecho.New(logger))
	router.Use(middleware.Recover())
	router.Renderer = renderer

	router.GET("/", func(ctx echo.Context) error {
		entries, err := store.Recent(context.Background(), 200)
		if err != nil {
			return fmt.Errorf("could not load recent requests: %w", err)
		}

		logger.Info("results", "count", len(entries))

		path := server.NewPath[audit.Entry]()
		for _, entry := range entries {
			path.AddChild(entry.Command, entry)
		}

		return ctx.Render(http.StatusOK, "results.html", map[string]any{
			"Path": path,
		})
	})

	router.GET("/health", func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "OK")
	})

	err = router.Start(fmt.Sprintf(":%d", c.Port))
	if err != nil {
		return fmt.Errorf("could not start server: %w", err)
	}

	return nil
}
