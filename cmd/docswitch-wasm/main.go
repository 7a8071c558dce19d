//go:build js && wasm

// Command docswitch-wasm runs the page router inside the browser. The host
// page defines the table as a global object (replaceText by default), a
// container element and the replaceable elements, then loads this module.
package main

import (
	"log/slog"
	"syscall/js"

	"github.com/ziadkadry99/docswitch/internal/browser"
	"github.com/ziadkadry99/docswitch/internal/router"
)

func main() {
	cfg := js.Global().Get("docswitchConfig")
	setting := func(key, fallback string) string {
		if cfg.Truthy() {
			if v := cfg.Get(key); v.Truthy() {
				return v.String()
			}
		}
		return fallback
	}

	level := slog.LevelInfo
	if setting("debug", "") != "" {
		level = slog.LevelDebug
	}
	logger := browser.NewLogger(level)

	tbl, err := browser.TableFromGlobal(setting("table", "replaceText"))
	if err != nil {
		logger.Error("loading table", "error", err)
	}

	loc := browser.NewLocation()
	doc := browser.NewDocument(setting("container", "maindiv"), setting("class", "replacable"), logger)

	opts := []router.Option{
		router.WithLanding(setting("landing", router.LandingPage)),
		router.WithObserver(func(rep router.Report) {
			logger.Debug("rendered", "page", rep.Page, "elements", rep.Elements, "misses", rep.Misses)
		}),
	}
	if setting("escape", "") != "" {
		opts = append(opts, router.WithEscaping())
	}
	r := router.New(loc, doc, tbl, opts...)
	browser.Listen(r)
	r.OnInitialLoad()

	select {}
}
