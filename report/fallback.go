package report

import (
	"context"
	"log/slog"
)

// Modes accepted by NewRenderer.
const (
	ModeGotenberg = "gotenberg"
	ModeNative    = "native"
)

// FallbackRenderer tries the primary renderer and falls back to the secondary
// one when it fails.
type FallbackRenderer struct {
	primary  Renderer
	fallback Renderer
	logger   *slog.Logger
}

// Render implements Renderer.
func (r *FallbackRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	out, err := r.primary.Render(ctx, doc)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	r.logger.Warn("pdf renderer failed, using fallback", slog.String("reference", doc.Reference), slog.Any("error", err))
	return r.fallback.Render(ctx, doc)
}

// NewRenderer picks the renderer for mode. Gotenberg rendering falls back to
// the native renderer when the service cannot produce the document.
func NewRenderer(mode string, client *Client, template TemplateFunc, logger *slog.Logger) Renderer {
	native := NewNativeRenderer()
	if mode == ModeNative || client == nil || template == nil {
		return native
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackRenderer{primary: NewHTMLRenderer(client, template), fallback: native, logger: logger}
}
