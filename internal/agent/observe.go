package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// observe returns the text currently on screen. OCR of a fresh capture is
// preferred; the UI tree labels are used when OCR is not configured, fails,
// or recognizes nothing. Failures yield empty text, never an error.
func (a *Agent) observe(ctx context.Context, logger *zap.Logger) string {
	if text := a.recognize(ctx, logger); text != "" {
		return text
	}
	if a.tree == nil {
		return ""
	}
	root, err := a.tree.CurrentTree(ctx)
	if err != nil {
		logger.Debug("UI tree unavailable for observation.", zap.Error(err))
		return ""
	}
	return root.VisibleText()
}

func (a *Agent) recognize(ctx context.Context, logger *zap.Logger) string {
	if a.capturer == nil || a.ocr == nil {
		return ""
	}
	img, err := a.capturer.Capture(ctx)
	if err != nil {
		logger.Warn("Screen capture failed.", zap.Error(err))
		return ""
	}
	result, err := a.ocr.Recognize(ctx, img)
	if err != nil {
		logger.Warn("OCR failed.", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(result.Text)
}
