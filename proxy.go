package folio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/media"
)

// proxyStatus maps a fetch error to the proxy response status and body.
func proxyStatus(err error) (int, string) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return http.StatusBadGateway, "Proxy error"
	}
	switch ae.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest, ae.Message
	case apperr.KindUpstream:
		if ae.Status >= 300 && ae.Status <= 599 {
			return ae.Status, ae.Message
		}
		return http.StatusBadGateway, ae.Message
	default:
		return http.StatusBadGateway, "Proxy error"
	}
}

func (a *App) handleImageProxy(c echo.Context) error {
	resp, err := a.fetcher.Fetch(c.Request().Context(), c.QueryParam("url"))
	if err != nil {
		status, msg := proxyStatus(err)
		a.recorder.IncProxy("image-proxy", strconv.Itoa(status))
		if status >= http.StatusInternalServerError {
			logger.WarnWithFields("image proxy failed", logger.Fields{"status": status, "error": err.Error()})
		}
		return c.String(status, msg)
	}
	defer resp.Body.Close()
	a.recorder.IncProxy("image-proxy", "ok")

	h := c.Response().Header()
	h.Set("Cache-Control", resp.CacheControl)
	h.Set("Access-Control-Allow-Origin", "*")
	if resp.ContentLength > 0 {
		h.Set(echo.HeaderContentLength, fmt.Sprint(resp.ContentLength))
	}
	return c.Stream(http.StatusOK, resp.ContentType, resp.Body)
}

func (a *App) handleDownload(c echo.Context) error {
	raw := c.QueryParam("url")
	if _, err := media.ValidateTarget(raw); err != nil {
		msg := "Invalid URL"
		if strings.TrimSpace(raw) == "" {
			msg = "No URL provided"
		}
		a.recorder.IncProxy("download", "400")
		return c.JSON(http.StatusBadRequest, map[string]any{"error": msg})
	}

	data, contentType, err := a.download(c, raw)
	if err != nil {
		a.recorder.IncProxy("download", "500")
		logger.WarnWithFields("download failed", logger.Fields{"error": err.Error()})
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to download image"})
	}
	a.recorder.IncProxy("download", "ok")

	ext := ".jpg"
	if contentType != "image/jpeg" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	h := c.Response().Header()
	h.Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, downloadName(c.QueryParam("filename"), ext)))
	h.Set("Cache-Control", "no-cache")
	return c.Blob(http.StatusOK, contentType, data)
}

// download fetches raw and returns JPEG bytes. Bodies that cannot be
// decoded as an image are returned unchanged with their upstream type.
func (a *App) download(c echo.Context, raw string) ([]byte, string, error) {
	resp, err := a.fetcher.Fetch(c.Request().Context(), raw)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, media.MaxDownloadSize+1))
	if err != nil {
		return nil, "", apperr.Wrap(err, apperr.KindNetwork, "reading image")
	}
	if len(data) > media.MaxDownloadSize {
		return nil, "", apperr.New(apperr.KindValidation, "image too large")
	}

	mediaType, _, _ := mime.ParseMediaType(resp.ContentType)
	if mediaType == "image/jpeg" && a.Config.DownloadMaxWidth <= 0 {
		return data, mediaType, nil
	}
	img, err := media.Transcode(bytes.NewReader(data), a.Config.DownloadMaxWidth)
	if err != nil {
		logger.DebugWithFields("download passed through untranscoded", logger.Fields{"type": resp.ContentType, "error": err.Error()})
		if mediaType == "" {
			mediaType = media.DefaultContentType
		}
		return data, mediaType, nil
	}
	return img.Data, "image/jpeg", nil
}
