package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quire/internal/storage"
)

// mimeToExt maps the content types we can name without a file name.
var mimeToExt = map[string]string{
	"image/png":        "png",
	"image/jpeg":       "jpg",
	"image/gif":        "gif",
	"image/webp":       "webp",
	"image/bmp":        "bmp",
	"image/svg+xml":    "svg",
	"application/pdf":  "pdf",
	"application/zip":  "zip",
	"application/json": "json",
	"text/plain":       "txt",
	"text/markdown":    "md",
	"text/csv":         "csv",
	"audio/mpeg":       "mp3",
	"video/mp4":        "mp4",
}

type uploadResult struct {
	URL    string `json:"url"`
	Anchor string `json:"anchor"`
}

func (s *Server) uploadAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", "")

	var (
		data        []byte
		contentType string
	)
	if strings.HasPrefix(rawURL, "data:") {
		data, contentType, err = decodeDataURI(rawURL)
	} else {
		data, contentType, err = fetchHTTP(ctx, rawURL, s.opts.MaxUploadBytes)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		return mcp.NewToolResultError(fmt.Sprintf("file too large: %d bytes (max %d)", len(data), s.opts.MaxUploadBytes)), nil
	}

	if filename == "" {
		filename = filenameFromURL(rawURL, contentType)
	}
	ext := storage.Extension(path.Base(filename))
	if !storage.ExtensionAllowed(ext, s.opts.AllowedExtensions) {
		return mcp.NewToolResultError(fmt.Sprintf("file type not allowed: %q (allowed: %s)",
			ext, strings.Join(s.opts.AllowedExtensions, ", "))), nil
	}
	if err := validateMagicBytes(data, ext); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if contentType == "" {
		contentType = mime.TypeByExtension("." + ext)
	}

	name := storage.NewName(ext)
	if err := s.blobs.Put(ctx, name, bytes.NewReader(data), contentType); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save attachment: %v", err)), nil
	}

	fileURL := strings.TrimRight(s.opts.PublicURL, "/") + "/files/" + name
	out, _ := json.Marshal(uploadResult{
		URL:    fileURL,
		Anchor: fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(fileURL), html.EscapeString(path.Base(filename))),
	})
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI and returns
// the payload with its media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	return data, strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0], nil
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string, limit int64) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}

	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", limit)
	}

	return data, strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0]), nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// filenameFromURL takes the last path segment of an http(s) URL, or builds
// a name from the content type.
func filenameFromURL(rawURL, contentType string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if strings.Contains(base, ".") && base != "." {
				return base
			}
		}
	}
	ext := mimeToExt[contentType]
	if ext == "" {
		ext = "bin"
	}
	return "attachment." + ext
}

// validateMagicBytes verifies that image and PDF content matches the
// declared extension. Other types are accepted as is.
func validateMagicBytes(data []byte, ext string) error {
	switch ext {
	case "svg":
		prefix := data[:min(len(data), 1024)]
		if !bytes.Contains(prefix, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	case "png", "jpg", "jpeg", "gif", "webp", "bmp", "pdf":
	default:
		return nil
	}

	detected := strings.Split(http.DetectContentType(data), ";")[0]
	want := ext
	if want == "jpeg" {
		want = "jpg"
	}
	if mimeToExt[detected] != want {
		return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
	}
	return nil
}
