package update

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	userAgent        = "upkeep-updater"
	maxChecksumBytes = 512 * 1024
)

// HTTPDownloader downloads binaries over HTTP
type HTTPDownloader struct {
	client *http.Client
	token  string
}

// NewHTTPDownloader creates a new HTTP downloader
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{}, // No timeout for downloads; the context bounds them
	}
}

// WithToken sets an optional bearer token sent with every request.
func (d *HTTPDownloader) WithToken(token string) *HTTPDownloader {
	d.token = strings.TrimSpace(token)
	return d
}

// WithHTTPClient replaces the HTTP client.
func (d *HTTPDownloader) WithHTTPClient(client *http.Client) *HTTPDownloader {
	if client != nil {
		d.client = client
	}
	return d
}

// Download downloads a file from url to dst, reporting progress as bytes arrive.
// A partially written dst is removed on failure.
func (d *HTTPDownloader) Download(ctx context.Context, url string, dst string, progress ProgressFunc) error {
	resp, err := d.get(ctx, url, "application/octet-stream")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create destination file %q: %w", dst, err)
	}

	src := io.Reader(resp.Body)
	if progress != nil {
		src = &progressReader{r: resp.Body, total: resp.ContentLength, report: progress}
		progress(0, resp.ContentLength)
	}

	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to write response body to file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to close %q: %w", dst, err)
	}

	log.Debugf("downloaded %s to %s", url, dst)
	return nil
}

// VerifyChecksum verifies the downloaded file's checksum against the
// entry for its file name in the checksums file at checksumURL.
func (d *HTTPDownloader) VerifyChecksum(ctx context.Context, file, checksumURL string) error {
	checksums, err := d.downloadChecksums(ctx, checksumURL)
	if err != nil {
		return fmt.Errorf("failed to download checksums: %w", err)
	}

	name := getFilename(file)
	expected, ok := checksums[name]
	if !ok {
		return fmt.Errorf("checksum for %s not found in checksums file", name)
	}

	actual, err := calculateSHA256(file)
	if err != nil {
		return err
	}

	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w for %s: expected %s, got %s", ErrChecksumMismatch, name, expected, actual)
	}
	return nil
}

// downloadChecksums fetches and parses a checksums.txt style file.
// Format: "sha256hash  filename"; malformed lines are skipped.
func (d *HTTPDownloader) downloadChecksums(ctx context.Context, url string) (map[string]string, error) {
	resp, err := d.get(ctx, url, "text/plain")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	checksums := make(map[string]string)
	scanner := bufio.NewScanner(io.LimitReader(resp.Body, maxChecksumBytes))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		checksums[getFilename(strings.TrimPrefix(fields[1], "*"))] = fields[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checksums: %w", err)
	}
	return checksums, nil
}

func (d *HTTPDownloader) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}
	return resp, nil
}

// calculateSHA256 returns the hex encoded SHA-256 of the file at path.
func calculateSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// getFilename returns the last element of a slash or OS separated path.
func getFilename(path string) string {
	return filepath.Base(filepath.FromSlash(path))
}

type progressReader struct {
	r      io.Reader
	done   int64
	total  int64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.report(p.done, p.total)
	}
	return n, err
}
