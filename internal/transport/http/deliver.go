package http

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
	"github.com/emanuelef/yt-mp3-api-go/internal/infra/r2"
	"github.com/emanuelef/yt-mp3-api-go/internal/service/sanitize"
)

// ObjectStore is the subset of the R2 client used for delivery.
type ObjectStore interface {
	Upload(ctx context.Context, filePath, key, disposition string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// responseDeliverer hands a resolved file to one HTTP response. Once
// started reports true, the response can no longer carry a redirect.
type responseDeliverer interface {
	Deliver(ctx context.Context, out *domain.ResolvedOutput) error
	started() bool
}

// attachmentDeliverer streams the file as a download.
type attachmentDeliverer struct {
	w       http.ResponseWriter
	r       *http.Request
	written bool
}

func (d *attachmentDeliverer) Deliver(ctx context.Context, out *domain.ResolvedOutput) error {
	f, err := os.Open(out.AbsolutePath)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat output: %w", err)
	}

	h := d.w.Header()
	h.Set("Content-Type", r2.ContentType(out.AbsolutePath))
	h.Set("Content-Disposition", sanitize.ContentDisposition(out.DisplayName))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")

	d.written = true
	http.ServeContent(d.w, d.r, out.DisplayName, info.ModTime(), f)
	return nil
}

func (d *attachmentDeliverer) started() bool { return d.written }

// objectDeliverer uploads the file and redirects to a presigned URL.
type objectDeliverer struct {
	store  ObjectStore
	expiry time.Duration
	w      http.ResponseWriter
	r      *http.Request
	done   bool
}

func (d *objectDeliverer) Deliver(ctx context.Context, out *domain.ResolvedOutput) error {
	key := r2.NewKey(out.DisplayName)
	if err := d.store.Upload(ctx, out.AbsolutePath, key, sanitize.ContentDisposition(out.DisplayName)); err != nil {
		return err
	}

	url, err := d.store.PresignedURL(ctx, key, d.expiry)
	if err != nil {
		return err
	}

	d.done = true
	http.Redirect(d.w, d.r, url, http.StatusSeeOther)
	return nil
}

func (d *objectDeliverer) started() bool { return d.done }
