// Package cloudinary archives generated progress reports as raw Cloudinary assets.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Configured reports whether every credential is present.
func (c Config) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Archive stores report files in a Cloudinary folder.
type Archive struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Cloudinary report archive.
func New(cfg Config, logger zerolog.Logger) (*Archive, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Archive{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "cloudinary_archive").Logger(),
		now:    time.Now,
	}, nil
}

// Upload stores a report as a raw asset and returns its secure URL. Raw assets
// keep their extension so the download stays a .txt file.
func (a *Archive) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       strings.Trim(a.folder, "/"),
		PublicID:     buildPublicID(name, a.now()),
		ResourceType: "raw",
	}

	result, err := a.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to archive report: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to archive report: %s", result.Error.Message)
	}

	a.logger.Info().Str("public_id", result.PublicID).Msg("report archived to cloudinary")

	return result.SecureURL, nil
}

func buildPublicID(name string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "report"
	}
	if ext == "" {
		ext = ".txt"
	}

	return fmt.Sprintf("%s-%d%s", base, at.Unix(), ext)
}
