package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const cloudinaryProfileFolder = "co-razer/profiles"

// CloudinaryPictureStorage keeps profile pictures on Cloudinary and stores
// the secure URL on the user record.
type CloudinaryPictureStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryPictureStorage(cloudName, apiKey, apiSecret string) (*CloudinaryPictureStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryPictureStorage{cld: cld, folder: cloudinaryProfileFolder}, nil
}

func (s *CloudinaryPictureStorage) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	publicID := strings.TrimSuffix(path.Base(filename), path.Ext(filename))

	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       publicID,
		ResourceType:   "image",
		Overwrite:      api.Bool(true),
		UniqueFilename: api.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

// Remove destroys the asset behind a Cloudinary URL. Local paths are ignored.
func (s *CloudinaryPictureStorage) Remove(ctx context.Context, storedPath string) error {
	publicID := cloudinaryPublicID(storedPath, s.folder)
	if publicID == "" {
		return nil
	}
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	return nil
}

// cloudinaryPublicID maps
// https://res.cloudinary.com/<cloud>/image/upload/v123/<folder>/<id>.png
// to "<folder>/<id>". Anything not under folder yields "".
func cloudinaryPublicID(url, folder string) string {
	idx := strings.Index(url, "/"+folder+"/")
	if idx == -1 {
		return ""
	}
	rest := url[idx+1:]
	return strings.TrimSuffix(rest, path.Ext(rest))
}
