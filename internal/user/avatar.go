package user

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// MaxAvatarSize caps profile image uploads.
const MaxAvatarSize = 5 << 20

const avatarDir = "users"

var (
	ErrAvatarTooLarge = errors.New("avatar exceeds 5MB")
	ErrAvatarType     = errors.New("avatar must be a png, jpeg or gif image")
)

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

// AvatarStore writes profile images under <media>/users with a random name.
type AvatarStore struct {
	mediaDir string
}

func NewAvatarStore(mediaDir string) *AvatarStore {
	return &AvatarStore{mediaDir: mediaDir}
}

// Save validates the upload by size and sniffed content and returns the
// media-relative path it was stored at.
func (s *AvatarStore) Save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxAvatarSize {
		return "", ErrAvatarTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return "", ErrAvatarType
		}
		return "", err
	}
	ext, ok := avatarExtensions[http.DetectContentType(head[:n])]
	if !ok {
		return "", ErrAvatarType
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	dir := filepath.Join(s.mediaDir, avatarDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, MaxAvatarSize+1)); err != nil {
		return "", err
	}
	return avatarDir + "/" + name, nil
}

// Remove deletes a stored avatar. The default image is never removed.
func (s *AvatarStore) Remove(path string) {
	if path == "" || path == DefaultImage {
		return
	}
	_ = os.Remove(filepath.Join(s.mediaDir, filepath.FromSlash(path)))
}
