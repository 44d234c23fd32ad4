package uploads

import (
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"

	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// PublicPrefix is the URL path prefix under which stored images are served.
const PublicPrefix = "images"

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Store writes uploaded cover images to a local directory that the server
// exposes as static files.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed and returns a store
// rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WithStack(err)
	}
	return &Store{dir: dir}, nil
}

// SaveImage sniffs the upload's actual content type, rejects anything that
// isn't an image we serve, and stores the bytes under a random filename so
// uploads can never collide or traverse paths. It returns the public path
// to persist on the book.
func (s *Store) SaveImage(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", errors.WithStack(err)
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedImageTypes[mtype.String()]
	if !ok {
		return "", errcodes.UnsupportedMediaType()
	}

	name := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", errors.WithStack(err)
	}

	return path.Join(PublicPrefix, name), nil
}

// Remove deletes a previously stored image given its public path. A missing
// file is not an error; the pointer is already gone from the database.
func (s *Store) Remove(publicPath string) error {
	name := path.Base(publicPath)
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

// Dir returns the directory the store writes to, for static file serving.
func (s *Store) Dir() string {
	return s.dir
}
