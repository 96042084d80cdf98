package media

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Store is the blob store holding post images. Keys are slash separated
// paths; Upload returns the public URL of the stored object.
type Store interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Remove(ctx context.Context, keys ...string) error
}

// ObjectKey builds posts/<user>/<date>-<uuid><ext>.
func ObjectKey(userID uint, ext string) string {
	return fmt.Sprintf("posts/%d/%s-%s%s",
		userID,
		time.Now().Format("20060102"),
		uuid.New().String(),
		ext,
	)
}
