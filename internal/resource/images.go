package resource

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"path"
	"sync"

	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/texgen-mcp/internal/imaging"
)

// Decode reads and decodes the resource behind open.
//
// Supported formats are PNG, JPEG, GIF and WebP. The result is always
// converted to NRGBA.
func Decode(open Opener) (*image.NRGBA, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return imaging.Decode(rc)
}

// Images provides thread-safe caching of decoded source textures so a
// pipeline touching the same texture from many nodes decodes it once.
//
// Images is safe for concurrent use by multiple goroutines. Callers receive
// their own copy of each image and may modify it.
//
// # Memory Management
//
// Decoded images remain in memory until explicitly removed via Evict() or
// Clear(). Generators clear it at the start of every generation cycle so
// edits to source textures are picked up.
//
// # Example Usage
//
//	images := resource.NewImages(dir)
//	img, err := images.Load(resource.MustParse("minecraft:textures/block/stone.png"))
//	if err != nil {
//	    return err
//	}
//	images.Evict(id) // Optional: free memory
type Images struct {
	src    Source
	mu     sync.RWMutex
	images map[Identifier]*image.NRGBA
}

// NewImages creates an empty image cache reading from src.
func NewImages(src Source) *Images {
	return &Images{
		src:    src,
		images: make(map[Identifier]*image.NRGBA),
	}
}

// Source returns the source images are read from.
func (c *Images) Source() Source { return c.src }

// Load retrieves an image from the cache or decodes it from the source.
//
// Parameters:
//   - id: The identifier of the image file, including its extension.
//
// Returns:
//   - *image.NRGBA: A copy of the decoded image.
//   - error: ErrNotFound if the source has no such resource, or the
//     decoding error.
func (c *Images) Load(id Identifier) (*image.NRGBA, error) {
	c.mu.RLock()
	if img, ok := c.images[id]; ok {
		c.mu.RUnlock()
		return imaging.Copy(img), nil
	}
	c.mu.RUnlock()

	open, ok := c.src.Resolve(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	img, err := Decode(open)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", id, err)
	}

	c.mu.Lock()
	c.images[id] = img
	c.mu.Unlock()

	return imaging.Copy(img), nil
}

// Clear removes all images from the cache.
func (c *Images) Clear() {
	c.mu.Lock()
	c.images = make(map[Identifier]*image.NRGBA)
	c.mu.Unlock()
}

// Evict removes a single image from the cache. Unknown identifiers are
// ignored.
func (c *Images) Evict(id Identifier) {
	c.mu.Lock()
	delete(c.images, id)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *Images) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Info contains metadata about a source texture.
type Info struct {
	// ID is the texture's identifier.
	ID string `json:"id"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Frames is the number of square animation frames stacked vertically,
	// or 0 when the height is not a multiple of the width.
	Frames int `json:"frames"`

	// Format is the detected image format: "png", "jpeg", "gif", "webp", or
	// "unknown". Detection is based on the file extension.
	Format string `json:"format"`

	// HasTransparency reports whether any pixel is not fully opaque.
	HasTransparency bool `json:"has_transparency"`

	// FileSizeBytes is the size of the encoded resource in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadInfo loads a texture and describes it.
//
// # Format Detection
//
// The format is determined by file extension:
//   - ".png" -> "png"
//   - ".jpg", ".jpeg" -> "jpeg"
//   - ".gif" -> "gif"
//   - ".webp" -> "webp"
//   - Other extensions -> "unknown"
func LoadInfo(images *Images, id Identifier) (*Info, error) {
	img, err := images.Load(id)
	if err != nil {
		return nil, err
	}
	open, ok := images.src.Resolve(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	size, err := byteSize(open)
	if err != nil {
		return nil, err
	}

	format := "unknown"
	switch path.Ext(id.Path) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".webp":
		format = "webp"
	}

	transparent := false
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xFF {
			transparent = true
			break
		}
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	frames := 0
	if w > 0 && h%w == 0 {
		frames = h / w
	}
	return &Info{
		ID:              id.String(),
		Width:           w,
		Height:          h,
		Frames:          frames,
		Format:          format,
		HasTransparency: transparent,
		FileSizeBytes:   size,
	}, nil
}

func byteSize(open Opener) (int64, error) {
	rc, err := open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	n, err := io.Copy(io.Discard, rc)
	if err != nil {
		return 0, fmt.Errorf("failed to read resource: %w", err)
	}
	return n, nil
}
