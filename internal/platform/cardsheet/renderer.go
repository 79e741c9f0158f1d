package cardsheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/phrazzld/hitster/internal/domain"
	"github.com/phrazzld/hitster/internal/platform/logger"
	"github.com/phrazzld/hitster/internal/render"
)

const stampLayout = "20060102_150405"

// maxNameAttempts bounds the numeric suffixes tried when renders of the same
// playlist land in the same second.
const maxNameAttempts = 100

var errNoTracks = errors.New("no tracks to render")

// Renderer writes card sheets into a directory.
type Renderer struct {
	outputDir string
	now       func() time.Time
	compress  bool
	logger    *slog.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock replaces the clock used to stamp file names.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// NewRenderer creates the output directory if needed.
func NewRenderer(outputDir string, logger *slog.Logger, opts ...Option) (*Renderer, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		outputDir: outputDir,
		now:       time.Now,
		compress:  true,
		logger:    logger.With(slog.String("component", "cardsheet")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render implements render.Renderer. Every track is validated before any
// file is written; the first invalid one is reported by index.
func (r *Renderer) Render(
	ctx context.Context,
	playlistID uuid.UUID,
	title string,
	tracks []domain.Track,
) (render.Documents, error) {
	if len(tracks) == 0 {
		return render.Documents{}, render.NewRenderError(-1, errNoTracks)
	}
	for i := range tracks {
		if err := validateTrack(&tracks[i]); err != nil {
			return render.Documents{}, render.NewRenderError(i, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return render.Documents{}, err
	}

	stamp := r.now().UTC()
	front := r.newDocument(title, stamp)
	if err := drawFronts(front, title, tracks); err != nil {
		return render.Documents{}, asRenderError(err)
	}
	back := r.newDocument(title, stamp)
	if err := drawBacks(back, title, tracks); err != nil {
		return render.Documents{}, asRenderError(err)
	}

	base := filepath.Join(r.outputDir, fmt.Sprintf("%s_%s", playlistID, stamp.Format(stampLayout)))
	docs, err := reserve(base)
	if err != nil {
		return render.Documents{}, render.NewRenderError(-1, err)
	}

	if err := writeFile(docs.FrontPath, front.Output); err != nil {
		release(docs)
		return render.Documents{}, render.NewRenderError(-1, err)
	}
	if err := writeFile(docs.BackPath, back.Output); err != nil {
		release(docs)
		return render.Documents{}, render.NewRenderError(-1, err)
	}

	logger.FromContextOrDefault(ctx, r.logger).Info("rendered card sheets",
		slog.String("playlist_id", playlistID.String()),
		slog.Int("cards", len(tracks)),
		slog.String("front", docs.FrontPath),
		slog.String("back", docs.BackPath))
	return docs, nil
}

// newDocument fixes every timestamp in the file to stamp and sorts the
// catalog, so equal input gives equal bytes.
func (r *Renderer) newDocument(title string, stamp time.Time) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(r.compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetTitle(winAnsi(title), false)
	pdf.SetCreator("hitster", false)
	return pdf
}

func asRenderError(err error) error {
	var renderErr *render.RenderError
	if errors.As(err, &renderErr) {
		return err
	}
	return render.NewRenderError(-1, err)
}

// reserve claims a front and back file name pair under base by creating
// both exclusively. A taken pair moves on to base_1, base_2 and so on.
func reserve(base string) (render.Documents, error) {
	for n := range maxNameAttempts {
		stem := base
		if n > 0 {
			stem = fmt.Sprintf("%s_%d", base, n)
		}
		docs := render.Documents{
			FrontPath: stem + "_front.pdf",
			BackPath:  stem + "_back.pdf",
		}

		err := createExclusive(docs.FrontPath)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return render.Documents{}, err
		}
		err = createExclusive(docs.BackPath)
		if errors.Is(err, fs.ErrExist) {
			_ = os.Remove(docs.FrontPath)
			continue
		}
		if err != nil {
			_ = os.Remove(docs.FrontPath)
			return render.Documents{}, err
		}
		return docs, nil
	}
	return render.Documents{}, fmt.Errorf("no free file name for %s after %d attempts", filepath.Base(base), maxNameAttempts)
}

func createExclusive(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("reserve %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func release(docs render.Documents) {
	_ = os.Remove(docs.FrontPath)
	_ = os.Remove(docs.BackPath)
}

func validateTrack(t *domain.Track) error {
	switch {
	case t.Title == "":
		return domain.ErrEmptyTrackTitle
	case t.Artist == "":
		return domain.ErrEmptyTrackArtist
	case t.ExternalURL == "":
		return domain.ErrEmptyTrackURL
	}
	return nil
}

// writeFile writes through a temporary file so a crash never leaves a
// truncated sheet under the final name.
func writeFile(path string, output func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cardsheet-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := output(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
