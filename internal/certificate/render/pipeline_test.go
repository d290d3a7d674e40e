package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriseal/internal/certificate/assets"
	"veriseal/internal/certificate/models"
	"veriseal/internal/certificate/render/raster"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

func newTestPipeline(t *testing.T, loader *assets.MemoryLoader, opts ...Option) *Pipeline {
	t.Helper()
	r, err := raster.New()
	require.NoError(t, err)

	opts = append(opts, WithLogger(slog.New(slog.DiscardHandler)))
	p, err := New(r, loader, opts...)
	require.NoError(t, err)
	return p
}

func testTemplate() models.Template {
	return models.Template{
		ID:          id.TemplateID(mustUUID("11111111-1111-1111-1111-111111111111")),
		ImageSource: "background.png",
		Native:      models.Dimensions{Width: 300, Height: 150},
		Fields: []models.FieldDefinition{
			{ID: "name", Anchor: models.Point{X: 150, Y: 60}, TextAlign: models.AlignCenter, FontSizeNative: 24, FontFamily: "go", Color: "#000000", ShowInOutput: true, Required: true},
			{ID: "course", Anchor: models.Point{X: 150, Y: 100}, TextAlign: models.AlignCenter, FontSizeNative: 16, FontFamily: "go", Color: "#333333", ShowInOutput: true},
			{ID: "internal-note", Anchor: models.Point{X: 10, Y: 10}, TextAlign: models.AlignLeft, FontSizeNative: 10, FontFamily: "go", ShowInOutput: false},
		},
	}
}

func testContent() models.CertificateContent {
	return models.CertificateContent{
		TemplateID:     id.TemplateID(mustUUID("11111111-1111-1111-1111-111111111111")),
		PublisherID:    id.PublisherID(mustUUID("22222222-2222-2222-2222-222222222222")),
		RecipientEmail: "jane@example.com",
		FieldValues: map[string]string{
			"name":          "Jane Doe",
			"course":        "Distributed Systems",
			"internal-note": "never rendered",
		},
	}
}

func TestPipelineExport(t *testing.T) {
	ctx := context.Background()

	t.Run("renders a document from a loaded asset", func(t *testing.T) {
		loader := assets.NewMemoryLoader()
		loader.Add("background.png", encodeBlankPNG(t, 300, 150))
		p := newTestPipeline(t, loader)

		doc, err := p.Export(ctx, testTemplate(), testContent())
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
	})

	t.Run("missing native dimensions fail fast", func(t *testing.T) {
		loader := assets.NewMemoryLoader()
		p := newTestPipeline(t, loader)

		template := testTemplate()
		template.Native = models.Dimensions{}
		_, err := p.Export(ctx, template, testContent())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRender))
	})

	t.Run("asset that never loaded fails the export", func(t *testing.T) {
		loader := assets.NewMemoryLoader()
		p := newTestPipeline(t, loader)

		_, err := p.Export(ctx, testTemplate(), testContent())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRender))
	})

	t.Run("partial undecodable asset degrades to a blank canvas", func(t *testing.T) {
		r, err := raster.New()
		require.NoError(t, err)
		p, err := New(r, partialLoader{data: []byte("truncated-jpeg")}, WithLogger(slog.New(slog.DiscardHandler)))
		require.NoError(t, err)

		doc, err := p.Export(ctx, testTemplate(), testContent())
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
	})
}

func TestBuildLayoutTree(t *testing.T) {
	ctx := context.Background()
	loader := assets.NewMemoryLoader()
	p := newTestPipeline(t, loader)

	t.Run("places only visible non-empty fields", func(t *testing.T) {
		content := testContent()
		tree, err := p.BuildLayoutTree(ctx, testTemplate(), content, nil)
		require.NoError(t, err)

		require.Len(t, tree.Texts, 2)
		assert.Equal(t, "Jane Doe", tree.Texts[0].Text)
		assert.Equal(t, "Distributed Systems", tree.Texts[1].Text)
	})

	t.Run("empty values are omitted rather than rendered blank", func(t *testing.T) {
		content := testContent()
		content.FieldValues["course"] = ""
		tree, err := p.BuildLayoutTree(ctx, testTemplate(), content, nil)
		require.NoError(t, err)

		require.Len(t, tree.Texts, 1)
		assert.Equal(t, "Jane Doe", tree.Texts[0].Text)
	})

	t.Run("centered text is placed left of its anchor", func(t *testing.T) {
		tree, err := p.BuildLayoutTree(ctx, testTemplate(), testContent(), nil)
		require.NoError(t, err)

		name := tree.Texts[0]
		assert.Less(t, name.X, 150.0)
		assert.Less(t, name.Y, 60.0)
	})
}

// partialLoader simulates a download that timed out mid-body.
type partialLoader struct {
	data []byte
}

func (l partialLoader) WaitUntilLoaded(context.Context, string, time.Duration) ([]byte, error) {
	return l.data, dErrors.New(dErrors.CodeTimeout, "asset did not finish loading")
}

func mustUUID(s string) uuid.UUID {
	return uuid.MustParse(s)
}

func encodeBlankPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}
