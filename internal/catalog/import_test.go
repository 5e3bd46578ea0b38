package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portrait-pipeline/internal/model"
	"portrait-pipeline/internal/store"
)

func TestReadCSV(t *testing.T) {
	in := "\"resourceId\", theme ,gender,skin_tone,base_image_object_key,story\n" +
		"r1,Edo,female,light,base/edo-1.jpeg,\"A merchant's daughter, in Edo.\"\n" +
		",Tang,male,dark,base/tang-1.jpeg,A poet.\n"

	got, err := Read(strings.NewReader(in), FormatCSV)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.BaseResource{
		ResourceID: "r1", Theme: "Edo", Gender: "female", Skin: "light",
		BaseImageKey: "base/edo-1.jpeg", Story: "A merchant's daughter, in Edo.",
	}, got[0])
	assert.Empty(t, got[1].ResourceID)
	assert.Equal(t, "dark", got[1].Skin)
}

func TestReadJSON(t *testing.T) {
	list, err := Read(strings.NewReader(`[{"theme":"Edo","gender":"female","skin":"light","baseImageKey":"base/a.jpeg","story":"a"}]`), FormatJSON)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "base/a.jpeg", list[0].BaseImageKey)

	single, err := Read(strings.NewReader(` {"resourceId":"r9","theme":"Edo","gender":"male","skin":"light","baseImageKey":"base/b.jpeg"}`), FormatJSON)
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, "r9", single[0].ResourceID)
}

func TestReadYAML(t *testing.T) {
	in := `
- resourceId: r1
  theme: Baroque
  gender: female
  skin: medium
  baseImageKey: base/baroque-1.jpeg
  story: A lady of the court.
- theme: Baroque
  gender: male
  skin: medium
  baseImageKey: base/baroque-2.jpeg
`
	got, err := Read(strings.NewReader(in), FormatYAML)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A lady of the court.", got[0].Story)
	assert.Equal(t, "base/baroque-2.jpeg", got[1].BaseImageKey)
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{"a.csv": FormatCSV, "b.JSON": FormatJSON, "c.yml": FormatYAML, "d.yaml": FormatYAML} {
		got, err := FormatOf(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := FormatOf("catalog.xml")
	assert.Error(t, err)
}

func TestImportFile(t *testing.T) {
	dir := t.TempDir()
	s, err := store.OpenSQLite(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	defer s.Close()

	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- theme: Edo
  gender: female
  skin: light
  baseImageKey: base/edo-1.jpeg
  story: one
- resourceId: fixed
  theme: Edo
  gender: female
  skin: light
  baseImageKey: base/edo-2.jpeg
  story: two
`), 0o644))

	n, err := ImportFile(context.Background(), path, s, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.QueryBaseResources(context.Background(), "Edo", "female", "light")
	require.NoError(t, err)
	require.Len(t, got, 2)
	ids := []string{got[0].ResourceID, got[1].ResourceID}
	assert.Contains(t, ids, "fixed")
	for _, id := range ids {
		assert.NotEmpty(t, id)
	}
}

func TestImportRejectsUnsafeTripleBeforeWriting(t *testing.T) {
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = Import(context.Background(), []model.BaseResource{
		{Theme: "Edo", Gender: "female", Skin: "light", BaseImageKey: "base/ok.jpeg"},
		{Theme: "Post-Modern", Gender: "female", Skin: "light", BaseImageKey: "base/bad.jpeg"},
	}, s, zap.NewNop())

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "theme", verr.Field)
	assert.Contains(t, err.Error(), "record 2")

	got, err := s.QueryBaseResources(context.Background(), "Edo", "female", "light")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImportRequiresImageKey(t *testing.T) {
	_, err := Import(context.Background(), []model.BaseResource{{Theme: "Edo", Gender: "female", Skin: "light"}}, nil, zap.NewNop())

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "baseImageKey", verr.Field)
}
