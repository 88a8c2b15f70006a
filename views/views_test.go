package views

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-convertor/models"
)

func TestSchemaColumns(t *testing.T) {
	tests := []struct {
		kind models.SensorKind
		want []string
	}{
		{models.KindCamera, []string{"timestamp_ns", "filename"}},
		{models.KindIMU, []string{
			"timestamp_ns",
			"angular_velocity_x", "angular_velocity_y", "angular_velocity_z",
			"linear_acceleration_x", "linear_acceleration_y", "linear_acceleration_z",
		}},
		{models.KindVicon, []string{
			"timestamp_ns",
			"position_x", "position_y", "position_z",
			"orientation_w", "orientation_x", "orientation_y", "orientation_z",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, err := SchemaColumns(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := SchemaColumns(models.KindUnknown)
	assert.Error(t, err)
}

func TestCSVWriter_HeaderRowsAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	w, err := NewCSVWriter(path, 0, []string{"timestamp_ns", "filename"})
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	require.NoError(t, w.WriteRow([]string{"1000", "1000.png"}))
	require.NoError(t, w.WriteRow([]string{"2000", "2000.png"}))
	assert.Equal(t, uint64(2), w.Rows())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close is a no-op")
	assert.ErrorIs(t, w.WriteRow([]string{"3000", "3000.png"}), ErrWriterClosed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "timestamp_ns,filename\n1000,1000.png\n2000,2000.png\n", string(data))
}

func TestCSVWriter_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imu.csv")
	w, err := NewCSVWriter(path, 16, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestCSVWriter_CreateFails(t *testing.T) {
	_, err := NewCSVWriter(filepath.Join(t.TempDir(), "missing", "data.csv"), 0, nil)
	assert.Error(t, err)
}

func TestSavePNG_CreateFails(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	err := SavePNG(filepath.Join(t.TempDir(), "missing", "1.png"), img)
	assert.ErrorContains(t, err, "save image")
}

func TestSavePNG_IsLossless(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	img.SetRGBA(1, 1, color.RGBA{R: 250, G: 251, B: 252, A: 255})

	path := filepath.Join(t.TempDir(), "1000.png")
	require.NoError(t, SavePNG(path, img))
	// Overwriting the same name replaces the file.
	require.NoError(t, SavePNG(path, img))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	back, err := png.Decode(f)
	require.NoError(t, err)

	r, g, b, _ := back.At(1, 1).RGBA()
	assert.Equal(t, []uint32{250, 251, 252}, []uint32{r >> 8, g >> 8, b >> 8})
	r, g, b, _ = back.At(0, 0).RGBA()
	assert.Equal(t, []uint32{1, 2, 3}, []uint32{r >> 8, g >> 8, b >> 8})
}
