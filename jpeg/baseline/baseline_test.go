package baseline

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"

	"github.com/cocosip/go-rasterstats/jpeg/common"
)

func gradientGray(width, height int) []byte {
	pixelData := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixelData[y*width+x] = byte((x + y) % 256)
		}
	}
	return pixelData
}

func gradientRGB(width, height int) []byte {
	pixelData := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := (y*width + x) * 3
			pixelData[offset+0] = byte(x * 4)       // R
			pixelData[offset+1] = byte(y * 4)       // G
			pixelData[offset+2] = byte((x + y) * 2) // B
		}
	}
	return pixelData
}

func maxError(a, b []byte) int {
	maxErr := 0
	for i := range a {
		diff := int(a[i]) - int(b[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > maxErr {
			maxErr = diff
		}
	}
	return maxErr
}

func TestEncodeDecodeGrayscale(t *testing.T) {
	width, height := 64, 64
	pixelData := gradientGray(width, height)

	jpegData, err := Encode(pixelData, width, height, 1, 85)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	t.Logf("Encoded size: %d bytes (compression ratio: %.2fx)",
		len(jpegData), float64(len(pixelData))/float64(len(jpegData)))

	decodedData, w, h, components, err := Decode(jpegData)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if w != width || h != height {
		t.Errorf("Dimensions mismatch: got %dx%d, want %dx%d", w, h, width, height)
	}
	if components != 1 {
		t.Errorf("Components mismatch: got %d, want 1", components)
	}
	if len(decodedData) != width*height {
		t.Fatalf("Data length mismatch: got %d, want %d", len(decodedData), width*height)
	}

	maxErr := maxError(pixelData, decodedData)
	t.Logf("Maximum pixel error: %d", maxErr)
	if maxErr > 20 {
		t.Errorf("Maximum error too large: %d (expected <= 20)", maxErr)
	}
}

func TestEncodeDecodeRGB(t *testing.T) {
	// Odd sizes leave partial MCUs on the right and bottom edges
	for _, size := range [][2]int{{64, 64}, {37, 21}, {1, 1}} {
		width, height := size[0], size[1]
		pixelData := gradientRGB(width, height)

		jpegData, err := Encode(pixelData, width, height, 3, 90)
		if err != nil {
			t.Fatalf("%dx%d: Encode failed: %v", width, height, err)
		}

		decodedData, w, h, components, err := Decode(jpegData)
		if err != nil {
			t.Fatalf("%dx%d: Decode failed: %v", width, height, err)
		}
		if w != width || h != height || components != 3 {
			t.Fatalf("%dx%d: got %dx%d with %d components", width, height, w, h, components)
		}

		maxErr := maxError(pixelData, decodedData)
		t.Logf("%dx%d: maximum pixel error: %d", width, height, maxErr)
		if maxErr > 40 {
			t.Errorf("%dx%d: maximum error too large: %d (expected <= 40)", width, height, maxErr)
		}
	}
}

func TestFlatImages(t *testing.T) {
	gray := bytes.Repeat([]byte{100}, 20*12)
	for _, quality := range []int{50, 75, 100} {
		jpegData, err := Encode(gray, 20, 12, 1, quality)
		if err != nil {
			t.Fatal(err)
		}
		decoded, _, _, _, err := Decode(jpegData)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(decoded, gray) {
			t.Errorf("quality %d: flat gray image changed", quality)
		}
	}

	rgb := bytes.Repeat([]byte{200, 100, 50}, 17*9)
	jpegData, err := Encode(rgb, 17, 9, 3, 95)
	if err != nil {
		t.Fatal(err)
	}
	decoded, _, _, _, err := Decode(jpegData)
	if err != nil {
		t.Fatal(err)
	}
	if e := maxError(rgb, decoded); e > 3 {
		t.Errorf("flat RGB image error %d", e)
	}
}

func TestQualityAffectsSize(t *testing.T) {
	pixelData := gradientRGB(64, 64)
	high, err := Encode(pixelData, 64, 64, 3, 95)
	if err != nil {
		t.Fatal(err)
	}
	low, err := Encode(pixelData, 64, 64, 3, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(low) >= len(high) {
		t.Errorf("quality 20 is %d bytes, quality 95 is %d bytes", len(low), len(high))
	}
}

func TestRestartIntervals(t *testing.T) {
	width, height := 40, 40
	pixelData := gradientGray(width, height)

	plain, err := Encode(pixelData, width, height, 1, 80)
	if err != nil {
		t.Fatal(err)
	}
	withRestarts, err := EncodeWithOptions(pixelData, width, height, 1, Options{Quality: 80, RestartInterval: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(withRestarts, []byte{0xFF, 0xD0}) || !bytes.Contains(withRestarts, []byte{0xFF, 0xD7}) {
		t.Fatalf("restart markers missing")
	}

	want, _, _, _, err := Decode(plain)
	if err != nil {
		t.Fatal(err)
	}
	got, _, _, _, err := Decode(withRestarts)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("restart intervals changed the decoded image")
	}

	if _, err := jpeg.Decode(bytes.NewReader(withRestarts)); err != nil {
		t.Errorf("image/jpeg rejects the stream: %v", err)
	}
}

// The standard library decoder uses the same IDCT and level shift, so
// grayscale results must match exactly
func TestMatchesImageJPEG(t *testing.T) {
	width, height := 45, 30
	pixelData := gradientGray(width, height)

	// Our stream, both decoders
	ours, err := Encode(pixelData, width, height, 1, 75)
	if err != nil {
		t.Fatal(err)
	}
	decoded, _, _, _, err := Decode(ours)
	if err != nil {
		t.Fatal(err)
	}
	img, err := jpeg.Decode(bytes.NewReader(ours))
	if err != nil {
		t.Fatalf("image/jpeg rejects the stream: %v", err)
	}
	if g, ok := img.(*image.Gray); !ok || !equalGray(g, decoded, width, height) {
		t.Errorf("decoders disagree on our stream")
	}

	// A standard library stream, both decoders
	src := image.NewGray(image.Rect(0, 0, width, height))
	copy(src.Pix, pixelData)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 60}); err != nil {
		t.Fatal(err)
	}
	decoded, w, h, components, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if w != width || h != height || components != 1 {
		t.Fatalf("got %dx%d with %d components", w, h, components)
	}
	img, err = jpeg.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if !equalGray(img.(*image.Gray), decoded, width, height) {
		t.Errorf("decoders disagree on an image/jpeg stream")
	}

	// Color streams differ only through chroma upsampling
	rgb := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := rgb.PixOffset(x, y)
			rgb.Pix[o], rgb.Pix[o+1], rgb.Pix[o+2], rgb.Pix[o+3] = byte(x*4), byte(y*4), 90, 255
		}
	}
	buf.Reset()
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	decoded, _, _, components, err = Decode(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if components != 3 {
		t.Fatalf("components = %d", components)
	}
	var want []byte
	for i := 0; i < len(rgb.Pix); i += 4 {
		want = append(want, rgb.Pix[i:i+3]...)
	}
	if e := maxError(want, decoded); e > 40 {
		t.Errorf("color error %d", e)
	}
}

func equalGray(img *image.Gray, pix []byte, width, height int) bool {
	for y := 0; y < height; y++ {
		if !bytes.Equal(img.Pix[y*img.Stride:y*img.Stride+width], pix[y*width:(y+1)*width]) {
			return false
		}
	}
	return true
}

func TestEncodeRejects(t *testing.T) {
	pix := make([]byte, 16*3)
	tests := []struct {
		name                  string
		width, height, comps  int
		quality               int
		want                  error
	}{
		{"zero width", 0, 4, 1, 80, common.ErrInvalidDimensions},
		{"too wide", 70000, 1, 1, 80, common.ErrInvalidDimensions},
		{"two components", 4, 4, 2, 80, common.ErrInvalidComponents},
		{"quality zero", 4, 4, 1, 0, common.ErrInvalidQuality},
		{"quality above 100", 4, 4, 1, 101, common.ErrInvalidQuality},
		{"short buffer", 8, 8, 3, 80, common.ErrBufferTooSmall},
	}
	for _, tt := range tests {
		if _, err := Encode(pix, tt.width, tt.height, tt.comps, tt.quality); !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}
	if _, err := EncodeWithOptions(pix, 4, 4, 1, Options{Quality: 80, RestartInterval: -1}); !errors.Is(err, common.ErrInvalidData) {
		t.Errorf("negative restart interval: got %v", err)
	}
}

func TestDecodeRejects(t *testing.T) {
	valid, err := Encode(gradientGray(32, 32), 32, 32, 1, 80)
	if err != nil {
		t.Fatal(err)
	}

	progressive := []byte{
		0xFF, 0xD8,
		0xFF, 0xC2, 0x00, 0x0B, 0x08, 0x00, 0x01, 0x00, 0x01, 0x01, 0x01, 0x11, 0x00,
		0xFF, 0xD9,
	}
	twelveBit := []byte{
		0xFF, 0xD8,
		0xFF, 0xC1, 0x00, 0x0B, 0x0C, 0x00, 0x01, 0x00, 0x01, 0x01, 0x01, 0x11, 0x00,
		0xFF, 0xD9,
	}
	noScan := []byte{
		0xFF, 0xD8,
		0xFF, 0xC0, 0x00, 0x0B, 0x08, 0x00, 0x01, 0x00, 0x01, 0x01, 0x01, 0x11, 0x00,
		0xFF, 0xD9,
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, common.ErrInvalidSOI},
		{"not jpeg", []byte("GIF89a"), common.ErrInvalidSOI},
		{"progressive", progressive, common.ErrUnsupportedFormat},
		{"12-bit", twelveBit, common.ErrUnsupportedFormat},
		{"no scan", noScan, common.ErrInvalidData},
		{"truncated", valid[:len(valid)/2], nil},
	}
	for _, tt := range tests {
		_, _, _, _, err := Decode(tt.data)
		if err == nil {
			t.Errorf("%s: decoded", tt.name)
			continue
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}
}
