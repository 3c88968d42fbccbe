package apk

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	ab "github.com/shogo82148/androidbinary/apk"
	"golang.org/x/image/webp"
)

// IconSize is the edge length every extracted icon is normalized to.
const IconSize = 144

// iconCandidates is the search order for launcher icons inside an APK.
var iconCandidates = []string{
	"res/mipmap-xxxhdpi/ic_launcher.png",
	"res/mipmap-xxhdpi/ic_launcher.png",
	"res/mipmap-xhdpi/ic_launcher.png",
	"res/mipmap-hdpi/ic_launcher.png",
	"res/drawable-xxxhdpi/ic_launcher.png",
	"res/drawable-xxhdpi/ic_launcher.png",
	"res/drawable-xhdpi/ic_launcher.png",
	"res/drawable-hdpi/ic_launcher.png",
	"res/mipmap-xxxhdpi/ic_launcher.webp",
	"res/mipmap-xxhdpi/ic_launcher.webp",
	"res/mipmap-xhdpi/ic_launcher.webp",
	"res/mipmap-hdpi/ic_launcher.webp",
}

// ExtractIcon pulls the launcher icon out of an APK, normalized to a
// square PNG of IconSize pixels.
func ExtractIcon(apkPath string) ([]byte, error) {
	if pkg, err := ab.OpenFile(apkPath); err == nil {
		defer pkg.Close()
		if img, err := pkg.Icon(nil); err == nil && img != nil {
			return encodeIcon(img)
		}
	}
	return extractIconFromZip(apkPath)
}

// SaveIcon writes the launcher icon as a PNG file.
func SaveIcon(apkPath, outPath string) error {
	data, err := ExtractIcon(apkPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

// extractIconFromZip scans resource paths directly; it covers APKs whose
// manifest points the icon at an adaptive drawable the decoder cannot
// render.
func extractIconFromZip(apkPath string) ([]byte, error) {
	reader, err := zip.OpenReader(apkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open APK: %w", err)
	}
	defer reader.Close()

	byName := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		byName[f.Name] = f
	}

	for _, candidate := range iconCandidates {
		f, ok := byName[candidate]
		if !ok {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			continue
		}
		return decodeAndNormalize(data, filepath.Ext(candidate))
	}

	// Last resort: any launcher icon, ignoring adaptive layer images.
	for _, f := range reader.File {
		if !strings.Contains(f.Name, "ic_launcher") {
			continue
		}
		if strings.Contains(f.Name, "_foreground") || strings.Contains(f.Name, "_background") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".png" && ext != ".webp" {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			continue
		}
		return decodeAndNormalize(data, ext)
	}

	return nil, fmt.Errorf("no launcher icon found in APK")
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func decodeAndNormalize(data []byte, ext string) ([]byte, error) {
	var img image.Image
	var err error
	if strings.EqualFold(ext, ".webp") {
		img, err = webp.Decode(bytes.NewReader(data))
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode icon: %w", err)
	}
	return encodeIcon(img)
}

func encodeIcon(img image.Image) ([]byte, error) {
	resized := resize.Resize(IconSize, IconSize, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
