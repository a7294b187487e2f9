package testgen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// GenerateCBZ creates a valid CBZ file at the specified path with the given
// options. The generated CBZ contains ComicInfo.xml (if HasComicInfo is
// true) and page images (001.png, 002.png, etc., or PageNames when set).
func GenerateCBZ(t *testing.T, dir, filename string, opts CBZOptions) string {
	t.Helper()

	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create CBZ file: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	pageNames := opts.PageNames
	if len(pageNames) == 0 {
		pageCount := opts.PageCount
		if pageCount <= 0 {
			pageCount = 3
		}
		ext := "png"
		if opts.ImageFormat == "jpeg" || opts.ImageFormat == "jpg" {
			ext = "jpg"
		}
		for i := 0; i < pageCount; i++ {
			pageNames = append(pageNames, fmt.Sprintf("%03d.%s", i, ext))
		}
	}

	if opts.HasComicInfo {
		comicInfo := generateComicInfo(opts, len(pageNames))
		if err := writeZipFile(zw, "ComicInfo.xml", []byte(comicInfo)); err != nil {
			t.Fatalf("failed to write ComicInfo.xml: %v", err)
		}
	}

	mimeType := "image/png"
	if opts.ImageFormat == "jpeg" || opts.ImageFormat == "jpg" {
		mimeType = "image/jpeg"
	}

	for i, name := range pageNames {
		imgData := generateImage(t, mimeType)
		if opts.CorruptPageIndex != nil && i == *opts.CorruptPageIndex {
			if err := writeCorruptZipFile(zw, name, imgData); err != nil {
				t.Fatalf("failed to write corrupt page %s: %v", name, err)
			}
			continue
		}
		if err := writeZipFile(zw, name, imgData); err != nil {
			t.Fatalf("failed to write page %s: %v", name, err)
		}
	}

	return path
}

func generateComicInfo(opts CBZOptions, pageCount int) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<ComicInfo>
`)

	if opts.Title != "" {
		buf.WriteString(fmt.Sprintf("  <Title>%s</Title>\n", escapeXML(opts.Title)))
	}
	if opts.Series != "" {
		buf.WriteString(fmt.Sprintf("  <Series>%s</Series>\n", escapeXML(opts.Series)))
	}
	if opts.Number != "" {
		buf.WriteString(fmt.Sprintf("  <Number>%s</Number>\n", escapeXML(opts.Number)))
	}
	if opts.Writer != "" {
		buf.WriteString(fmt.Sprintf("  <Writer>%s</Writer>\n", escapeXML(opts.Writer)))
	}
	if opts.Manga {
		buf.WriteString("  <Manga>Yes</Manga>\n")
	}

	buf.WriteString(fmt.Sprintf("  <PageCount>%d</PageCount>\n", pageCount))

	if opts.CoverPageType != "" {
		buf.WriteString("  <Pages>\n")
		for i := 0; i < pageCount; i++ {
			pageType := ""
			if i == opts.CoverPageIndex {
				pageType = fmt.Sprintf(" Type=%q", opts.CoverPageType)
			}
			buf.WriteString(fmt.Sprintf("    <Page Image=\"%d\"%s/>\n", i, pageType))
		}
		buf.WriteString("  </Pages>\n")
	}

	buf.WriteString("</ComicInfo>")

	return buf.String()
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// writeCorruptZipFile stores the entry with a deliberately wrong CRC32 so
// that reading it back fails the integrity check.
func writeCorruptZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateRaw(&zip.FileHeader{
		Name:               name,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data) ^ 0xdeadbeef,
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func generateImage(t *testing.T, mimeType string) []byte {
	t.Helper()

	// A simple 100x100 solid color image.
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	blue := color.RGBA{0, 100, 200, 255}
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, blue)
		}
	}

	var buf bytes.Buffer
	switch mimeType {
	case "image/jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			t.Fatalf("failed to encode JPEG: %v", err)
		}
	default: // image/png
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("failed to encode PNG: %v", err)
		}
	}

	return buf.Bytes()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '&':
			buf.WriteString("&amp;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&apos;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
