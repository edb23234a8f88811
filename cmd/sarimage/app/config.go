package app

import (
	"errors"
	"flag"
	"fmt"
	"runtime"
	"strings"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	defaultImageSize = 512
)

type ImageFormat string

type Config struct {
	DBPath        string
	CollectionID  int64
	OutputFile    string
	Format        ImageFormat
	Theme         ColorTheme
	Width         int
	Height        int
	Extent        *float64
	DynamicRange  *float64
	FontPath      string
	Workers       int
	Verbose       bool
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:  ImagePNG,
		Theme:   ClassicTheme,
		Width:   defaultImageSize,
		Height:  defaultImageSize,
		Workers: runtime.NumCPU(),
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, theme string
	var extent, dynamicRange float64
	flag.StringVar(&c.DBPath, "db", "", "Path to the database file")
	flag.Int64Var(&c.CollectionID, "collection", 1, "Collection ID")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&theme, "theme", string(ClassicTheme), "Color theme. [classic, grayscale, thermal]")
	flag.IntVar(&c.Width, "width", c.Width, "Image width in pixels")
	flag.IntVar(&c.Height, "height", c.Height, "Image height in pixels")
	flag.Float64Var(&extent, "extent", 0, "Scene width in meters (default one range cell per pixel)")
	flag.Float64Var(&dynamicRange, "dynamic-range", 0, "Displayed range below the peak in dB (default percentile bounds)")
	flag.StringVar(&c.FontPath, "font", "", "Path to a TTF font for annotations")
	flag.IntVar(&c.Workers, "workers", c.Workers, "Number of worker goroutines")
	flag.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable axis scales and the info bar")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)
	theme = strings.ToLower(theme)

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "extent" {
			c.Extent = &extent
		}
		if f.Name == "dynamic-range" {
			c.DynamicRange = &dynamicRange
		}
	})

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.CollectionID <= 0 {
		err = errors.New("collection id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if _, ok := validColorThemes[ColorTheme(theme)]; !ok {
		err = fmt.Errorf("invalid color theme: %s", theme)
	} else if c.Width <= 0 || c.Height <= 0 {
		err = fmt.Errorf("invalid image size: %dx%d", c.Width, c.Height)
	} else if c.Workers <= 0 {
		err = fmt.Errorf("invalid worker count: %d", c.Workers)
	} else if c.Extent != nil && *c.Extent <= 0 {
		err = fmt.Errorf("invalid scene extent: %g", *c.Extent)
	} else if c.DynamicRange != nil && *c.DynamicRange <= 0 {
		err = fmt.Errorf("invalid dynamic range: %g", *c.DynamicRange)
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.Theme = ColorTheme(theme)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
