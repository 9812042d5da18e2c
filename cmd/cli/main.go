package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/vgreer/soundbot/internal/catalog"
	"github.com/vgreer/soundbot/internal/config"
	"github.com/vgreer/soundbot/internal/encoder"
	"github.com/vgreer/soundbot/internal/ingest"
)

func openCatalog(c *cli.Context) (*catalog.Catalog, error) {
	return catalog.New(c.String("effects-dir"))
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "soundbot-cli",
		Description: "A development CLI for exercising the effect catalog without Discord",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "effects-dir",
				Usage: "Directory holding the canonical effect files",
				Value: "effects-normalized",
			},
			&cli.StringFlag{
				Name:  "ffmpeg",
				Usage: "Path to the ffmpeg binary",
				Value: "ffmpeg",
			},
			&cli.StringFlag{
				Name:  "ffprobe",
				Usage: "Path to the ffprobe binary",
				Value: "ffprobe",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all published effects",
				Action: func(c *cli.Context) error {
					effects, err := openCatalog(c)
					if err != nil {
						return cli.Exit("Failed to open catalog: "+err.Error(), 1)
					}
					names, err := effects.List()
					if err != nil {
						return cli.Exit("Failed to list effects: "+err.Error(), 1)
					}
					if len(names) == 0 {
						log.Println("No effects published.")
						return nil
					}
					for _, name := range names {
						fmt.Println(name)
					}
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "Ingest a local media file as a new effect",
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					file := c.Args().First()
					if file == "" {
						return cli.Exit("Please provide a media file to add", 1)
					}

					effects, err := openCatalog(c)
					if err != nil {
						return cli.Exit("Failed to open catalog: "+err.Error(), 1)
					}

					source := &ingest.FileSource{Path: file}
					name, err := ingest.EffectName(source.Filename())
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}

					ffmpeg := encoder.NewFFmpeg(c.String("ffmpeg"), c.String("ffprobe"))
					pipeline := ingest.NewPipeline(effects, ffmpeg, "")

					effect, err := pipeline.HandleUpload(c.Context, source, name, nil)
					if err != nil {
						return cli.Exit("Failed to ingest file: "+err.Error(), 1)
					}
					log.Printf("Published effect %q at %s", effect.Name, effect.Path)
					return nil
				},
			},
			{
				Name:      "probe",
				Usage:     "Print the sample rate of a published effect",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						return cli.Exit("Please provide an effect name", 1)
					}

					effects, err := openCatalog(c)
					if err != nil {
						return cli.Exit("Failed to open catalog: "+err.Error(), 1)
					}
					path, err := effects.ResolvePath(name)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}

					ffmpeg := encoder.NewFFmpeg(c.String("ffmpeg"), c.String("ffprobe"))
					rate, err := ffmpeg.SampleRate(c.Context, path)
					if err != nil {
						return cli.Exit("Failed to probe effect: "+err.Error(), 1)
					}
					fmt.Printf("%s: %d Hz\n", name, rate)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
