package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/manualrebuild/internal/client"
	"github.com/local/manualrebuild/internal/filetype"
	"github.com/local/manualrebuild/internal/storage"
)

var (
	imagePath string
	pageRange string
	mimeType  string
	outPath   string
	publish   bool
	s3Key     string
)

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Reconstruct one manual page from an image",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		b64, detected, err := filetype.New().EncodeFile(imagePath)
		if err != nil {
			return err
		}
		if mimeType == "" {
			mimeType = detected
		}

		html, err := client.New(client.Options{BaseURL: serverURL}).ReconstructManualPage(ctx, b64, mimeType, pageRange)
		if err != nil {
			return err
		}

		if outPath != "" {
			if err := os.WriteFile(outPath, []byte(html), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			log.Info().Str("file", outPath).Int("size", len(html)).Msg("page written")
		} else if !publish {
			fmt.Fprintln(cmd.OutOrStdout(), html)
		}

		if publish || s3Key != "" {
			s3c, err := storage.NewS3Client(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			key, loc, err := s3c.PublishPage(ctx, s3Key, pageRange, html)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s\n%s\n", key, loc)
		}
		return nil
	},
}

func init() {
	pageCmd.Flags().StringVar(&imagePath, "image", "", "page image file (png, jpeg, webp)")
	pageCmd.Flags().StringVar(&pageRange, "pages", "", "page range shown on the image, e.g. 15-17")
	pageCmd.Flags().StringVar(&mimeType, "mime", "", "override the detected media type")
	pageCmd.Flags().StringVar(&outPath, "out", "", "write HTML to this file instead of stdout")
	pageCmd.Flags().BoolVar(&publish, "publish", false, "upload the HTML to the configured bucket under the next free version")
	pageCmd.Flags().StringVar(&s3Key, "s3-key", "", "upload the HTML under this exact key")
	_ = pageCmd.MarkFlagRequired("image")
	_ = pageCmd.MarkFlagRequired("pages")
}
