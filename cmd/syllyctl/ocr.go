package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm/provider"
	"github.com/joseph-ayodele/syllabus-tracker/internal/ocr"
)

var ocrTextOnly bool

var ocrCmd = &cobra.Command{
	Use:   "ocr <page> [page...]",
	Short: "Extract text from syllabus pages in order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		pages, err := capture.NewLoader(logger, capture.WithWorkers(cfg.OCR.LoadWorkers)).Load(ctx, args)
		if err != nil {
			return err
		}
		res, err := newPageExtractor().ExtractPages(ctx, pages)
		if err != nil {
			return err
		}
		if ocrTextOnly {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return err
		}
		invalid := make([]string, 0, len(res.Invalid))
		for _, pe := range res.Invalid {
			invalid = append(invalid, pe.Error())
		}
		return printJSON(cmd, map[string]any{
			"pages":       len(res.Pages),
			"invalid":     invalid,
			"warnings":    res.Warnings,
			"confidence":  res.Confidence,
			"duration_ms": res.Duration.Milliseconds(),
			"text":        res.Text,
		})
	},
}

var parseFile string

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse extracted syllabus text (file or stdin) into assignments",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var (
			raw []byte
			err error
		)
		if parseFile == "" || parseFile == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(parseFile)
		}
		if err != nil {
			return err
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			return fmt.Errorf("no text to parse")
		}

		parser, err := newParser()
		if err != nil {
			return err
		}
		syl, err := parser.ParseSyllabus(ctx, text)
		if err != nil {
			return err
		}
		return printJSON(cmd, syl)
	},
}

func init() {
	ocrCmd.Flags().BoolVar(&ocrTextOnly, "text", false, "print only the extracted text")
	parseCmd.Flags().StringVarP(&parseFile, "file", "f", "", "text file to parse (default stdin)")
	rootCmd.AddCommand(ocrCmd, parseCmd)
}

func newPageExtractor() *ocr.PageExtractor {
	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:           cfg.OCR.Tesseract,
		TesseractLang:       cfg.OCR.Language,
		HeicConverter:       cfg.OCR.HeicConverter,
		TessdataDir:         cfg.OCR.TessdataDir,
		ArtifactCacheDir:    cfg.OCR.ArtifactCacheDir,
		EnableTSVConfidence: true,
	}, logger)
	return ocr.NewPageExtractor(extractor, ocr.ParsePolicy(cfg.OCR.InvalidPagePolicy), logger)
}

func newParser() (llm.Parser, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("API key for %s is required", cfg.LLM.Provider)
	}
	return provider.New(cfg.LLM, logger)
}
