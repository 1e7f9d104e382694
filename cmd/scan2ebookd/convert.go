package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hasanmujtaba2006/Scan2eBook-AI/config"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/correct"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/imaging"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/ocr"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/ocr/tesseract"
	"github.com/hasanmujtaba2006/Scan2eBook-AI/pipeline"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

func newConvertCmd() *cobra.Command {
	var (
		configPath string
		title      string
		language   string
		script     string
		output     string
		skipSum    bool
	)
	cmd := &cobra.Command{
		Use:   "convert <image-dir>",
		Short: "Convert a directory of page images to an EPUB, without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return convert(cmd, cfg, args[0], title, language, ocr.Script(script), output, skipSum)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration")
	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().StringVar(&language, "language", "ur", "metadata language tag")
	cmd.Flags().StringVar(&script, "script", string(ocr.ScriptArabic), "script hint: latin, arabic-script, mixed")
	cmd.Flags().StringVarP(&output, "output", "o", "book.epub", "output file")
	cmd.Flags().BoolVar(&skipSum, "skip-summary", false, "do not generate a synopsis")
	return cmd
}

func convert(cmd *cobra.Command, cfg config.Config, dir, title, language string, script ocr.Script, output string, skipSummary bool) error {
	pages, err := collectPages(dir)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return fmt.Errorf("no page images found in %s", dir)
	}

	var summarizer pipeline.Summarizer
	var corrector correct.Corrector = disabledCorrector{}
	if !cfg.Correction.Disabled {
		groq := correct.NewGroqCorrector(correct.GroqConfig{
			BaseURL:     cfg.Correction.BaseURL,
			APIKey:      cfg.Correction.APIKey(),
			Model:       cfg.Correction.Model,
			Temperature: cfg.Correction.Temperature,
			Timeout:     cfg.Correction.Timeout.Std(),
		}, nil)
		corrector = groq
		summarizer = groq
	}

	registry := pipeline.NewRegistry()
	orch := pipeline.NewOrchestrator(registry,
		ocr.NewAdapter(tesseract.NewEngine(), nil),
		correct.NewAdapter(corrector, nil),
		summarizer, nil, nil,
		pipeline.Options{
			Workers: cfg.Workers,
			WorkDir: filepath.Dir(output),
			Imaging: imaging.Options{
				MaxDimension: cfg.MaxImageDimension,
				Binarize:     cfg.Binarize,
			},
		})

	id, err := orch.Submit(cmd.Context(), pipeline.Request{
		Pages:       pages,
		Title:       title,
		Language:    language,
		Script:      script,
		SkipSummary: skipSummary,
	})
	if err != nil {
		return err
	}

	for {
		job, err := registry.Get(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\r%3d%% %s", job.Progress, job.Message)
		if job.Status.Terminal() {
			fmt.Fprintln(cmd.OutOrStdout())
			if job.Status == pipeline.StatusFailed {
				return fmt.Errorf("conversion failed: %s", job.Error)
			}
			if err := os.Rename(job.ArtifactPath, output); err != nil {
				return fmt.Errorf("move artifact: %w", err)
			}
			if job.Summary != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "summary:", job.Summary)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", output)
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// collectPages reads dir and returns its images in lexical file-name order,
// which is how page scanners number their output.
func collectPages(dir string) ([]pipeline.PageInput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	pages := make([]pipeline.PageInput, 0, len(names))
	for i, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read page %s: %w", name, err)
		}
		pages = append(pages, pipeline.PageInput{Index: i, Data: data, Name: name})
	}
	return pages, nil
}
