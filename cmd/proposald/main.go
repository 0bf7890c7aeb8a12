package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Safwan2003/ai-proposalgenerator-backend/config"
	core "github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/core"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/telemetry"
	srv "github.com/Safwan2003/ai-proposalgenerator-backend/internal/server"
	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/icon_catalog"
	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search"
)

func main() {
	var root = &cobra.Command{Use: "proposald"}

	root.AddCommand(serveCMD(), migrateCMD(), generateCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var serveAddr string
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serveAddr == "" {
				serveAddr = os.Getenv("PROPOSALGEN_HTTP_ADDR")
			}
			return srv.Run(serveAddr, cfgPath)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	return serve
}

func migrateCMD() *cobra.Command {
	var migDir string
	var cfgPath string
	var direction string
	var steps int
	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			return srv.Migrate(migDir, cfg.Storage.Postgres.DSN(), direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	migrate.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	return migrate
}

// generateCMD runs the pipeline once without the server and prints the
// resulting sections as JSON. Useful for prompt iteration.
func generateCMD() *cobra.Command {
	var cfgPath string
	var client, company, rfpFile string
	var titles []string
	var generate = &cobra.Command{
		Use:   "generate",
		Short: "Generate a proposal once and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			rfp, err := os.ReadFile(rfpFile)
			if err != nil {
				return fmt.Errorf("read rfp: %w", err)
			}

			provider, err := core.NewLLMProvider(cfg.LLM)
			if err != nil {
				return err
			}
			tele := telemetry.NewTelemetry(cfg.Telemetry)

			var searchers []image_search.ImageSearcher
			if cfg.Sources.Pexels.APIKey != "" {
				if s, err := image_search.NewImageSearcher(image_search.PexelsProvider, cfg.Sources.Pexels.APIKey); err == nil {
					searchers = append(searchers, s)
				}
			}
			if cfg.Sources.Pixabay.APIKey != "" {
				if s, err := image_search.NewImageSearcher(image_search.PixabayProvider, cfg.Sources.Pixabay.APIKey); err == nil {
					searchers = append(searchers, s)
				}
			}
			if len(searchers) == 0 {
				return fmt.Errorf("no image providers configured (sources.pexels.api_key or sources.pixabay.api_key)")
			}
			images := image_search.Multi{Searchers: searchers}

			catalog := icon_catalog.New(cfg.Logos.CatalogURL, cfg.Logos.CacheTTL, nil)
			logos := core.NewTechLogoResolver(catalog, nil, cfg.Logos.CDNBaseURL)
			diagrams := core.NewDiagramGenerator(provider,
				cfg.LLM.Routing.Model(cfg.LLM.Routing.Diagram),
				core.RetryPolicy{
					MaxAttempts:    cfg.Pipeline.DiagramMaxAttempts,
					BaseDelay:      cfg.Pipeline.DiagramBaseDelay,
					RateLimitDelay: cfg.Pipeline.DiagramRateLimitDelay,
				}, tele)
			classifier := core.NewClassifier(provider, cfg.LLM.Routing.Model(cfg.LLM.Routing.Classification))
			assembler := core.NewAssembler(cfg, provider, classifier, images, logos, diagrams, tele)

			ctx, cancel := context.WithTimeout(context.Background(), cfg.General.MaxProcessingTime)
			defer cancel()

			sections, err := assembler.Run(ctx, core.ProposalRequest{
				ClientName:    client,
				CompanyName:   company,
				RFPText:       strings.TrimSpace(string(rfp)),
				SectionTitles: titles,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{"sections": sections})
		},
	}
	generate.Flags().StringVar(&client, "client", "", "client name")
	generate.Flags().StringVar(&company, "company", "", "company name")
	generate.Flags().StringVar(&rfpFile, "rfp", "", "path to RFP text file")
	generate.Flags().StringSliceVar(&titles, "sections", nil, "section titles (default set when omitted)")
	generate.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	_ = generate.MarkFlagRequired("client")
	_ = generate.MarkFlagRequired("rfp")
	return generate
}
