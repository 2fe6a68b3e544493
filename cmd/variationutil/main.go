// Command variationutil runs the VCF import pipeline without the service:
// metadata comes from a chrom sizes file, objects go to a local directory
// and records to a SQLite catalog.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	verrors "variationutil/api/errors"
	"variationutil/api/models"
	"variationutil/api/repositories/sqlite"
	"variationutil/api/services"
	"variationutil/api/services/metadata"
	"variationutil/api/services/objectstore"
	"variationutil/api/services/tools"
	"variationutil/api/services/vcf"
	"variationutil/api/utils"

	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.New(os.Stderr, "", 0).Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "variationutil",
		Usage:           "Import VCF files as variation records and export them back",
		HideHelpCommand: true,
		Version:         "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file, applied over the environment",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Verbose logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "Summarize a VCF: version, contigs, genotypes and variant count",
				ArgsUsage: "<vcf>",
				Action:    parseAction,
			},
			{
				Name:  "import",
				Usage: "Normalize, validate, cross-reference and store a staged VCF",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "vcf", Usage: "Staged VCF, relative to the staging root", Required: true},
					&cli.StringFlag{Name: "chrom-sizes", Usage: "Contig lengths of the assembly, one '<contig> <length>' per line", Required: true},
					&cli.StringFlag{Name: "assembly-ref", Usage: "Reference recorded for the assembly", Value: "local/assembly/1"},
					&cli.StringFlag{Name: "gff", Usage: "GFF3 of the genome, adds a feature track"},
					&cli.StringFlag{Name: "workspace", Usage: "Workspace the record is saved in", Value: "local"},
					&cli.StringFlag{Name: "name", Usage: "Name of the variation record", Required: true},
				},
				Action: importAction,
			},
			{
				Name:  "export",
				Usage: "Write the VCF of a stored variation record",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ref", Usage: "Variation reference", Required: true},
				},
				Action: exportAction,
			},
			{
				Name:  "list",
				Usage: "List the variation records of a workspace, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Value: "local"},
				},
				Action: listAction,
			},
		},
	}
}

type env struct {
	cfg     *models.Config
	logger  *zap.Logger
	catalog *sqlite.Catalog
	store   *objectstore.LocalStore
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	store, err := objectstore.NewLocalStore(cfg.ObjectStore.LocalPath)
	if err != nil {
		return nil, err
	}
	catalog, err := sqlite.Open(cfg.Catalog.SqlitePath)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, catalog: catalog, store: store}, nil
}

func (e *env) close() {
	e.catalog.Close()
	e.logger.Sync()
}

func (e *env) service(catalog metadata.Service) *services.IngestionService {
	return services.NewIngestionService(e.cfg, services.Dependencies{
		Runner:     tools.NewExecRunner(e.logger.Named("tools")),
		Catalog:    catalog,
		Store:      e.store,
		Repository: e.catalog,
	}, e.logger)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return verrors.New(verrors.KindFormat, "expected exactly one VCF, got %d arguments", c.NArg())
	}
	info, err := vcf.Parse(c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, map[string]interface{}{
		"version":       info.Version,
		"contigs":       info.OrderedContigs(),
		"genotypes":     info.GenotypeIds,
		"totalVariants": info.TotalVariants,
	})
}

func importAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	catalog, err := metadata.LoadChromSizes(c.String("chrom-sizes"), c.String("assembly-ref"))
	if err != nil {
		return err
	}
	catalog.GffPath = c.String("gff")

	result, err := e.service(catalog).Import(context.Background(), services.ImportParams{
		GenomeOrAssemblyRef: c.String("assembly-ref"),
		VcfStagingFilePath:  c.String("vcf"),
		VariationObjectName: c.String("name"),
		Workspace:           c.String("workspace"),
	})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, result)
}

func exportAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	path, err := e.service(&metadata.StaticCatalog{}).Export(context.Background(), c.String("ref"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, path)
	return nil
}

func listAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	objs, err := e.catalog.List(context.Background(), c.String("workspace"))
	if err != nil {
		return err
	}
	for _, o := range objs {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\t%d variants\n", o.Ref, o.Name, o.CreatedAt.Format("2006-01-02T15:04:05Z"), o.Data.NumVariants)
	}
	return nil
}
