package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/quickbill/quickbill/internal/export"
	"github.com/quickbill/quickbill/internal/invoice"
	"github.com/quickbill/quickbill/internal/layout"
	"github.com/quickbill/quickbill/internal/view"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		slog.Default().Error("invoicectl", slog.Any("error", err))
		os.Exit(1)
	}
}

func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	inFlag := &cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "invoice JSON file, - for stdin", Value: "-"}
	return &cli.App{
		Name:      "invoicectl",
		Usage:     "render and inspect invoices offline",
		Writer:    stdout,
		ErrWriter: stdout,
		Commands: []*cli.Command{
			{
				Name:  "render",
				Usage: "render an invoice to PDF or print HTML",
				Flags: []cli.Flag{
					inFlag,
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file", Required: true},
					&cli.BoolFlag{Name: "pro", Usage: "render with Pro features unlocked"},
					&cli.BoolFlag{Name: "html", Usage: "write the print HTML instead of a PDF"},
					&cli.StringFlag{Name: "font", Usage: "UTF-8 TrueType body font", EnvVars: []string{"PDF_FONT_PATH"}},
					&cli.StringFlag{Name: "font-bold", Usage: "UTF-8 TrueType bold font", EnvVars: []string{"PDF_FONT_BOLD_PATH"}},
				},
				Action: func(c *cli.Context) error {
					doc, err := readDocument(stdin, c.String("in"))
					if err != nil {
						return err
					}
					l := layout.Build(doc, layout.Options{Pro: c.Bool("pro")})
					var out []byte
					if c.Bool("html") {
						templates, err := view.NewEngine()
						if err != nil {
							return err
						}
						html, err := templates.RenderPrint(l)
						if err != nil {
							return err
						}
						out = []byte(html)
					} else {
						local := export.NewLocal(export.LocalOptions{FontPath: c.String("font"), BoldFontPath: c.String("font-bold")})
						exports := export.NewService(export.BackendLocal, local, nil, nil)
						if out, err = exports.Export(c.Context, l); err != nil {
							return err
						}
					}
					if err := os.WriteFile(c.String("out"), out, 0o644); err != nil {
						return fmt.Errorf("write %s: %w", c.String("out"), err)
					}
					fmt.Fprintf(stdout, "wrote %s (%s, %d bytes)\n", c.String("out"), l.Variant.Name, len(out))
					return nil
				},
			},
			{
				Name:  "totals",
				Usage: "print the computed totals of an invoice",
				Flags: []cli.Flag{inFlag},
				Action: func(c *cli.Context) error {
					doc, err := readDocument(stdin, c.String("in"))
					if err != nil {
						return err
					}
					totals := invoice.Compute(doc)
					cur := invoice.LookupCurrency(doc.Currency)
					tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintf(tw, "Subtotal\t%s\n", cur.Format(totals.Subtotal))
					fmt.Fprintf(tw, "Tax (%s%%)\t%s\n", invoice.FormatNumber(doc.TaxRate), cur.Format(totals.Tax))
					fmt.Fprintf(tw, "Discount\t%s\n", cur.FormatNegated(totals.Discount))
					fmt.Fprintf(tw, "Total\t%s\n", cur.Format(totals.Total))
					fmt.Fprintf(tw, "Due in\t%d days\n", totals.DaysUntilDue)
					return tw.Flush()
				},
			},
			{
				Name:  "templates",
				Usage: "list the available templates",
				Action: func(c *cli.Context) error {
					tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tTIER\tSUMMARY")
					for _, d := range layout.Descriptors() {
						tier := "free"
						if d.Pro {
							tier = "pro"
						}
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Name, tier, d.Summary)
					}
					return tw.Flush()
				},
			},
			{
				Name:  "sample",
				Usage: "print the sample invoice JSON for a template",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Value: string(layout.Clean)},
				},
				Action: func(c *cli.Context) error {
					enc := json.NewEncoder(stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(invoice.Sample(c.String("template")))
				},
			},
		},
	}
}

func readDocument(stdin io.Reader, path string) (invoice.Document, error) {
	if path == "" || path == "-" {
		return invoice.Decode(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return invoice.Document{}, err
	}
	defer f.Close()
	doc, err := invoice.Decode(f)
	if err != nil {
		return invoice.Document{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}
