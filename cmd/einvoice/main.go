// Shell CLI del núcleo de facturación electrónica. Expone las operaciones
// del módulo sobre archivos locales: detección de formato, validación en
// capas, conversión UBL ⇄ Facturae, cálculo de morosidad, PDF y emisión
// simulada. Las capas externas (HTTP, colas, persistencia real) quedan fuera
// del ejecutable.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tu-usuario/einvoice-es/internal/application/billing"
	"github.com/tu-usuario/einvoice-es/internal/application/conversion"
	"github.com/tu-usuario/einvoice-es/internal/application/validation"
	"github.com/tu-usuario/einvoice-es/internal/domain/einvoice"
	"github.com/tu-usuario/einvoice-es/internal/infrastructure/pdf"
	"github.com/tu-usuario/einvoice-es/internal/infrastructure/spfe"
	"github.com/tu-usuario/einvoice-es/pkg/config"
	"github.com/tu-usuario/einvoice-es/pkg/logger"
)

var version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error cargando configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	root := newRootCmd(cfg, log)
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("comando fallido")
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config, log *logger.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:     "einvoice",
		Short:   "Núcleo de facturación electrónica B2B (EN 16931, UBL 2.1, Facturae 3.2.2)",
		Version: version,
		Long: `einvoice procesa facturas electrónicas conformes a la norma europea
EN 16931 en sus sintaxis UBL 2.1 y Facturae 3.2.2: detecta el formato,
valida en cuatro capas (XSD, Schematron EN, reglas españolas, reglas de
negocio), convierte entre sintaxis a través del modelo neutral y calcula
la morosidad según la Ley 3/2004.`,
	}

	root.AddCommand(
		newDetectCmd(),
		newValidateCmd(),
		newConvertCmd(cfg),
		newOverdueCmd(),
		newPDFCmd(),
		newIssueCmd(cfg, log),
	)
	return root
}

// ── detect ────────────────────────────────────────────────────────────────────

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [archivo.xml]",
		Short: "Detecta el formato de un documento (ubl_2.1, facturae_3.2.2 o unknown)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("leer %s: %w", args[0], err)
			}
			conv := conversion.NewConverter()
			fmt.Fprintln(cmd.OutOrStdout(), conv.DetectFormat(string(data)))
			return nil
		},
	}
}

// ── validate ──────────────────────────────────────────────────────────────────

func newValidateCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "validate [archivo.xml]",
		Short: "Valida un documento en las cuatro capas y reporta errores y avisos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("leer %s: %w", args[0], err)
			}
			xml := string(data)

			conv := conversion.NewConverter()
			if format == "" {
				format = conv.DetectFormat(xml)
			}

			engine := validation.NewEngine()
			result := engine.Validate(xml, format)

			out := cmd.OutOrStdout()
			for _, e := range result.Errors {
				fmt.Fprintf(out, "ERROR   %s\n", e)
			}
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "AVISO   %s\n", w)
			}
			if result.Valid {
				fmt.Fprintf(out, "VÁLIDO  %s (%s)\n", args[0], format)
				return nil
			}
			return fmt.Errorf("documento inválido: %d errores", len(result.Errors))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "formato declarado (por defecto se detecta)")
	return cmd
}

// ── convert ───────────────────────────────────────────────────────────────────

func newConvertCmd(cfg *config.Config) *cobra.Command {
	var target, output string
	cmd := &cobra.Command{
		Use:   "convert [archivo.xml]",
		Short: "Convierte un documento a otra sintaxis a través del modelo neutral",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("leer %s: %w", args[0], err)
			}
			if target == "" {
				target = cfg.App.TargetFormat
			}

			conv := conversion.NewConverter()
			converted, err := conv.ConvertTo(string(data), target)
			if err != nil {
				return fmt.Errorf("convertir a %s: %w", target, err)
			}

			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), converted)
				return nil
			}
			if err := os.WriteFile(output, []byte(converted), 0o644); err != nil {
				return fmt.Errorf("escribir %s: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "formato destino: ubl_2.1 o facturae_3.2.2")
	cmd.Flags().StringVarP(&output, "output", "o", "", "archivo de salida (por defecto stdout)")
	return cmd
}

// ── overdue ───────────────────────────────────────────────────────────────────

func newOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue [id-documento] [fecha-vencimiento]",
		Short: "Calcula días de retraso y severidad según la Ley 3/2004",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := einvoice.Assess(args[0], args[1])
			data, err := json.MarshalIndent(result.ToMap(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// ── pdf ───────────────────────────────────────────────────────────────────────

func newPDFCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "pdf [archivo.xml]",
		Short: "Genera la representación gráfica PDF de un documento",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("leer %s: %w", args[0], err)
			}

			conv := conversion.NewConverter()
			inv, err := conv.ToNeutralModel(string(data))
			if err != nil {
				return fmt.Errorf("interpretar documento: %w", err)
			}

			bytes, err := pdf.NewGenerator().Generate(inv)
			if err != nil {
				return err
			}
			if output == "" {
				output = inv.InvoiceNumber + ".pdf"
			}
			if err := os.WriteFile(output, bytes, 0o644); err != nil {
				return fmt.Errorf("escribir %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "PDF generado: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "archivo PDF de salida")
	return cmd
}

// ── issue ─────────────────────────────────────────────────────────────────────

func newIssueCmd(cfg *config.Config, log *logger.Logger) *cobra.Command {
	var target string
	var timeout int
	cmd := &cobra.Command{
		Use:   "issue [archivo.xml]",
		Short: "Valida y presenta un documento a la pasarela simulada",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("leer %s: %w", args[0], err)
			}
			if target == "" {
				target = cfg.App.TargetFormat
			}

			conv := conversion.NewConverter()
			inv, err := conv.ToNeutralModel(string(data))
			if err != nil {
				return fmt.Errorf("interpretar documento: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
			defer cancel()

			orch := billing.NewOrchestrator(spfe.NewSimulatedGateway(), nil, log.WithComponent("billing"))
			submission, err := orch.Issue(ctx, inv, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Presentado: id=%s estado=%s\n",
				submission.SubmissionID, submission.Status)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "formato de presentación")
	cmd.Flags().IntVar(&timeout, "timeout", 30, "timeout de presentación en segundos")
	return cmd
}
