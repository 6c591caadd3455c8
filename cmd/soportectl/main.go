// Command soportectl is an operator CLI for the soporte service. It talks
// straight to the database, so bulk loads and exports work even when the API
// is down.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mensajeria/soporte-api/internal/config"
	"github.com/mensajeria/soporte-api/internal/export"
	"github.com/mensajeria/soporte-api/internal/importer"
	"github.com/mensajeria/soporte-api/internal/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "soportectl",
		Short:         "Herramienta de administración de soportes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newImportCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newBuscarCommand())

	return cmd
}

// openStore loads configuration and connects to the database.
func openStore(ctx context.Context) (*store.Store, error) {
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func newImportCommand() *cobra.Command {
	var limite int

	cmd := &cobra.Command{
		Use:   "import <archivo.xlsx>",
		Short: "Importa soportes desde un archivo Excel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".xlsx" && ext != ".xls" {
				return fmt.Errorf("el archivo debe ser Excel (.xlsx o .xls): %s", path)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			outcome, err := importer.New(st).Import(ctx, data, limite)
			if err != nil {
				return err
			}

			res := outcome.Resultado
			fmt.Printf("procesados: %d  exitosos: %d  fallidos: %d\n",
				res.TotalProcesados, res.Exitosos, res.Fallidos)
			for _, re := range res.Errores {
				fmt.Printf("  fila %d (cedula %s): %s\n", re.Fila, re.Cedula, re.Error)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limite, "limite", 0, "máximo de filas a procesar (0 = tope por defecto)")

	return cmd
}

func newExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:       "export <excel|pdf>",
		Short:     "Exporta todos los soportes a un archivo",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"excel", "pdf"},
		RunE: func(cmd *cobra.Command, args []string) error {
			format := args[0]

			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.All(ctx)
			if err != nil {
				return err
			}

			var body []byte
			var ext string
			switch format {
			case "excel":
				body, err = export.Excel(records)
				ext = "xlsx"
			case "pdf":
				body, err = export.PDF(records)
				ext = "pdf"
			default:
				return fmt.Errorf("formato no soportado: %s (use excel o pdf)", format)
			}
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("soportes_%s.%s", time.Now().Format("20060102_150405"), ext)
			}
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return err
			}

			fmt.Printf("%d soportes exportados a %s\n", len(records), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "archivo de salida (por defecto con marca de tiempo)")

	return cmd
}

func newBuscarCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "buscar <cedula>",
		Short: "Busca un soporte por cédula",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.GetByCedula(ctx, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			fmt.Printf("id: %d\nnombre: %s\ndireccion: %s\ncedula: %s\nfecha_creacion: %s\n",
				rec.ID, rec.Nombre, rec.Direccion, rec.Cedula,
				rec.FechaCreacion.Format(time.RFC3339))
			return nil
		},
	}
}
