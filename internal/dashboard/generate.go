// Package dashboard renders Grafana dashboards for the run tables exported to GreptimeDB.
package dashboard

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"impulse-sim/internal/sink"
)

//go:embed templates/*.tmpl
var templates embed.FS

// DatasourceEnv names the variable holding the Grafana datasource UID.
const DatasourceEnv = "GREPTIMEDB_DATASOURCE_UID"

// Data is the template input.
type Data struct {
	Title         string
	RunsTable     string
	WaveformTable string
}

// DefaultData targets the tables written by sink.GreptimeDBWriter.
func DefaultData() Data {
	return Data{Title: "Impulse Generator Runs", RunsTable: sink.RunsTable, WaveformTable: sink.WaveformTable}
}

func parse() (*template.Template, error) {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}
	return template.New("dashboards").Funcs(funcMap).ParseFS(templates, "templates/*.tmpl")
}

// Execute writes the dashboard named name (without the .tmpl suffix) to w.
func Execute(w io.Writer, name string, data Data) error {
	t, err := parse()
	if err != nil {
		return err
	}
	if t.Lookup(name+".tmpl") == nil {
		return fmt.Errorf("unknown dashboard %q", name)
	}
	return t.ExecuteTemplate(w, name+".tmpl", data)
}

// Render writes every dashboard template to outDir and returns the written paths.
func Render(outDir string, data Data) ([]string, error) {
	t, err := parse()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, tpl := range t.Templates() {
		name := tpl.Name()
		if !strings.HasSuffix(name, ".tmpl") {
			continue
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return written, err
		}
		if err := tpl.Execute(f, data); err != nil {
			f.Close()
			return written, fmt.Errorf("%s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return written, err
		}
		written = append(written, outPath)
	}
	return written, nil
}
