// Package dashboard renders the bundled Grafana dashboard template.
package dashboard

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

const dashboardTemplate = "grafana-dashboard.json.tmpl"

// Render writes the rendered dashboard to outDir. Template values come
// from the environment; unset variables fail the render.
func Render(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	funcMap := template.FuncMap{"env": requireEnv}
	return renderFile(filepath.Join(rootDir(), dashboardTemplate), outDir, funcMap)
}

// requireEnv resolves an environment variable, erroring when it is unset.
func requireEnv(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("environment variable %s not set", key)
}

// rootDir locates the repository root relative to this source file.
func rootDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(filepath.Dir(filepath.Dir(file)))
}

func renderFile(path, outDir string, funcMap template.FuncMap) error {
	t, err := template.New(filepath.Base(path)).Funcs(funcMap).ParseFiles(path)
	if err != nil {
		return err
	}
	outPath := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(path), ".tmpl"))
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := t.Execute(f, nil); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
