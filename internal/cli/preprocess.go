package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type templateContext struct {
	ENV map[string]string
}

var missingKeyRegex = regexp.MustCompile(`map has no entry for key "(.*?)"`)

// Preprocess replaces {{ .ENV.VAR }} placeholders in a descriptor file with
// values from the environment. A .env file in any of dirs, or in the
// working directory when dirs is empty, is loaded first without overriding
// variables that are already set.
func Preprocess(input []byte, dirs ...string) ([]byte, error) {
	if len(dirs) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dirs = []string{cwd}
	}
	for _, dir := range dirs {
		envPath := filepath.Join(dir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("loaded environment file")
		}
	}

	env := map[string]string{}
	for _, e := range os.Environ() {
		k, v, ok := strings.Cut(e, "=")
		if ok {
			env[k] = v
		}
	}

	tmpl, err := template.New("descriptors").Option("missingkey=error").Parse(string(input))
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer
	if err := tmpl.Execute(&output, templateContext{ENV: env}); err != nil {
		if m := missingKeyRegex.FindStringSubmatch(err.Error()); len(m) == 2 {
			return nil, fmt.Errorf("missing environment variable: %s (set it in your shell or .env file)", m[1])
		}
		return nil, fmt.Errorf("template error: %w", err)
	}
	return output.Bytes(), nil
}
