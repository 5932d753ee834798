// Command configgen renders environment-specific forum configs from a single
// profile so the service and the CLI agree on endpoint and token settings.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	kindService = "service"
	kindCLI     = "cli"
)

type Profile struct {
	OutputDir string                   `yaml:"outputDir"`
	Auth      AuthProfile              `yaml:"auth"`
	Endpoint  EndpointProfile          `yaml:"endpoint"`
	Targets   map[string]TargetProfile `yaml:"targets"`
}

type AuthProfile struct {
	JWTSecret string `yaml:"jwtSecret"`
	JWTIssuer string `yaml:"jwtIssuer"`
}

// EndpointProfile is where the forum service listens and where the CLI points.
type EndpointProfile struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TargetProfile struct {
	Kind      string                 `yaml:"kind"`
	Base      string                 `yaml:"base"`
	Output    string                 `yaml:"output"`
	Overrides map[string]interface{} `yaml:"overrides"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("configgen", flag.ContinueOnError)
	profilePath := fs.String("profile", "configs/dev-profile.yaml", "Path to config profile")
	outputDir := fs.String("output-dir", "", "Override output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	profilePathAbs, err := filepath.Abs(*profilePath)
	if err != nil {
		return fmt.Errorf("resolve profile path failed: %w", err)
	}
	profile, err := loadProfile(profilePathAbs)
	if err != nil {
		return err
	}
	if *outputDir != "" {
		profile.OutputDir = *outputDir
	}
	if profile.OutputDir == "" {
		return errors.New("output directory is required")
	}
	profileDir := filepath.Dir(profilePathAbs)
	if !filepath.IsAbs(profile.OutputDir) {
		profile.OutputDir = filepath.Join(profileDir, profile.OutputDir)
	}

	names := make([]string, 0, len(profile.Targets))
	for name := range profile.Targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := profile.Targets[name]
		if target.Base == "" {
			return fmt.Errorf("target %q missing base config", name)
		}
		if !filepath.IsAbs(target.Base) {
			target.Base = filepath.Join(profileDir, target.Base)
		}
		rendered, err := render(profile, target)
		if err != nil {
			return fmt.Errorf("render %q failed: %w", name, err)
		}
		outputPath := resolveOutputPath(profile.OutputDir, target)
		if err := writeYAML(outputPath, rendered); err != nil {
			return fmt.Errorf("write %q failed: %w", name, err)
		}
		fmt.Fprintf(out, "%s -> %s\n", name, outputPath)
	}
	return nil
}

func loadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile failed: %w", err)
	}
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile failed: %w", err)
	}
	if len(profile.Targets) == 0 {
		return nil, errors.New("profile has no targets")
	}
	for name, target := range profile.Targets {
		if target.Kind != kindService && target.Kind != kindCLI {
			return nil, fmt.Errorf("target %q has unknown kind %q", name, target.Kind)
		}
	}
	return &profile, nil
}

// render merges overrides into the base file, then applies the shared profile settings.
// Shared settings win over per-target overrides.
func render(profile *Profile, target TargetProfile) (map[string]interface{}, error) {
	data, err := os.ReadFile(target.Base)
	if err != nil {
		return nil, fmt.Errorf("read base config failed: %w", err)
	}
	var base map[string]interface{}
	if err := yaml.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("parse base config failed: %w", err)
	}
	if base == nil {
		base = map[string]interface{}{}
	}
	config := mergeMap(base, target.Overrides)

	switch target.Kind {
	case kindService:
		if profile.Auth.JWTSecret != "" {
			section(config, "auth")["jwtSecret"] = profile.Auth.JWTSecret
		}
		if profile.Auth.JWTIssuer != "" {
			section(config, "auth")["jwtIssuer"] = profile.Auth.JWTIssuer
		}
		if profile.Endpoint.Port > 0 {
			section(config, "server")["addr"] = fmt.Sprintf("0.0.0.0:%d", profile.Endpoint.Port)
		}
	case kindCLI:
		if profile.Endpoint.Port > 0 {
			host := profile.Endpoint.Host
			if host == "" {
				host = "127.0.0.1"
			}
			config["baseURL"] = fmt.Sprintf("http://%s:%d", host, profile.Endpoint.Port)
		}
	}
	return config, nil
}

// section returns config[key] as a map, creating or replacing it when absent or scalar.
func section(config map[string]interface{}, key string) map[string]interface{} {
	if child, ok := config[key].(map[string]interface{}); ok {
		return child
	}
	child := map[string]interface{}{}
	config[key] = child
	return child
}

func mergeMap(base, override map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base))
	for k, v := range base {
		merged[k] = v
	}
	for key, value := range override {
		baseChild, baseIsMap := merged[key].(map[string]interface{})
		overrideChild, overrideIsMap := value.(map[string]interface{})
		if baseIsMap && overrideIsMap {
			merged[key] = mergeMap(baseChild, overrideChild)
			continue
		}
		merged[key] = value
	}
	return merged
}

func resolveOutputPath(outputDir string, target TargetProfile) string {
	output := target.Output
	if output == "" {
		output = filepath.Base(target.Base)
	}
	if filepath.IsAbs(output) {
		return output
	}
	return filepath.Join(outputDir, output)
}

func writeYAML(path string, value interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal yaml failed: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
