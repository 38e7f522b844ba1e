package cmd

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamancini/upkeep/internal/config"
	"github.com/adamancini/upkeep/internal/templates"
)

func newInitCmd() *cobra.Command {
	var templateName string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an upkeep settings file from a template",
		Long: `Create an upkeep settings file from a built-in or custom template.

Available templates:
  minimal    - Manifest and feed token only
  full       - Every setting with its default

The file is written to --config, or to upkeep.yaml in the user config
directory.

Examples:
  upkeep init                              # Interactive mode
  upkeep init --template=full              # Direct template selection
  upkeep init --template=https://...       # Custom template URL
  upkeep init --config ./upkeep.yaml       # Custom output location`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), templateName, configPath, force)
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", "", "Template name or URL")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing settings file")

	_ = cmd.RegisterFlagCompletionFunc("template", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var completions []string
		for _, name := range templates.List() {
			completions = append(completions, fmt.Sprintf("%s\t%s", name, templates.GetDescription(name)))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// runInit executes the init workflow.
func runInit(stdin io.Reader, stdout, stderr io.Writer, templateName, outputPath string, force bool) error {
	reader := bufio.NewReader(stdin)

	// Without --config the location is confirmed after the preview
	askPath := outputPath == ""
	if askPath {
		outputPath = defaultSettingsPath()
	}
	outputPath = expandHomePath(outputPath)

	if !force {
		ok, err := confirmOverwrite(reader, stdout, stderr, outputPath)
		if err != nil || !ok {
			return err
		}
	}

	if templateName == "" {
		selected, err := selectTemplateInteractive(reader, stdout)
		if err != nil {
			return err
		}
		templateName = selected
	}

	content, builtin, err := loadTemplate(templateName)
	if err != nil {
		return err
	}

	// Validate in the format the destination implies
	if err := validateTemplateContent(outputPath, content); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	if builtin && !quiet {
		previewTemplate(stdout, templateName, content)
	}

	if askPath && !quiet {
		_, _ = fmt.Fprintf(stdout, "\nWhere should I create the settings file? [%s]: ", outputPath)
		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if answer = strings.TrimSpace(answer); answer != "" {
			outputPath = expandHomePath(answer)
		}
	}

	parentDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", parentDir, err)
	}
	if err := os.WriteFile(outputPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	_, _ = fmt.Fprintf(stdout, "\nCreated %s\n", outputPath)
	_, _ = fmt.Fprintln(stdout, "\nNext steps:")
	_, _ = fmt.Fprintln(stdout, "  1. Point 'manifest' at your package.json")
	_, _ = fmt.Fprintln(stdout, "  2. Run 'upkeep check' to query the release feed")
	_, _ = fmt.Fprintln(stdout, "  3. Run 'upkeep run' for an interactive update")

	return nil
}

// confirmOverwrite asks before replacing an existing file. It reports true
// when path is free or the user agreed.
func confirmOverwrite(reader *bufio.Reader, stdout, stderr io.Writer, path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		return true, nil
	}

	_, _ = fmt.Fprintf(stderr, "Settings file already exists at %s\n", path)
	_, _ = fmt.Fprintf(stdout, "Overwrite? [y/N]: ")
	answer, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read input: %w", err)
	}
	switch strings.TrimSpace(strings.ToLower(answer)) {
	case "y", "yes":
		return true, nil
	}
	_, _ = fmt.Fprintln(stdout, "Aborted.")
	return false, nil
}

// loadTemplate returns the content of a built-in template, or fetches it
// when name is an http(s) URL. builtin is false for fetched templates.
func loadTemplate(name string) (content []byte, builtin bool, err error) {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		content, err = fetchRemoteTemplate(name)
		if err != nil {
			return nil, false, fmt.Errorf("failed to fetch template: %w", err)
		}
		return content, false, nil
	}

	tmpl, err := templates.Get(name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load template: %w", err)
	}
	return tmpl.Content, true, nil
}

// previewTemplate prints the head of a template.
func previewTemplate(w io.Writer, name string, content []byte) {
	const maxLines = 20

	_, _ = fmt.Fprintf(w, "\nPreview of '%s' template:\n", name)
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 40))
	lines := strings.Split(string(content), "\n")
	if len(lines) <= maxLines {
		_, _ = fmt.Fprintln(w, string(content))
	} else {
		for _, line := range lines[:maxLines] {
			_, _ = fmt.Fprintln(w, line)
		}
		_, _ = fmt.Fprintf(w, "... (%d more lines)\n", len(lines)-maxLines)
	}
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 40))
}

// selectTemplateInteractive shows an interactive menu for template selection.
func selectTemplateInteractive(reader *bufio.Reader, stdout io.Writer) (string, error) {
	templateList := templates.List()

	_, _ = fmt.Fprintln(stdout, "\nSelect a settings template:")
	for i, name := range templateList {
		_, _ = fmt.Fprintf(stdout, "  %d. %-12s - %s\n", i+1, name, templates.GetDescription(name))
	}
	_, _ = fmt.Fprintf(stdout, "  %d. %-12s - Provide custom template URL\n", len(templateList)+1, "custom")

	_, _ = fmt.Fprintf(stdout, "\nSelect [1-%d]: ", len(templateList)+1)

	answer, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	answer = strings.TrimSpace(answer)

	num, err := strconv.Atoi(answer)
	if err != nil || num < 1 || num > len(templateList)+1 {
		return "", fmt.Errorf("invalid selection: %s", answer)
	}

	if num == len(templateList)+1 {
		_, _ = fmt.Fprint(stdout, "Enter template URL: ")
		url, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read URL: %w", err)
		}
		return strings.TrimSpace(url), nil
	}

	return templateList[num-1], nil
}

// fetchRemoteTemplate downloads a template from a URL.
func fetchRemoteTemplate(url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return content, nil
}

// validateTemplateContent checks that content loads as a settings file
// written to path.
func validateTemplateContent(path string, content []byte) error {
	_, err := config.Parse(path, content)
	return err
}

// defaultSettingsPath returns upkeep.yaml in the first search directory.
func defaultSettingsPath() string {
	if paths := config.SearchPaths(); len(paths) > 0 {
		return filepath.Join(paths[0], "upkeep.yaml")
	}
	return "upkeep.yaml"
}

// expandHomePath expands ~ to the user's home directory.
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
