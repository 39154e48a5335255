package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ServerEntry is how an MCP client config launches a stdio server.
type ServerEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// DefaultEntry launches "lrag mcp", optionally with a watched seed file.
func DefaultEntry(seedFile string) ServerEntry {
	entry := ServerEntry{Command: ServerName, Args: []string{"mcp"}}
	if seedFile != "" {
		entry.Args = append(entry.Args, "--seed-file", seedFile, "--watch")
	}
	return entry
}

// Register adds or replaces the named server under "mcpServers" in a client
// config file. Other keys in the file are preserved. A missing file is created.
func Register(configPath, name string, entry ServerEntry) error {
	config, err := readClientConfig(configPath)
	if err != nil {
		return err
	}

	servers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	servers[name] = entry
	config["mcpServers"] = servers

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeClientConfig(configPath, config)
}

// Unregister removes the named server. It reports whether an entry was removed.
func Unregister(configPath, name string) (bool, error) {
	config, err := readClientConfig(configPath)
	if err != nil {
		return false, err
	}

	servers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		return false, nil
	}
	if _, ok := servers[name]; !ok {
		return false, nil
	}

	delete(servers, name)
	return true, writeClientConfig(configPath, config)
}

func readClientConfig(path string) (map[string]any, error) {
	config := make(map[string]any)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if len(data) == 0 {
		return config, nil
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse existing config: %w", err)
	}
	return config, nil
}

func writeClientConfig(path string, config map[string]any) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
